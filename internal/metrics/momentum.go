package metrics

import (
	"math"

	"github.com/san-kum/trackprop/internal/propagator"
)

type Drift struct {
	Initial  float64
	Current  float64
	MaxDrift float64
	Samples  int
}

// Value is the largest relative deviation from the first sample.
func (d Drift) Value() float64 { return d.MaxDrift }

// MomentumDrift tracks how far the momentum moves away from its value after
// the first step. Without material effects it measures integration error.
type MomentumDrift struct{}

func (MomentumDrift) Name() string { return "momentum_drift" }

func (MomentumDrift) Act(s *propagator.State, d *Drift) {
	p := s.Stepping.Momentum
	if d.Samples == 0 {
		d.Initial = p
	}
	d.Current = p
	d.Samples++

	if d.Initial != 0 {
		drift := math.Abs(p-d.Initial) / math.Abs(d.Initial)
		d.MaxDrift = math.Max(d.MaxDrift, drift)
	}
}

type Loss struct {
	Total   float64
	Last    float64
	Samples int
}

func (l Loss) Value() float64 { return l.Total }

// MomentumLoss sums the momentum removed since the start of the call.
// Register it after the actions that change the momentum.
type MomentumLoss struct{}

func (MomentumLoss) Name() string { return "momentum_loss" }

func (MomentumLoss) Act(s *propagator.State, l *Loss) {
	p := s.Stepping.Momentum
	if l.Samples == 0 {
		l.Last = s.Start.Momentum
	}
	if p < l.Last {
		l.Total += l.Last - p
	}
	l.Last = p
	l.Samples++
}
