package metrics

import (
	"math"

	"github.com/san-kum/trackprop/internal/propagator"
)

type Bounds struct {
	Violations int
	Samples    int
}

// Value is the fraction of steps that stayed in bounds.
func (b Bounds) Value() float64 {
	if b.Samples == 0 {
		return 1.0
	}
	return 1.0 - float64(b.Violations)/float64(b.Samples)
}

// Stability counts steps whose position leaves the cube |x_i| <= Threshold.
type Stability struct {
	Threshold float64 `mapstructure:"threshold"`
}

func NewStability(threshold float64) Stability {
	return Stability{Threshold: threshold}
}

func (s Stability) Name() string { return "stability" }

func (s Stability) Act(st *propagator.State, b *Bounds) {
	b.Samples++
	for _, val := range st.Stepping.Position {
		if math.Abs(val) > s.Threshold {
			b.Violations++
			break
		}
	}
}
