package metrics

import (
	"math"

	"github.com/san-kum/trackprop/internal/propagator"
)

type StepStats struct {
	Samples int
	Sum     float64
	Min     float64
	Max     float64

	// Limits counts which constraint bounded each step.
	Limits map[string]int
}

// Value is the mean absolute step length.
func (s StepStats) Value() float64 {
	if s.Samples == 0 {
		return 0
	}
	return s.Sum / float64(s.Samples)
}

// StepStatistics summarizes the step lengths taken.
type StepStatistics struct{}

func (StepStatistics) Name() string { return "step_length" }

func (StepStatistics) NewResult() StepStats {
	return StepStats{Min: math.Inf(1), Limits: make(map[string]int)}
}

func (StepStatistics) Act(s *propagator.State, r *StepStats) {
	h := math.Abs(s.Stepping.LastStep)
	r.Sum += h
	r.Min = math.Min(r.Min, h)
	r.Max = math.Max(r.Max, h)
	r.Samples++
	r.Limits[s.Stepping.LastLimit.String()]++
}
