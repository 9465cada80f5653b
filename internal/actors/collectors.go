package actors

import (
	"github.com/san-kum/trackprop/internal/propagator"
	"github.com/san-kum/trackprop/internal/track"
)

// StepRecord is one entry of a recorded trajectory.
type StepRecord struct {
	Step       int           `json:"step"`
	Position   track.Vector3 `json:"position"`
	Direction  track.Vector3 `json:"direction"`
	Momentum   float64       `json:"momentum"`
	PathLength float64       `json:"path_length"`
	StepLength float64       `json:"step_length"`
	Limit      string        `json:"limit"`
	Surface    string        `json:"surface,omitempty"`
}

type Trajectory struct {
	Steps []StepRecord
}

func (t Trajectory) Len() int { return len(t.Steps) }

// Last returns the most recent record.
func (t Trajectory) Last() (StepRecord, bool) {
	if len(t.Steps) == 0 {
		return StepRecord{}, false
	}
	return t.Steps[len(t.Steps)-1], true
}

// StepCollector records every step. Every is the recording stride; zero
// records all steps.
type StepCollector struct {
	Every int `mapstructure:"every"`
}

func (c StepCollector) Name() string { return "step_collector" }

func (c StepCollector) Act(s *propagator.State, t *Trajectory) {
	if c.Every > 1 && s.Step%c.Every != 0 {
		return
	}
	st := s.Stepping
	t.Steps = append(t.Steps, StepRecord{
		Step:       s.Step,
		Position:   st.Position,
		Direction:  st.Dir,
		Momentum:   st.Momentum,
		PathLength: st.PathLength,
		StepLength: st.LastStep,
		Limit:      st.LastLimit.String(),
		Surface:    s.Navigation.Current,
	})
}

// SurfaceHit records a surface crossing.
type SurfaceHit struct {
	ID         string        `json:"id"`
	Step       int           `json:"step"`
	Position   track.Vector3 `json:"position"`
	PathLength float64       `json:"path_length"`
}

type SurfaceHits struct {
	Hits []SurfaceHit
}

func (h SurfaceHits) IDs() []string {
	ids := make([]string, len(h.Hits))
	for i, hit := range h.Hits {
		ids[i] = hit.ID
	}
	return ids
}

type SurfaceCollector struct{}

func (SurfaceCollector) Name() string { return "surface_collector" }

func (SurfaceCollector) Act(s *propagator.State, h *SurfaceHits) {
	if s.Navigation.Current == "" {
		return
	}
	h.Hits = append(h.Hits, SurfaceHit{
		ID:         s.Navigation.Current,
		Step:       s.Step,
		Position:   s.Stepping.Position,
		PathLength: s.Stepping.PathLength,
	})
}
