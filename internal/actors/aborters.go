package actors

import (
	"github.com/san-kum/trackprop/internal/propagator"
	"github.com/san-kum/trackprop/internal/stepper"
	"github.com/san-kum/trackprop/internal/track"
)

// pathTolerance is how close to a path limit counts as on it, in mm.
const pathTolerance = 1e-6

// PathLimit aborts once the trajectory has covered Limit mm and constrains
// every step to land on it.
type PathLimit struct {
	Limit float64 `mapstructure:"limit"`
}

func (p PathLimit) Name() string { return "path_limit" }

func (p PathLimit) Start(s *propagator.State) {
	p.constrain(s.Stepping)
}

func (p PathLimit) Check(s *propagator.State) bool {
	if p.Limit-s.Stepping.PathLength <= pathTolerance {
		return true
	}
	p.constrain(s.Stepping)
	return false
}

func (p PathLimit) constrain(st *stepper.State) {
	st.StepSize.Set(p.Limit-st.PathLength, stepper.ConstraintAborter)
}

// SurfaceReached aborts on the surface with the given ID, or on any surface
// when ID is empty.
type SurfaceReached struct {
	ID string `mapstructure:"id"`
}

func (r SurfaceReached) Name() string {
	if r.ID == "" {
		return "surface_reached"
	}
	return "surface_reached:" + r.ID
}

func (r SurfaceReached) Check(s *propagator.State) bool {
	cur := s.Navigation.Current
	return cur != "" && (r.ID == "" || cur == r.ID)
}

// StopRequested turns an action's stop request into a termination.
type StopRequested struct{}

func (StopRequested) Name() string { return "stop_requested" }

func (StopRequested) Check(s *propagator.State) bool {
	stop, reason := s.StopRequested()
	if stop && s.Logger != nil {
		s.Logger.Sugar().Debugw("stop requested", "step", s.Step, "reason", reason)
	}
	return stop
}

type MomentumBelow struct {
	Min float64 `mapstructure:"min"`
}

func (m MomentumBelow) Name() string { return "momentum_below" }

func (m MomentumBelow) Check(s *propagator.State) bool {
	return s.Stepping.Momentum < m.Min
}

// VolumeLimit aborts when the trajectory leaves an axis-aligned box.
type VolumeLimit struct {
	Min track.Vector3 `mapstructure:"min"`
	Max track.Vector3 `mapstructure:"max"`
}

func (v VolumeLimit) Name() string { return "volume_limit" }

func (v VolumeLimit) Check(s *propagator.State) bool {
	pos := s.Stepping.Position
	for i := range pos {
		if pos[i] < v.Min[i] || pos[i] > v.Max[i] {
			return true
		}
	}
	return false
}

// SurfaceCount aborts after Max surface crossings. It reads the hits of a
// SurfaceCollector and is registered with propagator.AttachAborter.
type SurfaceCount struct {
	Max int `mapstructure:"max"`
}

func (c SurfaceCount) Name() string { return "surface_count" }

func (c SurfaceCount) Check(s *propagator.State, h *SurfaceHits) bool {
	return len(h.Hits) >= c.Max
}
