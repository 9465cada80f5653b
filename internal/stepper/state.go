package stepper

import (
	"fmt"

	"github.com/san-kum/trackprop/internal/field"
	"github.com/san-kum/trackprop/internal/track"
)

// Direction is the sign of propagation along the trajectory.
type Direction int

const (
	Forward  Direction = 1
	Backward Direction = -1
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Options configure a fresh State.
type Options struct {
	Direction       Direction
	InitialStepSize float64
	Tolerance       float64
}

func DefaultOptions() Options {
	return Options{
		Direction:       Forward,
		InitialStepSize: 10.0,
		Tolerance:       1e-4,
	}
}

// State is the per-call trajectory state. It is owned by exactly one
// propagation call.
type State struct {
	Position track.Vector3
	Dir      track.Vector3
	Momentum float64
	Charge   float64
	Mass     float64
	Time     float64

	// PathLength accumulates |h| over all steps taken.
	PathLength float64
	LastStep   float64
	// LastLimit is the constraint that bounded the last step.
	LastLimit  ConstraintType
	Direction  Direction
	StepSize   ConstrainedStep
	Tolerance  float64

	Covariance          track.Covariance
	CovarianceTransport bool
	Jacobian            track.Jacobian

	FieldCache field.Cache
}

func newState(start track.Parameters, opts Options, cache field.Cache) (*State, error) {
	if err := start.Validate(); err != nil {
		return nil, err
	}
	if opts.Direction != Forward && opts.Direction != Backward {
		return nil, fmt.Errorf("stepper: invalid direction %d", opts.Direction)
	}
	if opts.InitialStepSize <= 0 {
		return nil, fmt.Errorf("stepper: initial step size must be positive, got %g", opts.InitialStepSize)
	}

	st := &State{
		Position:   start.Position,
		Dir:        start.Direction.Unit(),
		Momentum:   start.Momentum,
		Charge:     start.Charge,
		Mass:       start.Mass,
		Time:       start.Time,
		Direction:  opts.Direction,
		StepSize:   NewConstrainedStep(opts.InitialStepSize),
		Tolerance:  opts.Tolerance,
		Jacobian:   track.Identity(),
		FieldCache: cache,
	}
	if start.Covariance != nil {
		st.Covariance = *start.Covariance
		st.CovarianceTransport = true
	}
	return st, nil
}

func (s *State) QOverP() float64 {
	if s.Momentum == 0 {
		return 0
	}
	return s.Charge / s.Momentum
}

// Parameters converts the current state back into free parameters.
func (s *State) Parameters() track.Parameters {
	p := track.Parameters{
		Position:  s.Position,
		Direction: s.Dir,
		Momentum:  s.Momentum,
		Charge:    s.Charge,
		Mass:      s.Mass,
		Time:      s.Time,
	}
	if s.CovarianceTransport {
		cov := s.Covariance
		p.Covariance = &cov
	}
	return p
}

// Snapshot returns a detached copy without the field cache.
func (s *State) Snapshot() State {
	c := *s
	c.FieldCache = field.Cache{}
	return c
}

// advance applies the kinematic bookkeeping shared by all steppers.
func (s *State) advance(pos, dir track.Vector3, h float64, j track.Jacobian) error {
	if !pos.IsValid() || !dir.IsValid() {
		return ErrInvalidState
	}
	s.Position = pos
	s.Dir = dir.Unit()
	s.LastStep = h
	if h < 0 {
		h = -h
	}
	s.PathLength += h
	if beta := track.Beta(s.Momentum, s.Mass); beta > 0 {
		s.Time += float64(s.Direction) * h / (beta * track.SpeedOfLight)
	}
	if s.CovarianceTransport {
		s.Covariance = s.Covariance.Transport(j)
		s.Jacobian = j.Mul(s.Jacobian)
	}
	return nil
}
