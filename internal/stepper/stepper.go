package stepper

import (
	"github.com/san-kum/trackprop/internal/field"
	"github.com/san-kum/trackprop/internal/track"
)

// Stepper performs one bounded numerical advance of a State.
type Stepper interface {
	NewState(start track.Parameters, opts Options) (*State, error)

	// Step advances st by at most st.StepSize.Value() along st.Direction and
	// returns the signed length actually taken.
	Step(st *State) (float64, error)
}

// StraightLine ignores any field and moves along the current direction.
type StraightLine struct{}

func NewStraightLine() *StraightLine {
	return &StraightLine{}
}

func (s *StraightLine) NewState(start track.Parameters, opts Options) (*State, error) {
	return newState(start, opts, field.Cache{})
}

func (s *StraightLine) Step(st *State) (float64, error) {
	h, which := st.StepSize.Limiting()
	if h <= 0 {
		return 0, ErrZeroStep
	}
	h *= float64(st.Direction)
	st.LastLimit = which

	pos := st.Position.Add(st.Dir.Scale(h))
	if err := st.advance(pos, st.Dir, h, track.StraightLineJacobian(h)); err != nil {
		return 0, err
	}
	return h, nil
}
