// Package navigation tracks which surfaces a propagation has crossed and
// which one it should head for next.
package navigation

import (
	"errors"
	"math"

	"github.com/san-kum/trackprop/internal/stepper"
	"github.com/san-kum/trackprop/internal/track"
)

var (
	// ErrNoTarget indicates no remaining surface can be reached along the
	// current direction.
	ErrNoTarget = errors.New("navigation: no viable target surface")

	// ErrInconsistent indicates navigation state that does not match the
	// navigator's geometry.
	ErrInconsistent = errors.New("navigation: inconsistent navigation state")
)

// Navigator updates a State after every step. Implementations hold only
// geometry; per-call bookkeeping lives in State.
type Navigator interface {
	Init(nav *State, st *stepper.State) error
	Update(nav *State, st *stepper.State) error
	TargetReached(nav *State) bool
}

// State is the per-call navigation bookkeeping.
type State struct {
	Surfaces []Surface
	Next     int
	Target   string

	// Current is the surface reached by the last step, empty if none.
	Current string
	Passed  []string

	TargetReached bool
	Break         bool
}

// Summary is the part of State reported in an outcome.
type Summary struct {
	SurfacesPassed []string
	Target         string
	TargetReached  bool
}

func (s *State) Summary() Summary {
	passed := make([]string, len(s.Passed))
	copy(passed, s.Passed)
	return Summary{
		SurfacesPassed: passed,
		Target:         s.Target,
		TargetReached:  s.TargetReached,
	}
}

// Surface is an oriented plane.
type Surface struct {
	ID     string
	Center track.Vector3
	Normal track.Vector3
}

// Distance returns the signed path length from pos along dir to the plane.
// ok is false when dir is parallel to the plane.
func (s Surface) Distance(pos, dir track.Vector3) (float64, bool) {
	n := s.Normal.Unit()
	denom := dir.Dot(n)
	if math.Abs(denom) < 1e-12 {
		return 0, false
	}
	return s.Center.Sub(pos).Dot(n) / denom, true
}

// Void never reaches a target and never constrains the step.
type Void struct{}

func (Void) Init(nav *State, st *stepper.State) error { return nil }

func (Void) Update(nav *State, st *stepper.State) error {
	nav.Current = ""
	return nil
}

func (Void) TargetReached(nav *State) bool { return false }
