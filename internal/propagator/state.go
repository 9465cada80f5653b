package propagator

import (
	"go.uber.org/zap"

	"github.com/san-kum/trackprop/internal/navigation"
	"github.com/san-kum/trackprop/internal/stepper"
	"github.com/san-kum/trackprop/internal/track"
)

// State is what actions and abort conditions see on every step.
type State struct {
	Stepping   *stepper.State
	Navigation *navigation.State

	// Step is the number of the step just taken, starting at 1.
	Step   int
	Policy Policy
	Logger *zap.Logger

	// Start holds the parameters the call began with.
	Start track.Parameters

	stop       bool
	stopReason string
}

// RequestStop records that an action wants the propagation to end. The loop
// does not terminate on it; an abort condition has to act on it. The first
// reason is kept.
func (s *State) RequestStop(reason string) {
	if s.stop {
		return
	}
	s.stop = true
	s.stopReason = reason
}

func (s *State) StopRequested() (bool, string) {
	return s.stop, s.stopReason
}
