package propagator

import (
	"github.com/san-kum/trackprop/internal/navigation"
	"github.com/san-kum/trackprop/internal/stepper"
)

type Status int

const (
	Success Status = iota
	Aborted
	PolicyStop
	Failed
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Aborted:
		return "aborted"
	case PolicyStop:
		return "policy_stop"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Policy limit names reported as Outcome.Trigger.
const (
	TriggerMaxSteps      = "max_steps"
	TriggerMaxPathLength = "max_path_length"
	TriggerTarget        = "target"
)

// Outcome is the terminal report of one propagation call.
type Outcome struct {
	Status Status
	Reason string

	// Trigger names the abort condition or policy limit that ended the call.
	// TriggerIndex is the abort condition's declaration index, -1 otherwise.
	Trigger      string
	TriggerIndex int

	// Steps counts completed step cycles.
	Steps int

	State      stepper.State
	Navigation navigation.Summary
	Results    *Results

	// Err is set for Failed outcomes only.
	Err error
}

func (o *Outcome) OK() bool {
	return o.Status != Failed
}
