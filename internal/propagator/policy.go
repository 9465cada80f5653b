package propagator

import (
	"fmt"

	"github.com/san-kum/trackprop/internal/stepper"
)

// Policy holds the global limits of one propagation call.
type Policy struct {
	MaxSteps        int
	MaxPathLength   float64
	Direction       stepper.Direction
	InitialStepSize float64
	Tolerance       float64
}

func DefaultPolicy() Policy {
	opts := stepper.DefaultOptions()
	return Policy{
		MaxSteps:        1000,
		MaxPathLength:   10000.0,
		Direction:       opts.Direction,
		InitialStepSize: opts.InitialStepSize,
		Tolerance:       opts.Tolerance,
	}
}

func (p Policy) Validate() error {
	if p.MaxSteps <= 0 {
		return fmt.Errorf("%w: max steps must be positive, got %d", ErrInvalidPolicy, p.MaxSteps)
	}
	if p.MaxPathLength <= 0 {
		return fmt.Errorf("%w: max path length must be positive, got %g", ErrInvalidPolicy, p.MaxPathLength)
	}
	if p.Direction != stepper.Forward && p.Direction != stepper.Backward {
		return fmt.Errorf("%w: invalid direction %d", ErrInvalidPolicy, p.Direction)
	}
	if p.InitialStepSize <= 0 {
		return fmt.Errorf("%w: initial step size must be positive, got %g", ErrInvalidPolicy, p.InitialStepSize)
	}
	if p.Tolerance <= 0 {
		return fmt.Errorf("%w: tolerance must be positive, got %g", ErrInvalidPolicy, p.Tolerance)
	}
	return nil
}

func (p Policy) stepperOptions() stepper.Options {
	return stepper.Options{
		Direction:       p.Direction,
		InitialStepSize: p.InitialStepSize,
		Tolerance:       p.Tolerance,
	}
}
