package stepper

import "errors"

var (
	// ErrStepTooSmall indicates the adaptive step size collapsed below MinStep.
	ErrStepTooSmall = errors.New("stepper: adaptive step below minimum")

	// ErrInvalidState indicates the state became non-finite after a step.
	ErrInvalidState = errors.New("stepper: invalid state (NaN or Inf detected)")

	// ErrZeroStep indicates every constraint collapsed to zero length.
	ErrZeroStep = errors.New("stepper: no step length available")
)
