package propagator

import (
	"errors"
	"fmt"
)

var (
	// ErrStepping indicates the stepper could not advance the state.
	ErrStepping = errors.New("propagator: stepping failed")

	// ErrNavigation indicates the navigator rejected the state.
	ErrNavigation = errors.New("propagator: navigation failed")

	// ErrInvalidPolicy indicates a policy that would never terminate.
	ErrInvalidPolicy = errors.New("propagator: invalid policy")

	// ErrMemberPanic indicates an action or abort condition panicked.
	ErrMemberPanic = errors.New("propagator: member panicked")

	// ErrNotDefaultConstructible indicates a result type whose zero value is
	// unusable and whose member declares no initializer.
	ErrNotDefaultConstructible = errors.New("propagator: result type is not default constructible")

	// ErrBuilderUsed indicates a Builder that was already built.
	ErrBuilderUsed = errors.New("propagator: builder already built")

	// ErrUnknownSlot indicates a slot that was not returned by a Builder.
	ErrUnknownSlot = errors.New("propagator: slot does not belong to this builder")
)

// SteppingError wraps a stepper failure with the loop position.
type SteppingError struct {
	Step       int
	PathLength float64
	Wrapped    error
}

func (e *SteppingError) Error() string {
	return fmt.Sprintf("propagator: step %d at path length %g: %v", e.Step, e.PathLength, e.Wrapped)
}

func (e *SteppingError) Unwrap() error {
	return e.Wrapped
}

func (e *SteppingError) Is(target error) bool {
	return target == ErrStepping
}

// NavigationError wraps a navigator failure.
type NavigationError struct {
	Step    int
	Wrapped error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("propagator: navigation at step %d: %v", e.Step, e.Wrapped)
}

func (e *NavigationError) Unwrap() error {
	return e.Wrapped
}

func (e *NavigationError) Is(target error) bool {
	return target == ErrNavigation
}

// BuildError reports a member whose result type cannot be used.
type BuildError struct {
	Member     string
	ResultType string
	Wrapped    error
}

func (e *BuildError) Error() string {
	if e.ResultType == "" {
		return fmt.Sprintf("propagator: member %s: %v", e.Member, e.Wrapped)
	}
	return fmt.Sprintf("propagator: member %s result %s: %v", e.Member, e.ResultType, e.Wrapped)
}

func (e *BuildError) Unwrap() error {
	return e.Wrapped
}
