// Package stepper advances a [State] through a magnetic field one bounded
// step at a time.
//
// Steppers are stateless: every propagation call owns its own [State],
// created by [Stepper.NewState], and the same stepper value can serve many
// concurrent calls. The size of the next step is negotiated through
// [ConstrainedStep]: navigators, actions, aborters and the run policy each
// set their own upper bound and the smallest one wins.
//
//   - [StraightLine]: field-free transport
//   - [RK4]: adaptive fourth order Runge-Kutta in a [field.Provider]
package stepper
