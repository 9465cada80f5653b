// Package propagator drives a trajectory through a field and a geometry one
// step at a time while running pluggable actions and abort conditions.
//
// The engine is assembled in two phases:
//
//   - Configuration: members are registered on a [Builder] in declaration
//     order and frozen into an immutable [Plan]. Whether a member contributes
//     a typed result is decided by the registration function the caller
//     uses ([AddObserver], [AddResultAborter], [AttachAborter]) and is checked
//     by the compiler; [Builder.Build] validates every result type once.
//   - Propagation: [Propagator.Propagate] creates fresh per-call state and a
//     fresh [Results] aggregate, then loops: step, navigate, run actions in
//     order, check aborters in order (first true wins), apply the global
//     policy checks.
//
// # Example
//
//	b := propagator.NewBuilder()
//	traj := propagator.AddObserver[actors.Trajectory](b, actors.StepCollector{})
//	b.AddAborter(actors.PathLimit{Limit: 500})
//	plan, err := b.Build()
//
//	p := propagator.New(stepper.NewRK4(bfield), nil)
//	out := p.Propagate(ctx, start, plan, propagator.DefaultPolicy())
//	steps, _ := traj.Get(out.Results)
//
// # Thread Safety
//
// A Plan, the stepper, the navigator and every registered member are shared
// read-only between concurrent Propagate calls. Members must keep per-call
// data in their result value, never in their own fields.
package propagator
