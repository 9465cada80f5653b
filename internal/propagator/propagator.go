package propagator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/trackprop/internal/navigation"
	"github.com/san-kum/trackprop/internal/stepper"
	"github.com/san-kum/trackprop/internal/track"
)

// pathEpsilon absorbs rounding when the policy constraint lands the
// trajectory on MaxPathLength.
const pathEpsilon = 1e-9

// Hooks observe a propagation without taking part in it. Nil hooks are
// skipped.
type Hooks struct {
	OnStart  func(ctx context.Context, s *State)
	OnStep   func(ctx context.Context, s *State)
	OnFinish func(ctx context.Context, out *Outcome)
}

type Option func(*Propagator)

func WithLogger(l *zap.Logger) Option {
	return func(p *Propagator) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithHooks(h Hooks) Option {
	return func(p *Propagator) { p.hooks = h }
}

// Propagator couples a stepper with a navigator. It holds no per-call state
// and can be shared between goroutines.
type Propagator struct {
	stepper   stepper.Stepper
	navigator navigation.Navigator
	logger    *zap.Logger
	hooks     Hooks
}

// New returns a Propagator. A nil navigator never reaches a target.
func New(s stepper.Stepper, n navigation.Navigator, opts ...Option) *Propagator {
	if n == nil {
		n = navigation.Void{}
	}
	p := &Propagator{
		stepper:   s,
		navigator: n,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EmptyPlan returns a plan without members.
func EmptyPlan() *Plan {
	p := &Plan{}
	p.empty = &Results{plan: p}
	return p
}

// run is the mutable bookkeeping of one call.
type run struct {
	state     State
	nav       navigation.State
	results   *Results
	completed int
}

// Propagate moves start through the field until an abort condition, the
// navigation target or a policy limit ends it. It always returns an Outcome;
// failures are reported with Status Failed and a classified Err.
//
// ctx is handed to the hooks. The loop itself does not poll it.
func (p *Propagator) Propagate(ctx context.Context, start track.Parameters, plan *Plan, policy Policy) (out *Outcome) {
	if plan == nil {
		plan = EmptyPlan()
	}
	r := &run{
		state:   State{Policy: policy, Logger: p.logger, Start: start},
		results: plan.newResults(),
	}
	r.state.Navigation = &r.nav

	defer func() {
		if rec := recover(); rec != nil {
			out = p.finish(ctx, r, &Outcome{
				Status: Failed,
				Reason: "member panic",
				Err:    fmt.Errorf("%w: step %d: %v", ErrMemberPanic, r.state.Step, rec),
			})
		}
	}()

	if err := policy.Validate(); err != nil {
		return p.finish(ctx, r, &Outcome{Status: Failed, Reason: "invalid policy", Err: err})
	}

	st, err := p.stepper.NewState(start, policy.stepperOptions())
	if err != nil {
		return p.finish(ctx, r, &Outcome{
			Status: Failed,
			Reason: "invalid start",
			Err:    &SteppingError{Wrapped: err},
		})
	}
	r.state.Stepping = st

	if err := p.navigator.Init(&r.nav, st); err != nil {
		return p.finish(ctx, r, &Outcome{
			Status: Failed,
			Reason: "navigation init failed",
			Err:    &NavigationError{Wrapped: err},
		})
	}

	s := &r.state
	for _, a := range plan.actions {
		if a.start != nil {
			a.start(s)
		}
	}
	for _, a := range plan.aborters {
		if a.start != nil {
			a.start(s)
		}
	}
	if p.hooks.OnStart != nil {
		p.hooks.OnStart(ctx, s)
	}

	for {
		st.StepSize.Set(policy.MaxPathLength-st.PathLength, stepper.ConstraintPolicy)

		if _, err := p.stepper.Step(st); err != nil {
			return p.finish(ctx, r, &Outcome{
				Status: Failed,
				Reason: "stepping failed",
				Err:    &SteppingError{Step: s.Step + 1, PathLength: st.PathLength, Wrapped: err},
			})
		}
		st.StepSize.Release(stepper.ConstraintActor)
		s.Step++

		if err := p.navigator.Update(&r.nav, st); err != nil {
			return p.finish(ctx, r, &Outcome{
				Status: Failed,
				Reason: "navigation failed",
				Err:    &NavigationError{Step: s.Step, Wrapped: err},
			})
		}

		for _, a := range plan.actions {
			a.act(s, r.results.cells)
		}
		if p.hooks.OnStep != nil {
			p.hooks.OnStep(ctx, s)
		}

		for i, a := range plan.aborters {
			if a.check(s, r.results.cells) {
				r.completed = s.Step
				return p.finish(ctx, r, &Outcome{
					Status:       Aborted,
					Reason:       "aborted by " + a.name,
					Trigger:      a.name,
					TriggerIndex: i,
				})
			}
		}
		r.completed = s.Step

		switch {
		case p.navigator.TargetReached(&r.nav):
			return p.finish(ctx, r, &Outcome{
				Status:  Success,
				Reason:  "target reached",
				Trigger: TriggerTarget,
			})
		case st.PathLength >= policy.MaxPathLength-pathEpsilon:
			return p.finish(ctx, r, &Outcome{
				Status:  PolicyStop,
				Reason:  "max path length reached",
				Trigger: TriggerMaxPathLength,
			})
		case s.Step >= policy.MaxSteps:
			return p.finish(ctx, r, &Outcome{
				Status:  PolicyStop,
				Reason:  "max steps reached",
				Trigger: TriggerMaxSteps,
			})
		}
	}
}

func (p *Propagator) finish(ctx context.Context, r *run, out *Outcome) *Outcome {
	if out.Status != Aborted {
		out.TriggerIndex = -1
	}
	out.Steps = r.completed
	out.Results = r.results
	out.Navigation = r.nav.Summary()
	if r.state.Stepping != nil {
		out.State = r.state.Stepping.Snapshot()
	}

	fields := []zap.Field{
		zap.Stringer("status", out.Status),
		zap.String("reason", out.Reason),
		zap.Int("steps", out.Steps),
		zap.Float64("path_length", out.State.PathLength),
	}
	if out.Trigger != "" {
		fields = append(fields, zap.String("trigger", out.Trigger))
	}
	if out.Err != nil {
		fields = append(fields, zap.Error(out.Err))
	}
	p.logger.Debug("propagation finished", fields...)

	if p.hooks.OnFinish != nil {
		p.hooks.OnFinish(ctx, out)
	}
	return out
}
