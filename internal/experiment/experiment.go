package experiment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/trackprop/internal/config"
	"github.com/san-kum/trackprop/internal/ensemble"
	"github.com/san-kum/trackprop/internal/field"
	"github.com/san-kum/trackprop/internal/navigation"
	"github.com/san-kum/trackprop/internal/propagator"
	"github.com/san-kum/trackprop/internal/stepper"
	"github.com/san-kum/trackprop/internal/track"
)

// Experiment is a configured propagation ready to run.
type Experiment struct {
	cfg    *config.Config
	prop   *propagator.Propagator
	plan   *propagator.Plan
	start  track.Parameters
	policy propagator.Policy
	slots  Slots
}

type options struct {
	registry *Registry
	logger   *zap.Logger
	hooks    propagator.Hooks
}

type Option func(*options)

func WithRegistry(r *Registry) Option     { return func(o *options) { o.registry = r } }
func WithLogger(l *zap.Logger) Option     { return func(o *options) { o.logger = l } }
func WithHooks(h propagator.Hooks) Option { return func(o *options) { o.hooks = h } }

func New(cfg *config.Config, opts ...Option) (*Experiment, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = NewRegistry()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	bfield, err := BuildField(cfg.Field)
	if err != nil {
		return nil, err
	}
	step, err := o.registry.GetStepper(cfg.Stepper, bfield)
	if err != nil {
		return nil, err
	}
	nav, err := BuildNavigator(cfg.Navigator)
	if err != nil {
		return nil, err
	}
	start, err := StartParameters(cfg.Start)
	if err != nil {
		return nil, err
	}
	policy, err := Policy(cfg.Policy)
	if err != nil {
		return nil, err
	}

	e := &Experiment{cfg: cfg, start: start, policy: policy}

	b := propagator.NewBuilder()
	for _, m := range cfg.Actions {
		if err := o.registry.AddAction(b, m.Type, m.Params, &e.slots); err != nil {
			return nil, err
		}
	}
	for _, m := range cfg.Aborters {
		if err := o.registry.AddAborter(b, m.Type, m.Params, &e.slots); err != nil {
			return nil, err
		}
	}
	if e.plan, err = b.Build(); err != nil {
		return nil, err
	}

	e.prop = propagator.New(step, nav, propagator.WithLogger(o.logger), propagator.WithHooks(o.hooks))
	return e, nil
}

func (e *Experiment) Config() *config.Config             { return e.cfg }
func (e *Experiment) Plan() *propagator.Plan             { return e.plan }
func (e *Experiment) Start() track.Parameters            { return e.start }
func (e *Experiment) Policy() propagator.Policy          { return e.policy }
func (e *Experiment) Slots() Slots                       { return e.slots }
func (e *Experiment) Propagator() *propagator.Propagator { return e.prop }

func (e *Experiment) Run(ctx context.Context) *propagator.Outcome {
	return e.prop.Propagate(ctx, e.start, e.plan, e.policy)
}

// RunEnsemble propagates runs smeared copies of the start concurrently.
// runs <= 0 uses the configured count.
func (e *Experiment) RunEnsemble(ctx context.Context, runs int) ([]*propagator.Outcome, error) {
	ec := e.cfg.Ensemble
	if runs <= 0 {
		runs = ec.Runs
	}
	starts := ensemble.Smear(e.start, runs, e.cfg.Seed, ensemble.Smearing{
		Position: ec.Smearing.Position,
		Angle:    ec.Smearing.Angle,
		Momentum: ec.Smearing.Momentum,
	})
	return ensemble.New(e.prop, e.plan, e.policy, ec.Workers).Run(ctx, starts)
}

// Trajectory returns the recorded steps of out, if a step collector was
// configured.
func (e *Experiment) Trajectory(out *propagator.Outcome) []StepView {
	traj, ok := e.slots.Trajectory.Get(out.Results)
	if !ok {
		return nil
	}
	views := make([]StepView, len(traj.Steps))
	for i, s := range traj.Steps {
		views[i] = StepView{StepRecord: s, Radius: s.Position.Perp()}
	}
	return views
}

func BuildField(fc config.FieldConfig) (field.Provider, error) {
	var p field.Provider
	switch fc.Type {
	case "", "none":
		p = field.Null{}
	case "constant":
		p = field.NewConstant(track.Vector3(fc.B))
	case "zgrid":
		g, err := field.NewZGrid(fc.ZMin, fc.ZMax, fc.Bz)
		if err != nil {
			return nil, err
		}
		p = g
	default:
		return nil, fmt.Errorf("%w: unknown field type %q", config.ErrInvalidConfig, fc.Type)
	}
	if fc.Bounds != nil {
		p = field.NewBounded(p, track.Vector3(fc.Bounds.Min), track.Vector3(fc.Bounds.Max))
	}
	return p, nil
}

// BuildNavigator returns nil when no surfaces are configured.
func BuildNavigator(nc config.NavigatorConfig) (navigation.Navigator, error) {
	if len(nc.Surfaces) == 0 {
		return nil, nil
	}
	surfaces := make([]navigation.Surface, len(nc.Surfaces))
	for i, s := range nc.Surfaces {
		surfaces[i] = navigation.Surface{
			ID:     s.ID,
			Center: track.Vector3(s.Center),
			Normal: track.Vector3(s.Normal),
		}
	}
	return navigation.NewPlanes(surfaces, nc.Target, nc.Tolerance)
}

func StartParameters(sc config.StartConfig) (track.Parameters, error) {
	p := track.NewParameters(track.Vector3(sc.Position), track.Vector3(sc.Direction), sc.Momentum, sc.Charge)
	if sc.Mass > 0 {
		p.Mass = sc.Mass
	}
	if len(sc.Sigmas) == track.CovarianceDim {
		var sigmas [track.CovarianceDim]float64
		copy(sigmas[:], sc.Sigmas)
		cov := track.DiagonalCovariance(sigmas)
		p.Covariance = &cov
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func Policy(pc config.PolicyConfig) (propagator.Policy, error) {
	p := propagator.Policy{
		MaxSteps:        pc.MaxSteps,
		MaxPathLength:   pc.MaxPathLength,
		Direction:       stepper.Forward,
		InitialStepSize: pc.InitialStepSize,
		Tolerance:       pc.Tolerance,
	}
	if pc.Direction == "backward" {
		p.Direction = stepper.Backward
	}
	return p, p.Validate()
}
