package experiment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"

	"github.com/san-kum/trackprop/internal/actors"
	"github.com/san-kum/trackprop/internal/field"
	"github.com/san-kum/trackprop/internal/metrics"
	"github.com/san-kum/trackprop/internal/propagator"
	"github.com/san-kum/trackprop/internal/stepper"
	"github.com/san-kum/trackprop/internal/track"
)

var (
	ErrUnknownMember    = errors.New("experiment: unknown member")
	ErrUnknownStepper   = errors.New("experiment: unknown stepper")
	ErrMissingCollector = errors.New("experiment: member needs a surface_collector declared before it")
)

// Slots are the result handles of the well-known observers, filled in as
// members register.
type Slots struct {
	Trajectory propagator.Slot[actors.Trajectory]
	Surfaces   propagator.Slot[actors.SurfaceHits]
}

// MemberFactory registers one configured member on b.
type MemberFactory func(b *propagator.Builder, params map[string]any, slots *Slots) error

type Registry struct {
	steppers map[string]func(field.Provider) stepper.Stepper
	actions  map[string]MemberFactory
	aborters map[string]MemberFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		steppers: make(map[string]func(field.Provider) stepper.Stepper),
		actions:  make(map[string]MemberFactory),
		aborters: make(map[string]MemberFactory),
	}

	r.steppers["rk4"] = func(f field.Provider) stepper.Stepper { return stepper.NewRK4(f) }
	r.steppers["straight"] = func(field.Provider) stepper.Stepper { return stepper.NewStraightLine() }

	r.actions["step_collector"] = func(b *propagator.Builder, params map[string]any, slots *Slots) error {
		var c actors.StepCollector
		if err := decode(params, &c); err != nil {
			return err
		}
		slots.Trajectory = propagator.AddObserver[actors.Trajectory](b, c)
		return nil
	}
	r.actions["surface_collector"] = func(b *propagator.Builder, params map[string]any, slots *Slots) error {
		slots.Surfaces = propagator.AddObserver[actors.SurfaceHits](b, actors.SurfaceCollector{})
		return nil
	}
	r.actions["energy_loss"] = func(b *propagator.Builder, params map[string]any, slots *Slots) error {
		e := actors.DefaultEnergyLoss()
		if err := decode(params, &e); err != nil {
			return err
		}
		b.AddAction(e)
		return nil
	}
	r.actions["momentum_drift"] = observer[metrics.Drift](metrics.MomentumDrift{})
	r.actions["momentum_loss"] = observer[metrics.Loss](metrics.MomentumLoss{})
	r.actions["step_statistics"] = observer[metrics.StepStats](metrics.StepStatistics{})
	r.actions["stability"] = func(b *propagator.Builder, params map[string]any, slots *Slots) error {
		s := metrics.NewStability(1000)
		if err := decode(params, &s); err != nil {
			return err
		}
		propagator.AddObserver[metrics.Bounds](b, s)
		return nil
	}

	r.aborters["path_limit"] = aborter(actors.PathLimit{Limit: 1000})
	r.aborters["surface_reached"] = aborter(actors.SurfaceReached{})
	r.aborters["stop_requested"] = aborter(actors.StopRequested{})
	r.aborters["momentum_below"] = aborter(actors.MomentumBelow{Min: 0.05})
	r.aborters["volume_limit"] = aborter(actors.VolumeLimit{
		Min: track.Vector3{-1e6, -1e6, -1e6},
		Max: track.Vector3{1e6, 1e6, 1e6},
	})
	r.aborters["surface_count"] = func(b *propagator.Builder, params map[string]any, slots *Slots) error {
		var c actors.SurfaceCount
		if err := decode(params, &c); err != nil {
			return err
		}
		if !slots.Surfaces.Valid() {
			return ErrMissingCollector
		}
		propagator.AttachAborter(b, slots.Surfaces, c)
		return nil
	}
	r.aborters["expr"] = func(b *propagator.Builder, params map[string]any, slots *Slots) error {
		var p struct {
			Source string `mapstructure:"source"`
		}
		if err := decode(params, &p); err != nil {
			return err
		}
		cond, err := actors.NewExpr(p.Source)
		if err != nil {
			return err
		}
		b.AddAborter(cond)
		return nil
	}

	return r
}

func observer[R any](o propagator.Observer[R]) MemberFactory {
	return func(b *propagator.Builder, params map[string]any, slots *Slots) error {
		propagator.AddObserver[R](b, o)
		return nil
	}
}

// aborter registers a copy of def with params decoded over it.
func aborter[A propagator.Aborter](def A) MemberFactory {
	return func(b *propagator.Builder, params map[string]any, slots *Slots) error {
		a := def
		if err := decode(params, &a); err != nil {
			return err
		}
		b.AddAborter(a)
		return nil
	}
}

func decode(params map[string]any, out any) error {
	if len(params) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(params)
}

func (r *Registry) RegisterAction(name string, f MemberFactory)  { r.actions[name] = f }
func (r *Registry) RegisterAborter(name string, f MemberFactory) { r.aborters[name] = f }

func (r *Registry) GetStepper(name string, f field.Provider) (stepper.Stepper, error) {
	fn, ok := r.steppers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStepper, name)
	}
	return fn(f), nil
}

func (r *Registry) AddAction(b *propagator.Builder, name string, params map[string]any, slots *Slots) error {
	fn, ok := r.actions[name]
	if !ok {
		return fmt.Errorf("%w: action %s", ErrUnknownMember, name)
	}
	if err := fn(b, params, slots); err != nil {
		return fmt.Errorf("experiment: action %s: %w", name, err)
	}
	return nil
}

func (r *Registry) AddAborter(b *propagator.Builder, name string, params map[string]any, slots *Slots) error {
	fn, ok := r.aborters[name]
	if !ok {
		return fmt.Errorf("%w: aborter %s", ErrUnknownMember, name)
	}
	if err := fn(b, params, slots); err != nil {
		return fmt.Errorf("experiment: aborter %s: %w", name, err)
	}
	return nil
}

func (r *Registry) ListActions() []string  { return sortedKeys(r.actions) }
func (r *Registry) ListAborters() []string { return sortedKeys(r.aborters) }

func (r *Registry) ListSteppers() []string {
	names := make([]string, 0, len(r.steppers))
	for name := range r.steppers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedKeys(m map[string]MemberFactory) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
