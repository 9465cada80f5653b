// Package ensemble runs many independent propagations that share one plan.
package ensemble

import (
	"context"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/trackprop/internal/propagator"
	"github.com/san-kum/trackprop/internal/track"
)

type Ensemble struct {
	prop    *propagator.Propagator
	plan    *propagator.Plan
	policy  propagator.Policy
	workers int
}

// New returns an ensemble running at most workers propagations at a time.
// workers <= 0 uses GOMAXPROCS.
func New(p *propagator.Propagator, plan *propagator.Plan, policy propagator.Policy, workers int) *Ensemble {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Ensemble{prop: p, plan: plan, policy: policy, workers: workers}
}

// Run propagates every start and returns the outcomes in input order.
// Failed propagations are outcomes, not errors; the error is only set when
// ctx ends before all starts were dispatched.
func (e *Ensemble) Run(ctx context.Context, starts []track.Parameters) ([]*propagator.Outcome, error) {
	outcomes := make([]*propagator.Outcome, len(starts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := range starts {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			outcomes[i] = e.prop.Propagate(gctx, starts[i], e.plan, e.policy)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, ctx.Err()
}

// Smearing sets the gaussian widths applied to a start by Smear.
type Smearing struct {
	Position float64 `yaml:"position"`
	Angle    float64 `yaml:"angle"`
	Momentum float64 `yaml:"momentum"`
}

// Smear returns n copies of base with gaussian noise on the position (mm),
// the direction (rad) and the relative momentum. The same seed gives the same
// starts.
func Smear(base track.Parameters, n int, seed int64, s Smearing) []track.Parameters {
	rng := rand.New(rand.NewSource(seed))
	out := make([]track.Parameters, n)

	// two unit vectors orthogonal to the direction
	dir := base.Direction.Unit()
	ref := track.Vector3{0, 0, 1}
	if math.Abs(dir.Dot(ref)) > 0.9 {
		ref = track.Vector3{1, 0, 0}
	}
	u := dir.Cross(ref).Unit()
	v := dir.Cross(u)

	for i := range out {
		p := base
		p.Position = base.Position.Add(track.Vector3{
			rng.NormFloat64() * s.Position,
			rng.NormFloat64() * s.Position,
			rng.NormFloat64() * s.Position,
		})
		p.Direction = dir.
			Add(u.Scale(rng.NormFloat64() * s.Angle)).
			Add(v.Scale(rng.NormFloat64() * s.Angle)).
			Unit()
		p.Momentum = base.Momentum * math.Max(1+rng.NormFloat64()*s.Momentum, 1e-3)
		if base.Covariance != nil {
			cov := *base.Covariance
			p.Covariance = &cov
		}
		out[i] = p
	}
	return out
}

// Stats summarizes a set of outcomes.
type Stats struct {
	Runs       int
	ByStatus   map[string]int
	ByTrigger  map[string]int
	MeanSteps  float64
	MeanPath   float64
	MaxPath    float64
	FirstError error
}

func Summarize(outcomes []*propagator.Outcome) Stats {
	st := Stats{
		ByStatus:  make(map[string]int),
		ByTrigger: make(map[string]int),
	}
	for _, out := range outcomes {
		if out == nil {
			continue
		}
		st.Runs++
		st.ByStatus[out.Status.String()]++
		if out.Trigger != "" {
			st.ByTrigger[out.Trigger]++
		}
		st.MeanSteps += float64(out.Steps)
		st.MeanPath += out.State.PathLength
		st.MaxPath = math.Max(st.MaxPath, out.State.PathLength)
		if out.Err != nil && st.FirstError == nil {
			st.FirstError = out.Err
		}
	}
	if st.Runs > 0 {
		st.MeanSteps /= float64(st.Runs)
		st.MeanPath /= float64(st.Runs)
	}
	return st
}
