package ensemble

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/san-kum/trackprop/internal/actors"
	"github.com/san-kum/trackprop/internal/field"
	"github.com/san-kum/trackprop/internal/propagator"
	"github.com/san-kum/trackprop/internal/stepper"
	"github.com/san-kum/trackprop/internal/track"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func helix(t *testing.T) (*propagator.Propagator, *propagator.Plan, propagator.Slot[actors.Trajectory]) {
	t.Helper()
	b := propagator.NewBuilder()
	slot := propagator.AddObserver[actors.Trajectory](b, actors.StepCollector{})
	b.AddAborter(actors.PathLimit{Limit: 500})
	plan, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	p := propagator.New(stepper.NewRK4(field.NewConstant(track.Vector3{0, 0, 2})), nil)
	return p, plan, slot
}

func base() track.Parameters {
	return track.NewParameters(track.Vector3{}, track.Vector3{1, 0, 0}, 1.0, 1)
}

func TestSmear_Deterministic(t *testing.T) {
	s := Smearing{Position: 0.1, Angle: 0.01, Momentum: 0.05}
	a := Smear(base(), 16, 42, s)
	b := Smear(base(), 16, 42, s)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed gave different starts (-a +b):\n%s", diff)
	}

	c := Smear(base(), 16, 43, s)
	if cmp.Equal(a, c) {
		t.Error("different seeds gave identical starts")
	}
	for i, p := range a {
		if err := p.Validate(); err != nil {
			t.Errorf("start %d invalid: %v", i, err)
		}
		if math.Abs(p.Direction.Norm()-1) > 1e-12 {
			t.Errorf("start %d direction norm = %v, want 1", i, p.Direction.Norm())
		}
	}
}

func TestSmear_ZeroWidths(t *testing.T) {
	for _, p := range Smear(base(), 4, 1, Smearing{}) {
		if diff := cmp.Diff(base(), p); diff != "" {
			t.Errorf("zero smearing changed the start (-want +got):\n%s", diff)
		}
	}
}

func TestEnsemble_MatchesSequential(t *testing.T) {
	p, plan, slot := helix(t)
	pol := propagator.DefaultPolicy()
	starts := Smear(base(), 12, 7, Smearing{Position: 1, Angle: 0.05, Momentum: 0.1})

	outs, err := New(p, plan, pol, 4).Run(context.Background(), starts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(outs) != len(starts) {
		t.Fatalf("got %d outcomes, want %d", len(outs), len(starts))
	}

	for i, start := range starts {
		want := p.Propagate(context.Background(), start, plan, pol)
		got := outs[i]
		if got.Status != want.Status || got.Steps != want.Steps {
			t.Errorf("run %d: %v/%d steps, want %v/%d", i, got.Status, got.Steps, want.Status, want.Steps)
		}
		if got.State.Position != want.State.Position {
			t.Errorf("run %d: position %v, want %v", i, got.State.Position, want.State.Position)
		}
		gt, _ := slot.Get(got.Results)
		wt, _ := slot.Get(want.Results)
		if diff := cmp.Diff(wt, gt); diff != "" {
			t.Errorf("run %d trajectory mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestEnsemble_CanceledContext(t *testing.T) {
	p, plan, _ := helix(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(p, plan, propagator.DefaultPolicy(), 2).Run(ctx, Smear(base(), 8, 1, Smearing{}))
	if err == nil {
		t.Error("Run() with canceled context should fail")
	}
}

func TestSummarize(t *testing.T) {
	p, plan, _ := helix(t)
	outs, err := New(p, plan, propagator.DefaultPolicy(), 0).Run(context.Background(), Smear(base(), 5, 3, Smearing{}))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	st := Summarize(append(outs, nil))
	if st.Runs != 5 {
		t.Errorf("Runs = %d, want 5", st.Runs)
	}
	if st.ByTrigger["path_limit"] != 5 {
		t.Errorf("ByTrigger = %v, want path_limit:5", st.ByTrigger)
	}
	if math.Abs(st.MeanPath-500) > 1e-6 || math.Abs(st.MaxPath-500) > 1e-6 {
		t.Errorf("path mean/max = %v/%v, want 500", st.MeanPath, st.MaxPath)
	}
	if st.FirstError != nil {
		t.Errorf("FirstError = %v, want nil", st.FirstError)
	}
}
