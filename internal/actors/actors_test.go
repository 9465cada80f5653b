package actors_test

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/trackprop/internal/actors"
	"github.com/san-kum/trackprop/internal/navigation"
	"github.com/san-kum/trackprop/internal/propagator"
	"github.com/san-kum/trackprop/internal/stepper"
	"github.com/san-kum/trackprop/internal/track"
)

func start() track.Parameters {
	return track.NewParameters(track.Vector3{}, track.Vector3{1, 0, 0}, 1.0, 1)
}

func policy(maxSteps int) propagator.Policy {
	p := propagator.DefaultPolicy()
	p.MaxSteps = maxSteps
	p.MaxPathLength = 1e6
	return p
}

func telescope(t *testing.T, xs ...float64) *navigation.Planes {
	t.Helper()
	surfaces := make([]navigation.Surface, len(xs))
	for i, x := range xs {
		surfaces[i] = navigation.Surface{
			ID:     string(rune('a' + i)),
			Center: track.Vector3{x, 0, 0},
			Normal: track.Vector3{1, 0, 0},
		}
	}
	planes, err := navigation.NewPlanes(surfaces, "", 0)
	if err != nil {
		t.Fatalf("NewPlanes() error = %v", err)
	}
	return planes
}

func run(t *testing.T, nav navigation.Navigator, b *propagator.Builder, maxSteps int) *propagator.Outcome {
	t.Helper()
	plan, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return propagator.New(stepper.NewStraightLine(), nav).
		Propagate(context.Background(), start(), plan, policy(maxSteps))
}

func TestStepCollector(t *testing.T) {
	tests := []struct {
		name      string
		every     int
		wantSteps []int
	}{
		{"all", 0, []int{1, 2, 3, 4, 5}},
		{"every second", 2, []int{2, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := propagator.NewBuilder()
			slot := propagator.AddObserver[actors.Trajectory](b, actors.StepCollector{Every: tt.every})
			out := run(t, nil, b, 5)

			traj, _ := slot.Get(out.Results)
			if traj.Len() != len(tt.wantSteps) {
				t.Fatalf("Len() = %d, want %d", traj.Len(), len(tt.wantSteps))
			}
			for i, rec := range traj.Steps {
				if rec.Step != tt.wantSteps[i] {
					t.Errorf("record %d step = %d, want %d", i, rec.Step, tt.wantSteps[i])
				}
				if want := 10 * float64(rec.Step); math.Abs(rec.Position[0]-want) > 1e-9 {
					t.Errorf("record %d x = %v, want %v", i, rec.Position[0], want)
				}
			}
		})
	}
}

func TestTrajectory_LastEmpty(t *testing.T) {
	if _, ok := (actors.Trajectory{}).Last(); ok {
		t.Error("Last() on empty trajectory should report false")
	}
}

func TestSurfaceCollector(t *testing.T) {
	b := propagator.NewBuilder()
	slot := propagator.AddObserver[actors.SurfaceHits](b, actors.SurfaceCollector{})
	out := run(t, telescope(t, 10, 25, 40), b, 100)

	if out.Status != propagator.Success {
		t.Fatalf("Status = %v, want success (err %v)", out.Status, out.Err)
	}
	hits, _ := slot.Get(out.Results)
	ids := hits.IDs()
	want := []string{"a", "b", "c"}
	if len(ids) != len(want) {
		t.Fatalf("IDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("IDs()[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
	if hits.Hits[1].PathLength != 25 {
		t.Errorf("hit b path = %v, want 25", hits.Hits[1].PathLength)
	}
}

func TestSurfaceCount_Attached(t *testing.T) {
	b := propagator.NewBuilder()
	slot := propagator.AddObserver[actors.SurfaceHits](b, actors.SurfaceCollector{})
	propagator.AttachAborter(b, slot, actors.SurfaceCount{Max: 2})
	out := run(t, telescope(t, 10, 25, 40), b, 100)

	if out.Status != propagator.Aborted || out.Trigger != "surface_count" {
		t.Fatalf("outcome = %v/%s, want aborted/surface_count", out.Status, out.Trigger)
	}
	if out.Results.Len() != 1 {
		t.Errorf("Results.Len() = %d, want 1", out.Results.Len())
	}
	if out.Steps != 2 {
		t.Errorf("Steps = %d, want 2", out.Steps)
	}
}

func TestPathLimit(t *testing.T) {
	tests := []struct {
		limit     float64
		wantSteps int
	}{
		{25, 3},
		{3, 1},
		{40, 4},
	}

	for _, tt := range tests {
		b := propagator.NewBuilder()
		b.AddAborter(actors.PathLimit{Limit: tt.limit})
		out := run(t, nil, b, 100)

		if out.Status != propagator.Aborted || out.Trigger != "path_limit" {
			t.Errorf("limit %v: outcome = %v/%s, want aborted/path_limit", tt.limit, out.Status, out.Trigger)
		}
		if math.Abs(out.State.PathLength-tt.limit) > 1e-9 {
			t.Errorf("limit %v: PathLength = %v", tt.limit, out.State.PathLength)
		}
		if out.Steps != tt.wantSteps {
			t.Errorf("limit %v: Steps = %d, want %d", tt.limit, out.Steps, tt.wantSteps)
		}
	}
}

func TestSurfaceReached(t *testing.T) {
	b := propagator.NewBuilder()
	b.AddAborter(actors.SurfaceReached{ID: "b"})
	out := run(t, telescope(t, 10, 25, 40), b, 100)

	if out.Trigger != "surface_reached:b" || out.Steps != 2 {
		t.Errorf("outcome = %s after %d steps, want surface_reached:b after 2", out.Trigger, out.Steps)
	}

	b = propagator.NewBuilder()
	b.AddAborter(actors.SurfaceReached{})
	out = run(t, telescope(t, 10, 25, 40), b, 100)
	if out.Steps != 1 {
		t.Errorf("any-surface Steps = %d, want 1", out.Steps)
	}
}

func TestEnergyLoss_StopRequested(t *testing.T) {
	loss := actors.EnergyLoss{Rate: 0.01, MinMomentum: 0.5, MaxRelativeLoss: 0.05}

	b := propagator.NewBuilder()
	slot := propagator.AddObserver[actors.Trajectory](b, actors.StepCollector{})
	b.AddAction(loss)
	b.AddAborter(actors.StopRequested{})
	out := run(t, nil, b, 1000)

	if out.Status != propagator.Aborted || out.Trigger != "stop_requested" {
		t.Fatalf("outcome = %v/%s, want aborted/stop_requested", out.Status, out.Trigger)
	}
	if out.State.Momentum >= loss.MinMomentum {
		t.Errorf("final momentum = %v, want below %v", out.State.Momentum, loss.MinMomentum)
	}

	// the collector runs before the loss, so it sees the momentum each step
	// was sized with
	traj, _ := slot.Get(out.Results)
	for _, rec := range traj.Steps {
		if got := loss.Rate * math.Abs(rec.StepLength); got > loss.MaxRelativeLoss*rec.Momentum+1e-12 {
			t.Errorf("step %d lost %v GeV, more than %v of %v", rec.Step, got, loss.MaxRelativeLoss, rec.Momentum)
		}
	}
}

func TestMomentumBelow(t *testing.T) {
	b := propagator.NewBuilder()
	b.AddAction(actors.EnergyLoss{Rate: 0.01})
	b.AddAborter(actors.MomentumBelow{Min: 0.85})
	out := run(t, nil, b, 100)

	// 10 mm steps lose 0.1 GeV each
	if out.Trigger != "momentum_below" || out.Steps != 2 {
		t.Errorf("outcome = %s after %d steps, want momentum_below after 2", out.Trigger, out.Steps)
	}
}

func TestVolumeLimit(t *testing.T) {
	b := propagator.NewBuilder()
	b.AddAborter(actors.VolumeLimit{
		Min: track.Vector3{-35, -35, -35},
		Max: track.Vector3{35, 35, 35},
	})
	out := run(t, nil, b, 100)

	if out.Trigger != "volume_limit" || out.Steps != 4 {
		t.Errorf("outcome = %s after %d steps, want volume_limit after 4", out.Trigger, out.Steps)
	}
}

func TestExpr(t *testing.T) {
	cond, err := actors.NewExpr("x >= 30 && passed == 0")
	if err != nil {
		t.Fatalf("NewExpr() error = %v", err)
	}
	b := propagator.NewBuilder()
	b.AddAborter(cond)
	out := run(t, nil, b, 100)

	if out.Trigger != cond.Name() || out.Steps != 3 {
		t.Errorf("outcome = %s after %d steps, want %s after 3", out.Trigger, out.Steps, cond.Name())
	}
}

func TestNewExpr_Invalid(t *testing.T) {
	for _, src := range []string{"", "   ", "x +", "x * 2", "unknown > 1"} {
		if _, err := actors.NewExpr(src); err == nil {
			t.Errorf("NewExpr(%q) error = nil, want error", src)
		}
	}
}
