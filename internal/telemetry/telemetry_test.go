package telemetry

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/san-kum/trackprop/internal/propagator"
	"github.com/san-kum/trackprop/internal/stepper"
	"github.com/san-kum/trackprop/internal/track"
)

func run(t *testing.T, c *Collector, pol propagator.Policy) *propagator.Outcome {
	t.Helper()
	p := propagator.New(stepper.NewStraightLine(), nil, propagator.WithHooks(c.Hooks()))
	start := track.NewParameters(track.Vector3{}, track.Vector3{1, 0, 0}, 1, 1)
	return p.Propagate(context.Background(), start, nil, pol)
}

func TestCollector_Outcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}

	pol := propagator.DefaultPolicy()
	pol.MaxSteps = 4
	run(t, c, pol)
	run(t, c, pol)

	bad := pol
	bad.MaxSteps = 0
	run(t, c, bad)

	if got := testutil.ToFloat64(c.outcomes.WithLabelValues("policy_stop", propagator.TriggerMaxSteps)); got != 2 {
		t.Errorf("policy_stop count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.outcomes.WithLabelValues("failed", "")); got != 1 {
		t.Errorf("failed count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.steps); got != 8 {
		t.Errorf("steps = %v, want 8", got)
	}
	if got := testutil.ToFloat64(c.started); got != 2 {
		t.Errorf("started = %v, want 2", got)
	}
	if n := testutil.CollectAndCount(c.stepCounts); n != 1 {
		t.Errorf("histogram series = %d, want 1", n)
	}
}

type stopAt struct {
	name string
	step int
}

func (a stopAt) Check(s *propagator.State) bool { return s.Step >= a.step }
func (a stopAt) Name() string                   { return a.name }

func TestCollector_TriggerLabelBounded(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}

	start := track.NewParameters(track.Vector3{}, track.Vector3{1, 0, 0}, 1, 1)
	for _, name := range []string{"expr(step > 2)", "expr(path > 10.0)", "surface_reached:7", "surface_reached:9"} {
		b := propagator.NewBuilder()
		b.AddAborter(stopAt{name: name, step: 1})
		plan, err := b.Build()
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		p := propagator.New(stepper.NewStraightLine(), nil, propagator.WithHooks(c.Hooks()))
		out := p.Propagate(context.Background(), start, plan, propagator.DefaultPolicy())
		if out.Trigger != name {
			t.Fatalf("Trigger = %q, want %q", out.Trigger, name)
		}
	}

	if n := testutil.CollectAndCount(c.outcomes); n != 2 {
		t.Errorf("outcome series = %d, want 2", n)
	}
	if got := testutil.ToFloat64(c.outcomes.WithLabelValues("aborted", "expr")); got != 2 {
		t.Errorf("expr count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.outcomes.WithLabelValues("aborted", "surface_reached")); got != 2 {
		t.Errorf("surface_reached count = %v, want 2", got)
	}
}

func TestTriggerLabel(t *testing.T) {
	tests := map[string]string{
		"":                  "",
		"max_steps":         "max_steps",
		"expr(x > 5)":       "expr",
		"surface_reached:3": "surface_reached",
	}
	for in, want := range tests {
		if got := triggerLabel(in); got != want {
			t.Errorf("triggerLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewCollector(reg); err != nil {
		t.Fatalf("first NewCollector() error = %v", err)
	}
	if _, err := NewCollector(reg); err == nil {
		t.Error("second NewCollector() on the same registry should fail")
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}
	run(t, c, propagator.DefaultPolicy())

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "trackprop_propagations_total") {
		t.Errorf("metrics output missing propagation counter:\n%s", rec.Body.String())
	}
}
