package experiment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/trackprop/internal/config"
	"github.com/san-kum/trackprop/internal/field"
	"github.com/san-kum/trackprop/internal/metrics"
	"github.com/san-kum/trackprop/internal/propagator"
	"github.com/san-kum/trackprop/internal/stepper"
)

func TestPresets_Run(t *testing.T) {
	tests := []struct {
		preset     string
		wantStatus propagator.Status
		wantErr    error
	}{
		{"helix", propagator.PolicyStop, nil},
		{"telescope", propagator.Success, nil},
		{"energy_loss", propagator.Aborted, nil},
		{"out_of_field", propagator.Failed, field.ErrOutOfField},
		{"solenoid", propagator.Aborted, nil},
		{"backward", propagator.Aborted, nil},
	}

	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			e, err := New(config.GetPreset(tt.preset))
			require.NoError(t, err)

			out := e.Run(context.Background())
			assert.Equal(t, tt.wantStatus, out.Status, "reason: %s, err: %v", out.Reason, out.Err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, out.Err, tt.wantErr)
			}
			assert.NotEmpty(t, e.Trajectory(out), "step collector should record steps")
		})
	}
}

func TestTelescope_Surfaces(t *testing.T) {
	e, err := New(config.GetPreset("telescope"))
	require.NoError(t, err)

	out := e.Run(context.Background())
	require.Equal(t, propagator.Success, out.Status)

	hits, ok := e.Slots().Surfaces.Get(out.Results)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, hits.IDs())
	assert.InDelta(t, 500, out.State.PathLength, 1e-9)
	assert.True(t, out.State.CovarianceTransport)
	assert.Greater(t, out.State.Covariance[0][0], 0.01*0.01)
}

func TestBackward(t *testing.T) {
	e, err := New(config.GetPreset("backward"))
	require.NoError(t, err)

	out := e.Run(context.Background())
	assert.Equal(t, "path_limit", out.Trigger)
	assert.InDelta(t, 1000, out.State.PathLength, 1e-6)
	assert.Equal(t, stepper.Backward, out.State.Direction)
}

func TestEnergyLoss_Metrics(t *testing.T) {
	e, err := New(config.GetPreset("energy_loss"))
	require.NoError(t, err)

	out := e.Run(context.Background())
	require.Equal(t, "stop_requested", out.Trigger)

	m := metrics.Collect(out.Results)
	assert.InDelta(t, 0.5-out.State.Momentum, m["momentum_loss"], 0.01)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mod     func(*config.Config)
		wantErr error
	}{
		{"unknown action", func(c *config.Config) {
			c.Actions = []config.MemberConfig{{Type: "teleport"}}
		}, ErrUnknownMember},
		{"unknown aborter", func(c *config.Config) {
			c.Aborters = []config.MemberConfig{{Type: "never"}}
		}, ErrUnknownMember},
		{"surface count without collector", func(c *config.Config) {
			c.Aborters = []config.MemberConfig{{Type: "surface_count", Params: map[string]any{"max": 2}}}
		}, ErrMissingCollector},
		{"invalid policy", func(c *config.Config) {
			c.Policy.MaxSteps = 0
		}, propagator.ErrInvalidPolicy},
		{"invalid stepper", func(c *config.Config) {
			c.Stepper = "euler"
		}, config.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mod(cfg)
			_, err := New(cfg)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNew_BadParams(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Aborters = []config.MemberConfig{{Type: "path_limit", Params: map[string]any{"limt": 5}}}
	_, err := New(cfg)
	require.Error(t, err, "unknown parameter keys should be rejected")

	cfg.Aborters = []config.MemberConfig{{Type: "expr", Params: map[string]any{"source": "x +"}}}
	_, err = New(cfg)
	require.Error(t, err)
}

func TestSurfaceCount_FromConfig(t *testing.T) {
	cfg := config.GetPreset("telescope")
	cfg.Aborters = []config.MemberConfig{{Type: "surface_count", Params: map[string]any{"max": 2}}}

	e, err := New(cfg)
	require.NoError(t, err)
	out := e.Run(context.Background())
	assert.Equal(t, propagator.Aborted, out.Status)
	assert.Equal(t, "surface_count", out.Trigger)
	// 10 mm steps, surfaces every 100 mm
	assert.Equal(t, 20, out.Steps)
}

func TestRegistry_Lists(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"rk4", "straight"}, r.ListSteppers())
	assert.Contains(t, r.ListActions(), "step_collector")
	assert.Contains(t, r.ListAborters(), "expr")

	_, err := r.GetStepper("euler", field.Null{})
	assert.True(t, errors.Is(err, ErrUnknownStepper))
}

type countSteps struct{}

func (countSteps) Act(s *propagator.State, n *int) { *n++ }

func TestRegistry_Custom(t *testing.T) {
	r := NewRegistry()
	var slot propagator.Slot[int]
	r.RegisterAction("count", func(b *propagator.Builder, params map[string]any, slots *Slots) error {
		slot = propagator.AddObserver[int](b, countSteps{})
		return nil
	})

	cfg := config.DefaultConfig()
	cfg.Policy.MaxSteps = 7
	cfg.Actions = []config.MemberConfig{{Type: "count"}}

	e, err := New(cfg, WithRegistry(r))
	require.NoError(t, err)
	out := e.Run(context.Background())

	n, ok := slot.Get(out.Results)
	require.True(t, ok)
	assert.Equal(t, 7, n)
	assert.Nil(t, e.Trajectory(out))
}

func TestRunEnsemble(t *testing.T) {
	cfg := config.GetPreset("telescope")
	cfg.Ensemble.Workers = 3
	e, err := New(cfg)
	require.NoError(t, err)

	outs, err := e.RunEnsemble(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, outs, 10)
	for _, out := range outs {
		assert.Equal(t, propagator.Success, out.Status)
	}
}
