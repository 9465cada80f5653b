package config

import "sort"

// Presets build fresh configurations so callers can modify them.
var Presets = map[string]func() *Config{
	"helix": func() *Config {
		cfg := DefaultConfig()
		cfg.Name = "helix"
		cfg.Policy.MaxPathLength = 5000
		cfg.Actions = append(cfg.Actions, MemberConfig{Type: "step_statistics"}, MemberConfig{Type: "momentum_drift"})
		return cfg
	},
	"telescope": func() *Config {
		cfg := DefaultConfig()
		cfg.Name = "telescope"
		cfg.Stepper = "straight"
		cfg.Field = FieldConfig{Type: "none"}
		for i, x := range []float64{100, 200, 300, 400, 500} {
			cfg.Navigator.Surfaces = append(cfg.Navigator.Surfaces, SurfaceConfig{
				ID:     string(rune('a' + i)),
				Center: [3]float64{x, 0, 0},
				Normal: [3]float64{1, 0, 0},
			})
		}
		cfg.Start.Sigmas = []float64{0.01, 0.01, 0.01, 0.001, 0.001, 0.001, 0.01}
		cfg.Actions = append(cfg.Actions, MemberConfig{Type: "surface_collector"})
		return cfg
	},
	"energy_loss": func() *Config {
		cfg := DefaultConfig()
		cfg.Name = "energy_loss"
		cfg.Start.Momentum = 0.5
		cfg.Actions = append(cfg.Actions,
			MemberConfig{Type: "energy_loss", Params: map[string]any{
				"rate":              2e-4,
				"min_momentum":      0.1,
				"max_relative_loss": 0.01,
			}},
			MemberConfig{Type: "momentum_loss"},
		)
		cfg.Aborters = []MemberConfig{{Type: "stop_requested"}}
		return cfg
	},
	"out_of_field": func() *Config {
		cfg := DefaultConfig()
		cfg.Name = "out_of_field"
		cfg.Field.Bounds = &BoxConfig{
			Min: [3]float64{-1000, -1000, -1000},
			Max: [3]float64{1000, 1000, 1000},
		}
		cfg.Start.Momentum = 10
		return cfg
	},
	"solenoid": func() *Config {
		cfg := DefaultConfig()
		cfg.Name = "solenoid"
		cfg.Field = FieldConfig{
			Type: "zgrid",
			ZMin: -3000,
			ZMax: 3000,
			Bz:   []float64{0.5, 1.5, 2, 2, 2, 1.5, 0.5},
		}
		cfg.Start.Direction = [3]float64{1, 0, 0.5}
		cfg.Aborters = []MemberConfig{
			{Type: "volume_limit", Params: map[string]any{
				"min": []float64{-1200, -1200, -3000},
				"max": []float64{1200, 1200, 3000},
			}},
			{Type: "expr", Params: map[string]any{"source": "r > 1100"}},
		}
		return cfg
	},
	"backward": func() *Config {
		cfg := DefaultConfig()
		cfg.Name = "backward"
		cfg.Policy.Direction = "backward"
		cfg.Aborters = []MemberConfig{{Type: "path_limit", Params: map[string]any{"limit": 1000.0}}}
		return cfg
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
