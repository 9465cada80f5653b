package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultStepper         = "rk4"
	DefaultMomentum        = 1.0
	DefaultBz              = 2.0
	DefaultMaxSteps        = 1000
	DefaultMaxPathLength   = 10000.0
	DefaultInitialStepSize = 10.0
	DefaultTolerance       = 1e-4
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Name      string          `yaml:"name,omitempty"`
	Stepper   string          `yaml:"stepper"`
	Seed      int64           `yaml:"seed"`
	Field     FieldConfig     `yaml:"field"`
	Navigator NavigatorConfig `yaml:"navigator"`
	Start     StartConfig     `yaml:"start"`
	Policy    PolicyConfig    `yaml:"policy"`
	Actions   []MemberConfig  `yaml:"actions,omitempty"`
	Aborters  []MemberConfig  `yaml:"aborters,omitempty"`
	Ensemble  EnsembleConfig  `yaml:"ensemble"`
}

type FieldConfig struct {
	// Type is one of none, constant or zgrid.
	Type string     `yaml:"type"`
	B    [3]float64 `yaml:"b,flow"`

	ZMin float64   `yaml:"z_min,omitempty"`
	ZMax float64   `yaml:"z_max,omitempty"`
	Bz   []float64 `yaml:"bz,flow,omitempty"`

	// Bounds restricts the field to a box; stepping outside fails.
	Bounds *BoxConfig `yaml:"bounds,omitempty"`
}

type BoxConfig struct {
	Min [3]float64 `yaml:"min,flow"`
	Max [3]float64 `yaml:"max,flow"`
}

type NavigatorConfig struct {
	Surfaces  []SurfaceConfig `yaml:"surfaces,omitempty"`
	Target    string          `yaml:"target,omitempty"`
	Tolerance float64         `yaml:"tolerance,omitempty"`
}

type SurfaceConfig struct {
	ID     string     `yaml:"id"`
	Center [3]float64 `yaml:"center,flow"`
	Normal [3]float64 `yaml:"normal,flow"`
}

type StartConfig struct {
	Position  [3]float64 `yaml:"position,flow"`
	Direction [3]float64 `yaml:"direction,flow"`
	Momentum  float64    `yaml:"momentum"`
	Charge    float64    `yaml:"charge"`
	Mass      float64    `yaml:"mass,omitempty"`

	// Sigmas enables covariance transport with a diagonal start covariance
	// over x, y, z, tx, ty, tz, q/p.
	Sigmas []float64 `yaml:"sigmas,flow,omitempty"`
}

type PolicyConfig struct {
	MaxSteps        int     `yaml:"max_steps"`
	MaxPathLength   float64 `yaml:"max_path_length"`
	Direction       string  `yaml:"direction"`
	InitialStepSize float64 `yaml:"initial_step_size"`
	Tolerance       float64 `yaml:"tolerance"`
}

// MemberConfig names a registered action or abort condition and its
// parameters.
type MemberConfig struct {
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:"params,omitempty"`
}

type EnsembleConfig struct {
	Runs     int            `yaml:"runs"`
	Workers  int            `yaml:"workers"`
	Smearing SmearingConfig `yaml:"smearing"`
}

type SmearingConfig struct {
	Position float64 `yaml:"position"`
	Angle    float64 `yaml:"angle"`
	Momentum float64 `yaml:"momentum"`
}

func DefaultConfig() *Config {
	return &Config{
		Stepper: DefaultStepper,
		Field: FieldConfig{
			Type: "constant",
			B:    [3]float64{0, 0, DefaultBz},
		},
		Start: StartConfig{
			Direction: [3]float64{1, 0, 0},
			Momentum:  DefaultMomentum,
			Charge:    1,
		},
		Policy: PolicyConfig{
			MaxSteps:        DefaultMaxSteps,
			MaxPathLength:   DefaultMaxPathLength,
			Direction:       "forward",
			InitialStepSize: DefaultInitialStepSize,
			Tolerance:       DefaultTolerance,
		},
		Actions: []MemberConfig{
			{Type: "step_collector"},
		},
		Ensemble: EnsembleConfig{
			Runs: 100,
			Smearing: SmearingConfig{
				Position: 0.1,
				Angle:    0.001,
				Momentum: 0.01,
			},
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks what can be checked without building the experiment.
func (c *Config) Validate() error {
	switch c.Stepper {
	case "rk4", "straight":
	default:
		return fmt.Errorf("%w: unknown stepper %q", ErrInvalidConfig, c.Stepper)
	}
	switch c.Field.Type {
	case "", "none", "constant":
	case "zgrid":
		if len(c.Field.Bz) < 2 {
			return fmt.Errorf("%w: zgrid field needs at least two bz values", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown field type %q", ErrInvalidConfig, c.Field.Type)
	}
	switch c.Policy.Direction {
	case "", "forward", "backward":
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidConfig, c.Policy.Direction)
	}
	if n := len(c.Start.Sigmas); n != 0 && n != 7 {
		return fmt.Errorf("%w: sigmas needs 7 values, got %d", ErrInvalidConfig, n)
	}
	for _, m := range append(append([]MemberConfig(nil), c.Actions...), c.Aborters...) {
		if m.Type == "" {
			return fmt.Errorf("%w: member without type", ErrInvalidConfig)
		}
	}
	return nil
}
