// Package config loads the YAML run configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultParticles = 100
	DefaultWorkers   = 4
	DefaultTMax      = 100.0
	DefaultEMax      = 2e-7 // 200 neV
	DefaultPolUp     = 0.5
)

type Config struct {
	Species   string  `yaml:"species"`
	Particles int     `yaml:"particles"`
	Workers   int     `yaml:"workers"`
	Seed      int64   `yaml:"seed"`
	TMax      float64 `yaml:"tmax"`
	MaxTraj   float64 `yaml:"max_trajectory"`

	Geometry string `yaml:"geometry"`

	Source SourceConfig  `yaml:"source"`
	Fields []FieldConfig `yaml:"fields"`
	Ramp   *RampConfig   `yaml:"ramp"`

	Output OutputConfig `yaml:"output"`

	Snapshots []float64 `yaml:"snapshots"`
}

type SourceConfig struct {
	Min    [3]float64 `yaml:"min"`
	Max    [3]float64 `yaml:"max"`
	EMin   float64    `yaml:"e_min"`
	EMax   float64    `yaml:"e_max"`
	TStart float64    `yaml:"t_start"`
	TEnd   float64    `yaml:"t_end"`
	PolUp  float64    `yaml:"pol_up"`
}

// FieldConfig describes one analytic field contribution. Kind is "uniform"
// or "linear".
type FieldConfig struct {
	Kind string     `yaml:"kind"`
	B    [3]float64 `yaml:"b"`    // uniform B [T]
	E    [3]float64 `yaml:"e"`    // uniform E [V/m]
	V    float64    `yaml:"v"`    // potential offset [V]
	Grad [3]float64 `yaml:"grad"` // gradient of Bz for the linear kind [T/m]
}

type RampConfig struct {
	NullTime float64 `yaml:"null_time"`
	RampUp   float64 `yaml:"ramp_up"`
	FullTime float64 `yaml:"full_time"`
	RampDown float64 `yaml:"ramp_down"`
}

type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Track  bool   `yaml:"track"`
	Hits   bool   `yaml:"hits"`
	SQLite bool   `yaml:"sqlite"`
}

func DefaultConfig() *Config {
	return &Config{
		Species:   "neutron",
		Particles: DefaultParticles,
		Workers:   DefaultWorkers,
		Seed:      1,
		TMax:      DefaultTMax,
		Source: SourceConfig{
			Min:   [3]float64{-0.1, -0.1, 0.1},
			Max:   [3]float64{0.1, 0.1, 0.3},
			EMax:  DefaultEMax,
			PolUp: DefaultPolUp,
		},
		Output: OutputConfig{
			Dir:   "runs",
			Track: true,
			Hits:  true,
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

func (c *Config) Validate() error {
	if c.Particles < 1 {
		return fmt.Errorf("particles must be positive, got %d", c.Particles)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.TMax <= 0 {
		return fmt.Errorf("tmax must be positive, got %g", c.TMax)
	}
	if c.MaxTraj < 0 {
		return fmt.Errorf("max_trajectory must not be negative, got %g", c.MaxTraj)
	}
	if c.Source.EMin < 0 || c.Source.EMax < c.Source.EMin {
		return fmt.Errorf("source energy range [%g, %g] invalid", c.Source.EMin, c.Source.EMax)
	}
	if c.Source.TEnd < c.Source.TStart {
		return fmt.Errorf("source activity window [%g, %g] invalid", c.Source.TStart, c.Source.TEnd)
	}
	if c.Source.PolUp < 0 || c.Source.PolUp > 1 {
		return fmt.Errorf("pol_up must be a probability, got %g", c.Source.PolUp)
	}
	for i, f := range c.Fields {
		switch f.Kind {
		case "uniform", "linear":
		default:
			return fmt.Errorf("field %d: unknown kind %q", i, f.Kind)
		}
	}
	return nil
}
