// Package config loads run settings and the calibrated parameter epochs.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/psmcsim/internal/dynamo"
	"github.com/san-kum/psmcsim/internal/metrics"
	"github.com/san-kum/psmcsim/internal/physics"
)

const (
	DefaultPreset   = "2010"
	DefaultSolver   = "analytic"
	DefaultPIN      = 30.0
	DefaultDEA      = 40.0
	DefaultMemoSize = 64
)

type Config struct {
	Preset     string                   `yaml:"preset"`
	Params     *physics.Params          `yaml:"params,omitempty"`
	Overrides  map[string]float64       `yaml:"overrides,omitempty"`
	Solver     string                   `yaml:"solver"`
	Dt         float64                  `yaml:"dt"`
	InitState  InitStateConfig          `yaml:"init_state"`
	StatesFile string                   `yaml:"states_file,omitempty"`
	LogLevel   string                   `yaml:"log_level"`
	Workers    int                      `yaml:"workers"`
	MemoSize   int                      `yaml:"memo_size"`
	Limits     map[string]LimitOverride `yaml:"limits,omitempty"`
}

// LimitOverride replaces the fields it sets on a default limit, in degC.
type LimitOverride struct {
	Yellow *float64 `yaml:"yellow,omitempty"`
	Red    *float64 `yaml:"red,omitempty"`
	Margin *float64 `yaml:"margin,omitempty"`
}

// InitStateConfig holds the starting temperatures in degC.
type InitStateConfig struct {
	PIN float64 `yaml:"pin"`
	DEA float64 `yaml:"dea"`
}

func DefaultConfig() *Config {
	return &Config{
		Preset:   DefaultPreset,
		Solver:   DefaultSolver,
		Dt:       dynamo.DefaultDt,
		LogLevel: "info",
		MemoSize: DefaultMemoSize,
		InitState: InitStateConfig{
			PIN: DefaultPIN,
			DEA: DefaultDEA,
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
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML that Load reads back unchanged.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ResolveParams returns the inline params if given, otherwise the named
// preset, with any overrides applied on top.
func (c *Config) ResolveParams() (physics.Params, error) {
	var p physics.Params
	if c.Params != nil {
		p = *c.Params
	} else {
		preset := c.Preset
		if preset == "" {
			preset = DefaultPreset
		}
		var err error
		if p, err = GetPreset(preset); err != nil {
			return physics.Params{}, err
		}
	}

	names := make([]string, 0, len(c.Overrides))
	for name := range c.Overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := p.SetParam(name, c.Overrides[name]); err != nil {
			return physics.Params{}, err
		}
	}

	if err := p.Validate(); err != nil {
		return physics.Params{}, err
	}
	return p, nil
}

// ResolveLimits overlays configured limits on the defaults field by field.
// Only the modelled nodes can be limited.
func (c *Config) ResolveLimits() (map[string]metrics.Limit, error) {
	limits := metrics.DefaultLimits()
	for msid, o := range c.Limits {
		l, err := metrics.LimitFor(limits, msid)
		if err != nil {
			return nil, err
		}
		if o.Yellow != nil {
			l.Yellow = *o.Yellow
		}
		if o.Red != nil {
			l.Red = *o.Red
		}
		if o.Margin != nil {
			l.Margin = *o.Margin
		}
		limits[strings.ToLower(msid)] = l
	}
	return limits, nil
}

func (c *Config) DynamoConfig() dynamo.Config {
	cfg := dynamo.DefaultConfig()
	if c.Dt > 0 {
		cfg.Dt = c.Dt
	}
	return cfg
}
