// Package config loads benchmark scenarios from YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	cerrdefs "github.com/containerd/errdefs"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSize       = 1_000
	DefaultIterations = 100
	DefaultParallel   = 4
	DefaultLogLevel   = "info"
)

// Scenario describes one keyed list workload. Every iteration reconciles the
// list against a mutated copy of itself. Shuffle, Insert and Remove are
// fractions of Size in [0, 1].
type Scenario struct {
	Name       string  `yaml:"name"`
	Size       int     `yaml:"size"`
	Iterations int     `yaml:"iterations,omitempty"`
	Shuffle    float64 `yaml:"shuffle,omitempty"`
	Insert     float64 `yaml:"insert,omitempty"`
	Remove     float64 `yaml:"remove,omitempty"`
	Seed       int64   `yaml:"seed,omitempty"`
	Concurrent bool    `yaml:"concurrent,omitempty"`
}

type Config struct {
	LogLevel  string     `yaml:"logLevel,omitempty"`
	Parallel  int        `yaml:"parallel,omitempty"`
	Scenarios []Scenario `yaml:"scenarios"`
}

func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Parallel: DefaultParallel,
		Scenarios: []Scenario{
			{Name: "append", Size: DefaultSize, Iterations: DefaultIterations, Insert: 0.1, Seed: 1},
			{Name: "remove", Size: DefaultSize, Iterations: DefaultIterations, Remove: 0.1, Seed: 2},
			{Name: "shuffle", Size: DefaultSize, Iterations: DefaultIterations, Shuffle: 0.5, Seed: 3},
			{Name: "mixed", Size: DefaultSize, Iterations: DefaultIterations, Shuffle: 0.2, Insert: 0.05, Remove: 0.05, Seed: 4, Concurrent: true},
		},
	}
}

// Load reads the config at path. A missing file yields Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", cerrdefs.ErrInvalidArgument, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Parallel <= 0 {
		c.Parallel = DefaultParallel
	}
	if len(c.Scenarios) == 0 {
		c.Scenarios = Default().Scenarios
	}
	for i := range c.Scenarios {
		if c.Scenarios[i].Iterations <= 0 {
			c.Scenarios[i].Iterations = DefaultIterations
		}
	}
}

func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Scenarios))
	for i, s := range c.Scenarios {
		if s.Name == "" {
			return fmt.Errorf("%w: scenario %d has no name", cerrdefs.ErrInvalidArgument, i)
		}
		if _, ok := seen[s.Name]; ok {
			return fmt.Errorf("%w: duplicate scenario %q", cerrdefs.ErrInvalidArgument, s.Name)
		}
		seen[s.Name] = struct{}{}
		if s.Size <= 0 {
			return fmt.Errorf("%w: scenario %q: size must be positive", cerrdefs.ErrInvalidArgument, s.Name)
		}
		for field, v := range map[string]float64{"shuffle": s.Shuffle, "insert": s.Insert, "remove": s.Remove} {
			if v < 0 || v > 1 {
				return fmt.Errorf("%w: scenario %q: %s must be within [0, 1]", cerrdefs.ErrInvalidArgument, s.Name, field)
			}
		}
	}
	return nil
}

// Scenario looks up a scenario by name.
func (c *Config) Scenario(name string) (Scenario, error) {
	for _, s := range c.Scenarios {
		if s.Name == name {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("scenario %q: %w", name, cerrdefs.ErrNotFound)
}
