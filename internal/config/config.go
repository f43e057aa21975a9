// Package config loads engine and mixer tuning from YAML.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sidlab/sid/internal/engine"
	"github.com/sidlab/sid/internal/field"
)

// Config is the on-disk tuning shape. Zero-valued fields fall back to
// the defaults in Default.
type Config struct {
	// NumNodes is the shared field length of the three processors.
	NumNodes int `yaml:"num_nodes"`
	// TotalMass is the conserved total C.
	TotalMass float64 `yaml:"total_mass"`
	// Capacity bounds each processor's stability metric; zero means
	// TotalMass.
	Capacity float64 `yaml:"capacity"`

	// Mixer tuning.
	EpsConservation float64 `yaml:"eps_conservation"`
	EpsDelta        float64 `yaml:"eps_delta"`
	KStable         uint64  `yaml:"k_stable"`
	EMAAlpha        float64 `yaml:"ema_alpha"`

	// DBPath enables the SQLite session store when non-empty.
	DBPath string `yaml:"db_path"`
	// RulePack points at a CUE rewrite-rule pack directory or file.
	RulePack string `yaml:"rule_pack"`
}

// Default returns the standard tuning.
func Default() Config {
	mixer := field.DefaultMixerConfig()
	return Config{
		NumNodes:        64,
		TotalMass:       100,
		EpsConservation: mixer.EpsConservation,
		EpsDelta:        mixer.EpsDelta,
		KStable:         mixer.K,
		EMAAlpha:        mixer.EMAAlpha,
	}
}

// Load reads a YAML config file, fills unset fields from Default, and
// validates the result. Unknown keys are an error: a typoed tuning key
// silently falling back to a default is exactly the failure mode strict
// decoding exists to catch.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML config bytes.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the tuning constraints.
func (c Config) Validate() error {
	if c.NumNodes <= 0 {
		return fmt.Errorf("config: num_nodes must be positive, got %d", c.NumNodes)
	}
	if c.TotalMass <= 0 {
		return fmt.Errorf("config: total_mass must be positive, got %g", c.TotalMass)
	}
	if c.Capacity < 0 {
		return fmt.Errorf("config: capacity must be non-negative, got %g", c.Capacity)
	}
	if c.EpsConservation < 0 {
		return fmt.Errorf("config: eps_conservation must be non-negative, got %g", c.EpsConservation)
	}
	if c.EpsDelta < 0 {
		return fmt.Errorf("config: eps_delta must be non-negative, got %g", c.EpsDelta)
	}
	if c.KStable == 0 {
		return fmt.Errorf("config: k_stable must be positive")
	}
	if c.EMAAlpha < 0 || c.EMAAlpha > 1 {
		return fmt.Errorf("config: ema_alpha must be in [0,1], got %g", c.EMAAlpha)
	}
	return nil
}

// EngineConfig maps the tuning onto an engine construction config.
func (c Config) EngineConfig() engine.Config {
	return engine.Config{
		NumNodes:  c.NumNodes,
		TotalMass: c.TotalMass,
		Capacity:  c.Capacity,
		Mixer: field.MixerConfig{
			EpsConservation: c.EpsConservation,
			EpsDelta:        c.EpsDelta,
			K:               c.KStable,
			EMAAlpha:        c.EMAAlpha,
		},
	}
}
