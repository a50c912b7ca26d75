// Package config loads slotbelief settings from a YAML or TOML file, a .env
// file, and SLOTBELIEF_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all slotbelief configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" toml:"store"`
	Prior   PriorConfig   `yaml:"prior" toml:"prior"`
	Fusion  FusionConfig  `yaml:"fusion" toml:"fusion"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
}

// StoreConfig selects the belief store backend.
type StoreConfig struct {
	Backend string `yaml:"backend" toml:"backend"` // json, sqlite
	Path    string `yaml:"path" toml:"path"`
}

// PriorConfig configures prior construction and dataset columns.
type PriorConfig struct {
	Capacity      int     `yaml:"capacity" toml:"capacity"`
	Strength      float64 `yaml:"strength" toml:"strength"`
	MinSamples    int     `yaml:"min_samples" toml:"min_samples"`
	ServicePrefix string  `yaml:"service_prefix" toml:"service_prefix"`
	HourColumn    string  `yaml:"hour_column" toml:"hour_column"`
	OutcomeColumn string  `yaml:"outcome_column" toml:"outcome_column"`
}

// FusionConfig configures classifier fusion.
type FusionConfig struct {
	Classifier string `yaml:"classifier" toml:"classifier"` // path to the exported model
	Method     string `yaml:"method" toml:"method"`         // mean, map
	// UpdateBeliefs folds each fusion decision back into the store.
	UpdateBeliefs bool `yaml:"update_beliefs" toml:"update_beliefs"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"`
	JSON  bool   `yaml:"json" toml:"json"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" toml:"textfile"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: "json",
			Path:    "priors.json",
		},
		Prior: PriorConfig{
			Capacity:      30,
			Strength:      20,
			MinSamples:    5,
			ServicePrefix: "service_",
			HourColumn:    "hour",
			OutcomeColumn: "Booked",
		},
		Fusion: FusionConfig{
			Method:        "mean",
			UpdateBeliefs: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the .env file named by SLOTBELIEF_ENV (default .env), then the
// config file at path if it exists, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	envFile := os.Getenv("SLOTBELIEF_ENV")
	if envFile == "" {
		envFile = ".env"
	}
	// Load never overrides variables that are already set; a missing file is fine.
	_ = godotenv.Load(envFile)

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := cfg.decode(path, data); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(path string, data []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.Decode(string(data), c)
		return err
	default:
		return yaml.Unmarshal(data, c)
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SLOTBELIEF_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("SLOTBELIEF_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("SLOTBELIEF_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SLOTBELIEF_CLASSIFIER"); v != "" {
		c.Fusion.Classifier = v
	}
	if v := os.Getenv("SLOTBELIEF_METRICS_TEXTFILE"); v != "" {
		c.Metrics.Textfile = v
	}
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("config: store path is empty")
	}
	if c.Prior.Capacity < 1 {
		return fmt.Errorf("config: prior capacity must be at least 1, got %d", c.Prior.Capacity)
	}
	if c.Prior.Strength <= 0 {
		return fmt.Errorf("config: prior strength must be positive, got %v", c.Prior.Strength)
	}
	if c.Prior.MinSamples < 0 {
		return fmt.Errorf("config: prior min_samples must be non-negative, got %d", c.Prior.MinSamples)
	}
	switch c.Fusion.Method {
	case "mean", "map":
	default:
		return fmt.Errorf("config: unknown fusion method %q", c.Fusion.Method)
	}
	return nil
}
