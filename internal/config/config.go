// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/ib-77/tilenet/internal/logging"
	"github.com/ib-77/tilenet/pkg/tile"
	"github.com/ib-77/tilenet/pkg/tile/fabric"
)

// Config holds all runtime configuration.
type Config struct {
	Chip    ChipConfig
	Logging LogConfig
	Metrics MetricsConfig
}

// ChipConfig describes the simulated tile grid.
type ChipConfig struct {
	TileRows    int `envconfig:"TILENET_TILE_ROWS" default:"1"`
	TileColumns int `envconfig:"TILENET_TILE_COLUMNS" default:"2"`
	InputDepth  int `envconfig:"TILENET_INPUT_DEPTH" default:"4"`
	IPKDepth    int `envconfig:"TILENET_IPK_DEPTH" default:"8"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"TILENET_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"TILENET_LOG_DEV" default:"false"`
}

type MetricsConfig struct {
	Enabled bool `envconfig:"TILENET_METRICS" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Chip: ChipConfig{
			TileRows:    1,
			TileColumns: 2,
			InputDepth:  tile.InputBufferDepth,
			IPKDepth:    tile.IPKFIFODepth,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Validate checks the values envconfig cannot check.
func (c *Config) Validate() error {
	return c.Chip.Options().Validate()
}

// Options converts the chip section into fabric options.
func (c ChipConfig) Options() fabric.Options {
	return fabric.Options{
		Rows:       c.TileRows,
		Columns:    c.TileColumns,
		InputDepth: c.InputDepth,
		IPKDepth:   c.IPKDepth,
	}
}

// Logger converts the logging section into a logger configuration.
func (c LogConfig) Logger() logging.Config {
	return logging.Config{Level: c.Level, Development: c.Development}
}
