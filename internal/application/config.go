package application

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fanpulse/fanpulse/internal/infrastructure/cache"
	"github.com/fanpulse/fanpulse/internal/infrastructure/db"
	"github.com/fanpulse/fanpulse/internal/infrastructure/source"
	"github.com/fanpulse/fanpulse/internal/scoring"
)

// ScoringConfig groups the calculator tunables.
type ScoringConfig struct {
	WindowDays     int                      `yaml:"window_days"`
	HistoryWindows int                      `yaml:"history_windows"`
	Aggregator     scoring.AggregatorConfig `yaml:"aggregator"`
	FVS            scoring.FVSConfig        `yaml:"fvs"`
	Momentum       scoring.MomentumConfig   `yaml:"momentum"`
	Breakout       scoring.BreakoutConfig   `yaml:"breakout"`
}

// DefaultScoringConfig returns production calculator defaults.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		WindowDays:     30,
		HistoryWindows: 4,
		Aggregator:     scoring.DefaultAggregatorConfig(),
		FVS:            scoring.DefaultFVSConfig(),
		Momentum:       scoring.DefaultMomentumConfig(),
		Breakout:       scoring.DefaultBreakoutConfig(),
	}
}

// BatchConfig tunes the population-wide recomputation runs.
type BatchConfig struct {
	Workers        int     `yaml:"workers"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
	MaxFailureRate float64 `yaml:"max_failure_rate"`
}

// DefaultBatchConfig returns production batch defaults.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		Workers:        8,
		RatePerSecond:  50,
		MaxFailureRate: 0.25,
	}
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultServerConfig returns production server defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// Config is the top level service configuration.
type Config struct {
	Database db.Config            `yaml:"database"`
	Cache    cache.Config         `yaml:"cache"`
	Breaker  source.BreakerConfig `yaml:"breaker"`
	Server   ServerConfig         `yaml:"server"`
	Scoring  ScoringConfig        `yaml:"scoring"`
	Batch    BatchConfig          `yaml:"batch"`
}

// DefaultConfig returns the full default configuration.
func DefaultConfig() Config {
	return Config{
		Database: db.DefaultConfig(),
		Cache:    cache.DefaultConfig(),
		Breaker:  source.DefaultBreakerConfig(),
		Server:   DefaultServerConfig(),
		Scoring:  DefaultScoringConfig(),
		Batch:    DefaultBatchConfig(),
	}
}

// LoadConfig reads the yaml config file, layering it over the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

// Validate checks cross-field constraints the calculators rely on.
func (c *Config) Validate() error {
	if c.Scoring.WindowDays <= 0 || c.Scoring.WindowDays > scoring.MaxWindowDays {
		return fmt.Errorf("scoring window_days %d out of range [1, %d]",
			c.Scoring.WindowDays, scoring.MaxWindowDays)
	}
	if c.Scoring.HistoryWindows < 0 {
		return fmt.Errorf("scoring history_windows must be >= 0")
	}
	if err := scoring.ValidateFVSWeights(c.Scoring.FVS.Weights); err != nil {
		return err
	}
	if err := scoring.ValidateMomentumWeights(c.Scoring.Momentum.Weights); err != nil {
		return err
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("batch workers must be > 0")
	}
	return nil
}
