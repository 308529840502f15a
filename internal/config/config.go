// Package config defines all configuration for the simulation. Config is
// loaded from an optional YAML file with sensitive/tunable fields
// overridable via SIM_* environment variables, following the same
// viper-based loading style used elsewhere in the corpus.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration, covering every recognized
// option one-for-one.
type Config struct {
	Book      BookConfig      `mapstructure:"book"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Sampler   SamplerConfig   `mapstructure:"sampler"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// BookConfig governs the price domain and debug-mode invariant checks.
type BookConfig struct {
	TickSize       float64 `mapstructure:"tick_size"`
	ValidateOrders bool    `mapstructure:"validate_orders"`
}

// GeneratorConfig tunes the regime-switching market generator.
//
//   - Seed: RNG seed; zero means "pick one at process start" (see cmd/lobsim).
//   - OrdersPerTick: base arrival budget before regime/intraday scaling.
//   - CancelRatio: fraction of each tick's budget spent as cancels.
//   - RegimeMatrix: row-stochastic 3x3 transition matrix over
//     [Calm, Normal, Stress].
//   - SessionLengthSec: period of the intraday U-shaped activity curve.
type GeneratorConfig struct {
	Seed             uint64        `mapstructure:"seed"`
	OrdersPerTick    uint32        `mapstructure:"orders_per_tick"`
	CancelRatio      float64       `mapstructure:"cancel_ratio"`
	RegimeMatrix     [3][3]float64 `mapstructure:"regime_matrix"`
	SessionLengthSec uint32        `mapstructure:"session_length_s"`
	TickInterval     time.Duration `mapstructure:"tick_interval"`
}

// SamplerConfig bounds the depth of snapshots taken from the live book.
type SamplerConfig struct {
	Depth uint16 `mapstructure:"depth"`
}

// BroadcastConfig governs the snapshot fan-out server.
type BroadcastConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	TargetHz       uint16 `mapstructure:"target_hz"`
	MaxSubscribers uint16 `mapstructure:"max_subscribers"`
}

// LoggingConfig controls zerolog's global level and console/JSON format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		Book: BookConfig{
			TickSize:       0.01,
			ValidateOrders: false,
		},
		Generator: GeneratorConfig{
			OrdersPerTick:    5,
			CancelRatio:      0.2,
			SessionLengthSec: 6 * 60 * 60,
			TickInterval:     time.Millisecond,
			RegimeMatrix: [3][3]float64{
				{0.995, 0.004, 0.001},
				{0.003, 0.992, 0.005},
				{0.02, 0.08, 0.90},
			},
		},
		Sampler: SamplerConfig{
			Depth: 50,
		},
		Broadcast: BroadcastConfig{
			Host:           "0.0.0.0",
			Port:           9002,
			TargetHz:       30,
			MaxSubscribers: 64,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: false,
		},
	}
}

// Load reads config from an optional YAML file, falling back to Default()
// for any field the file or environment doesn't set, with SIM_* env vars
// taking precedence over the file (e.g. SIM_GENERATOR_SEED). The regime
// matrix is not read from the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("SIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees keys viper already knows, so bind each scalar
	// key explicitly for the SIM_* overrides to apply without a file.
	for _, key := range []string{
		"book.tick_size", "book.validate_orders",
		"generator.seed", "generator.orders_per_tick", "generator.cancel_ratio",
		"generator.session_length_s", "generator.tick_interval",
		"sampler.depth",
		"broadcast.host", "broadcast.port", "broadcast.target_hz", "broadcast.max_subscribers",
		"logging.level", "logging.pretty",
	} {
		_ = v.BindEnv(key)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges that would otherwise fail confusingly deep
// inside the book or generator.
func (c Config) Validate() error {
	if c.Book.TickSize <= 0 {
		return fmt.Errorf("book.tick_size must be > 0")
	}
	if c.Generator.CancelRatio < 0 || c.Generator.CancelRatio > 1 {
		return fmt.Errorf("generator.cancel_ratio must be in [0,1]")
	}
	if c.Sampler.Depth == 0 {
		return fmt.Errorf("sampler.depth must be > 0")
	}
	if c.Broadcast.TargetHz == 0 {
		return fmt.Errorf("broadcast.target_hz must be > 0")
	}
	for _, row := range c.Generator.RegimeMatrix {
		var sum float64
		for _, p := range row {
			sum += p
		}
		if sum < 0.999 || sum > 1.001 {
			return fmt.Errorf("generator.regime_matrix rows must be row-stochastic (sum to 1), got %f", sum)
		}
	}
	return nil
}
