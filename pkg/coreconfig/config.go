// Package coreconfig loads the process-level decisioncore.yaml: bus,
// outbox, room, retention, and database settings, merged over built-in
// defaults with dario.cat/mergo and struct-tag validated with
// go-playground/validator, following the teacher's pkg/config.Initialize
// pipeline (load -> expand env -> unmarshal -> merge over defaults ->
// validate). Named coreconfig rather than config to avoid colliding with
// the teacher's pre-existing pkg/config (its agent/LLM/MCP configuration
// package, a different and much larger concern — see DESIGN.md's naming
// collisions section).
package coreconfig

import (
	"fmt"
	"os"
	"time"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// BusConfig holds the event bus's dispatch-mode setting (spec.md §4.4: the
// bus itself has no tunables beyond how handlers are invoked).
type BusConfig struct {
	// Concurrent is loaded from YAML but not read by eventbus.Bus, which
	// always dispatches handlers registered for the same event type
	// sequentially in registration order; setting it has no effect.
	Concurrent bool `yaml:"concurrent"`
}

// OutboxConfig tunes the outbox worker's poll cadence and retry schedule.
type OutboxConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval" validate:"required"`
	BatchSize      int           `yaml:"batch_size" validate:"required,min=1"`
	MaxAttempts    int           `yaml:"max_attempts" validate:"required,min=1"`
	BackoffBase    time.Duration `yaml:"backoff_base" validate:"required"`
	BackoffFactor  float64       `yaml:"backoff_factor" validate:"required,gt=1"`
	BackoffCap     time.Duration `yaml:"backoff_cap" validate:"required"`
	JitterFraction float64       `yaml:"jitter_fraction" validate:"gte=0,lte=1"`
}

// RoomConfig tunes the WebSocket room manager's per-client buffer.
type RoomConfig struct {
	BufferSize int `yaml:"buffer_size" validate:"required,min=1"`
}

// RetentionConfig tunes the cleanup worker's TTLs and sweep cadence.
type RetentionConfig struct {
	ProcessedEventTTL time.Duration `yaml:"processed_event_ttl" validate:"required"`
	OutboxTTL         time.Duration `yaml:"outbox_ttl" validate:"required"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval" validate:"required"`
}

// DatabaseConfig holds the Postgres connection settings. String fields
// support ${VAR} environment expansion so secrets never live in the YAML
// file itself.
type DatabaseConfig struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"required"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
	Database string `yaml:"database" validate:"required"`
	SSLMode  string `yaml:"ssl_mode"`
}

// Config is the fully resolved, validated decisioncore configuration.
type Config struct {
	Bus       BusConfig       `yaml:"bus"`
	Outbox    OutboxConfig    `yaml:"outbox"`
	Room      RoomConfig      `yaml:"room"`
	Retention RetentionConfig `yaml:"retention"`
	Database  DatabaseConfig  `yaml:"database"`
}

// Defaults returns the built-in configuration applied before the YAML
// file's values are merged on top, matching spec.md §4.12's named
// defaults.
func Defaults() *Config {
	return &Config{
		Bus: BusConfig{Concurrent: false},
		Outbox: OutboxConfig{
			PollInterval:   5 * time.Second,
			BatchSize:      50,
			MaxAttempts:    10,
			BackoffBase:    1 * time.Second,
			BackoffFactor:  2,
			BackoffCap:     5 * time.Minute,
			JitterFraction: 0.10,
		},
		Room: RoomConfig{BufferSize: 128},
		Retention: RetentionConfig{
			ProcessedEventTTL: 7 * 24 * time.Hour,
			OutboxTTL:         7 * 24 * time.Hour,
			CleanupInterval:   1 * time.Hour,
		},
		Database: DatabaseConfig{SSLMode: "disable"},
	}
}

// Load reads path, expands environment variables, merges it over Defaults,
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	data = ExpandEnv(data)

	var userCfg Config
	if err := yaml.Unmarshal(data, &userCfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := Defaults()
	if err := mergo.Merge(cfg, userCfg, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge config over defaults: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
