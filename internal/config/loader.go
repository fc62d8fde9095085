package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron"

	"github.com/okian/readiness/internal/domain/engine"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "READINESS_"

	// EnvConfigFile names the optional YAML file.
	EnvConfigFile = EnvPrefix + "CONFIG"

	// nestedSeparator in env keys maps to a level of nesting, so
	// READINESS_GATES__POWER__MIN_ROM sets gates.power.min_rom.
	nestedSeparator = "__"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if READINESS_CONFIG is set
//  3. env (prefix READINESS_)
func Load(ctx context.Context) (*Config, error) {
	return LoadFile(ctx, os.Getenv(EnvConfigFile))
}

// LoadFile is Load with an explicit file path. An empty path skips the file.
func LoadFile(ctx context.Context, path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrLoadConfig, path, err)
		}
	}

	if err := k.Load(envProvider(), nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *New(ctx)
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envProvider() *env.Env {
	return env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, nestedSeparator, ".")
	})
}

// Validate checks every field and the scoring tables.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.QueueSize <= 0:
		return invalid("queue_size must be positive, got %d", c.QueueSize)
	case c.WorkerCount <= 0:
		return invalid("worker_count must be positive, got %d", c.WorkerCount)
	case c.HistoryLimit <= 0:
		return invalid("history_limit must be positive, got %d", c.HistoryLimit)
	case c.RetentionDays < 0:
		return invalid("retention_days must not be negative, got %d", c.RetentionDays)
	case c.ShutdownTimeout <= 0:
		return invalid("shutdown_timeout must be positive, got %s", c.ShutdownTimeout)
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return invalid("log_format must be text or json, got %q", c.LogFormat)
	}

	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.SQLitePath == "" {
			return invalid("sqlite_path is required for the sqlite driver")
		}
	case DriverBolt:
		if c.BoltPath == "" {
			return invalid("bolt_path is required for the bolt driver")
		}
	default:
		return invalid("store_driver must be %s, %s or %s, got %q", DriverMemory, DriverSQLite, DriverBolt, c.StoreDriver)
	}

	if c.RetentionDays > 0 {
		if _, err := cron.Parse(c.RetentionSchedule); err != nil {
			return invalid("retention_schedule %q: %v", c.RetentionSchedule, err)
		}
	}

	if _, err := engine.New(engine.WithSettings(c.EngineSettings())); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
