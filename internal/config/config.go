// Package config defines service configuration and how it is loaded.
//
// Conventions:
//   - New(ctx) returns a Config holding every default.
//   - Load layers a YAML file and READINESS_* environment variables on top.
//   - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"runtime"
	"time"

	"github.com/okian/readiness/internal/domain/engine"
	"github.com/okian/readiness/internal/domain/gate"
	"github.com/okian/readiness/internal/domain/scoring"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory assessment queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of evaluation workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many submission IDs are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// StoreDriver selects the report store: memory, sqlite or bolt.
	StoreDriver string `koanf:"store_driver"`

	// SQLitePath is the database file for the sqlite driver.
	SQLitePath string `koanf:"sqlite_path"`

	// BoltPath is the data file for the bolt driver.
	BoltPath string `koanf:"bolt_path"`

	// HistoryLimit caps reports kept per athlete in memory and the
	// history page size.
	HistoryLimit int `koanf:"history_limit"`

	// RetentionDays drops reports older than this many days. Zero keeps
	// everything.
	RetentionDays int `koanf:"retention_days"`

	// RetentionSchedule is the cron spec for the retention job.
	RetentionSchedule string `koanf:"retention_schedule"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	Weights        scoring.Weights        `koanf:"weights"`
	RiskThresholds scoring.RiskThresholds `koanf:"risk_thresholds"`
	Gates          gate.Thresholds        `koanf:"gates"`
}

// New creates a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		QueueSize:         10_000,
		WorkerCount:       runtime.NumCPU() * 2,
		DedupeSize:        50_000,
		StoreDriver:       DriverMemory,
		SQLitePath:        "readiness.db",
		BoltPath:          "readiness.bolt",
		HistoryLimit:      100,
		RetentionDays:     365,
		RetentionSchedule: "@daily",
		ShutdownTimeout:   10 * time.Second,
		Weights:           scoring.DefaultWeights(),
		RiskThresholds:    scoring.DefaultRiskThresholds(),
		Gates:             gate.DefaultThresholds(),
	}
}

// EngineSettings returns the scoring tables for engine.New.
func (c *Config) EngineSettings() engine.Settings {
	return engine.Settings{
		Weights:        c.Weights,
		RiskThresholds: c.RiskThresholds,
		Gates:          c.Gates,
	}
}
