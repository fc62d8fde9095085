package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order. Entry i moves the schema to version i+1;
// append new entries, never edit shipped ones.
var migrations = [][]string{
	{
		`CREATE TABLE evaluations (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			athlete_id TEXT NOT NULL,
			submission_id TEXT NOT NULL DEFAULT '',
			evaluated_at INTEGER NOT NULL,
			composite_score REAL NOT NULL,
			risk_category TEXT NOT NULL,
			report TEXT NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX idx_evaluations_athlete_time ON evaluations(athlete_id, evaluated_at)`,
		`CREATE INDEX idx_evaluations_time ON evaluations(evaluated_at)`,
	},
}

// SchemaVersion is the version a fully migrated database reports.
var SchemaVersion = len(migrations)

// migrate brings the schema up to SchemaVersion. Each version runs in its
// own transaction together with its schema_version row.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if current > len(migrations) {
		return fmt.Errorf("schema version %d is newer than this build (%d)", current, len(migrations))
	}

	for v := current + 1; v <= len(migrations); v++ {
		if err := applyVersion(ctx, db, v, migrations[v-1]); err != nil {
			return fmt.Errorf("migrating to version %d: %w", v, err)
		}
	}
	return nil
}

func applyVersion(ctx context.Context, db *sql.DB, version int, stmts []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, version); err != nil {
		return err
	}
	return tx.Commit()
}
