package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/readiness/pkg/metrics"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the full evaluation history in a SQLite database.
type SQLiteStore struct {
	db      *sql.DB
	updater sizeUpdater
}

// OpenSQLite opens the database at path, creating the file and schema if
// necessary. ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	s, err := NewSQLiteStore(ctx, db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an open database and runs the migrations.
func NewSQLiteStore(ctx context.Context, db *sql.DB, opts ...Option) (*SQLiteStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	s := &SQLiteStore{db: db}
	s.updater.start(ctx, o.metricsInterval, s.Count)
	return s, nil
}

func (s *SQLiteStore) observe(op string, start time.Time, errp *error) {
	metrics.RecordStoreOperation(op, sinceMs(start), *errp != nil && !errors.Is(*errp, ErrNotFound))
}

// Save inserts one record. The report is stored as JSON.
func (s *SQLiteStore) Save(ctx context.Context, rec Record) (err error) {
	defer s.observe("save", time.Now(), &err)
	if err = validate(rec); err != nil {
		return err
	}

	body, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO evaluations (id, athlete_id, submission_id, evaluated_at, composite_score, risk_category, report)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.AthleteID, rec.SubmissionID, rec.EvaluatedAt.UnixNano(),
		rec.Report.CompositeScore, rec.Report.RiskCategory.String(), string(body))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
		}
		return fmt.Errorf("inserting evaluation: %w", err)
	}
	return nil
}

// Latest returns the newest record for the athlete.
func (s *SQLiteStore) Latest(ctx context.Context, athleteID string) (rec Record, err error) {
	defer s.observe("latest", time.Now(), &err)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, athlete_id, submission_id, evaluated_at, report
		FROM evaluations
		WHERE athlete_id = ?
		ORDER BY evaluated_at DESC, seq DESC
		LIMIT 1
	`, athleteID)
	rec, err = scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// History returns up to limit records for the athlete, newest first.
func (s *SQLiteStore) History(ctx context.Context, athleteID string, limit int) (out []Record, err error) {
	defer s.observe("history", time.Now(), &err)
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, athlete_id, submission_id, evaluated_at, report
		FROM evaluations
		WHERE athlete_id = ?
		ORDER BY evaluated_at DESC, seq DESC
		LIMIT ?
	`, athleteID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// Prune deletes every record evaluated before the cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (n int, err error) {
	defer s.observe("prune", time.Now(), &err)
	res, err := s.db.ExecContext(ctx, `DELETE FROM evaluations WHERE evaluated_at < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("pruning evaluations: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// Count reports stored records and distinct athletes.
func (s *SQLiteStore) Count(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT athlete_id) FROM evaluations`,
	).Scan(&c.Records, &c.Athletes)
	if err != nil {
		return Counts{}, fmt.Errorf("counting evaluations: %w", err)
	}
	return c, nil
}

// Close stops the metrics updater and closes the database.
func (s *SQLiteStore) Close() error {
	s.updater.stop()
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		rec  Record
		at   int64
		body string
	)
	if err := sc.Scan(&rec.ID, &rec.AthleteID, &rec.SubmissionID, &at, &body); err != nil {
		return Record{}, err
	}
	rec.EvaluatedAt = time.Unix(0, at).UTC()
	if err := json.Unmarshal([]byte(body), &rec.Report); err != nil {
		return Record{}, fmt.Errorf("decoding report %s: %w", rec.ID, err)
	}
	return rec, nil
}
