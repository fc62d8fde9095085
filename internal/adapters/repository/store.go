// Package repository persists evaluation reports keyed by athlete and time.
package repository

import (
	"context"
	"time"

	"github.com/okian/readiness/internal/domain/engine"
)

// Record is one stored evaluation.
type Record struct {
	ID           string        `json:"id"`
	AthleteID    string        `json:"athlete_id"`
	SubmissionID string        `json:"submission_id,omitempty"`
	EvaluatedAt  time.Time     `json:"evaluated_at"`
	Report       engine.Report `json:"report"`
}

// Counts summarizes store contents.
type Counts struct {
	Records  int `json:"records"`
	Athletes int `json:"athletes"`
}

// Store provides read/write access to stored reports.
type Store interface {
	// Save appends a record to the athlete's history.
	Save(ctx context.Context, rec Record) error

	// Latest returns the newest record for an athlete.
	// Returns ErrNotFound if the athlete has none.
	Latest(ctx context.Context, athleteID string) (Record, error)

	// History returns up to limit records, newest first.
	History(ctx context.Context, athleteID string, limit int) ([]Record, error)

	// Prune removes records evaluated before the cutoff and reports how
	// many were removed.
	Prune(ctx context.Context, before time.Time) (int, error)

	// Count reports how many records and athletes are stored.
	Count(ctx context.Context) (Counts, error)

	Close() error
}

func validate(rec Record) error {
	switch {
	case rec.ID == "":
		return invalidRecord("id is required")
	case rec.AthleteID == "":
		return invalidRecord("athlete_id is required")
	case rec.EvaluatedAt.IsZero():
		return invalidRecord("evaluated_at is required")
	}
	return nil
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
