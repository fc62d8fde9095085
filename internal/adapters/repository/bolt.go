package repository

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/okian/readiness/pkg/metrics"
)

const boltOpenTimeout = time.Second

// Bucket layout: athletes/<athlete_id>/<key> -> record JSON, ids/<id> -> athlete_id.
var (
	bucketAthletes = []byte("athletes")
	bucketIDs      = []byte("ids")
)

// BoltStore keeps the evaluation history in a bbolt file. Each athlete has a
// nested bucket whose keys sort by evaluation time, then insertion order.
type BoltStore struct {
	db      *bbolt.DB
	updater sizeUpdater
	once    sync.Once
	err     error
}

// OpenBolt opens or creates the bbolt file at path.
func OpenBolt(ctx context.Context, path string, opts ...Option) (*BoltStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening bolt file: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketAthletes, bucketIDs} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	s := &BoltStore{db: db}
	s.updater.start(ctx, o.metricsInterval, s.Count)
	return s, nil
}

// boltKey orders by evaluation time, then by the bucket sequence. The sign
// bit is flipped so pre-1970 times still sort first.
func boltKey(at time.Time, seq uint64) []byte {
	k := make([]byte, 16)
	binary.BigEndian.PutUint64(k[:8], uint64(at.UnixNano())^(1<<63))
	binary.BigEndian.PutUint64(k[8:], seq)
	return k
}

func (s *BoltStore) observe(op string, start time.Time, errp *error) {
	metrics.RecordStoreOperation(op, sinceMs(start), *errp != nil && !errors.Is(*errp, ErrNotFound))
}

// Save stores one record. Record IDs are unique across athletes.
func (s *BoltStore) Save(ctx context.Context, rec Record) (err error) {
	defer s.observe("save", time.Now(), &err)
	if err = validate(rec); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}

	rec.EvaluatedAt = rec.EvaluatedAt.UTC()
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		ids := tx.Bucket(bucketIDs)
		if ids.Get([]byte(rec.ID)) != nil {
			return fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
		}
		ab, err := tx.Bucket(bucketAthletes).CreateBucketIfNotExists([]byte(rec.AthleteID))
		if err != nil {
			return fmt.Errorf("creating athlete bucket: %w", err)
		}
		seq, err := ab.NextSequence()
		if err != nil {
			return err
		}
		if err := ab.Put(boltKey(rec.EvaluatedAt, seq), body); err != nil {
			return err
		}
		return ids.Put([]byte(rec.ID), []byte(rec.AthleteID))
	})
}

// Latest returns the newest record for the athlete.
func (s *BoltStore) Latest(ctx context.Context, athleteID string) (rec Record, err error) {
	defer s.observe("latest", time.Now(), &err)
	recs, err := s.newest(ctx, athleteID, 1)
	if err != nil {
		return Record{}, err
	}
	return recs[0], nil
}

// History returns up to limit records for the athlete, newest first.
func (s *BoltStore) History(ctx context.Context, athleteID string, limit int) (out []Record, err error) {
	defer s.observe("history", time.Now(), &err)
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	return s.newest(ctx, athleteID, limit)
}

func (s *BoltStore) newest(ctx context.Context, athleteID string, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		ab := tx.Bucket(bucketAthletes).Bucket([]byte(athleteID))
		if ab == nil {
			return ErrNotFound
		}
		c := ab.Cursor()
		for k, v := c.Last(); k != nil && len(out) < limit; k, v = c.Prev() {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decoding record: %w", err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// Prune deletes every record evaluated before the cutoff and drops athletes
// left without records.
func (s *BoltStore) Prune(ctx context.Context, before time.Time) (n int, err error) {
	defer s.observe("prune", time.Now(), &err)
	if err = ctx.Err(); err != nil {
		return 0, err
	}
	cutoff := boltKey(before, 0)

	err = s.db.Update(func(tx *bbolt.Tx) error {
		athletes := tx.Bucket(bucketAthletes)
		ids := tx.Bucket(bucketIDs)

		var names [][]byte
		if err := athletes.ForEach(func(k, v []byte) error {
			if v == nil {
				names = append(names, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}

		for _, name := range names {
			ab := athletes.Bucket(name)
			var stale [][]byte
			c := ab.Cursor()
			for k, v := c.First(); k != nil && bytes.Compare(k, cutoff) < 0; k, v = c.Next() {
				var rec Record
				if err := json.Unmarshal(v, &rec); err != nil {
					return fmt.Errorf("decoding record: %w", err)
				}
				if err := ids.Delete([]byte(rec.ID)); err != nil {
					return err
				}
				stale = append(stale, append([]byte(nil), k...))
			}
			for _, k := range stale {
				if err := ab.Delete(k); err != nil {
					return err
				}
			}
			n += len(stale)

			if k, _ := ab.Cursor().First(); k == nil {
				if err := athletes.DeleteBucket(name); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Count reports stored records and athletes.
func (s *BoltStore) Count(_ context.Context) (Counts, error) {
	var c Counts
	err := s.db.View(func(tx *bbolt.Tx) error {
		c.Records = tx.Bucket(bucketIDs).Stats().KeyN
		return tx.Bucket(bucketAthletes).ForEach(func(_, v []byte) error {
			if v == nil {
				c.Athletes++
			}
			return nil
		})
	})
	if err != nil {
		return Counts{}, fmt.Errorf("counting records: %w", err)
	}
	return c, nil
}

// Close stops the metrics updater and closes the file. It is safe to call
// more than once.
func (s *BoltStore) Close() error {
	s.once.Do(func() {
		s.updater.stop()
		s.err = s.db.Close()
	})
	return s.err
}
