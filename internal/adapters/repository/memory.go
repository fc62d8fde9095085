package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/okian/readiness/pkg/metrics"
)

// shard holds the histories of the athletes hashed onto it, oldest first.
type shard struct {
	mu        sync.RWMutex
	byAthlete map[string][]Record
}

// MemoryStore keeps a bounded history per athlete in process memory. Record
// IDs are indexed across shards so they stay unique store-wide.
type MemoryStore struct {
	shards       []*shard
	historyLimit int
	updater      sizeUpdater

	idMu sync.Mutex
	ids  map[string]struct{}
}

// NewMemoryStore constructs a sharded in-memory store.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &MemoryStore{
		shards:       make([]*shard, o.shardCount),
		historyLimit: o.historyLimit,
		ids:          make(map[string]struct{}),
	}
	for i := range s.shards {
		s.shards[i] = &shard{byAthlete: make(map[string][]Record)}
	}

	s.updater.start(ctx, o.metricsInterval, s.Count)
	return s
}

func (s *MemoryStore) shardFor(athleteID string) *shard {
	return s.shards[murmur3.Sum32([]byte(athleteID))%uint32(len(s.shards))]
}

// Save inserts the record in evaluation-time order. Records with equal
// timestamps keep insertion order.
func (s *MemoryStore) Save(ctx context.Context, rec Record) error {
	start := time.Now()
	err := s.save(ctx, rec)
	metrics.RecordStoreOperation("save", sinceMs(start), err != nil)
	return err
}

func (s *MemoryStore) save(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(rec); err != nil {
		return err
	}
	if !s.reserve(rec.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
	}

	evicted := s.insert(rec)
	s.release(evicted)
	return nil
}

// insert places rec in its athlete's history and returns the IDs dropped by
// the history limit.
func (s *MemoryStore) insert(rec Record) []string {
	sh := s.shardFor(rec.AthleteID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	hist := sh.byAthlete[rec.AthleteID]
	i := sort.Search(len(hist), func(i int) bool {
		return hist[i].EvaluatedAt.After(rec.EvaluatedAt)
	})
	hist = append(hist, Record{})
	copy(hist[i+1:], hist[i:])
	hist[i] = rec

	var evicted []string
	if over := len(hist) - s.historyLimit; over > 0 {
		evicted = recordIDs(hist[:over])
		hist = append([]Record(nil), hist[over:]...)
	}
	sh.byAthlete[rec.AthleteID] = hist
	return evicted
}

func (s *MemoryStore) reserve(id string) bool {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *MemoryStore) release(ids []string) {
	if len(ids) == 0 {
		return
	}
	s.idMu.Lock()
	defer s.idMu.Unlock()
	for _, id := range ids {
		delete(s.ids, id)
	}
}

func recordIDs(recs []Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

// Latest returns the newest record for the athlete.
func (s *MemoryStore) Latest(ctx context.Context, athleteID string) (Record, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreOperation("latest", sinceMs(start), false) }()

	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	sh := s.shardFor(athleteID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	hist := sh.byAthlete[athleteID]
	if len(hist) == 0 {
		return Record{}, ErrNotFound
	}
	return hist[len(hist)-1], nil
}

// History returns up to limit records for the athlete, newest first.
func (s *MemoryStore) History(ctx context.Context, athleteID string, limit int) ([]Record, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreOperation("history", sinceMs(start), false) }()

	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sh := s.shardFor(athleteID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	hist := sh.byAthlete[athleteID]
	if len(hist) == 0 {
		return nil, ErrNotFound
	}
	if limit > len(hist) {
		limit = len(hist)
	}
	out := make([]Record, 0, limit)
	for i := len(hist) - 1; i >= len(hist)-limit; i-- {
		out = append(out, hist[i])
	}
	return out, nil
}

// Prune drops every record evaluated before the cutoff.
func (s *MemoryStore) Prune(ctx context.Context, before time.Time) (int, error) {
	start := time.Now()
	removed := 0
	for _, sh := range s.shards {
		if err := ctx.Err(); err != nil {
			metrics.RecordStoreOperation("prune", sinceMs(start), true)
			return removed, err
		}
		var stale []string
		sh.mu.Lock()
		for id, hist := range sh.byAthlete {
			i := sort.Search(len(hist), func(i int) bool {
				return !hist[i].EvaluatedAt.Before(before)
			})
			if i == 0 {
				continue
			}
			removed += i
			stale = append(stale, recordIDs(hist[:i])...)
			if i == len(hist) {
				delete(sh.byAthlete, id)
				continue
			}
			sh.byAthlete[id] = append([]Record(nil), hist[i:]...)
		}
		sh.mu.Unlock()
		s.release(stale)
	}
	metrics.RecordStoreOperation("prune", sinceMs(start), false)
	return removed, nil
}

// Count walks every shard under its read lock.
func (s *MemoryStore) Count(_ context.Context) (Counts, error) {
	var c Counts
	for _, sh := range s.shards {
		sh.mu.RLock()
		c.Athletes += len(sh.byAthlete)
		for _, hist := range sh.byAthlete {
			c.Records += len(hist)
		}
		sh.mu.RUnlock()
	}
	return c, nil
}

// Close stops the background metrics updater.
func (s *MemoryStore) Close() error {
	s.updater.stop()
	return nil
}
