// Package service wires the readiness engine to storage, the async
// pipeline and configuration reloads. It implements the dependencies
// required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron"

	"github.com/okian/readiness/internal/adapters/mq/queue"
	"github.com/okian/readiness/internal/adapters/mq/worker"
	"github.com/okian/readiness/internal/adapters/repository"
	"github.com/okian/readiness/internal/config"
	"github.com/okian/readiness/internal/domain/dedupe"
	"github.com/okian/readiness/internal/domain/engine"
	"github.com/okian/readiness/internal/domain/model"
	"github.com/okian/readiness/internal/domain/zone"
	"github.com/okian/readiness/pkg/logger"
	"github.com/okian/readiness/pkg/metrics"
)

const runtimeMetricsInterval = 5 * time.Second

// ErrNotStarted is returned by operations that need the pipeline running.
var ErrNotStarted error = unavailableError("service not started")

type unavailableError string

func (e unavailableError) Error() string { return string(e) }

// Unavailable marks the error as a temporary refusal of work.
func (unavailableError) Unavailable() bool { return true }

// Service hosts one engine and the collaborators around it.
type Service struct {
	mu sync.RWMutex

	cfg        *config.Config
	configPath string
	engine     atomic.Pointer[engine.Engine]

	store     repository.Store
	deduper   dedupe.Deduper
	queue     *queue.InMemoryQueue
	pool      *worker.Pool
	scheduler *cron.Cron
	watcher   *config.Watcher

	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	now    func() time.Time
	logger logger.Logger
}

// New constructs a Service and its engine. Invalid scoring tables are
// reported here rather than at Start.
func New(ctx context.Context, opts ...Option) (*Service, error) {
	s := &Service{
		cfg:    config.New(ctx),
		stopCh: make(chan struct{}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	eng, err := engine.New(engine.WithSettings(s.cfg.EngineSettings()))
	if err != nil {
		return nil, fmt.Errorf("building engine: %w", err)
	}
	s.engine.Store(eng)
	return s, nil
}

// Engine returns the engine currently in use.
func (s *Service) Engine() *engine.Engine { return s.engine.Load() }

// Start opens the store and starts the worker pool, the retention job and
// the config watcher. Workers stop early if ctx is cancelled, so pass a
// context that outlives the HTTP server and call Stop to drain.
func (s *Service) Start(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting readiness service...")
	s.stopCh = make(chan struct{})

	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return err
		}
		s.store = store
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.cfg.DedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.cfg.QueueSize))
	s.pool = worker.NewPool(s.cfg.WorkerCount, s.queue,
		worker.EvaluatorFunc(func(in engine.Input) (engine.Report, error) {
			return s.evaluate(in, metrics.SourceAsync)
		}),
		s.store,
		worker.WithResultHook(s.onJobDone),
		worker.WithClock(s.now),
	)
	s.pool.Start(ctx)
	defer func() {
		if err != nil {
			s.abort(ctx)
		}
	}()

	if err := s.startRetention(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	if s.configPath != "" {
		w, err := config.Watch(ctx, s.configPath, func(cfg *config.Config, err error) {
			if err != nil {
				metrics.RecordConfigReload(false)
				s.logger.Error(ctx, "config reload failed", logger.Error(err))
				return
			}
			_ = s.ApplyConfig(ctx, cfg)
		})
		if err != nil {
			return fmt.Errorf("watching config: %w", err)
		}
		s.watcher = w
	}

	s.wg.Add(1)
	go s.runtimeMetrics(ctx)

	s.started = true
	s.logger.Info(ctx, "readiness service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.cfg.QueueSize),
		logger.Int("dedupeSize", s.cfg.DedupeSize),
		logger.String("store", s.cfg.StoreDriver),
	)
	return nil
}

// abort undoes a partial Start.
func (s *Service) abort(ctx context.Context) {
	if s.scheduler != nil {
		s.scheduler.Stop()
		s.scheduler = nil
	}
	_ = s.pool.Shutdown(ctx)
	_ = s.store.Close()
	s.store = nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch s.cfg.StoreDriver {
	case config.DriverSQLite:
		store, err := repository.OpenSQLite(ctx, s.cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.cfg.SQLitePath))
		return store, nil
	case config.DriverBolt:
		store, err := repository.OpenBolt(ctx, s.cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("opening bolt store: %w", err)
		}
		s.logger.Info(ctx, "using bolt store", logger.String("path", s.cfg.BoltPath))
		return store, nil
	default:
		s.logger.Info(ctx, "using memory store", logger.Int("historyLimit", s.cfg.HistoryLimit))
		return repository.NewMemoryStore(ctx, repository.WithHistoryLimit(s.cfg.HistoryLimit)), nil
	}
}

func (s *Service) startRetention(ctx context.Context) error {
	if s.cfg.RetentionDays <= 0 {
		return nil
	}
	s.scheduler = cron.New()
	err := s.scheduler.AddFunc(s.cfg.RetentionSchedule, func() {
		if _, err := s.Prune(ctx); err != nil {
			s.logger.Error(ctx, "retention prune failed", logger.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling retention %q: %w", s.cfg.RetentionSchedule, err)
	}
	s.scheduler.Start()
	return nil
}

// Stop drains the queue and shuts every component down.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping readiness service...")

	var errs []error
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stopping config watcher: %w", err))
		}
	}
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}

	close(s.stopCh)
	s.wg.Wait()

	s.watcher = nil
	s.scheduler = nil
	s.store = nil
	s.started = false
	s.logger.Info(ctx, "readiness service stopped")
	return errors.Join(errs...)
}

// ApplyConfig swaps in an engine built from cfg's scoring tables. The old
// engine stays in place when the new tables are invalid.
func (s *Service) ApplyConfig(ctx context.Context, cfg *config.Config) error {
	eng, err := engine.New(engine.WithSettings(cfg.EngineSettings()))
	if err != nil {
		metrics.RecordConfigReload(false)
		s.log().Error(ctx, "rejected scoring tables", logger.Error(err))
		return err
	}
	s.engine.Store(eng)
	metrics.RecordConfigReload(true)
	s.log().Info(ctx, "scoring tables reloaded")
	return nil
}

func (s *Service) log() logger.Logger {
	if s.logger == nil {
		return logger.Get().Named("service")
	}
	return s.logger
}

// evaluate runs the current engine and records evaluation metrics.
func (s *Service) evaluate(in engine.Input, source string) (engine.Report, error) {
	start := time.Now()
	report, err := s.engine.Load().Evaluate(in)
	if err != nil {
		recordEvaluationError(err)
		return engine.Report{}, err
	}

	metrics.RecordEvaluation(report.RiskCategory.String(), source, report.CompositeScore,
		len(report.AllowedZones), float64(time.Since(start).Microseconds())/1000)
	metrics.RecordGateOutcome(string(report.SafetyGates.Power.Gate), report.SafetyGates.Power.Passed)
	metrics.RecordGateOutcome(string(report.SafetyGates.Speed.Gate), report.SafetyGates.Speed.Passed)
	return report, nil
}

func recordEvaluationError(err error) {
	if !errors.Is(err, model.ErrValidation) {
		metrics.RecordError("engine", "evaluation_error")
		return
	}
	for _, f := range model.ValidationFields(err) {
		metrics.RecordValidationFailure(f)
	}
}

// Validate checks an assessment against the current engine without storing
// anything. Asynchronous submissions are validated with it before queueing.
func (s *Service) Validate(in engine.Input) error {
	if in.Athlete.AthleteID == "" {
		return model.Missing("athlete.athlete_id")
	}
	if err := s.engine.Load().Validate(in); err != nil {
		recordEvaluationError(err)
		return err
	}
	return nil
}

// Zones lists the zone catalogue for the current risk table.
func (s *Service) Zones() []zone.Zone { return s.engine.Load().Zones() }

// Evaluate scores one assessment synchronously and stores the report.
func (s *Service) Evaluate(ctx context.Context, in engine.Input) (repository.Record, error) {
	if in.Athlete.AthleteID == "" {
		return repository.Record{}, model.Missing("athlete.athlete_id")
	}
	store, err := s.readyStore()
	if err != nil {
		return repository.Record{}, err
	}

	report, err := s.evaluate(in, metrics.SourceSync)
	if err != nil {
		return repository.Record{}, err
	}
	rec := repository.Record{
		ID:          uuid.NewString(),
		AthleteID:   in.Athlete.AthleteID,
		EvaluatedAt: s.now().UTC(),
		Report:      report,
	}
	if err := store.Save(ctx, rec); err != nil {
		return repository.Record{}, fmt.Errorf("saving report: %w", err)
	}
	return rec, nil
}

// Enqueue submits an assessment for asynchronous evaluation.
func (s *Service) Enqueue(ctx context.Context, j queue.Job) error { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()
	if q == nil {
		return ErrNotStarted
	}

	s.log().Debug(ctx, "received assessment",
		logger.String("submissionID", j.SubmissionID),
		logger.String("athleteID", j.Input.Athlete.AthleteID),
	)
	return q.Enqueue(ctx, j)
}

// onJobDone forgets failed submissions so clients can resubmit them.
func (s *Service) onJobDone(ctx context.Context, r worker.Result) {
	if r.Err != nil {
		s.Unrecord(ctx, r.Job.SubmissionID)
	}
}

// SeenAndRecord atomically checks if a submission id was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	d := s.dedupe()
	if d == nil {
		return false
	}
	seen := d.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordDuplicate()
	}
	return seen
}

// Unrecord removes a submission id from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	if d := s.dedupe(); d != nil {
		d.Unrecord(ctx, id)
	}
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if d := s.dedupe(); d != nil {
		return d.Size()
	}
	return 0
}

func (s *Service) dedupe() dedupe.Deduper {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deduper
}

func (s *Service) readyStore() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// Latest returns the athlete's newest stored report.
func (s *Service) Latest(ctx context.Context, athleteID string) (repository.Record, error) {
	store, err := s.readyStore()
	if err != nil {
		return repository.Record{}, err
	}
	return store.Latest(ctx, athleteID)
}

// History returns up to limit stored reports, newest first.
func (s *Service) History(ctx context.Context, athleteID string, limit int) ([]repository.Record, error) {
	store, err := s.readyStore()
	if err != nil {
		return nil, err
	}
	return store.History(ctx, athleteID, limit)
}

// Prune drops reports older than the retention window.
func (s *Service) Prune(ctx context.Context) (int, error) {
	store, err := s.readyStore()
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
	n, err := store.Prune(ctx, cutoff)
	if err != nil {
		metrics.RecordError("retention", "prune_error")
		return n, err
	}
	metrics.RecordRetentionPrune(n)
	s.log().Info(ctx, "retention prune finished",
		logger.Int("removed", n),
		logger.String("cutoff", cutoff.Format(time.RFC3339)),
	)
	return n, nil
}

func (s *Service) runtimeMetrics(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(runtimeMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			metrics.UpdateRuntime(runtime.NumGoroutine(), ms.Alloc)
		}
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.cfg.WorkerCount,
		"queueSize":   s.cfg.QueueSize,
		"dedupeSize":  s.cfg.DedupeSize,
		"storeDriver": s.cfg.StoreDriver,
	}

	if s.started {
		stats["queueLength"] = s.queue.Len()
		stats["activeWorkers"] = s.pool.Active()
		stats["dedupeEntries"] = s.deduper.Size()
		if c, err := s.store.Count(ctx); err == nil {
			stats["totalRecords"] = c.Records
			stats["totalAthletes"] = c.Athletes
			metrics.UpdateStoreSize(c.Records, c.Athletes)
		}
	}
	return stats
}
