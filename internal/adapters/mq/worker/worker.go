// Package worker evaluates queued assessments and persists the reports.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/readiness/internal/adapters/mq/queue"
	"github.com/okian/readiness/internal/adapters/repository"
	"github.com/okian/readiness/internal/domain/engine"
	"github.com/okian/readiness/pkg/logger"
	"github.com/okian/readiness/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	metricsUpdateInterval   = 5 * time.Second
)

// Evaluator turns one assessment into a report.
type Evaluator interface {
	Evaluate(in engine.Input) (engine.Report, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(in engine.Input) (engine.Report, error)

// Evaluate calls f(in).
func (f EvaluatorFunc) Evaluate(in engine.Input) (engine.Report, error) { return f(in) }

// Saver persists evaluated reports.
type Saver interface {
	Save(ctx context.Context, rec repository.Record) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Result is the outcome of one job. Err is set when evaluation or saving failed.
type Result struct {
	Job    queue.Job
	Record repository.Record
	Err    error
}

// Worker processes jobs until its queue closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue drains.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in hand, abandoning queued ones.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	evaluator Evaluator
	saver     Saver
	name      string

	onResult func(ctx context.Context, r Result)
	newID    func() string
	now      func() time.Time
	active   *atomic.Int64

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(q Queue, evaluator Evaluator, saver Saver, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		evaluator: evaluator,
		saver:     saver,
		name:      "worker",
		onResult:  func(context.Context, Result) {},
		newID:     uuid.NewString,
		now:       time.Now,
		active:    new(atomic.Int64),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop. Once it stops, a job the queue already handed
// over is reported through the result hook with ErrAbandoned.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	dctx, cancel := context.WithCancel(ctx)
	jobs := w.queue.Dequeue(dctx)
	defer w.abandon(ctx, cancel, jobs)

	for {
		select {
		case <-w.shutdown:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.active.Add(1)
			r := w.process(ctx, j)
			w.active.Add(-1)
			if r.Err != nil {
				w.logger.Error(ctx, "error processing job",
					logger.String("submissionID", j.SubmissionID),
					logger.Error(r.Err),
				)
			}
			w.onResult(ctx, r)
		}
	}
}

// abandon stops dequeueing and releases whatever the queue still delivers.
func (w *InMemoryWorker) abandon(ctx context.Context, cancel context.CancelFunc, jobs <-chan queue.Job) {
	cancel()
	for j := range jobs {
		w.logger.Warn(ctx, "job abandoned", logger.String("submissionID", j.SubmissionID))
		w.onResult(ctx, Result{Job: j, Err: fmt.Errorf("submission %s: %w", j.SubmissionID, ErrAbandoned)})
	}
}

// Shutdown signals the loop to stop and waits for it.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

// Done is closed once Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) Result { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	r := Result{Job: j}
	report, err := w.evaluator.Evaluate(j.Input)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordError("worker", "evaluation_error")
		r.Err = fmt.Errorf("evaluating submission %s: %w", j.SubmissionID, err)
		return r
	}

	r.Record = repository.Record{
		ID:           w.newID(),
		AthleteID:    j.Input.Athlete.AthleteID,
		SubmissionID: j.SubmissionID,
		EvaluatedAt:  w.now().UTC(),
		Report:       report,
	}
	if err := w.saver.Save(ctx, r.Record); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordError("worker", "store_error")
		r.Err = fmt.Errorf("saving submission %s: %w", j.SubmissionID, err)
		return r
	}

	w.logger.Debug(ctx, "job processed",
		logger.String("submissionID", j.SubmissionID),
		logger.String("athleteID", r.Record.AthleteID),
		logger.String("riskCategory", report.RiskCategory.String()),
	)
	return r
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	active  atomic.Int64

	shutdown chan struct{}

	logger logger.Logger
}

// NewPool creates a worker pool. A workerCount below 1 selects a default
// based on the CPU count. Options are applied to every worker.
func NewPool(workerCount int, q Queue, evaluator Evaluator, saver Saver, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, evaluator, saver, wopts...)
		w.active = &p.active
		p.workers[i] = w
	}

	metrics.UpdateWorkers(workerCount, 0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Active returns how many workers are processing a job right now.
func (p *Pool) Active() int { return int(p.active.Load()) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			metrics.UpdateWorkers(len(p.workers), p.Active())
		}
	}
}

// Shutdown closes the queue so workers drain what is already queued, then
// waits for them. Workers still busy when ctx ends are told to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	select {
	case <-p.shutdown:
	default:
		close(p.shutdown)
	}

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			timedOut++
			w.stop()
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkers(len(p.workers), 0)
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not drain: %w", timedOut, ctx.Err())
	}
	return nil
}
