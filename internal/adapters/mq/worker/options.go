package worker

import (
	"context"
	"time"

	"github.com/okian/readiness/pkg/logger"
)

// Option applies a configuration option to an InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithResultHook registers a callback invoked after every job, successful or not.
func WithResultHook(fn func(ctx context.Context, r Result)) Option {
	return func(w *InMemoryWorker) {
		if fn != nil {
			w.onResult = fn
		}
	}
}

// WithIDGenerator replaces the record ID source.
func WithIDGenerator(fn func() string) Option {
	return func(w *InMemoryWorker) {
		if fn != nil {
			w.newID = fn
		}
	}
}

// WithClock replaces the evaluation timestamp source.
func WithClock(fn func() time.Time) Option {
	return func(w *InMemoryWorker) {
		if fn != nil {
			w.now = fn
		}
	}
}
