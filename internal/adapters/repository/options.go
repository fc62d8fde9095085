package repository

import "time"

const (
	defaultShardCount      = 16
	defaultHistoryLimit    = 100
	defaultMetricsInterval = 5 * time.Second
)

type options struct {
	shardCount      int
	historyLimit    int
	metricsInterval time.Duration
}

func defaultOptions() options {
	return options{
		shardCount:      defaultShardCount,
		historyLimit:    defaultHistoryLimit,
		metricsInterval: defaultMetricsInterval,
	}
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithShardCount sets how many lock shards the memory store uses.
func WithShardCount(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.shardCount = n
		}
	}
}

// WithHistoryLimit caps how many reports the memory store keeps per athlete.
// Older reports are dropped first.
func WithHistoryLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.historyLimit = n
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background size metrics.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.metricsInterval = interval
		}
	}
}
