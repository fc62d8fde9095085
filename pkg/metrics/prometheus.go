// Package metrics provides Prometheus metrics for the readiness service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultNamespace = "readiness"

var (
	zoneBuckets  = []float64{2, 3, 4, 5, 6}
	scoreBuckets = prometheus.LinearBuckets(10, 10, 10)
)

// Manager owns one set of collectors.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	registry       prometheus.Registerer

	// Evaluation
	evaluations        *prometheus.CounterVec
	evaluationLatency  prometheus.Histogram
	compositeScore     prometheus.Histogram
	allowedZones       prometheus.Histogram
	gateOutcomes       *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	duplicates         prometheus.Counter
	configReloads      *prometheus.CounterVec

	// Queue
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueUtilization  prometheus.Gauge
	queueEnqueued     prometheus.Counter
	queueDequeued     prometheus.Counter
	queueEnqueueError prometheus.Counter
	queueWait         prometheus.Histogram

	// Workers
	workerCount   prometheus.Gauge
	workerActive  prometheus.Gauge
	workerLatency prometheus.Histogram
	workerErrors  prometheus.Counter

	// Store
	storeLatency   *prometheus.HistogramVec
	storeErrors    *prometheus.CounterVec
	storeRecords   prometheus.Gauge
	storeAthletes  prometheus.Gauge
	retentionPrune prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors and runtime
	errorsByComponent *prometheus.CounterVec
	goroutines        prometheus.Gauge
	memoryUsage       prometheus.Gauge
}

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry served on /metrics

var globalManager = NewManager(WithPrometheusRegistry(customRegistry)) //nolint:gochecknoglobals // singleton behind the Record*/Update* helpers

// NewManager creates and registers a set of collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      defaultNamespace,
		latencyBuckets: prometheus.DefBuckets,
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.evaluations = m.counterVec("evaluations_total", "Completed evaluations by risk category and source", "risk_category", "source")
	m.evaluationLatency = m.histogram("evaluation_latency_milliseconds", "Engine evaluation latency in milliseconds", m.latencyBuckets)
	m.compositeScore = m.histogram("composite_score", "Distribution of composite readiness scores", scoreBuckets)
	m.allowedZones = m.histogram("allowed_zones", "Number of training zones allowed per evaluation", zoneBuckets)
	m.gateOutcomes = m.counterVec("gate_outcomes_total", "Safety gate outcomes by gate and result", "gate", "result")
	m.validationFailures = m.counterVec("validation_failures_total", "Rejected evaluations by failure kind", "kind")
	m.duplicates = m.counter("submissions_duplicate_total", "Assessment submissions dropped as duplicates")
	m.configReloads = m.counterVec("config_reloads_total", "Configuration reloads by result", "result")

	m.queueSize = m.gauge("queue_size", "Current number of queued assessments")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of queued assessments")
	m.queueUtilization = m.gauge("queue_utilization", "Queue fill ratio between 0 and 1")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Assessments accepted into the queue")
	m.queueDequeued = m.counter("queue_dequeued_total", "Assessments taken off the queue")
	m.queueEnqueueError = m.counter("queue_enqueue_errors_total", "Assessments rejected because the queue was full or closed")
	m.queueWait = m.histogram("queue_wait_milliseconds", "Time assessments spent queued in milliseconds", m.latencyBuckets)

	m.workerCount = m.gauge("worker_count", "Configured number of workers")
	m.workerActive = m.gauge("worker_active", "Workers currently evaluating an assessment")
	m.workerLatency = m.histogram("worker_processing_latency_milliseconds", "Time a worker spends on one assessment in milliseconds", m.latencyBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Assessments a worker failed to evaluate or store")

	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Report store latency by operation in milliseconds", m.latencyBuckets, "operation")
	m.storeErrors = m.counterVec("store_errors_total", "Report store failures by operation", "operation")
	m.storeRecords = m.gauge("store_records", "Reports currently held by the store")
	m.storeAthletes = m.gauge("store_athletes", "Athletes with at least one stored report")
	m.retentionPrune = m.counter("retention_pruned_total", "Reports removed by the retention job")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.latencyBuckets, "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "type")
	m.goroutines = m.gauge("goroutines", "Number of goroutines")
	m.memoryUsage = m.gauge("memory_alloc_bytes", "Heap bytes allocated")
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
