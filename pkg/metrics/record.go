package metrics

import "strconv"

// Evaluation sources.
const (
	SourceSync  = "sync"
	SourceAsync = "async"
)

// RecordEvaluation records one completed evaluation.
func (m *Manager) RecordEvaluation(category, source string, composite float64, zones int, latencyMs float64) {
	m.evaluations.WithLabelValues(category, source).Inc()
	m.compositeScore.Observe(composite)
	m.allowedZones.Observe(float64(zones))
	m.evaluationLatency.Observe(latencyMs)
}

// RecordGateOutcome counts one gate decision.
func (m *Manager) RecordGateOutcome(gate string, passed bool) {
	result := "locked"
	if passed {
		result = "passed"
	}
	m.gateOutcomes.WithLabelValues(gate, result).Inc()
}

// RecordValidationFailure counts a rejected evaluation.
func (m *Manager) RecordValidationFailure(kind string) {
	m.validationFailures.WithLabelValues(kind).Inc()
}

// RecordDuplicate counts a duplicate submission.
func (m *Manager) RecordDuplicate() { m.duplicates.Inc() }

// RecordConfigReload counts a configuration reload.
func (m *Manager) RecordConfigReload(ok bool) {
	m.configReloads.WithLabelValues(strconv.FormatBool(ok)).Inc()
}

// UpdateQueue publishes queue depth and capacity.
func (m *Manager) UpdateQueue(size, capacity int) {
	m.queueSize.Set(float64(size))
	m.queueCapacity.Set(float64(capacity))
	if capacity > 0 {
		m.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// RecordEnqueue counts an accepted assessment.
func (m *Manager) RecordEnqueue() { m.queueEnqueued.Inc() }

// RecordEnqueueError counts a rejected assessment.
func (m *Manager) RecordEnqueueError() { m.queueEnqueueError.Inc() }

// RecordDequeue counts an assessment taken off the queue and how long it waited.
func (m *Manager) RecordDequeue(waitMs float64) {
	m.queueDequeued.Inc()
	m.queueWait.Observe(waitMs)
}

// UpdateWorkers publishes configured and busy worker counts.
func (m *Manager) UpdateWorkers(total, active int) {
	m.workerCount.Set(float64(total))
	m.workerActive.Set(float64(active))
}

// RecordWorkerLatency records the time spent on one assessment.
func (m *Manager) RecordWorkerLatency(latencyMs float64) { m.workerLatency.Observe(latencyMs) }

// RecordWorkerError counts a failed assessment.
func (m *Manager) RecordWorkerError() { m.workerErrors.Inc() }

// RecordStoreOperation records store latency and, when failed, an error.
func (m *Manager) RecordStoreOperation(op string, latencyMs float64, failed bool) {
	m.storeLatency.WithLabelValues(op).Observe(latencyMs)
	if failed {
		m.storeErrors.WithLabelValues(op).Inc()
	}
}

// UpdateStoreSize publishes how many reports and athletes are stored.
func (m *Manager) UpdateStoreSize(records, athletes int) {
	m.storeRecords.Set(float64(records))
	m.storeAthletes.Set(float64(athletes))
}

// RecordRetentionPrune counts reports removed by retention.
func (m *Manager) RecordRetentionPrune(n int) { m.retentionPrune.Add(float64(n)) }

// RecordHTTPRequest records one served request.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordError counts an error by component and type.
func (m *Manager) RecordError(component, errorType string) {
	m.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateRuntime publishes goroutine count and heap allocation.
func (m *Manager) UpdateRuntime(goroutines int, allocBytes uint64) {
	m.goroutines.Set(float64(goroutines))
	m.memoryUsage.Set(float64(allocBytes))
}

// Package-level helpers write to the default manager.

func RecordEvaluation(category, source string, composite float64, zones int, latencyMs float64) {
	globalManager.RecordEvaluation(category, source, composite, zones, latencyMs)
}
func RecordGateOutcome(gate string, passed bool) { globalManager.RecordGateOutcome(gate, passed) }
func RecordValidationFailure(kind string)        { globalManager.RecordValidationFailure(kind) }
func RecordDuplicate()                           { globalManager.RecordDuplicate() }
func RecordConfigReload(ok bool)                 { globalManager.RecordConfigReload(ok) }
func UpdateQueue(size, capacity int)             { globalManager.UpdateQueue(size, capacity) }
func RecordEnqueue()                             { globalManager.RecordEnqueue() }
func RecordEnqueueError()                        { globalManager.RecordEnqueueError() }
func RecordDequeue(waitMs float64)               { globalManager.RecordDequeue(waitMs) }
func UpdateWorkers(total, active int)            { globalManager.UpdateWorkers(total, active) }
func RecordWorkerLatency(latencyMs float64)      { globalManager.RecordWorkerLatency(latencyMs) }
func RecordWorkerError()                         { globalManager.RecordWorkerError() }
func UpdateStoreSize(records, athletes int)      { globalManager.UpdateStoreSize(records, athletes) }
func RecordRetentionPrune(n int)                 { globalManager.RecordRetentionPrune(n) }
func RecordError(component, errorType string)    { globalManager.RecordError(component, errorType) }
func UpdateRuntime(goroutines int, alloc uint64) { globalManager.UpdateRuntime(goroutines, alloc) }
func RecordStoreOperation(op string, latencyMs float64, failed bool) {
	globalManager.RecordStoreOperation(op, latencyMs, failed)
}
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}
