package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

// sample returns the value of the first series of a gathered family, or -1.
func sample(reg *prometheus.Registry, name string) float64 {
	families, err := reg.Gather()
	if err != nil {
		return -1
	}
	for _, mf := range families {
		if mf.GetName() != name || len(mf.GetMetric()) == 0 {
			continue
		}
		m := mf.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			return m.GetCounter().GetValue()
		case m.GetGauge() != nil:
			return m.GetGauge().GetValue()
		case m.GetHistogram() != nil:
			return float64(m.GetHistogram().GetSampleCount())
		}
	}
	return -1
}

func TestManagerCreation(t *testing.T) {
	Convey("Given a private registry", t, func() {
		reg := prometheus.NewRegistry()

		Convey("When a manager is created with custom options", func() {
			m := NewManager(
				WithPrometheusRegistry(reg),
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 5, 10}),
			)
			m.RecordDuplicate()

			Convey("Then metric names carry the namespace and subsystem", func() {
				So(sample(reg, "test_unit_submissions_duplicate_total"), ShouldEqual, 1.0)
			})
		})

		Convey("When two managers share a registry", func() {
			NewManager(WithPrometheusRegistry(reg))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(reg)) }, ShouldPanic)
			})
		})
	})
}

func TestRecording(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(reg))

		Convey("When an evaluation is recorded", func() {
			m.RecordEvaluation("medium", SourceSync, 68, 4, 0.2)

			Convey("Then the counter and histograms observe it", func() {
				So(sample(reg, "readiness_evaluations_total"), ShouldEqual, 1.0)
				So(sample(reg, "readiness_composite_score"), ShouldEqual, 1.0)
				So(sample(reg, "readiness_allowed_zones"), ShouldEqual, 1.0)
				So(sample(reg, "readiness_evaluation_latency_milliseconds"), ShouldEqual, 1.0)
			})
		})

		Convey("When queue depth is published", func() {
			m.UpdateQueue(25, 100)

			Convey("Then utilization is derived from capacity", func() {
				So(sample(reg, "readiness_queue_size"), ShouldEqual, 25.0)
				So(sample(reg, "readiness_queue_capacity"), ShouldEqual, 100.0)
				So(sample(reg, "readiness_queue_utilization"), ShouldEqual, 0.25)
			})
		})

		Convey("When a store operation fails", func() {
			m.RecordStoreOperation("save", 1.5, true)
			m.RecordRetentionPrune(3)

			Convey("Then latency and the failure are both recorded", func() {
				So(sample(reg, "readiness_store_latency_milliseconds"), ShouldEqual, 1.0)
				So(sample(reg, "readiness_store_errors_total"), ShouldEqual, 1.0)
				So(sample(reg, "readiness_retention_pruned_total"), ShouldEqual, 3.0)
			})
		})

		Convey("When gate outcomes and reloads are counted", func() {
			m.RecordGateOutcome("power", true)
			m.RecordConfigReload(false)
			m.RecordValidationFailure("validation")

			Convey("Then each labelled series exists", func() {
				So(sample(reg, "readiness_gate_outcomes_total"), ShouldEqual, 1.0)
				So(sample(reg, "readiness_config_reloads_total"), ShouldEqual, 1.0)
				So(sample(reg, "readiness_validation_failures_total"), ShouldEqual, 1.0)
			})
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the package-level helpers", t, func() {
		Convey("Then they write to the exported registry without panicking", func() {
			So(func() {
				RecordEvaluation("low", SourceAsync, 75, 4, 0.1)
				RecordGateOutcome("speed", false)
				RecordValidationFailure("missing_pillar")
				RecordDuplicate()
				RecordConfigReload(true)
				UpdateQueue(1, 10)
				RecordEnqueue()
				RecordEnqueueError()
				RecordDequeue(2)
				UpdateWorkers(4, 1)
				RecordWorkerLatency(3)
				RecordWorkerError()
				RecordStoreOperation("latest", 0.3, false)
				UpdateStoreSize(10, 2)
				RecordRetentionPrune(0)
				RecordHTTPRequest("/healthz", "GET", "200", 0.1)
				RecordError("worker", "store")
				UpdateRuntime(12, 1024)
			}, ShouldNotPanic)
			So(Default(), ShouldNotBeNil)
			So(sample(GetRegistry(), "readiness_store_records"), ShouldEqual, 10.0)
		})
	})
}
