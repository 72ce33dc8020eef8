package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should use the default namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "cognitrend")
				So(manager.subsystem, ShouldEqual, "pipeline")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_ns"),
				WithSubsystem("test_sub"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test_ns")
				So(manager.subsystem, ShouldEqual, "test_sub")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.constLabels["env"], ShouldEqual, "test")
			})

			Convey("And metrics should be gathered from the custom registry", func() {
				manager.assessments.WithLabelValues(OutcomeAssessed).Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When empty options are passed", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "cognitrend")
				So(manager.subsystem, ShouldEqual, "pipeline")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording assessment outcomes", func() {
			before := testutil.ToFloat64(globalManager.assessments.WithLabelValues(OutcomeInsufficientData))
			RecordAssessment(OutcomeInsufficientData)

			Convey("Then the labelled counter should increase by one", func() {
				after := testutil.ToFloat64(globalManager.assessments.WithLabelValues(OutcomeInsufficientData))
				So(after-before, ShouldEqual, 1)
			})
		})

		Convey("When recording alerts and fetch errors", func() {
			emitted := testutil.ToFloat64(globalManager.alertsEmitted)
			failed := testutil.ToFloat64(globalManager.alertsFailed)
			fetch := testutil.ToFloat64(globalManager.sourceFetchErrors.WithLabelValues("moods"))

			RecordAlertEmitted()
			RecordAlertFailed()
			RecordSourceFetchError("moods")

			Convey("Then each counter should move", func() {
				So(testutil.ToFloat64(globalManager.alertsEmitted)-emitted, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.alertsFailed)-failed, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.sourceFetchErrors.WithLabelValues("moods"))-fetch, ShouldEqual, 1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateQueueSize(7)
			UpdateQueueCapacity(100)
			UpdateWorkerCount(4)

			Convey("Then gauges should hold the latest value", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 100)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
			})
		})

		Convey("When observing histograms", func() {
			So(func() {
				RecordAssessmentLatency(12)
				RecordOverallScore(0.73)
				RecordTextSamples(5)
				RecordWorkerDuration(3)
				RecordHTTPRequestDuration("scores", "GET", "200", 1.5)
				RecordHTTPRequest("scores", "GET", "200")
				RecordTrendDirection("stable")
				RecordPersistFailure()
				RecordQueueRejected("queue_full")
				RecordJobDuplicate()
				RecordWorkerError()
			}, ShouldNotPanic)
		})

		Convey("Then the registry accessor returns the custom registry", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
