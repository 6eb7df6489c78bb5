package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			metricsEnabledOpt := WithMetricsEnabled(true)
			refreshIntervalOpt := WithRefreshInterval(5 * time.Second)

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
				So(metricsEnabledOpt, ShouldNotBeNil)
				So(refreshIntervalOpt, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(10*time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given metrics recording", t, func() {
		Convey("When recording pipeline metrics", func() {
			Convey("Then counters should not panic", func() {
				So(func() {
					RecordFrameProcessed()
					RecordMotionDetected()
					RecordFacesDetected(2)
					RecordFaceRecognized()
					RecordRecognitionSuppressed()
					RecordRecognitionEvent()
					RecordAttendanceMarked()
					RecordAttendanceDuplicate()
				}, ShouldNotPanic)
			})

			Convey("And latency histograms should not panic", func() {
				So(func() {
					RecordFrameLatency(12.5)
					RecordEncodeLatency(80.0)
				}, ShouldNotPanic)
			})

			Convey("And gauges should not panic", func() {
				So(func() {
					UpdateDetectionActive(true)
					UpdateDetectionActive(false)
					UpdateEnrolledPeople(12)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording queue and worker metrics", func() {
			So(func() {
				UpdateQueueSize(3)
				UpdateQueueCapacity(64)
				UpdateQueueUtilization(0.05)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueDropped()
				UpdateWorkerCount(1)
				RecordCommitLatency(4.2)
				RecordCommitError()
			}, ShouldNotPanic)
		})

		Convey("When recording store metrics", func() {
			So(func() {
				RecordStoreLatency("mark_attendance", 3.1)
				RecordStoreError("mark_attendance")
			}, ShouldNotPanic)
		})

		Convey("When recording HTTP metrics", func() {
			So(func() {
				RecordHTTPRequest("/healthz", "GET", "200")
				RecordHTTPRequest("/api/v1/recognitions", "POST", "202")
				RecordHTTPRequestDuration("/healthz", "GET", "200", 5.0)
			}, ShouldNotPanic)
		})

		Convey("When recording system metrics", func() {
			So(func() {
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(42)
			}, ShouldNotPanic)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the metrics package", t, func() {
		Convey("When getting the registry", func() {
			registry := GetRegistry()

			Convey("Then it should not be nil", func() {
				So(registry, ShouldNotBeNil)
			})
		})
	})
}
