// Package metrics provides Prometheus metrics for the rollcall service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultRefreshInterval = 10 * time.Second

// Manager owns every Prometheus metric the service exposes.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Pipeline metrics.
	framesProcessed        prometheus.Counter
	motionDetected         prometheus.Counter
	facesDetected          prometheus.Counter
	facesRecognized        prometheus.Counter
	recognitionsSuppressed prometheus.Counter
	recognitionEvents      prometheus.Counter
	attendanceMarked       prometheus.Counter
	attendanceDuplicate    prometheus.Counter
	frameLatency           prometheus.Histogram
	encodeLatency          prometheus.Histogram
	detectionActive        prometheus.Gauge
	enrolledPeople         prometheus.Gauge

	// Queue metrics.
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	queueDropped     prometheus.Counter

	// Worker metrics.
	workerCount   prometheus.Gauge
	commitLatency prometheus.Histogram
	commitErrors  prometheus.Counter

	// Store metrics.
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// HTTP metrics.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics.
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rollcall",
		subsystem:        "attendance",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one registration per metric
	auto := promauto.With(m.registry)

	m.framesProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_processed_total",
		Help:      "Total number of camera frames processed",
	})

	m.motionDetected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "motion_detected_total",
		Help:      "Total number of frames with qualifying motion",
	})

	m.facesDetected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "faces_detected_total",
		Help:      "Total number of faces detected in frames",
	})

	m.facesRecognized = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "faces_recognized_total",
		Help:      "Total number of faces matched against enrolled samples",
	})

	m.recognitionsSuppressed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recognitions_suppressed_total",
		Help:      "Total number of recognitions suppressed by the debounce window",
	})

	m.recognitionEvents = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recognition_events_total",
		Help:      "Total number of recognition events committed to the log",
	})

	m.attendanceMarked = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "attendance_marked_total",
		Help:      "Total number of attendance records written",
	})

	m.attendanceDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "attendance_duplicate_total",
		Help:      "Total number of attendance writes ignored as same-day duplicates",
	})

	m.frameLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frame_processing_latency_milliseconds",
		Help:      "Per-frame processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.encodeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "encode_latency_milliseconds",
		Help:      "Face detection plus encoding latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.detectionActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "detection_active",
		Help:      "Whether face detection is currently gated on (1) or off (0)",
	})

	m.enrolledPeople = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "enrolled_people",
		Help:      "Number of distinct people with enrolled face samples",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current size of the commit queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum commit queue capacity",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization_ratio",
		Help:      "Commit queue utilization ratio (size / capacity)",
	})

	m.queueEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_total",
		Help:      "Total number of commit tasks enqueued",
	})

	m.queueDequeued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeue_total",
		Help:      "Total number of commit tasks dequeued",
	})

	m.queueDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dropped_total",
		Help:      "Total number of commit tasks dropped because the queue was full",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Number of running commit workers",
	})

	m.commitLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "commit_latency_milliseconds",
		Help:      "Recognition commit latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.commitErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "commit_errors_total",
		Help:      "Total number of failed recognition commits",
	})

	m.storeLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "store_latency_milliseconds",
			Help:      "Store operation latency in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"op"},
	)

	m.storeErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "store_errors_total",
			Help:      "Total number of store operation errors",
		},
		[]string{"op"},
	)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// Pipeline metric helpers.

// RecordFrameProcessed increments the processed-frame counter.
func RecordFrameProcessed() { globalManager.framesProcessed.Inc() }

// RecordMotionDetected increments the motion counter.
func RecordMotionDetected() { globalManager.motionDetected.Inc() }

// RecordFacesDetected adds to the detected-face counter.
func RecordFacesDetected(n int) { globalManager.facesDetected.Add(float64(n)) }

// RecordFaceRecognized increments the recognized-face counter.
func RecordFaceRecognized() { globalManager.facesRecognized.Inc() }

// RecordRecognitionSuppressed increments the debounce-suppression counter.
func RecordRecognitionSuppressed() { globalManager.recognitionsSuppressed.Inc() }

// RecordRecognitionEvent increments the committed-event counter.
func RecordRecognitionEvent() { globalManager.recognitionEvents.Inc() }

// RecordAttendanceMarked increments the attendance-write counter.
func RecordAttendanceMarked() { globalManager.attendanceMarked.Inc() }

// RecordAttendanceDuplicate increments the same-day-duplicate counter.
func RecordAttendanceDuplicate() { globalManager.attendanceDuplicate.Inc() }

// RecordFrameLatency records per-frame processing latency in milliseconds.
func RecordFrameLatency(latencyMs float64) { globalManager.frameLatency.Observe(latencyMs) }

// RecordEncodeLatency records detect+encode latency in milliseconds.
func RecordEncodeLatency(latencyMs float64) { globalManager.encodeLatency.Observe(latencyMs) }

// UpdateDetectionActive sets the detection-active gauge.
func UpdateDetectionActive(active bool) {
	if active {
		globalManager.detectionActive.Set(1)
		return
	}
	globalManager.detectionActive.Set(0)
}

// UpdateEnrolledPeople sets the enrolled-people gauge.
func UpdateEnrolledPeople(count int) { globalManager.enrolledPeople.Set(float64(count)) }

// Queue metric helpers.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueDropped increments the dropped-task counter.
func RecordQueueDropped() { globalManager.queueDropped.Inc() }

// Worker metric helpers.

// UpdateWorkerCount sets the running worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordCommitLatency records commit latency in milliseconds.
func RecordCommitLatency(latencyMs float64) { globalManager.commitLatency.Observe(latencyMs) }

// RecordCommitError increments the failed-commit counter.
func RecordCommitError() { globalManager.commitErrors.Inc() }

// Store metric helpers.

// RecordStoreLatency records the latency of a store operation.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreError increments the error counter for a store operation.
func RecordStoreError(op string) { globalManager.storeErrors.WithLabelValues(op).Inc() }

// HTTP metric helpers.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// System metric helpers.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the private Prometheus registry backing the service metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
