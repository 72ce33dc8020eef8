// Package metrics provides Prometheus metrics for the cognitrend service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Assessment outcome label values.
const (
	OutcomeAssessed         = "assessed"
	OutcomeInsufficientData = "insufficient_data"
	OutcomePersistFailed    = "persist_failed"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Pipeline metrics
	assessments       *prometheus.CounterVec
	assessmentLatency prometheus.Histogram
	overallScore      prometheus.Histogram
	trendDirections   *prometheus.CounterVec
	textSamples       prometheus.Histogram

	// Store and sink health
	sourceFetchErrors *prometheus.CounterVec
	persistFailures   prometheus.Counter
	alertsEmitted     prometheus.Counter
	alertsFailed      prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Batch queue and workers
	queueSize      prometheus.Gauge
	queueCapacity  prometheus.Gauge
	queueRejected  *prometheus.CounterVec
	jobsDuplicate  prometheus.Counter
	workerCount    prometheus.Gauge
	workerErrors   prometheus.Counter
	workerDuration prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cognitrend",
		subsystem:        "pipeline",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	m.assessments = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "assessments_total",
		Help:        "Total number of assessment runs by outcome",
		ConstLabels: labels,
	}, []string{"outcome"})

	m.assessmentLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "assessment_latency_milliseconds",
		Help:        "End-to-end assessment latency in milliseconds, fetches included",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.overallScore = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "overall_score",
		Help:        "Distribution of composite cognitive scores",
		Buckets:     prometheus.LinearBuckets(0.1, 0.1, 10),
		ConstLabels: labels,
	})

	m.trendDirections = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "trend_directions_total",
		Help:        "Total number of trend classifications by direction",
		ConstLabels: labels,
	}, []string{"direction"})

	m.textSamples = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "text_samples",
		Help:        "Number of text samples available per assessment",
		Buckets:     []float64{0, 1, 2, 3, 5, 10, 25, 50, 100},
		ConstLabels: labels,
	})

	m.sourceFetchErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "source_fetch_errors_total",
		Help:        "Source reads that failed and degraded to empty input",
		ConstLabels: labels,
	}, []string{"source"})

	m.persistFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "persist_failures_total",
		Help:        "Score upserts that failed",
		ConstLabels: labels,
	})

	m.alertsEmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "alerts_emitted_total",
		Help:        "Cognitive decline alerts handed to the alert sink",
		ConstLabels: labels,
	})

	m.alertsFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "alerts_failed_total",
		Help:        "Cognitive decline alerts the sink rejected",
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "batch_queue_size",
		Help:        "Current number of queued assessment jobs",
		ConstLabels: labels,
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "batch_queue_capacity",
		Help:        "Maximum number of queued assessment jobs",
		ConstLabels: labels,
	})

	m.queueRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "batch_queue_rejected_total",
		Help:        "Assessment jobs rejected by the queue by reason",
		ConstLabels: labels,
	}, []string{"reason"})

	m.jobsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "batch_jobs_duplicate_total",
		Help:        "Assessment jobs dropped because the same elder and date was already queued",
		ConstLabels: labels,
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "batch_worker_count",
		Help:        "Number of batch assessment workers",
		ConstLabels: labels,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "batch_worker_errors_total",
		Help:        "Batch jobs that finished without a persisted record",
		ConstLabels: labels,
	})

	m.workerDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "batch_job_duration_milliseconds",
		Help:        "Batch job processing time in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})
}

// RecordAssessment increments the assessment counter for an outcome.
func RecordAssessment(outcome string) {
	globalManager.assessments.WithLabelValues(outcome).Inc()
}

// RecordAssessmentLatency records assessment latency in milliseconds.
func RecordAssessmentLatency(latencyMs float64) {
	globalManager.assessmentLatency.Observe(latencyMs)
}

// RecordOverallScore observes a composite score.
func RecordOverallScore(score float64) {
	globalManager.overallScore.Observe(score)
}

// RecordTrendDirection increments the counter for a trend label.
func RecordTrendDirection(direction string) {
	globalManager.trendDirections.WithLabelValues(direction).Inc()
}

// RecordTextSamples observes the number of samples seen by one assessment.
func RecordTextSamples(n int) {
	globalManager.textSamples.Observe(float64(n))
}

// RecordSourceFetchError increments the fetch error counter for a source.
func RecordSourceFetchError(source string) {
	globalManager.sourceFetchErrors.WithLabelValues(source).Inc()
}

// RecordPersistFailure increments the persistence failure counter.
func RecordPersistFailure() {
	globalManager.persistFailures.Inc()
}

// RecordAlertEmitted increments the emitted alert counter.
func RecordAlertEmitted() {
	globalManager.alertsEmitted.Inc()
}

// RecordAlertFailed increments the failed alert counter.
func RecordAlertFailed() {
	globalManager.alertsFailed.Inc()
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateQueueSize sets the current batch queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the batch queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueRejected increments the rejected job counter for a reason.
func RecordQueueRejected(reason string) {
	globalManager.queueRejected.WithLabelValues(reason).Inc()
}

// RecordJobDuplicate increments the duplicate job counter.
func RecordJobDuplicate() {
	globalManager.jobsDuplicate.Inc()
}

// UpdateWorkerCount sets the number of batch workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordWorkerDuration records one job's processing time.
func RecordWorkerDuration(latencyMs float64) {
	globalManager.workerDuration.Observe(latencyMs)
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
