package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prediction outcomes used as label values.
const (
	OutcomeSuccess             = "success"
	OutcomeOutOfRange          = "out_of_range"
	OutcomeShapeMismatch       = "shape_mismatch"
	OutcomeInvalidReading      = "invalid_reading"
	OutcomeUnavailable         = "model_unavailable"
	OutcomeTimeout             = "prediction_timeout"
	OutcomeOutputShapeMismatch = "output_shape_mismatch"
	OutcomeInvalidLabel        = "invalid_label"
	OutcomeError               = "error"
)

// Manager manages all Prometheus metrics for the sprinkler service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Prediction metrics
	predictions        *prometheus.CounterVec
	predictionLatency  prometheus.Histogram
	modelInvocations   prometheus.Counter
	inputRejections    *prometheus.CounterVec
	outOfRangeBySensor *prometheus.CounterVec
	sprinklerOn        *prometheus.CounterVec

	// Model state
	modelReady            prometheus.Gauge
	modelInputDimension   prometheus.Gauge
	modelOutputDimension  prometheus.Gauge
	modelArtifactModified prometheus.Gauge
	modelLoadErrors       prometheus.Counter

	// Actuation pipeline
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueEnqueued     prometheus.Counter
	queueDropped      prometheus.Counter
	workerActiveCount prometheus.Gauge
	publishes         *prometheus.CounterVec
	publishLatency    prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "sprinkler",
		subsystem:        "inference",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
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

func (m *Manager) initializeMetrics() {
	m.predictions = m.counterVec("predictions_total",
		"Total number of prediction requests by outcome", "outcome")
	m.predictionLatency = m.histogram("prediction_latency_milliseconds",
		"Latency of a single model invocation in milliseconds", m.histogramBuckets)
	m.modelInvocations = m.counter("model_invocations_total",
		"Total number of calls made to the model")
	m.inputRejections = m.counterVec("input_rejections_total",
		"Requests rejected before reaching the model, by reason", "reason")
	m.outOfRangeBySensor = m.counterVec("out_of_range_total",
		"Out-of-range readings by sensor index", "sensor")
	m.sprinklerOn = m.counterVec("sprinkler_on_total",
		"Predictions that switched a sprinkler on, by sprinkler index", "sprinkler")

	m.modelReady = m.gauge("model_ready", "1 when a model is loaded, 0 otherwise")
	m.modelInputDimension = m.gauge("model_input_dimension", "Number of features the model accepts")
	m.modelOutputDimension = m.gauge("model_output_dimension", "Number of labels the model emits")
	m.modelArtifactModified = m.gauge("model_artifact_modified",
		"1 when the artifact on disk changed after load and a restart is due")
	m.modelLoadErrors = m.counter("model_load_errors_total", "Total number of failed model loads")

	m.queueSize = m.gauge("actuation_queue_size", "Current number of queued actuation commands")
	m.queueCapacity = m.gauge("actuation_queue_capacity", "Maximum actuation queue capacity")
	m.queueEnqueued = m.counter("actuation_enqueued_total", "Total number of queued actuation commands")
	m.queueDropped = m.counter("actuation_dropped_total",
		"Total number of actuation commands dropped because the queue was full or closed")
	m.workerActiveCount = m.gauge("actuation_worker_active_count", "Number of running actuation workers")
	m.publishes = m.counterVec("actuation_publish_total", "Actuation publishes by result", "result")
	m.publishLatency = m.histogram("actuation_publish_latency_milliseconds",
		"Actuation publish latency in milliseconds", m.histogramBuckets)

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Total number of errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Prediction Metrics Functions.

// RecordPrediction counts a prediction request by outcome.
func RecordPrediction(outcome string) {
	globalManager.predictions.WithLabelValues(outcome).Inc()
}

// RecordPredictionLatency records model latency in milliseconds.
func RecordPredictionLatency(latencyMs float64) {
	globalManager.predictionLatency.Observe(latencyMs)
}

// RecordModelInvocation counts a call to the model.
func RecordModelInvocation() {
	globalManager.modelInvocations.Inc()
}

// RecordInputRejection counts a request rejected before the model was called.
func RecordInputRejection(reason string) {
	globalManager.inputRejections.WithLabelValues(reason).Inc()
}

// RecordOutOfRange counts an out-of-range reading at a sensor index.
func RecordOutOfRange(sensorIndex int) {
	globalManager.outOfRangeBySensor.WithLabelValues(strconv.Itoa(sensorIndex)).Inc()
}

// RecordSprinklerStates counts every sprinkler that a prediction switched on.
func RecordSprinklerStates(states []bool) {
	for i, on := range states {
		if on {
			globalManager.sprinklerOn.WithLabelValues(strconv.Itoa(i)).Inc()
		}
	}
}

// Model Metrics Functions.

// UpdateModelState sets readiness and dimensions of the loaded model.
func UpdateModelState(ready bool, inputDim, outputDim int) {
	globalManager.modelReady.Set(boolToFloat(ready))
	globalManager.modelInputDimension.Set(float64(inputDim))
	globalManager.modelOutputDimension.Set(float64(outputDim))
}

// UpdateModelArtifactModified flags that the artifact on disk changed.
func UpdateModelArtifactModified(modified bool) {
	globalManager.modelArtifactModified.Set(boolToFloat(modified))
}

// RecordModelLoadError counts a failed model load.
func RecordModelLoadError() {
	globalManager.modelLoadErrors.Inc()
}

// Actuation Metrics Functions.

// UpdateQueueSize sets the current actuation queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the actuation queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts a queued actuation command.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDropped counts a dropped actuation command.
func RecordQueueDropped() {
	globalManager.queueDropped.Inc()
}

// UpdateWorkerActiveCount sets the number of running actuation workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordPublish counts an actuation publish and its latency.
func RecordPublish(success bool, latencyMs float64) {
	result := "success"
	if !success {
		result = "error"
	}
	globalManager.publishes.WithLabelValues(result).Inc()
	globalManager.publishLatency.Observe(latencyMs)
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
