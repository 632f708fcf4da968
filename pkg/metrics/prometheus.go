// Package metrics provides Prometheus metrics for the Parakeet detector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultRefreshInterval = 10 * time.Second

// Pulse widths span a 1ms debounce floor up to the 10s stuck-line ceiling.
var defaultDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Manager owns every Prometheus collector the detector exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	durationBuckets  []float64
	energyBuckets    []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Pulse timer
	pulsesDetected prometheus.Counter
	pulsesRejected *prometheus.CounterVec
	pulseDuration  prometheus.Histogram
	lineErrors     prometheus.Counter

	// Pipeline
	eventsRecorded   prometheus.Counter
	estimateErrors   prometheus.Counter
	eventEnergy      prometheus.Histogram
	noteMIDI         prometheus.Histogram
	recordLatency    prometheus.Histogram
	timestampClamped prometheus.Counter

	// Queue
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	queueDropped  prometheus.Counter

	// Sinks
	storeErrors    prometheus.Counter
	storeRecords   prometheus.Gauge
	playbackErrors prometheus.Counter
	downlinkSent   *prometheus.CounterVec
	downlinkErrors *prometheus.CounterVec
	archiveUploads *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton behind the package-level helpers

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out of /healthz

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "parakeet",
		subsystem:        "detector",
		histogramBuckets: prometheus.DefBuckets,
		durationBuckets:  defaultDurationBuckets,
		energyBuckets:    prometheus.ExponentialBuckets(1, 10, 10),
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.pulsesDetected = m.counter("pulses_detected_total", "Completed HIGH pulses seen on the signal line")
	m.pulsesRejected = m.counterVec("pulses_rejected_total", "Pulses discarded by the timer", "reason")
	m.pulseDuration = m.histogram("pulse_duration_seconds", "Width of accepted pulses in seconds", m.durationBuckets)
	m.lineErrors = m.counter("line_errors_total", "Signal line read failures")

	m.eventsRecorded = m.counter("events_recorded_total", "Events built and handed to the data logger")
	m.estimateErrors = m.counter("estimate_errors_total", "Pulses dropped because energy estimation failed")
	m.eventEnergy = m.histogram("event_energy", "Estimated energy per event in calibration units", m.energyBuckets)
	m.noteMIDI = m.histogram("event_note_midi", "MIDI key assigned to each event", prometheus.LinearBuckets(21, 12, 8))
	m.recordLatency = m.histogram("record_latency_milliseconds", "Time from pulse end to event recorded", m.histogramBuckets)
	m.timestampClamped = m.counter("timestamp_clamped_total", "Events whose timestamp was raised to keep the log monotonic")

	m.queueSize = m.gauge("queue_size", "Pulses waiting for the recorder")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum pulses the queue holds")
	m.queueDropped = m.counter("queue_dropped_total", "Pulses dropped because the queue was full or closed")

	m.storeErrors = m.counter("store_errors_total", "Data logger append failures")
	m.storeRecords = m.gauge("store_records", "Events held by the data logger")
	m.playbackErrors = m.counter("playback_errors_total", "Sonifier playback failures")
	m.downlinkSent = m.counterVec("downlink_sent_total", "Events published on a downlink", "transport")
	m.downlinkErrors = m.counterVec("downlink_errors_total", "Downlink publish failures", "transport")
	m.archiveUploads = m.counterVec("archive_uploads_total", "Artefact uploads by outcome", "outcome")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("http_request_duration_milliseconds"),
		Help: "HTTP request duration in milliseconds", ConstLabels: m.customLabels, Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordPulseDetected counts an accepted pulse and observes its width.
func RecordPulseDetected(d time.Duration) {
	if !globalManager.enabled {
		return
	}
	globalManager.pulsesDetected.Inc()
	globalManager.pulseDuration.Observe(d.Seconds())
}

// RecordPulseRejected counts a pulse discarded for reason (glitch, stuck_high).
func RecordPulseRejected(reason string) {
	globalManager.pulsesRejected.WithLabelValues(reason).Inc()
}

// RecordLineError counts a signal line read failure.
func RecordLineError() {
	globalManager.lineErrors.Inc()
}

// RecordEvent counts a recorded event with its energy, note and latency.
func RecordEvent(energy float64, midi int, latency time.Duration) {
	if !globalManager.enabled {
		return
	}
	globalManager.eventsRecorded.Inc()
	globalManager.eventEnergy.Observe(energy)
	if midi > 0 {
		globalManager.noteMIDI.Observe(float64(midi))
	}
	globalManager.recordLatency.Observe(float64(latency.Milliseconds()))
}

// RecordEstimateError counts a pulse the estimator refused.
func RecordEstimateError() {
	globalManager.estimateErrors.Inc()
}

// RecordTimestampClamped counts an event whose timestamp was raised.
func RecordTimestampClamped() {
	globalManager.timestampClamped.Inc()
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueDropped counts a pulse the queue refused.
func RecordQueueDropped() {
	globalManager.queueDropped.Inc()
}

// RecordStoreError counts a failed append.
func RecordStoreError() {
	globalManager.storeErrors.Inc()
}

// UpdateStoreRecords sets the number of events held by the store.
func UpdateStoreRecords(count int) {
	globalManager.storeRecords.Set(float64(count))
}

// RecordPlaybackError counts a failed playback.
func RecordPlaybackError() {
	globalManager.playbackErrors.Inc()
}

// RecordDownlinkSent counts a published event on transport.
func RecordDownlinkSent(transport string) {
	globalManager.downlinkSent.WithLabelValues(transport).Inc()
}

// RecordDownlinkError counts a publish failure on transport.
func RecordDownlinkError(transport string) {
	globalManager.downlinkErrors.WithLabelValues(transport).Inc()
}

// RecordArchiveUpload counts an upload with outcome "ok" or "error".
func RecordArchiveUpload(outcome string) {
	globalManager.archiveUploads.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint records an HTTP error by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
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

// GetRegistry returns the registry served on /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RefreshInterval is how often callers should sample the system gauges.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}
