package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the visionauth service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Frame pipeline
	framesReceived *prometheus.CounterVec
	framesRendered prometheus.Counter
	framesStale    prometheus.Counter
	renderLatency  prometheus.Histogram
	renderSegments prometheus.Histogram

	// Analysis
	analysisTicks *prometheus.CounterVec
	confidence    prometheus.Histogram
	detecting     prometheus.Gauge

	// Session lifecycle
	sessionState    prometheus.Gauge
	sessionStarts   *prometheus.CounterVec
	sessionFailures *prometheus.CounterVec

	// Sources and transport
	sourceErrors     *prometheus.CounterVec
	frameQueueDrops  prometheus.Counter
	streamClients    prometheus.Gauge
	streamBroadcasts *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec

	// System
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

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "visionauth",
		subsystem:        "session",
		histogramBuckets: prometheus.DefBuckets,
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

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	// Frame pipeline
	m.framesReceived = auto.NewCounterVec(
		m.counterOpts("frames_received_total", "Landmark frames delivered by the source, by face presence"),
		[]string{"face"},
	)
	m.framesRendered = auto.NewCounter(m.counterOpts("frames_rendered_total", "Render passes completed"))
	m.framesStale = auto.NewCounter(m.counterOpts("frames_stale_total",
		"Frame callbacks dropped because their session was no longer active"))
	m.renderLatency = auto.NewHistogram(m.histogramOpts("render_latency_milliseconds",
		"Histogram of wireframe render latency in milliseconds", m.histogramBuckets))
	m.renderSegments = auto.NewHistogram(m.histogramOpts("render_segments",
		"Line segments stroked per render pass", prometheus.ExponentialBuckets(1, 2, 12)))

	// Analysis
	m.analysisTicks = auto.NewCounterVec(
		m.counterOpts("analysis_ticks_total", "Mock analysis ticks by feature and mode"),
		[]string{"feature", "mode"},
	)
	m.confidence = auto.NewHistogram(m.histogramOpts("analysis_confidence_percent",
		"Distribution of published confidence values", prometheus.LinearBuckets(0, 10, 11)))
	m.detecting = auto.NewGauge(m.gaugeOpts("detecting", "1 when the last frame carried a face"))

	// Session lifecycle
	m.sessionState = auto.NewGauge(m.gaugeOpts("state",
		"Current session state (0 idle, 1 mode selected, 2 initializing, 3 running, 4 stopping)"))
	m.sessionStarts = auto.NewCounterVec(
		m.counterOpts("starts_total", "Sessions that reached the running state"),
		[]string{"mode", "feature"},
	)
	m.sessionFailures = auto.NewCounterVec(
		m.counterOpts("start_failures_total", "Start attempts that failed, by reason"),
		[]string{"reason"},
	)

	// Sources and transport
	m.sourceErrors = auto.NewCounterVec(
		m.counterOpts("source_errors_total", "Landmark source errors by source kind and stage"),
		[]string{"source", "stage"},
	)
	m.frameQueueDrops = auto.NewCounter(m.counterOpts("frame_queue_drops_total",
		"Frames superseded in the mailbox before being rendered"))
	m.streamClients = auto.NewGauge(m.gaugeOpts("stream_clients", "Connected websocket stream clients"))
	m.streamBroadcasts = auto.NewCounterVec(
		m.counterOpts("stream_messages_total", "Messages broadcast to stream clients by type"),
		[]string{"type"},
	)

	// HTTP
	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	// Errors
	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)

	// System
	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap bytes in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Number of goroutines"))
}

// Frame pipeline functions.

// RecordFrameReceived counts a frame callback; face reports whether it carried landmarks.
func RecordFrameReceived(face bool) {
	if !globalManager.enabled {
		return
	}
	label := "absent"
	if face {
		label = "present"
	}
	globalManager.framesReceived.WithLabelValues(label).Inc()
}

// RecordFrameRendered records a completed render pass.
func RecordFrameRendered(latencyMs float64, segments int) {
	if !globalManager.enabled {
		return
	}
	globalManager.framesRendered.Inc()
	globalManager.renderLatency.Observe(latencyMs)
	globalManager.renderSegments.Observe(float64(segments))
}

// RecordFrameStale counts a callback that arrived for a finished session.
func RecordFrameStale() {
	if !globalManager.enabled {
		return
	}
	globalManager.framesStale.Inc()
}

// Analysis functions.

// RecordAnalysisTick records one published analysis result.
func RecordAnalysisTick(feature, mode string, confidence int) {
	if !globalManager.enabled {
		return
	}
	globalManager.analysisTicks.WithLabelValues(feature, mode).Inc()
	globalManager.confidence.Observe(float64(confidence))
}

// UpdateDetecting sets the detection gauge.
func UpdateDetecting(detecting bool) {
	if !globalManager.enabled {
		return
	}
	if detecting {
		globalManager.detecting.Set(1)
		return
	}
	globalManager.detecting.Set(0)
}

// Session lifecycle functions.

// UpdateSessionState sets the numeric session state.
func UpdateSessionState(state int) {
	if !globalManager.enabled {
		return
	}
	globalManager.sessionState.Set(float64(state))
}

// RecordSessionStart counts a session that reached Running.
func RecordSessionStart(mode, feature string) {
	if !globalManager.enabled {
		return
	}
	globalManager.sessionStarts.WithLabelValues(mode, feature).Inc()
}

// RecordSessionFailure counts a failed start attempt.
func RecordSessionFailure(reason string) {
	if !globalManager.enabled {
		return
	}
	globalManager.sessionFailures.WithLabelValues(reason).Inc()
}

// Source and transport functions.

// RecordSourceError counts a landmark source error.
func RecordSourceError(source, stage string) {
	if !globalManager.enabled {
		return
	}
	globalManager.sourceErrors.WithLabelValues(source, stage).Inc()
}

// RecordFrameQueueDrop counts a frame replaced in the mailbox before rendering.
func RecordFrameQueueDrop() {
	if !globalManager.enabled {
		return
	}
	globalManager.frameQueueDrops.Inc()
}

// UpdateStreamClients sets the number of connected stream clients.
func UpdateStreamClients(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.streamClients.Set(float64(count))
}

// RecordStreamBroadcast counts a message fanned out to stream clients.
func RecordStreamBroadcast(msgType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.streamBroadcasts.WithLabelValues(msgType).Inc()
}

// HTTP functions.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// System functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RunSystemCollector samples memory and goroutine gauges every refresh
// interval until ctx is done.
func RunSystemCollector(ctx context.Context) {
	collect := func() {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		UpdateSystemMemoryUsage(ms.HeapInuse)
		UpdateSystemGoroutineCount(runtime.NumGoroutine())
	}
	collect()

	t := time.NewTicker(globalManager.refreshInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			collect()
		}
	}
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
