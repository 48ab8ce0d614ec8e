package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultNamespace       = "pythians"
	subsystem              = "scrape"
	defaultRefreshInterval = 10 * time.Second
)

var latencyBucketsMs = []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500} //nolint:gochecknoglobals // bucket layout

// Manager manages all Prometheus metrics for the pythians service.
type Manager struct {
	namespace       string
	enabled         bool
	refreshInterval time.Duration
	customLabels    map[string]string
	registry        prometheus.Registerer

	// Row source metrics
	sessionsOpen      prometheus.Gauge
	sessionsTotal     prometheus.Counter
	rowsFetched       *prometheus.CounterVec
	fetchLatency      *prometheus.HistogramVec
	rowSourceFailures *prometheus.CounterVec

	// Denormalization metrics
	entitiesEmitted *prometheus.CounterVec
	notFound        *prometheus.CounterVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

type state struct {
	manager  *Manager
	registry *prometheus.Registry
}

// global holds the manager behind the package-level Record* helpers and the
// registry served on /healthz.
var global atomic.Pointer[state] //nolint:gochecknoglobals // singleton metrics manager

func init() { //nolint:gochecknoinits // global metrics setup
	Init()
}

// Init replaces the global manager with one built from opts on a fresh
// custom registry, which keeps the default Go collectors out. Call it
// before handlers capture the registry.
func Init(opts ...Option) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	opts = append(opts, WithPrometheusRegistry(registry))
	global.Store(&state{manager: NewManager(opts...), registry: registry})
	return registry
}

func current() *Manager { return global.Load().manager }

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       defaultNamespace,
		enabled:         true,
		refreshInterval: defaultRefreshInterval,
		customLabels:    make(map[string]string),
		registry:        prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// RefreshInterval is how often callers should sample the system gauges.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Enabled reports whether recording is on.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.sessionsOpen = auto.NewGauge(m.gaugeOpts(
		"rowsource_sessions_open",
		"Row source sessions currently holding a connection",
	))
	m.sessionsTotal = auto.NewCounter(m.counterOpts(
		"rowsource_sessions_total",
		"Total number of row source sessions opened",
	))
	m.rowsFetched = auto.NewCounterVec(m.counterOpts(
		"rowsource_rows_total",
		"Total number of joined rows fetched per projection",
	), []string{"projection"})
	m.fetchLatency = auto.NewHistogramVec(m.histogramOpts(
		"rowsource_fetch_latency_milliseconds",
		"Projection fetch latency in milliseconds",
		latencyBucketsMs,
	), []string{"projection"})
	m.rowSourceFailures = auto.NewCounterVec(m.counterOpts(
		"rowsource_failures_total",
		"Total number of failed projection fetches",
	), []string{"projection"})

	m.entitiesEmitted = auto.NewCounterVec(m.counterOpts(
		"entities_emitted_total",
		"Total number of nested entities returned per resource",
	), []string{"resource"})
	m.notFound = auto.NewCounterVec(m.counterOpts(
		"not_found_total",
		"Total number of by-id lookups that matched nothing",
	), []string{"resource"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts(
		"http_requests_total",
		"Total number of HTTP requests by endpoint and method",
	), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts(
		"http_request_duration_milliseconds",
		"HTTP request duration in milliseconds",
		latencyBucketsMs,
	), []string{"endpoint", "method", "status_code"})

	m.errorRateByType = auto.NewCounterVec(m.counterOpts(
		"errors_by_type_total",
		"Total number of errors by type",
	), []string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts(
		"errors_by_endpoint_total",
		"Total number of errors by endpoint",
	), []string{"endpoint", "method", "error_type"})
	m.errorLatency = auto.NewHistogramVec(m.histogramOpts(
		"error_latency_milliseconds",
		"Latency of operations that resulted in errors",
		latencyBucketsMs,
	), []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts(
		"system_memory_usage_bytes",
		"System memory usage in bytes",
	))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts(
		"system_goroutine_count",
		"Number of goroutines",
	))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds",
		"GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	))
}

// SessionOpened marks a row source session as acquired.
func SessionOpened() {
	m := current()
	if !m.enabled {
		return
	}
	m.sessionsTotal.Inc()
	m.sessionsOpen.Inc()
}

// SessionClosed marks a row source session as released.
func SessionClosed() {
	m := current()
	if !m.enabled {
		return
	}
	m.sessionsOpen.Dec()
}

// RecordRowSourceFetch records a completed projection fetch.
func RecordRowSourceFetch(projection string, rows int, latencyMs float64) {
	m := current()
	if !m.enabled {
		return
	}
	m.rowsFetched.WithLabelValues(projection).Add(float64(rows))
	m.fetchLatency.WithLabelValues(projection).Observe(latencyMs)
}

// RecordRowSourceError counts a failed projection fetch.
func RecordRowSourceError(projection string) {
	m := current()
	if !m.enabled {
		return
	}
	m.rowSourceFailures.WithLabelValues(projection).Inc()
}

// RecordEntitiesEmitted counts entities returned for a resource.
func RecordEntitiesEmitted(resource string, n int) {
	m := current()
	if !m.enabled || n <= 0 {
		return
	}
	m.entitiesEmitted.WithLabelValues(resource).Add(float64(n))
}

// RecordNotFound counts a by-id lookup that matched nothing.
func RecordNotFound(resource string) {
	m := current()
	if !m.enabled {
		return
	}
	m.notFound.WithLabelValues(resource).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	m := current()
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	m := current()
	if !m.enabled {
		return
	}
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	m := current()
	if !m.enabled {
		return
	}
	m.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	m := current()
	if !m.enabled {
		return
	}
	m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	m := current()
	if !m.enabled {
		return
	}
	m.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	current().systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	current().systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	current().systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval returns the sampling interval of the global manager.
func RefreshInterval() time.Duration {
	return current().refreshInterval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return global.Load().registry
}
