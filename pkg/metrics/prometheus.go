// Package metrics provides Prometheus metrics for the clanpulse service.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// stateLabels lists the activity states accepted by UpdateMembersByState.
var stateLabels = map[string]struct{}{ //nolint:gochecknoglobals // fixed label set
	"active":            {},
	"at_risk":           {},
	"inactive":          {},
	"churned":           {},
	"insufficient_data": {},
}

// Manager manages all Prometheus metrics for the clanpulse service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Analysis Metrics - what the dashboard is about
	refreshTotal    *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	healthScore     prometheus.Gauge
	healthDefined   prometheus.Gauge
	membersByState  *prometheus.GaugeVec
	rosterSize      prometheus.Gauge
	riskCandidates  prometheus.Gauge
	analysisErrors  prometheus.Counter

	// Upstream Metrics - WiseOldMan API usage
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	rateLimitWait    prometheus.Histogram

	// Cache Metrics - read-through response cache
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	cacheEntries       *prometheus.GaugeVec
	cacheInvalidations prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "clanpulse",
		subsystem:        "dashboard",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval returns how often periodic gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

// Enabled reports whether observations are recorded.
func (m *Manager) Enabled() bool {
	return m.enabled
}

func (m *Manager) name(n string) string {
	return m.metricPrefix + n
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

	// Analysis Metrics
	m.refreshTotal = auto.NewCounterVec(
		m.counterOpts("refresh_total", "Total number of roster refreshes by result"),
		[]string{"result"},
	)
	m.refreshDuration = auto.NewHistogram(
		m.histogramOpts("refresh_duration_milliseconds", "Roster fetch and analysis duration in milliseconds", m.histogramBuckets),
	)
	m.healthScore = auto.NewGauge(
		m.gaugeOpts("health_score", "Most recent clan health score (0-100)"),
	)
	m.healthDefined = auto.NewGauge(
		m.gaugeOpts("health_score_defined", "1 when the most recent health score was defined, 0 otherwise"),
	)
	m.membersByState = auto.NewGaugeVec(
		m.gaugeOpts("members_by_state", "Members per activity state in the most recent pass"),
		[]string{"state"},
	)
	m.rosterSize = auto.NewGauge(
		m.gaugeOpts("roster_size", "Members in the most recent roster"),
	)
	m.riskCandidates = auto.NewGauge(
		m.gaugeOpts("risk_candidates", "Members in the most recent churn-risk ranking"),
	)
	m.analysisErrors = auto.NewCounter(
		m.counterOpts("analysis_errors_total", "Total number of analysis passes rejected by validation"),
	)

	// Upstream Metrics
	m.upstreamRequests = auto.NewCounterVec(
		m.counterOpts("upstream_requests_total", "Requests sent to the WiseOldMan API by endpoint and status"),
		[]string{"endpoint", "status_code"},
	)
	m.upstreamLatency = auto.NewHistogramVec(
		m.histogramOpts("upstream_latency_milliseconds", "WiseOldMan API latency in milliseconds", m.histogramBuckets),
		[]string{"endpoint"},
	)
	m.rateLimitWait = auto.NewHistogram(
		m.histogramOpts("rate_limit_wait_milliseconds", "Time spent waiting on the client-side rate limiter", m.histogramBuckets),
	)

	// Cache Metrics
	m.cacheHits = auto.NewCounterVec(
		m.counterOpts("cache_hits_total", "Response cache hits by cache name"),
		[]string{"cache"},
	)
	m.cacheMisses = auto.NewCounterVec(
		m.counterOpts("cache_misses_total", "Response cache misses by cache name"),
		[]string{"cache"},
	)
	m.cacheEntries = auto.NewGaugeVec(
		m.gaugeOpts("cache_entries", "Live entries per response cache"),
		[]string{"cache"},
	)
	m.cacheInvalidations = auto.NewCounter(
		m.counterOpts("cache_invalidations_total", "Explicit cache invalidations (refresh requests)"),
	)

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	// Error Metrics
	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Total number of errors by type"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogramOpts("error_latency_milliseconds", "Latency of operations that resulted in errors", m.histogramBuckets),
		[]string{"component", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"),
	)
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutine_count", "Number of goroutines"),
	)
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// Analysis Metrics Functions.

// RecordRefresh counts a refresh with its result ("ok", "invalid", "upstream_error").
func (m *Manager) RecordRefresh(result string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.refreshTotal.WithLabelValues(result).Inc()
	m.refreshDuration.Observe(durationMs)
}

// UpdateHealthScore publishes the latest score; a nil score marks it undefined.
func (m *Manager) UpdateHealthScore(score *float64) {
	if !m.enabled {
		return
	}
	if score == nil {
		m.healthDefined.Set(0)
		return
	}
	m.healthDefined.Set(1)
	m.healthScore.Set(*score)
}

// UpdateMembersByState publishes per-state member counts.
func (m *Manager) UpdateMembersByState(counts map[string]int) error {
	if !m.enabled {
		return nil
	}
	for state := range counts {
		if _, ok := stateLabels[state]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownState, state)
		}
	}
	total := 0
	for state, n := range counts {
		m.membersByState.WithLabelValues(state).Set(float64(n))
		total += n
	}
	m.rosterSize.Set(float64(total))
	return nil
}

// UpdateRiskCandidates publishes the length of the churn-risk ranking.
func (m *Manager) UpdateRiskCandidates(n int) {
	if !m.enabled {
		return
	}
	m.riskCandidates.Set(float64(n))
}

// RecordAnalysisError counts a pass rejected by validation.
func (m *Manager) RecordAnalysisError() {
	if !m.enabled {
		return
	}
	m.analysisErrors.Inc()
}

// Upstream Metrics Functions.

// RecordUpstreamRequest records one WiseOldMan API call.
func (m *Manager) RecordUpstreamRequest(endpoint, statusCode string, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.upstreamRequests.WithLabelValues(endpoint, statusCode).Inc()
	m.upstreamLatency.WithLabelValues(endpoint).Observe(latencyMs)
}

// RecordRateLimitWait records time blocked on the client-side limiter.
func (m *Manager) RecordRateLimitWait(waitMs float64) {
	if !m.enabled {
		return
	}
	m.rateLimitWait.Observe(waitMs)
}

// Cache Metrics Functions.

// RecordCacheHit increments the hit counter for a cache.
func (m *Manager) RecordCacheHit(cache string) {
	if !m.enabled {
		return
	}
	m.cacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss increments the miss counter for a cache.
func (m *Manager) RecordCacheMiss(cache string) {
	if !m.enabled {
		return
	}
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// UpdateCacheEntries sets the live entry count for a cache.
func (m *Manager) UpdateCacheEntries(cache string, n int) {
	if !m.enabled {
		return
	}
	m.cacheEntries.WithLabelValues(cache).Set(float64(n))
}

// RecordCacheInvalidation counts an explicit invalidation.
func (m *Manager) RecordCacheInvalidation() {
	if !m.enabled {
		return
	}
	m.cacheInvalidations.Inc()
}

// HTTP and Error Metrics Functions.

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func (m *Manager) RecordErrorByComponent(component, errorType string) {
	if !m.enabled {
		return
	}
	m.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func (m *Manager) RecordErrorByType(errorType, severity string) {
	if !m.enabled {
		return
	}
	m.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func (m *Manager) RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !m.enabled {
		return
	}
	m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func (m *Manager) RecordErrorLatency(component, errorType string, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func (m *Manager) UpdateSystemMemoryUsage(bytes uint64) {
	if !m.enabled {
		return
	}
	m.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func (m *Manager) UpdateSystemGoroutineCount(count int) {
	if !m.enabled {
		return
	}
	m.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func (m *Manager) RecordSystemGCPauseTime(pauseMs float64) {
	if !m.enabled {
		return
	}
	m.systemGCPauseTime.Observe(pauseMs)
}

// Package-level recorders delegate to the global manager.

// Default returns the global manager.
func Default() *Manager { return globalManager }

// RecordRefresh counts a refresh on the global manager.
func RecordRefresh(result string, durationMs float64) { globalManager.RecordRefresh(result, durationMs) }

// UpdateHealthScore publishes the latest score on the global manager.
func UpdateHealthScore(score *float64) { globalManager.UpdateHealthScore(score) }

// UpdateMembersByState publishes per-state counts on the global manager.
func UpdateMembersByState(counts map[string]int) error {
	return globalManager.UpdateMembersByState(counts)
}

// UpdateRiskCandidates publishes the ranking length on the global manager.
func UpdateRiskCandidates(n int) { globalManager.UpdateRiskCandidates(n) }

// RecordAnalysisError counts a rejected pass on the global manager.
func RecordAnalysisError() { globalManager.RecordAnalysisError() }

// RecordUpstreamRequest records an API call on the global manager.
func RecordUpstreamRequest(endpoint, statusCode string, latencyMs float64) {
	globalManager.RecordUpstreamRequest(endpoint, statusCode, latencyMs)
}

// RecordRateLimitWait records limiter wait on the global manager.
func RecordRateLimitWait(waitMs float64) { globalManager.RecordRateLimitWait(waitMs) }

// RecordCacheHit counts a hit on the global manager.
func RecordCacheHit(cache string) { globalManager.RecordCacheHit(cache) }

// RecordCacheMiss counts a miss on the global manager.
func RecordCacheMiss(cache string) { globalManager.RecordCacheMiss(cache) }

// UpdateCacheEntries sets cache size on the global manager.
func UpdateCacheEntries(cache string, n int) { globalManager.UpdateCacheEntries(cache, n) }

// RecordCacheInvalidation counts an invalidation on the global manager.
func RecordCacheInvalidation() { globalManager.RecordCacheInvalidation() }

// RecordHTTPRequest records an HTTP request on the global manager.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordErrorByComponent records a component error on the global manager.
func RecordErrorByComponent(component, errorType string) {
	globalManager.RecordErrorByComponent(component, errorType)
}

// RecordErrorByType records a typed error on the global manager.
func RecordErrorByType(errorType, severity string) {
	globalManager.RecordErrorByType(errorType, severity)
}

// RecordErrorByEndpoint records an endpoint error on the global manager.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.RecordErrorByEndpoint(endpoint, method, errorType)
}

// RecordErrorLatency records error latency on the global manager.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.RecordErrorLatency(component, errorType, latencyMs)
}

// UpdateSystemMemoryUsage sets memory usage on the global manager.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.UpdateSystemMemoryUsage(bytes) }

// UpdateSystemGoroutineCount sets the goroutine count on the global manager.
func UpdateSystemGoroutineCount(count int) { globalManager.UpdateSystemGoroutineCount(count) }

// RecordSystemGCPauseTime records GC pause on the global manager.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.RecordSystemGCPauseTime(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
