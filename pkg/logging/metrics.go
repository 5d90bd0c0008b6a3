package logging

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector provides performance metrics collection using Prometheus.
// Every method is safe to call on a nil receiver so callers never need to
// check whether metrics are enabled.
type MetricsCollector struct {
	// Request metrics
	requestDuration *prometheus.HistogramVec
	requestCounter  *prometheus.CounterVec
	activeRequests  *prometheus.GaugeVec

	// Component metrics
	componentOperations *prometheus.CounterVec
	componentDuration   *prometheus.HistogramVec
	componentErrors     *prometheus.CounterVec

	// Upstream API metrics
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec

	// Browser metrics
	nodeClicks     *prometheus.CounterVec
	staleResponses prometheus.Counter
	graphNodes     prometheus.Gauge
	graphEdges     prometheus.Gauge
	sessions       prometheus.Gauge

	// Cache metrics
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	registry *prometheus.Registry
	mu       sync.Mutex
	closed   bool
	config   MetricsConfig
}

// MetricsConfig defines configuration for metrics collection
type MetricsConfig struct {
	Enabled       bool              `yaml:"enabled" json:"enabled"`
	Path          string            `yaml:"path,omitempty" json:"path,omitempty"`
	Namespace     string            `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Subsystem     string            `yaml:"subsystem,omitempty" json:"subsystem,omitempty"`
	Labels        map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
	EnableRuntime bool              `yaml:"enableRuntime" json:"enableRuntime"`
}

// DefaultMetricsConfig returns default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:       true,
		Path:          "/metrics",
		Namespace:     "pokeflow",
		EnableRuntime: true,
	}
}

// NewMetricsCollector creates a new metrics collector on a private registry
func NewMetricsCollector(config MetricsConfig) *MetricsCollector {
	if !config.Enabled {
		return nil
	}

	registry := prometheus.NewRegistry()

	mc := &MetricsCollector{
		registry: registry,
		config:   config,
	}

	mc.initializeMetrics()

	registry.MustRegister(
		mc.requestDuration,
		mc.requestCounter,
		mc.activeRequests,
		mc.componentOperations,
		mc.componentDuration,
		mc.componentErrors,
		mc.upstreamRequests,
		mc.upstreamLatency,
		mc.nodeClicks,
		mc.staleResponses,
		mc.graphNodes,
		mc.graphEdges,
		mc.sessions,
		mc.cacheHits,
		mc.cacheMisses,
	)

	if config.EnableRuntime {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return mc
}

// initializeMetrics initializes all Prometheus metrics
func (mc *MetricsCollector) initializeMetrics() {
	ns := mc.config.Namespace
	sub := mc.config.Subsystem
	constLabels := prometheus.Labels(mc.config.Labels)

	mc.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "request_duration_seconds",
			Help:        "Duration of inbound requests",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status_code"},
	)

	mc.requestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "requests_total",
			Help:        "Total number of inbound requests",
			ConstLabels: constLabels,
		},
		[]string{"method", "endpoint", "status_code"},
	)

	mc.activeRequests = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "active_requests",
			Help:        "Number of in-flight inbound requests",
			ConstLabels: constLabels,
		},
		[]string{"method", "endpoint"},
	)

	mc.componentOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "component_operations_total",
			Help:        "Total operations per component",
			ConstLabels: constLabels,
		},
		[]string{"component", "operation"},
	)

	mc.componentDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "component_operation_duration_seconds",
			Help:        "Duration of component operations",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		},
		[]string{"component", "operation"},
	)

	mc.componentErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "component_errors_total",
			Help:        "Total errors per component, operation and error code",
			ConstLabels: constLabels,
		},
		[]string{"component", "operation", "error_code"},
	)

	mc.upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "upstream_requests_total",
			Help:        "Requests made to the Pokémon API",
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "status"},
	)

	mc.upstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "upstream_request_duration_seconds",
			Help:        "Latency of requests made to the Pokémon API",
			ConstLabels: constLabels,
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	mc.nodeClicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "node_clicks_total",
			Help:        "Node clicks by node kind",
			ConstLabels: constLabels,
		},
		[]string{"kind"},
	)

	mc.staleResponses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "stale_detail_responses_total",
			Help:        "Detail responses discarded because a newer selection superseded them",
			ConstLabels: constLabels,
		},
	)

	mc.graphNodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "graph_nodes",
			Help:        "Number of nodes in the graph, including the start node",
			ConstLabels: constLabels,
		},
	)

	mc.graphEdges = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "graph_edges",
			Help:        "Number of edges in the graph",
			ConstLabels: constLabels,
		},
	)

	mc.sessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "event_sessions",
			Help:        "Number of connected event stream sessions",
			ConstLabels: constLabels,
		},
	)

	mc.cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "cache_hits_total",
			Help:        "Detail cache hits by backend",
			ConstLabels: constLabels,
		},
		[]string{"backend"},
	)

	mc.cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "cache_misses_total",
			Help:        "Detail cache misses by backend",
			ConstLabels: constLabels,
		},
		[]string{"backend"},
	)
}

// Request Metrics

// RecordRequest records inbound request metrics
func (mc *MetricsCollector) RecordRequest(method, endpoint, statusCode string, duration time.Duration) {
	if mc == nil {
		return
	}
	mc.requestDuration.WithLabelValues(method, endpoint, statusCode).Observe(duration.Seconds())
	mc.requestCounter.WithLabelValues(method, endpoint, statusCode).Inc()
}

// IncActiveRequests increments active request count
func (mc *MetricsCollector) IncActiveRequests(method, endpoint string) {
	if mc == nil {
		return
	}
	mc.activeRequests.WithLabelValues(method, endpoint).Inc()
}

// DecActiveRequests decrements active request count
func (mc *MetricsCollector) DecActiveRequests(method, endpoint string) {
	if mc == nil {
		return
	}
	mc.activeRequests.WithLabelValues(method, endpoint).Dec()
}

// Component Metrics

// RecordComponentOperation records component operation metrics
func (mc *MetricsCollector) RecordComponentOperation(component, operation string, duration time.Duration) {
	if mc == nil {
		return
	}
	mc.componentOperations.WithLabelValues(component, operation).Inc()
	mc.componentDuration.WithLabelValues(component, operation).Observe(duration.Seconds())
}

// RecordComponentError records component error metrics
func (mc *MetricsCollector) RecordComponentError(component, operation, errorCode string) {
	if mc == nil {
		return
	}
	mc.componentErrors.WithLabelValues(component, operation, errorCode).Inc()
}

// Upstream Metrics

// RecordUpstreamRequest records a call to the Pokémon API. A status of 0
// means the request failed before a response arrived.
func (mc *MetricsCollector) RecordUpstreamRequest(endpoint string, status int, duration time.Duration) {
	if mc == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	mc.upstreamRequests.WithLabelValues(endpoint, label).Inc()
	mc.upstreamLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// Browser Metrics

// RecordNodeClick counts a node click by node kind
func (mc *MetricsCollector) RecordNodeClick(kind string) {
	if mc == nil {
		return
	}
	mc.nodeClicks.WithLabelValues(kind).Inc()
}

// RecordStaleResponse counts a discarded detail response
func (mc *MetricsCollector) RecordStaleResponse() {
	if mc == nil {
		return
	}
	mc.staleResponses.Inc()
}

// SetGraphSize records the current node and edge counts
func (mc *MetricsCollector) SetGraphSize(nodes, edges int) {
	if mc == nil {
		return
	}
	mc.graphNodes.Set(float64(nodes))
	mc.graphEdges.Set(float64(edges))
}

// SetSessions records the number of connected event sessions
func (mc *MetricsCollector) SetSessions(count int) {
	if mc == nil {
		return
	}
	mc.sessions.Set(float64(count))
}

// Cache Metrics

// RecordCacheHit records cache hit metrics
func (mc *MetricsCollector) RecordCacheHit(backend string) {
	if mc == nil {
		return
	}
	mc.cacheHits.WithLabelValues(backend).Inc()
}

// RecordCacheMiss records cache miss metrics
func (mc *MetricsCollector) RecordCacheMiss(backend string) {
	if mc == nil {
		return
	}
	mc.cacheMisses.WithLabelValues(backend).Inc()
}

// Registry exposes the underlying registry
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	if mc == nil {
		return nil
	}
	return mc.registry
}

// GetHTTPHandler returns the HTTP handler for metrics endpoint
func (mc *MetricsCollector) GetHTTPHandler() http.Handler {
	if mc == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// RequestTimer provides a convenient way to time operations
type RequestTimer struct {
	collector *MetricsCollector
	component string
	operation string
	startTime time.Time
}

// NewRequestTimer creates a new request timer
func (mc *MetricsCollector) NewRequestTimer(component, operation string) *RequestTimer {
	return &RequestTimer{
		collector: mc,
		component: component,
		operation: operation,
		startTime: time.Now(),
	}
}

// Finish records the operation duration and, when errCode is non-empty, an error
func (rt *RequestTimer) Finish(errCode string) {
	if rt == nil || rt.collector == nil {
		return
	}

	rt.collector.RecordComponentOperation(rt.component, rt.operation, time.Since(rt.startTime))
	if errCode != "" {
		rt.collector.RecordComponentError(rt.component, rt.operation, errCode)
	}
}

// Middleware returns HTTP middleware for automatic request metrics
func (mc *MetricsCollector) Middleware() func(http.Handler) http.Handler {
	if mc == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			mc.IncActiveRequests(r.Method, r.URL.Path)
			defer mc.DecActiveRequests(r.Method, r.URL.Path)

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			mc.RecordRequest(r.Method, r.URL.Path, strconv.Itoa(wrapped.statusCode), time.Since(start))
		})
	}
}

// Close marks the collector closed. Metrics recorded afterwards are still
// accepted; the registry simply stops being served.
func (mc *MetricsCollector) Close() error {
	if mc == nil {
		return nil
	}
	mc.mu.Lock()
	mc.closed = true
	mc.mu.Unlock()
	return nil
}
