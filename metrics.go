package mimic

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the request lifecycle
// and the client cache. It is safe for concurrent use; a nil collector is
// a no-op.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	clientCacheHits      *prometheus.CounterVec
	clientCacheMisses    *prometheus.CounterVec
	clientCacheEvictions *prometheus.CounterVec
	clientCacheSize      prometheus.Gauge

	errorsTotal *prometheus.CounterVec

	registry prometheus.Registerer
}

// NewMetricsCollector creates a metrics collector on the default
// registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	mc := &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mimic_requests_total",
				Help: "Total number of HTTP requests made",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mimic_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mimic_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		clientCacheHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mimic_client_cache_hits_total",
				Help: "Total number of client cache hits",
			},
			[]string{"emulation"},
		),
		clientCacheMisses: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mimic_client_cache_misses_total",
				Help: "Total number of client cache misses",
			},
			[]string{"emulation"},
		),
		clientCacheEvictions: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mimic_client_cache_evictions_total",
				Help: "Total number of clients evicted from the cache",
			},
			[]string{"emulation"},
		),
		clientCacheSize: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "mimic_client_cache_size",
				Help: "Current number of cached client configurations",
			},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mimic_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type", "method", "endpoint"},
		),
		registry: registry,
	}

	return mc
}

// RecordRequest records request count and duration.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}

	statusCodeStr := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, statusCodeStr, endpoint).Inc()
	mc.requestDuration.WithLabelValues(method, statusCodeStr, endpoint).Observe(duration.Seconds())
}

// RecordRequestStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordClientCacheHit increments the client cache hit counter.
func (mc *MetricsCollector) RecordClientCacheHit(emulation string) {
	if mc == nil {
		return
	}

	mc.clientCacheHits.WithLabelValues(emulation).Inc()
}

// RecordClientCacheMiss increments the client cache miss counter.
func (mc *MetricsCollector) RecordClientCacheMiss(emulation string) {
	if mc == nil {
		return
	}

	mc.clientCacheMisses.WithLabelValues(emulation).Inc()
}

// RecordClientCacheEviction increments the eviction counter.
func (mc *MetricsCollector) RecordClientCacheEviction(emulation string) {
	if mc == nil {
		return
	}

	mc.clientCacheEvictions.WithLabelValues(emulation).Inc()
}

// RecordClientCacheSize sets the cache size gauge.
func (mc *MetricsCollector) RecordClientCacheSize(size int) {
	if mc == nil {
		return
	}

	mc.clientCacheSize.Set(float64(size))
}

// Registry exposes the registerer the collector's metrics live on.
func (mc *MetricsCollector) Registry() prometheus.Registerer {
	return mc.registry
}

// RecordError increments the error counter by type.
func (mc *MetricsCollector) RecordError(errorType, method, endpoint string) {
	if mc == nil {
		return
	}

	mc.errorsTotal.WithLabelValues(errorType, method, endpoint).Inc()
}
