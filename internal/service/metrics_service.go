package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API:
// request timing, catalog cache effectiveness and the registration guard
// counters.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	guardRejections *prometheus.CounterVec
	eventsSaved     *prometheus.CounterVec
	sessionsActive  prometheus.Gauge
}

// NewMetricsService registers the API's Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_hits_total",
		Help: "Course catalog cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_misses_total",
		Help: "Course catalog cache misses",
	})

	guardRejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_guard_rejections_total",
		Help: "Mutations refused by a consistency guard, by guard code",
	}, []string{"guard"})

	eventsSaved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_events_saved_total",
		Help: "Registration events persisted, by kind (create or edit)",
	}, []string{"kind"})

	sessionsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "workflow_sessions_active",
		Help: "Selection workflow sessions currently open",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses, guardRejections, eventsSaved, sessionsActive, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		guardRejections: guardRejections,
		eventsSaved:     eventsSaved,
		sessionsActive:  sessionsActive,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request timing and counts.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheLookup counts a catalog cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// RecordGuardRejection counts a mutation refused by the named guard.
func (m *MetricsService) RecordGuardRejection(guard string) {
	if m == nil {
		return
	}
	m.guardRejections.WithLabelValues(guard).Inc()
}

// RecordEventSaved counts a persisted registration event.
func (m *MetricsService) RecordEventSaved(kind string) {
	if m == nil {
		return
	}
	m.eventsSaved.WithLabelValues(kind).Inc()
}

// SessionOpened and SessionClosed track the active workflow session gauge.
func (m *MetricsService) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

// SessionClosed decrements the active workflow session gauge.
func (m *MetricsService) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}
