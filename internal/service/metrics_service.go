package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for sync counters.
const (
	SyncStatusSucceeded = "succeeded"
	SyncStatusFailed    = "failed"
	SyncStatusChanged   = "changed"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the sync worker.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	syncDocuments   *prometheus.CounterVec
	syncGroups      *prometheus.CounterVec
	syncLessons     *prometheus.CounterVec
	syncDuration    prometheus.Histogram
	syncLastSuccess prometheus.Gauge

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	syncDocuments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_documents_total",
		Help: "Timetable documents processed by sync cycles",
	}, []string{"status"})

	syncGroups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_groups_total",
		Help: "Group reconciliations by outcome",
	}, []string{"status"})

	syncLessons := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_lessons_total",
		Help: "Parsed lessons by reconciliation outcome",
	}, []string{"outcome"})

	syncDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_cycle_duration_seconds",
		Help:    "Wall time of full sync cycles",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	syncLastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sync_last_success_timestamp_seconds",
		Help: "Unix time of the last completed sync cycle",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		syncDocuments, syncGroups, syncLessons, syncDuration, syncLastSuccess, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		syncDocuments:   syncDocuments,
		syncGroups:      syncGroups,
		syncLessons:     syncLessons,
		syncDuration:    syncDuration,
		syncLastSuccess: syncLastSuccess,
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

// Registry exposes the underlying registry for tests and embedding.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordSyncDocument counts one processed document.
func (m *MetricsService) RecordSyncDocument(status string) {
	if m == nil {
		return
	}
	m.syncDocuments.WithLabelValues(status).Inc()
}

// RecordSyncGroup counts one group outcome.
func (m *MetricsService) RecordSyncGroup(status string) {
	if m == nil {
		return
	}
	m.syncGroups.WithLabelValues(status).Inc()
}

// RecordSyncLessons adds stored and skipped lesson counts.
func (m *MetricsService) RecordSyncLessons(stored, skipped int) {
	if m == nil {
		return
	}
	m.syncLessons.WithLabelValues("stored").Add(float64(stored))
	m.syncLessons.WithLabelValues("skipped").Add(float64(skipped))
}

// ObserveSyncCycle records the duration of a finished cycle.
func (m *MetricsService) ObserveSyncCycle(duration time.Duration, finishedAt time.Time) {
	if m == nil {
		return
	}
	m.syncDuration.Observe(duration.Seconds())
	m.syncLastSuccess.Set(float64(finishedAt.Unix()))
}
