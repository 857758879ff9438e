package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSnapshot is a point-in-time summary of the counters.
type MetricsSnapshot struct {
	RequestsTotal        uint64    `json:"requestsTotal"`
	CacheHits            uint64    `json:"cacheHits"`
	CacheMisses          uint64    `json:"cacheMisses"`
	CacheHitRatio        float64   `json:"cacheHitRatio"`
	DocumentsWritten     uint64    `json:"documentsWritten"`
	DocumentsSkipped     uint64    `json:"documentsSkipped"`
	BatchFailures        uint64    `json:"batchFailures"`
	ReportCardsGenerated uint64    `json:"reportCardsGenerated"`
	Goroutines           int       `json:"goroutines"`
	GeneratedAt          time.Time `json:"generatedAt"`
}

// MetricsService encapsulates Prometheus instrumentation for the API and setup runs.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	cacheLatency     prometheus.Observer
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	storeDuration    *prometheus.HistogramVec
	documentsWritten *prometheus.CounterVec
	documentsSkipped *prometheus.CounterVec
	batchFailures    *prometheus.CounterVec
	reportCards      *prometheus.CounterVec

	requestCount    uint64
	cacheHitCount   uint64
	cacheMissCount  uint64
	writtenCount    uint64
	skippedCount    uint64
	failureCount    uint64
	reportCardCount uint64
}

// NewMetricsService registers the collectors on a private registry.
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
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	storeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "document_store_duration_seconds",
		Help:    "Duration of document store reads",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	documentsWritten := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "documents_written_total",
		Help: "Documents written per collection",
	}, []string{"collection"})

	documentsSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "documents_skipped_total",
		Help: "Documents skipped because they already existed",
	}, []string{"collection"})

	batchFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_commit_failures_total",
		Help: "Failed batch commits per collection",
	}, []string{"collection"})

	reportCards := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_cards_generated_total",
		Help: "Report cards assembled, by overall grade",
	}, []string{"grade"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHits, cacheMisses, storeDuration,
		documentsWritten, documentsSkipped, batchFailures, reportCards, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		storeDuration:    storeDuration,
		documentsWritten: documentsWritten,
		documentsSkipped: documentsSkipped,
		batchFailures:    batchFailures,
		reportCards:      reportCards,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
		return
	}
	m.cacheMisses.Inc()
	atomic.AddUint64(&m.cacheMissCount, 1)
}

// ObserveStoreOperation records document store read timing.
func (m *MetricsService) ObserveStoreOperation(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.storeDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveDocumentsWritten implements repository.WriteObserver.
func (m *MetricsService) ObserveDocumentsWritten(collection string, written, skipped int) {
	if m == nil {
		return
	}
	m.documentsWritten.WithLabelValues(collection).Add(float64(written))
	m.documentsSkipped.WithLabelValues(collection).Add(float64(skipped))
	atomic.AddUint64(&m.writtenCount, uint64(written))
	atomic.AddUint64(&m.skippedCount, uint64(skipped))
}

// ObserveBatchFailure implements repository.WriteObserver.
func (m *MetricsService) ObserveBatchFailure(collection string) {
	if m == nil {
		return
	}
	m.batchFailures.WithLabelValues(collection).Inc()
	atomic.AddUint64(&m.failureCount, 1)
}

// ObserveReportCard counts an assembled report card.
func (m *MetricsService) ObserveReportCard(grade string) {
	if m == nil {
		return
	}
	m.reportCards.WithLabelValues(grade).Inc()
	atomic.AddUint64(&m.reportCardCount, 1)
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)

	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}

	return MetricsSnapshot{
		RequestsTotal:        atomic.LoadUint64(&m.requestCount),
		CacheHits:            hits,
		CacheMisses:          misses,
		CacheHitRatio:        ratio,
		DocumentsWritten:     atomic.LoadUint64(&m.writtenCount),
		DocumentsSkipped:     atomic.LoadUint64(&m.skippedCount),
		BatchFailures:        atomic.LoadUint64(&m.failureCount),
		ReportCardsGenerated: atomic.LoadUint64(&m.reportCardCount),
		Goroutines:           runtime.NumGoroutine(),
		GeneratedAt:          time.Now().UTC(),
	}
}
