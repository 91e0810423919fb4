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

const metricsNamespace = "semester"

// MetricsService encapsulates Prometheus instrumentation for the API and the scheduler.
type MetricsService struct {
	handler http.Handler

	httpDuration *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec

	cacheLookups  *prometheus.HistogramVec
	cacheWrites   prometheus.Histogram
	cacheHitRatio prometheus.Gauge
	dbQueries     *prometheus.HistogramVec

	runs       *prometheus.CounterVec
	runTime    prometheus.Histogram
	runNodes   prometheus.Histogram
	runFitness prometheus.Gauge
	inFlight   prometheus.Gauge

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "path", "status"}),
		cacheLookups: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "cache_lookup_seconds",
			Help:      "Reference data cache lookups by result",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		cacheWrites: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "cache_write_seconds",
			Help:      "Reference data cache writes",
			Buckets:   prometheus.DefBuckets,
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "cache_hit_ratio",
			Help:      "Share of cache lookups served from Redis",
		}),
		dbQueries: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "db_query_duration_seconds",
			Help:      "Duration of grouped database reads",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "scheduler_runs_total",
			Help:      "Schedule generation runs by outcome",
		}, []string{"outcome"}),
		runTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "scheduler_run_duration_seconds",
			Help:      "Wall time of schedule generation runs",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		runNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "scheduler_run_iterations",
			Help:      "Search nodes visited per generation run",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 9),
		}),
		runFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "scheduler_last_fitness",
			Help:      "Share of lesson tasks placed by the latest run",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "scheduler_runs_in_flight",
			Help:      "Generation runs currently searching",
		}),
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		m.httpDuration, m.httpRequests,
		m.cacheLookups, m.cacheWrites, m.cacheHitRatio, m.dbQueries,
		m.runs, m.runTime, m.runNodes, m.runFitness, m.inFlight,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "goroutines",
			Help:      "Number of live goroutines",
		}, func() float64 { return float64(runtime.NumGoroutine()) }),
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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
	code := strconv.Itoa(status)
	m.httpDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.httpRequests.WithLabelValues(method, path, code).Inc()
}

// RecordCacheOperation records a cache lookup and refreshes the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	m.cacheLookups.WithLabelValues(result).Observe(duration.Seconds())
	hits, misses := m.hits.Load(), m.misses.Load()
	m.cacheHitRatio.Set(float64(hits) / float64(hits+misses))
}

// ObserveCacheWrite tracks the duration of cache writes.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrites.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueries.WithLabelValues(label).Observe(duration.Seconds())
}

// SchedulerRunStarted marks a search as in flight and returns the func that ends it.
func (m *MetricsService) SchedulerRunStarted() func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}

// ObserveSchedulerRun records the outcome of one generation run.
func (m *MetricsService) ObserveSchedulerRun(outcome string, iterations int, duration time.Duration, fitness float64) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.runTime.Observe(duration.Seconds())
	m.runNodes.Observe(float64(iterations))
	m.runFitness.Set(fitness)
}
