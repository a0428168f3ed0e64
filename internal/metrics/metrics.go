package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the analyzer collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	complexityScore     prometheus.Histogram
	complexityCache     *prometheus.CounterVec
	complexityFallbacks prometheus.Counter

	searches       *prometheus.CounterVec
	searchDuration prometheus.Histogram
	timeouts       prometheus.Counter
	results        *prometheus.CounterVec

	engineFailures prometheus.Counter
	infoDropped    prometheus.Counter
	sessions       prometheus.Gauge

	httpRequests *prometheus.CounterVec
}

func New() *Metrics {
	var reg = prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var factory = promauto.With(reg)
	return &Metrics{
		registry: reg,
		complexityScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fractal_complexity_score",
			Help:    "Computed position complexity",
			Buckets: prometheus.LinearBuckets(0, 5, 11),
		}),
		complexityCache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fractal_complexity_cache_total",
			Help: "Complexity cache lookups by result",
		}, []string{"result"}),
		complexityFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "fractal_complexity_fallback_total",
			Help: "Complexity computations that returned the neutral fallback",
		}),
		searches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fractal_searches_total",
			Help: "Engine searches started by strategy",
		}, []string{"strategy"}),
		searchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fractal_search_duration_seconds",
			Help:    "Time from search start to committed move",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		timeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "fractal_search_timeouts_total",
			Help: "Searches terminated by the analysis deadline",
		}),
		results: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fractal_results_total",
			Help: "Committed moves by mode",
		}, []string{"mode"}),
		engineFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "fractal_engine_failures_total",
			Help: "Unexpected engine process terminations",
		}),
		infoDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "fractal_engine_info_dropped_total",
			Help: "Info records dropped because the consumer lagged",
		}),
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fractal_sessions",
			Help: "Open analysis sessions",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fractal_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"route", "status"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveComplexity(score float64) {
	if m == nil {
		return
	}
	m.complexityScore.Observe(score)
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.complexityCache.WithLabelValues("hit").Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.complexityCache.WithLabelValues("miss").Inc()
}

func (m *Metrics) ComplexityFallback() {
	if m == nil {
		return
	}
	m.complexityFallbacks.Inc()
}

func (m *Metrics) SearchStarted(strategy string) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(strategy).Inc()
}

func (m *Metrics) ResultCommitted(mode string, elapsed time.Duration, timedOut bool) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(mode).Inc()
	m.searchDuration.Observe(elapsed.Seconds())
	if timedOut {
		m.timeouts.Inc()
	}
}

func (m *Metrics) EngineFailure() {
	if m == nil {
		return
	}
	m.engineFailures.Inc()
}

func (m *Metrics) InfoDropped() {
	if m == nil {
		return
	}
	m.infoDropped.Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessions.Dec()
}

func (m *Metrics) HTTPRequest(route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
