package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveComplexity(10)
		m.CacheHit()
		m.CacheMiss()
		m.ComplexityFallback()
		m.SearchStarted("mode")
		m.ResultCommitted("seek_balance", time.Second, true)
		m.EngineFailure()
		m.InfoDropped()
		m.SessionOpened()
		m.SessionClosed()
		m.HTTPRequest("/api/ping", http.StatusOK)
	})
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	var m = New()
	m.CacheHit()
	m.CacheHit()
	m.CacheMiss()
	m.SearchStarted("trend")
	m.ResultCommitted("maintain_balance", 300*time.Millisecond, true)
	m.ResultCommitted("maintain_balance", 100*time.Millisecond, false)
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.HTTPRequest("/api/sessions", http.StatusCreated)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.complexityCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.complexityCache.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searches.WithLabelValues("trend")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.results.WithLabelValues("maintain_balance")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.timeouts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/sessions", "201")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	var m = New()
	m.EngineFailure()
	var rec = httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fractal_engine_failures_total 1")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
