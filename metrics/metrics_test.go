package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m Meter) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	m, err := New(&Config{Enabled: false})
	require.NoError(t, err)
	assert.IsType(t, noopMeter{}, m)

	m, err = New(&Config{Enabled: true, ServiceName: "asnkeeper-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	assert.IsType(t, &meterImpl{}, m)
}

func TestMeter_ExportsInstruments(t *testing.T) {
	ctx := context.Background()
	m, err := New(&Config{Enabled: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(ctx) })

	counter, err := m.Counter("asn_test_events_total", "test events")
	require.NoError(t, err)
	counter.Inc(ctx, L("namespace_kind", "generic"))
	counter.Add(ctx, 2, L("namespace_kind", "generic"))
	counter.Add(ctx, -5, L("namespace_kind", "generic"))

	gauge, err := m.Gauge("asn_test_inflight", "test gauge")
	require.NoError(t, err)
	gauge.Inc(ctx)
	gauge.Inc(ctx)
	gauge.Dec(ctx)

	hist, err := m.Histogram("asn_test_latency", "test histogram", WithBuckets([]float64{0.1, 1}))
	require.NoError(t, err)
	hist.Record(ctx, 0.5)

	body := scrape(t, m)
	assert.Contains(t, body, `asn_test_events_total{namespace_kind="generic"`)
	assert.Contains(t, body, "} 3")
	assert.Contains(t, body, "asn_test_inflight")
	assert.Contains(t, body, `asn_test_latency_bucket{`)
}

func TestDiscard(t *testing.T) {
	ctx := context.Background()
	m := Discard()

	c, err := m.Counter("x", "x")
	require.NoError(t, err)
	h, err := m.Histogram("y", "y")
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		c.Inc(ctx)
		h.Record(ctx, 1)
	})

	rec := httptest.NewRecorder()
	Handler(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTPStatusHelpers(t *testing.T) {
	assert.Equal(t, "2xx", HTTPStatusClass(http.StatusOK))
	assert.Equal(t, "4xx", HTTPStatusClass(http.StatusTooManyRequests))
	assert.Equal(t, "unknown", HTTPStatusClass(42))
	assert.Equal(t, OutcomeSuccess, HTTPOutcome(http.StatusFound))
	assert.Equal(t, OutcomeError, HTTPOutcome(http.StatusInternalServerError))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, err := New(&Config{Enabled: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	httpMetrics, err := NewHTTPServerMetrics(m, "asnkeeper")
	require.NoError(t, err)

	router := gin.New()
	router.Use(GinMiddleware(httpMetrics))
	router.GET("/api/asn", func(c *gin.Context) {
		time.Sleep(time.Millisecond)
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/asn", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	body := scrape(t, m)
	assert.Contains(t, body, `route="/api/asn"`)
	assert.Contains(t, body, `route="unknown"`)
}
