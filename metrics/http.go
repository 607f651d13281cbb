package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/asnkeeper/xerrors"
)

const (
	MetricHTTPRequestsTotal   = "http_server_requests_total"
	MetricHTTPDurationSeconds = "http_server_request_duration_seconds"
)

var defaultHTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// HTTPServerMetrics HTTP 服务的 RED 指标集
type HTTPServerMetrics struct {
	service  string
	requests Counter
	duration Histogram
}

// NewHTTPServerMetrics 创建 HTTP 服务指标，service 为空时记为 "unknown"
func NewHTTPServerMetrics(m Meter, service string) (*HTTPServerMetrics, error) {
	if m == nil {
		return nil, xerrors.New("meter is nil")
	}
	service = strings.TrimSpace(service)
	if service == "" {
		service = "unknown"
	}

	requests, err := m.Counter(MetricHTTPRequestsTotal, "Total number of HTTP requests.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create http request counter")
	}
	duration, err := m.Histogram(MetricHTTPDurationSeconds, "HTTP request duration in seconds.",
		WithUnit("s"), WithBuckets(defaultHTTPDurationBuckets))
	if err != nil {
		return nil, xerrors.Wrap(err, "create http request duration histogram")
	}

	return &HTTPServerMetrics{service: service, requests: requests, duration: duration}, nil
}

// Observe 记录一次 HTTP 请求
func (m *HTTPServerMetrics) Observe(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	if route == "" {
		route = UnknownRoute
	}

	labels := []Label{
		L(LabelService, m.service),
		L(LabelOperation, OperationHTTPServer),
		L(LabelMethod, method),
		L(LabelRoute, route),
		L(LabelStatusClass, HTTPStatusClass(status)),
		L(LabelOutcome, HTTPOutcome(status)),
	}
	m.requests.Inc(ctx, labels...)
	m.duration.Record(ctx, d.Seconds(), labels...)
}

// GinMiddleware 返回记录 HTTP RED 指标的 Gin 中间件
func GinMiddleware(m *HTTPServerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		// 未命中路由时统一收敛，避免原始路径成为高基数标签
		route := c.FullPath()
		if route == "" {
			route = UnknownRoute
		}
		m.Observe(c.Request.Context(), c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
