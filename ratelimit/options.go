package ratelimit

import (
	"github.com/ceyewan/asnkeeper/clog"
	"github.com/ceyewan/asnkeeper/metrics"
)

const (
	metricAllowed = "ratelimit_allowed_total"
	metricDenied  = "ratelimit_denied_total"
	labelMode     = "mode"
)

// Option 限流器选项
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
}

// WithLogger 设置日志记录器，内部会添加 namespace: "ratelimit"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("ratelimit")
		}
	}
}

// WithMeter 设置指标收集器
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = clog.Discard()
	}
	if o.meter == nil {
		o.meter = metrics.Discard()
	}
	return o
}

// counters 放行与拒绝计数
type counters struct {
	allowed metrics.Counter
	denied  metrics.Counter
}

func newCounters(m metrics.Meter) counters {
	var c counters
	var err error
	if c.allowed, err = m.Counter(metricAllowed, "Number of requests allowed by the rate limiter."); err != nil {
		c.allowed, _ = metrics.Discard().Counter("", "")
	}
	if c.denied, err = m.Counter(metricDenied, "Number of requests denied by the rate limiter."); err != nil {
		c.denied, _ = metrics.Discard().Counter("", "")
	}
	return c
}
