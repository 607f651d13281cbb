package connector

import (
	"context"
	"sync/atomic"

	"github.com/ceyewan/asnkeeper/clog"
	"github.com/ceyewan/asnkeeper/metrics"
)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
}

// Option 配置连接器的选项
type Option func(*options)

// WithLogger 设置日志记录器
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("connector")
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

// base 各连接器共享的名称、日志与健康状态
type base struct {
	name      string
	logger    clog.Logger
	healthy   atomic.Bool
	attempts  metrics.Counter
	connected metrics.Gauge
}

func (b *base) init(kind, name string, o *options) {
	b.name = name
	b.logger = o.logger.With(clog.String("connector", kind), clog.String("name", name))
	// 创建失败时退化为空实现，指标不影响连接
	var err error
	if b.attempts, err = o.meter.Counter("connector_connect_attempts_total", "Total number of connection attempts."); err != nil {
		b.attempts, _ = metrics.Discard().Counter("", "")
	}
	if b.connected, err = o.meter.Gauge("connector_connected", "Whether the connector is connected (1) or not (0)."); err != nil {
		b.connected, _ = metrics.Discard().Gauge("", "")
	}
}

func (b *base) Name() string { return b.name }

func (b *base) IsHealthy() bool { return b.healthy.Load() }

func (b *base) markConnected(kind string, ok bool) {
	result := metrics.OutcomeSuccess
	if !ok {
		result = metrics.OutcomeError
	}
	ctx := context.Background()
	b.attempts.Inc(ctx, metrics.L("connector", kind), metrics.L(metrics.LabelResult, result))
	if ok {
		b.connected.Set(ctx, 1, metrics.L("connector", kind), metrics.L("name", b.name))
	}
	b.healthy.Store(ok)
}

func (b *base) markClosed(kind string) {
	b.healthy.Store(false)
	b.connected.Set(context.Background(), 0, metrics.L("connector", kind), metrics.L("name", b.name))
}
