package kv

import (
	"github.com/ceyewan/asnkeeper/clog"
	"github.com/ceyewan/asnkeeper/metrics"
)

// Option Store 选项
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
	retry  *RetryConfig
}

// WithLogger 设置日志记录器，内部会添加 namespace: "kv"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("kv")
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

// WithRetry 覆盖事务重试配置，零值字段取默认值
func WithRetry(cfg RetryConfig) Option {
	return func(o *options) {
		o.retry = &cfg
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
	if o.retry == nil {
		o.retry = &RetryConfig{}
	}
	o.retry.setDefaults()
	return o
}
