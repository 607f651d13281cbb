package asn

import (
	"time"

	"github.com/ceyewan/asnkeeper/clog"
	"github.com/ceyewan/asnkeeper/metrics"
	"github.com/ceyewan/asnkeeper/timestats"
)

// DefaultCacheSize Lookup 缓存的最大条目数
const DefaultCacheSize = 10_000

// Option Allocator 选项
type Option func(*options)

type options struct {
	logger    clog.Logger
	meter     metrics.Meter
	now       func() time.Time
	sinks     []AuditSink
	stats     *timestats.Repository
	cacheSize int
}

// WithLogger 设置日志记录器，内部会添加 namespace: "asn"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("asn")
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

// WithClock 替换时钟，影响隐式命名空间、generatedAt 与统计样本
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithAuditSink 追加审计落盘目标，按顺序写入
func WithAuditSink(sinks ...AuditSink) Option {
	return func(o *options) {
		for _, s := range sinks {
			if s != nil {
				o.sinks = append(o.sinks, s)
			}
		}
	}
}

// WithStats 指定统计仓库，默认基于同一个 Store 创建
func WithStats(repo *timestats.Repository) Option {
	return func(o *options) {
		o.stats = repo
	}
}

// WithCacheSize 设置 Lookup 缓存容量
func WithCacheSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.cacheSize = n
		}
	}
}

func applyOptions(opts []Option) *options {
	o := &options{now: time.Now, cacheSize: DefaultCacheSize}
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
