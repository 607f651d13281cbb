// Package metrics 为 asnkeeper 提供统一的指标收集能力。
//
// 基于 OpenTelemetry 构建，通过 Prometheus Exporter 暴露，提供简洁的
// Counter、Gauge、Histogram 接口。未启用时 New 返回空实现，组件无需判空。
//
// 快速开始：
//
//	meter, err := metrics.New(&metrics.Config{Enabled: true, ServiceName: "asnkeeper"})
//	if err != nil {
//	    return err
//	}
//	defer meter.Shutdown(ctx)
//
//	counter, _ := meter.Counter("asn_generated_total", "Total number of ASNs issued.")
//	counter.Inc(ctx, metrics.L("namespace_kind", "generic"))
//
//	// 挂载到 HTTP 服务
//	router.GET("/metrics", gin.WrapH(metrics.Handler(meter)))
package metrics

import "context"

// Counter 计数器，只增不减
type Counter interface {
	// Inc 将计数器增加 1
	Inc(ctx context.Context, labels ...Label)
	// Add 将计数器增加给定的值，负数会被忽略
	Add(ctx context.Context, val float64, labels ...Label)
}

// Gauge 仪表盘，记录可任意增减的瞬时值
type Gauge interface {
	Set(ctx context.Context, val float64, labels ...Label)
	Inc(ctx context.Context, labels ...Label)
	Dec(ctx context.Context, labels ...Label)
}

// Histogram 直方图，记录值的分布情况
type Histogram interface {
	Record(ctx context.Context, val float64, labels ...Label)
}

// Meter 指标创建工厂
//
// 创建的指标均为并发安全。
type Meter interface {
	Counter(name string, desc string, opts ...MetricOption) (Counter, error)
	Gauge(name string, desc string, opts ...MetricOption) (Gauge, error)
	Histogram(name string, desc string, opts ...MetricOption) (Histogram, error)

	// Shutdown 刷新并关闭 Meter，通常在进程退出时调用
	Shutdown(ctx context.Context) error
}

// MetricOption 指标配置选项
type MetricOption func(*MetricOptions)

// MetricOptions 指标选项
type MetricOptions struct {
	Unit    string
	Buckets []float64
}

// WithUnit 设置指标的单位，例如 "s"、"ms"、"bytes"
func WithUnit(unit string) MetricOption {
	return func(o *MetricOptions) {
		o.Unit = unit
	}
}

// WithBuckets 设置直方图的显式桶边界，仅对 Histogram 有效
func WithBuckets(buckets []float64) MetricOption {
	return func(o *MetricOptions) {
		o.Buckets = append([]float64(nil), buckets...)
	}
}
