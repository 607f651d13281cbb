// Package testkit 为各组件测试提供公共依赖与外部服务连接。
//
// 单元测试只用到 NewLogger、NewMeter 与 NewSQLiteDB 这类不依赖外部服务的工具。
// Redis、Etcd、MySQL、NATS 连接只在 integration 构建标签下使用，
// 地址默认指向本机标准端口，可以用 ASN_TEST_* 环境变量覆盖，不可达时跳过测试。
package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ceyewan/asnkeeper/clog"
	"github.com/ceyewan/asnkeeper/metrics"
)

// NewLogger 测试用 logger，默认只输出 warn 及以上，ASN_TEST_LOG_LEVEL 可调
func NewLogger() clog.Logger {
	cfg := clog.NewDevDefaultConfig("asnkeeper")
	cfg.Level = envOr("ASN_TEST_LOG_LEVEL", "warn")
	cfg.Output = "stderr"
	logger, err := clog.New(cfg)
	if err != nil {
		return clog.Discard()
	}
	return logger
}

// NewMeter 指标写入独立的 Prometheus registry，测试之间互不影响
func NewMeter() metrics.Meter {
	meter, err := metrics.New(&metrics.Config{Enabled: true, ServiceName: "asnkeeper-test"})
	if err != nil {
		return metrics.Discard()
	}
	return meter
}

// NewContext 带超时的上下文，测试结束时自动取消
func NewContext(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx, cancel
}

// NewID 8 位随机串，用作 key 前缀或 subject 后缀
func NewID() string {
	return uuid.NewString()[:8]
}
