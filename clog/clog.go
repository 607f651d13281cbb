// Package clog 是 asnkeeper 的结构化日志组件，基于标准库 log/slog 实现。
//
// 特性：
//   - 函数式选项配置命名空间与 Context 字段提取
//   - json / console 两种输出格式，console 支持彩色
//   - 运行时动态调整级别
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{Level: "info", Format: "json"})
//	logger = logger.WithNamespace("asnkeeper", "allocator")
//	logger.Info("asn issued", clog.String("asn", "ASN10001"))
//
// 组件内部统一通过 With(clog.String("component", ...)) 派生子 Logger。
package clog

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Logger 日志接口
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)
	FatalContext(ctx context.Context, msg string, fields ...Field)

	// With 返回附加了固定字段的子 Logger
	With(fields ...Field) Logger
	// WithNamespace 追加命名空间，以 "." 连接
	WithNamespace(parts ...string) Logger

	SetLevel(level Level) error
	Flush()
}

var defaultLogger atomic.Pointer[Logger]

// New 创建一个新的 Logger 实例
//
// config 为 nil 时使用开发环境默认配置。
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = NewDevDefaultConfig("")
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return newLogger(config, applyOptions(opts...))
}

// Default 返回进程级默认 Logger。
//
// 未通过 SetDefault 设置时，返回输出到 stderr 的 info 级别 console Logger。
func Default() Logger {
	if l := defaultLogger.Load(); l != nil {
		return *l
	}
	l, err := New(&Config{Level: "info", Format: "console", Output: "stderr"})
	if err != nil {
		return Discard()
	}
	defaultLogger.CompareAndSwap(nil, &l)
	return *defaultLogger.Load()
}

// SetDefault 替换进程级默认 Logger
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defaultLogger.Store(&l)
}
