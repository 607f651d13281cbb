package clog

import (
	"log/slog"
	"time"

	"github.com/ceyewan/asnkeeper/xerrors"
)

// Field 是 slog.Attr 的类型别名
type Field = slog.Attr

func String(k, v string) Field { return slog.String(k, v) }

func Int(k string, v int) Field { return slog.Int(k, v) }

func Int64(k string, v int64) Field { return slog.Int64(k, v) }

func Float64(k string, v float64) Field { return slog.Float64(k, v) }

func Bool(k string, v bool) Field { return slog.Bool(k, v) }

func Time(k string, v time.Time) Field { return slog.Time(k, v) }

func Duration(k string, v time.Duration) Field { return slog.Duration(k, v) }

func Any(k string, v any) Field { return slog.Any(k, v) }

// Error 只输出错误消息：err_msg="..."
//
// err 为 nil 时返回空字段，slog 会忽略它。
func Error(err error) Field {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("err_msg", err.Error())
}

// ErrorWithCode 输出嵌套的错误结构：error={msg="...", code="..."}
//
// code 为空时尝试从错误链中提取 xerrors.CodedError 的错误码。
func ErrorWithCode(err error, code string) Field {
	if err == nil {
		return slog.Group("error", slog.String("code", code))
	}
	if code == "" {
		code = xerrors.GetCode(err)
	}
	return slog.Group("error",
		slog.String("msg", err.Error()),
		slog.String("code", code),
	)
}

// RequestID 请求 ID 字段
func RequestID(id string) Field { return slog.String("request_id", id) }

// Component 组件名字段，各组件派生子 Logger 时使用
func Component(name string) Field { return slog.String("component", name) }
