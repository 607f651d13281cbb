// Package xerrors 提供 asnkeeper 统一的错误处理工具。
//
// 错误分三层：
//   - 种类（Kind）：本文件定义的哨兵错误，如 ErrInvalidInput、ErrUnavailable，
//     调用方可以只按种类分支，而不关心具体组件
//   - 组件错误：各组件用 Kind 包装出自己的哨兵错误（见 asn.ErrInvalidDelta）
//   - 上下文：Wrap/Wrapf 追加的调用现场信息
//
// 所有包装都保留错误链，errors.Is 在任意层级均可匹配。
package xerrors

import (
	"errors"
	"fmt"
)

// 错误种类
var (
	// ErrInvalidInput 参数非法，在触碰存储之前同步返回
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound 目标不存在
	ErrNotFound = errors.New("not found")
	// ErrConflict 乐观并发检查失败（并发修改）
	ErrConflict = errors.New("conflict")
	// ErrUnavailable 存储或下游不可用，不会被自动重试
	ErrUnavailable = errors.New("unavailable")
	// ErrRetriesExhausted 重试次数耗尽
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrConfigDrift 当前配置与已持久化的基线不兼容
	ErrConfigDrift = errors.New("configuration drift")
)

// Kind 基于种类派生一个组件级哨兵错误。
//
// 返回的错误满足 errors.Is(err, kind)。
func Kind(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// Wrap 用上下文信息包装错误，保留错误链。
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 用格式化的上下文信息包装错误。
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// WithCode 用错误码包装错误。
func WithCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &CodedError{Code: code, Cause: err}
}

// CodedError 带有机器可读错误码的错误。
type CodedError struct {
	Code  string
	Cause error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %v", e.Code, e.Cause)
	}
	return fmt.Sprintf("[%s]", e.Code)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// GetCode 从错误链中提取错误码。
func GetCode(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// Must 如果 err 不为 nil，则 panic。仅用于初始化阶段。
func Must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("must: %v", err))
	}
	return v
}

// MultiError 合并多个错误。
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%v (and %d more errors)", m.Errors[0], len(m.Errors)-1)
}

func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Combine 将多个错误合并为一个。
func Combine(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		return &MultiError{Errors: nonNil}
	}
}

// 标准库函数再导出
var (
	New    = errors.New
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)
