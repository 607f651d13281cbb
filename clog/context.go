package clog

import (
	"context"
	"log/slog"
	"strings"
)

type requestIDKey struct{}

// ContextWithRequestID 将请求 ID 写入 Context，配合 WithStandardContext 使用
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext 读取请求 ID，不存在时返回空串
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// extractContextFields 按规则从 ctx 中提取字段
func extractContextFields(ctx context.Context, o *options, attrs *[]slog.Attr) {
	if ctx == nil || o == nil {
		return
	}
	for _, cf := range o.contextFields {
		if val := ctx.Value(cf.Key); val != nil {
			*attrs = append(*attrs, slog.Any(cf.FieldName, val))
		}
	}
}

func addNamespaceFields(o *options, attrs *[]slog.Attr) {
	if o == nil || len(o.namespaceParts) == 0 {
		return
	}
	*attrs = append(*attrs, slog.String("namespace", strings.Join(o.namespaceParts, ".")))
}
