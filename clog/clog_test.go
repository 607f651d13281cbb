package clog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/asnkeeper/xerrors"
)

func newBufferLogger(t *testing.T, level string, opts ...Option) (Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logger, err := New(&Config{Level: level, Format: "json", Output: "buffer"}, append(opts, withBuffer(buf))...)
	require.NoError(t, err)
	return logger, buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(&Config{Level: "verbose"})
	assert.Error(t, err)

	_, err = New(&Config{Format: "xml"})
	assert.Error(t, err)

	_, err = New(&Config{Output: "buffer"})
	assert.Error(t, err, "buffer 输出必须配合 withBuffer")
}

func TestLogger_JSONFields(t *testing.T) {
	logger, buf := newBufferLogger(t, "info", WithNamespace("asnkeeper"))
	logger = logger.With(Component("allocator")).WithNamespace("generate")

	logger.Info("asn issued", String("asn", "ASN10001"), Int64("counter", 1))

	entry := decodeLine(t, buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "asn issued", entry["msg"])
	assert.Equal(t, "ASN10001", entry["asn"])
	assert.Equal(t, float64(1), entry["counter"])
	assert.Equal(t, "allocator", entry["component"])
	assert.Equal(t, "asnkeeper.generate", entry["namespace"])
}

func TestLogger_LevelFilterAndSetLevel(t *testing.T) {
	logger, buf := newBufferLogger(t, "warn")

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	require.NoError(t, logger.SetLevel(DebugLevel))
	logger.Debug("visible")
	assert.Equal(t, "DEBUG", decodeLine(t, buf)["level"])
}

func TestLogger_ContextFields(t *testing.T) {
	logger, buf := newBufferLogger(t, "info", WithStandardContext())

	ctx := ContextWithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))

	logger.InfoContext(ctx, "handled")
	assert.Equal(t, "req-1", decodeLine(t, buf)["request_id"])
}

func TestWith_DoesNotLeakBetweenChildren(t *testing.T) {
	logger, buf := newBufferLogger(t, "info")
	parent := logger.With(String("a", "1"))
	_ = parent.With(String("b", "2"))

	parent.Info("parent")
	entry := decodeLine(t, buf)
	assert.Equal(t, "1", entry["a"])
	assert.NotContains(t, entry, "b")
}

func TestErrorFields(t *testing.T) {
	logger, buf := newBufferLogger(t, "info")

	logger.Error("failed", Error(errors.New("boom")))
	assert.Equal(t, "boom", decodeLine(t, buf)["err_msg"])

	buf.Reset()
	logger.Error("drift", ErrorWithCode(xerrors.WithCode(xerrors.ErrConfigDrift, "prefix_changed"), ""))
	group, ok := decodeLine(t, buf)["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "prefix_changed", group["code"])
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, WarnLevel, level)
	assert.Equal(t, "warn", level.String())

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.NotPanics(t, func() {
		logger.With(String("k", "v")).WithNamespace("x").Info("nothing")
	})
}
