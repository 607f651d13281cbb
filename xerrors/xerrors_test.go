package xerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, "context"), "Wrap(nil) 应返回 nil")

	base := errors.New("base error")
	wrapped := Wrap(base, "context")
	require.Error(t, wrapped)
	assert.Equal(t, "context: base error", wrapped.Error())
	assert.ErrorIs(t, wrapped, base)
}

func TestWrapf(t *testing.T) {
	assert.NoError(t, Wrapf(nil, "namespace %d", 123))

	wrapped := Wrapf(ErrNotFound, "namespace %d", 123)
	assert.Equal(t, "namespace 123: not found", wrapped.Error())
	assert.ErrorIs(t, wrapped, ErrNotFound)
}

func TestKind(t *testing.T) {
	errDelta := Kind(ErrInvalidInput, "delta must be at least 1")

	assert.Equal(t, "delta must be at least 1", errDelta.Error())
	assert.ErrorIs(t, errDelta, ErrInvalidInput)
	assert.NotErrorIs(t, errDelta, ErrUnavailable)

	// 多层包装后依然能按种类和组件错误分别匹配
	wrapped := Wrapf(errDelta, "generate asn")
	assert.ErrorIs(t, wrapped, errDelta)
	assert.ErrorIs(t, wrapped, ErrInvalidInput)
}

func TestWithCode(t *testing.T) {
	assert.NoError(t, WithCode(nil, "CODE"))

	coded := WithCode(ErrConfigDrift, "prefix_changed")
	assert.Equal(t, "[prefix_changed] configuration drift", coded.Error())
	assert.Equal(t, "prefix_changed", GetCode(coded))

	// 包装后的带码错误依然应有 code
	assert.Equal(t, "prefix_changed", GetCode(Wrap(coded, "reconcile")))
	assert.ErrorIs(t, coded, ErrConfigDrift)
	assert.Empty(t, GetCode(errors.New("plain")))
}

func TestMust(t *testing.T) {
	assert.Equal(t, 42, Must(42, nil))
	assert.Panics(t, func() { Must(0, errors.New("boom")) })
}

func TestCombine(t *testing.T) {
	assert.NoError(t, Combine(nil, nil))

	single := errors.New("one")
	assert.Same(t, single, Combine(nil, single))

	other := errors.New("two")
	combined := Combine(single, nil, other)
	assert.Equal(t, "one (and 1 more errors)", combined.Error())
	assert.ErrorIs(t, combined, single)
	assert.ErrorIs(t, combined, other)
}
