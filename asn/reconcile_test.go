package asn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/asnkeeper/kv"
	"github.com/ceyewan/asnkeeper/namespace"
	"github.com/ceyewan/asnkeeper/xerrors"
)

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	store := kv.NewStore(kv.NewMemory())
	base := NewBaseline(namespace.Config{Prefix: "ASN", Range: 600}, "code128")

	require.NoError(t, Reconcile(ctx, store, base, nil), "first run persists the baseline")

	var stored Baseline
	found, err := store.Get(ctx, kv.ConfigKey, &stored)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, base, stored)

	require.NoError(t, Reconcile(ctx, store, base, nil))

	tests := []struct {
		name   string
		mutate func(*Baseline)
		code   string
	}{
		{"prefix changed", func(b *Baseline) { b.Prefix = "PN" }, "prefix_changed"},
		{"namespace width grew", func(b *Baseline) { b.NamespaceRange = 1000 }, "namespace_width_changed"},
		{"namespace width shrank", func(b *Baseline) { b.NamespaceRange = 60 }, "namespace_width_changed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := base
			tt.mutate(&next)
			err := Reconcile(ctx, store, next, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfigDrift)
			assert.ErrorIs(t, err, xerrors.ErrConfigDrift)
			assert.Equal(t, tt.code, xerrors.GetCode(err))
		})
	}

	found, err = store.Get(ctx, kv.ConfigKey, &stored)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, base, stored, "drift must not overwrite the baseline")
}

func TestReconcile_CompatibleChangesArePersisted(t *testing.T) {
	ctx := context.Background()
	store := kv.NewStore(kv.NewMemory())
	base := NewBaseline(namespace.Config{Prefix: "ASN", Range: 600}, "code128")
	require.NoError(t, Reconcile(ctx, store, base, nil))

	next := NewBaseline(namespace.Config{
		Prefix:     "ASN",
		Range:      700,
		Additional: []namespace.AdditionalNamespace{{Namespace: 800, Label: "Pre"}},
	}, "code39")
	require.NoError(t, Reconcile(ctx, store, next, nil), "barcode change is only a warning")

	var stored Baseline
	_, err := store.Get(ctx, kv.ConfigKey, &stored)
	require.NoError(t, err)
	assert.Equal(t, int64(700), stored.NamespaceRange)
	assert.Equal(t, "code39", stored.BarcodeType)
	assert.Equal(t, "<800 Pre>", stored.AdditionalManagedNamespaces)
}
