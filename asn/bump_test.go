package asn

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/asnkeeper/kv"
	"github.com/ceyewan/asnkeeper/namespace"
	"github.com/ceyewan/asnkeeper/timestats"
)

func TestBump(t *testing.T) {
	ctx := context.Background()
	a, _ := newAllocator(t, WithClock(newClock(t0).Now))

	_, err := a.Generate(ctx, nil, WithNamespace(10))
	require.NoError(t, err)

	results, err := a.Bump(ctx, BumpRequest{Namespaces: []int64{10, 11, 60}, Delta: 100, By: "ops", Reason: "restore"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, int64(10), results[0].Namespace)
	assert.Equal(t, int64(101), results[0].Record.Counter)
	assert.Equal(t, "ASN10102", results[0].Next)
	assert.Equal(t, "ASN11101", results[1].Next)
	assert.Equal(t, "ASN60101", results[2].Next)

	md := results[0].Record.Metadata
	assert.EqualValues(t, 100, md["bumpedBy"])
	assert.Equal(t, "2024-03-01T12:00:00.000Z", md["bumpedAt"])
	assert.Equal(t, "ops", md["bumpedByUser"])
	assert.Equal(t, "restore", md["reason"])

	current, err := a.Current(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(101), current)

	rec, err := a.Generate(ctx, nil, WithNamespace(10))
	require.NoError(t, err)
	assert.Equal(t, results[0].Next, rec.ASN)
}

func TestBump_AllManaged(t *testing.T) {
	ctx := context.Background()
	store := kv.NewStore(kv.NewMemory())
	cfg := namespace.Config{Prefix: "PN", Range: 13, Additional: []namespace.AdditionalNamespace{{Namespace: 20, Label: "Pre"}}}
	a, err := New(cfg, store)
	require.NoError(t, err)
	t.Cleanup(a.Wait)

	results, err := a.Bump(ctx, BumpRequest{Delta: 7})
	require.NoError(t, err)

	var got []int64
	for _, r := range results {
		got = append(got, r.Namespace)
		assert.Equal(t, int64(7), r.Record.Counter)
	}
	assert.Equal(t, []int64{10, 11, 12, 20}, got)
	assert.Equal(t, "PN10008", results[0].Next)
}

func TestBump_Rejects(t *testing.T) {
	ctx := context.Background()
	a, _ := newAllocator(t)

	_, err := a.Bump(ctx, BumpRequest{Namespaces: []int64{10}, Delta: 0})
	assert.ErrorIs(t, err, ErrInvalidDelta)

	// 70 语法合法但未托管，整批在写入前拒绝
	_, err = a.Bump(ctx, BumpRequest{Namespaces: []int64{10, 70}, Delta: 5})
	assert.ErrorIs(t, err, ErrUnmanagedNamespace)
	assert.Contains(t, err.Error(), "ASN70XXX")

	current, err := a.Current(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, current)
}

func TestRecommend(t *testing.T) {
	assert.Equal(t, int64(1), Recommend(timestats.Stats{}, 3, time.Hour), "no data still bumps by one")

	steady := timestats.Stats{Count: 10, Avg: 1000}
	assert.Equal(t, int64(3600), Recommend(steady, 3, time.Hour))

	noisy := timestats.Stats{Count: 10, Avg: 1000, SD: 500}
	// (1/1000 + 2/500) * 3_600_000 = 18000
	assert.Equal(t, int64(18000), Recommend(noisy, 2, time.Hour))

	assert.Equal(t, int64(1), Recommend(steady, 3, 0))
}
