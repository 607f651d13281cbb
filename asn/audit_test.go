package asn

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSink_Path(t *testing.T) {
	s := NewFileSink("data")
	assert.Equal(t, filepath.Join("data", "10", "_______1.log"), s.Path(10, 1))
	assert.Equal(t, filepath.Join("data", "600", "_____123.log"), s.Path(600, 123))
	assert.Equal(t, filepath.Join("data", "9601", "123456789.log"), s.Path(9601, 123456789))
}

func TestFileSink_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s := NewFileSink(dir)
	rec := Record{ASN: "ASN10001", Namespace: 10, Prefix: "ASN", Counter: 1, Metadata: map[string]any{"client": "cli"}}

	require.NoError(t, s.Write(context.Background(), rec))
	first, err := os.ReadFile(s.Path(10, 1))
	require.NoError(t, err)

	want, err := json.MarshalIndent(rec, "", "  ")
	require.NoError(t, err)
	assert.Equal(t, string(want), string(first))

	require.NoError(t, s.Write(context.Background(), rec))
	second, err := os.ReadFile(s.Path(10, 1))
	require.NoError(t, err)
	assert.Equal(t, first, second, "rewrites are idempotent")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Write(ctx, rec), context.Canceled)
}

func TestNATSSink_Subject(t *testing.T) {
	assert.Equal(t, "asn.issued.10", NewNATSSink(nil, "").Subject(10))
	assert.Equal(t, "audit.asn.60", NewNATSSink(nil, "audit.asn").Subject(60))
}
