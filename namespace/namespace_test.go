package namespace

import (
	"testing"

	"github.com/ceyewan/asnkeeper/xerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cfg(rng int64, ext bool, additional ...AdditionalNamespace) Config {
	return Config{Prefix: "ASN", Range: rng, Extension: ext, Additional: additional}
}

func TestGenericBounds(t *testing.T) {
	tests := []struct {
		rng      int64
		min, max int64
	}{
		{3, 1, 2},
		{10, 10, 9},
		{50, 10, 49},
		{100, 100, 99},
		{600, 100, 599},
	}
	for _, tt := range tests {
		c := cfg(tt.rng, false)
		assert.Equal(t, tt.min, MinGeneric(c), "range %d", tt.rng)
		assert.Equal(t, tt.max, MaxGeneric(c), "range %d", tt.rng)
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name  string
		rng   int64
		ext   bool
		n     int64
		valid bool
	}{
		{"single digit", 3, false, 1, true},
		{"too many digits", 3, false, 10, false},
		{"three digits", 3, false, 100, false},
		{"two digit range", 20, false, 10, true},
		{"below min", 20, false, 9, false},
		{"negative", 20, false, -10, false},
		{"niner extension", 3, true, 91, true},
		{"only nines", 3, true, 9, false},
		{"only nines twice", 3, true, 99, false},
		{"double niner", 3, true, 995, true},
		{"nine without extension", 50, false, 91, true},
		{"niner on two digits", 50, true, 901, true},
		{"unsafe", 50, false, MaxSafeInteger + 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValid(tt.n, cfg(tt.rng, tt.ext)))
		})
	}
}

func TestIsManaged(t *testing.T) {
	c := cfg(50, false, AdditionalNamespace{Namespace: 60, Label: "Pre-printed"})

	assert.True(t, IsManaged(10, c))
	assert.True(t, IsManaged(49, c))
	assert.True(t, IsManaged(60, c))
	assert.False(t, IsManaged(50, c))
	assert.False(t, IsManaged(9, c))
	assert.Equal(t, "Pre-printed", Label(60, c))
	assert.Empty(t, Label(10, c))
}

func TestIsValidAdditional(t *testing.T) {
	c := cfg(50, false)
	assert.True(t, IsValidAdditional(50, c))
	assert.True(t, IsValidAdditional(99, c))
	assert.False(t, IsValidAdditional(49, c), "overlaps generic range")
	assert.False(t, IsValidAdditional(100, c), "wrong width")
}

func TestAllManaged(t *testing.T) {
	assert.Equal(t, []int64{1, 2}, AllManaged(cfg(3, false)))
	assert.Equal(t, []int64{1, 2, 5}, AllManaged(cfg(3, false, AdditionalNamespace{Namespace: 5, Label: "x"})))

	all := AllManaged(cfg(50, false))
	require.Len(t, all, 40)
	assert.Equal(t, int64(10), all[0])
	assert.Equal(t, int64(49), all[len(all)-1])
}

func TestNthNinerExtensionRange(t *testing.T) {
	tests := []struct {
		n        int
		base     int64
		min, max int64
	}{
		{1, 1, 90, 98},
		{2, 1, 990, 998},
		{3, 1, 9990, 9998},
		{1, 50, 900, 989},
		{1, 100, 9000, 9899},
		{2, 100, 99000, 99899},
	}
	for _, tt := range tests {
		min, max, err := NthNinerExtensionRange(tt.n, tt.base)
		require.NoError(t, err)
		assert.Equal(t, tt.min, min, "n=%d base=%d", tt.n, tt.base)
		assert.Equal(t, tt.max, max, "n=%d base=%d", tt.n, tt.base)
	}

	_, _, err := NthNinerExtensionRange(0, 100)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}
