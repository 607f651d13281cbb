package namespace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"ok", cfg(600, false), ""},
		{"ok with extension", cfg(600, true), ""},
		{"lower case prefix", Config{Prefix: "asn", Range: 600}, "prefix"},
		{"long prefix", Config{Prefix: "ABCDEFGHIJK", Range: 600}, "prefix"},
		{"zero range", Config{Prefix: "ASN", Range: 0}, "positive"},
		{"range one", Config{Prefix: "ASN", Range: 1}, "no generic namespace"},
		{"power of ten range", Config{Prefix: "ASN", Range: 100}, "no generic namespace"},
		{"niner overlap", cfg(950, true), "leading 9s"},
		{"niner overlap allowed without extension", cfg(950, false), ""},
		{"additional overlaps", cfg(600, false, AdditionalNamespace{Namespace: 500, Label: "Old"}), "ASN500XXX - Old"},
		{"additional ok", cfg(600, false, AdditionalNamespace{Namespace: 700, Label: "Pre"}), ""},
		{
			"additional duplicate",
			cfg(600, false,
				AdditionalNamespace{Namespace: 700, Label: "A"},
				AdditionalNamespace{Namespace: 700, Label: "B"}),
			"ASN700XXX - B",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseAdditional(t *testing.T) {
	list, err := ParseAdditional("<500 Pre-printed labels>, <600 Other stuff> garbage")
	require.NoError(t, err)
	assert.Equal(t, []AdditionalNamespace{
		{Namespace: 500, Label: "Pre-printed labels"},
		{Namespace: 600, Label: "Other stuff"},
	}, list)

	assert.Equal(t, "<500 Pre-printed labels><600 Other stuff>", FormatAdditional(list))

	empty, err := ParseAdditional("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseAdditional("<99999999999999999999 Huge>")
	assert.ErrorIs(t, err, ErrInvalidNamespace)
}

func TestFormatDescription(t *testing.T) {
	plain := FormatDescription(cfg(600, false))
	assert.Contains(t, plain, "ASN  - 100  - 001\n")
	assert.Contains(t, plain, "(1) Prefix specified in configuration (ASN).\n")
	assert.Contains(t, plain, "    - 100-599 is reserved for automatic generation, and\n")
	assert.Contains(t, plain, "    - 600-999 is reserved for user defined namespaces.\n")

	ext := FormatDescription(cfg(600, true))
	assert.Contains(t, ext, "    - 600-899,\n    - 9000-9899,\n    - 99000-99899,\n    - 999000-999899, etc., are reserved")
	assert.Contains(t, ext, "After 999, another digit is added.")
}
