package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/asnkeeper/kv"
	"github.com/ceyewan/asnkeeper/namespace"
	"github.com/ceyewan/asnkeeper/xerrors"
)

// isolate 清空所有相关环境变量，避免宿主环境干扰
func isolate(t *testing.T) *Config {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
	}
	t.Setenv(envSelector, "")
	return &Config{Paths: []string{t.TempDir()}, DisableDotEnv: true}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	cfg := isolate(t)
	t.Setenv("ASN_PREFIX", "ASN")
	t.Setenv("ASN_NAMESPACE_RANGE", "600")

	app, err := Load(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 8080, app.Server.Port)
	assert.Zero(t, app.Server.RateLimit)
	assert.Equal(t, "standalone", app.Server.RateLimitMode)
	assert.Equal(t, kv.DriverSQLite, app.Store.Driver)
	assert.Equal(t, "data", app.Store.DataDir)
	assert.Equal(t, "denokv.sqlite3", app.Store.DBFileName)
	assert.Equal(t, "code128", app.ASN.BarcodeType)
	assert.Equal(t, "asn.issued", app.Audit.Subject)
	assert.Equal(t, "info", app.Log.Level)
	assert.False(t, app.Metrics.Enabled)

	ns := app.Namespace()
	assert.Equal(t, "ASN", ns.Prefix)
	assert.Equal(t, int64(600), ns.Range)
	assert.False(t, ns.Extension)
	assert.Empty(t, ns.Additional)
	assert.NotEmpty(t, app.Notes(), "missing config file should be noted")
}

func TestLoad_EnvTypes(t *testing.T) {
	cfg := isolate(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ASN_PREFIX", "INV")
	t.Setenv("ASN_NAMESPACE_RANGE", "600")
	t.Setenv("ASN_ENABLE_NAMESPACE_EXTENSION", "true")
	t.Setenv("ADDITIONAL_MANAGED_NAMESPACES", "<700 Pre-printed>, <800 Legacy>")
	t.Setenv("ASN_BARCODE_TYPE", "code39")
	t.Setenv("ASN_LOOKUP_URL", "https://example.com/search?q={asn}")
	t.Setenv("ASN_LOOKUP_INCLUDE_PREFIX", "true")
	t.Setenv("ASN_STORE_DRIVER", "etcd")
	t.Setenv("ASN_ETCD_ENDPOINTS", "etcd-a:2379,etcd-b:2379")
	t.Setenv("ASN_RATE_LIMIT", "2.5")
	t.Setenv("ASN_METRICS_ENABLED", "true")

	app, err := Load(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 9090, app.Server.Port)
	assert.InDelta(t, 2.5, app.Server.RateLimit, 1e-9)
	assert.Equal(t, "code39", app.ASN.BarcodeType)
	assert.True(t, app.Lookup.IncludePrefix)
	assert.Equal(t, "etcd", app.Store.Driver)
	assert.Equal(t, []string{"etcd-a:2379", "etcd-b:2379"}, app.Store.EtcdEndpoints)
	assert.True(t, app.Metrics.Enabled)

	ns := app.Namespace()
	assert.True(t, ns.Extension)
	assert.Equal(t, []namespace.AdditionalNamespace{
		{Namespace: 700, Label: "Pre-printed"},
		{Namespace: 800, Label: "Legacy"},
	}, ns.Additional)
}

func TestLoad_FilePriority(t *testing.T) {
	cfg := isolate(t)
	dir := cfg.Paths[0]
	writeFile(t, dir, "asnkeeper.yaml", `
asn:
  prefix: "FILE"
  namespace_range: 600
store:
  driver: "memory"
server:
  port: 7000
`)
	writeFile(t, dir, "asnkeeper.dev.yaml", `
server:
  port: 7001
`)
	t.Setenv("ASN_PREFIX", "ENV")
	t.Setenv(envSelector, "dev")

	app, err := Load(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, "ENV", app.ASN.Prefix, "environment overrides file")
	assert.Equal(t, int64(600), app.ASN.NamespaceRange)
	assert.Equal(t, "memory", app.Store.Driver)
	assert.Equal(t, 7001, app.Server.Port, "environment specific file overrides base file")
}

func TestLoad_DotEnv(t *testing.T) {
	cfg := isolate(t)
	cfg.DisableDotEnv = false
	writeFile(t, cfg.Paths[0], ".env", "ASN_PREFIX=DOT\nASN_NAMESPACE_RANGE=700\n")

	// godotenv 直接写进程环境，先登记以便测试结束后恢复
	t.Setenv("ASN_PREFIX", "")
	require.NoError(t, os.Unsetenv("ASN_PREFIX"))
	t.Setenv("ASN_NAMESPACE_RANGE", "600")

	app, err := Load(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, "DOT", app.ASN.Prefix)
	assert.Equal(t, int64(600), app.ASN.NamespaceRange, ".env must not override the environment")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing prefix", map[string]string{"ASN_NAMESPACE_RANGE": "600"}, "ASN_PREFIX is required"},
		{"missing range", map[string]string{"ASN_PREFIX": "ASN"}, "ASN_NAMESPACE_RANGE is required"},
		{"lower case prefix", map[string]string{"ASN_PREFIX": "asn", "ASN_NAMESPACE_RANGE": "600"}, "prefix"},
		{
			"unknown barcode",
			map[string]string{"ASN_PREFIX": "ASN", "ASN_NAMESPACE_RANGE": "600", "ASN_BARCODE_TYPE": "QR"},
			"ASN_BARCODE_TYPE",
		},
		{
			"lookup url without placeholder",
			map[string]string{"ASN_PREFIX": "ASN", "ASN_NAMESPACE_RANGE": "600", "ASN_LOOKUP_URL": "https://example.com"},
			"ASN_LOOKUP_URL",
		},
		{
			"additional inside generic range",
			map[string]string{"ASN_PREFIX": "ASN", "ASN_NAMESPACE_RANGE": "600", "ADDITIONAL_MANAGED_NAMESPACES": "<500 Old>"},
			"ASN500XXX - Old",
		},
		{
			"niner overlap",
			map[string]string{"ASN_PREFIX": "ASN", "ASN_NAMESPACE_RANGE": "950", "ASN_ENABLE_NAMESPACE_EXTENSION": "true"},
			"leading 9s",
		},
		{
			"negative rate limit",
			map[string]string{"ASN_PREFIX": "ASN", "ASN_NAMESPACE_RANGE": "600", "ASN_RATE_LIMIT": "-1"},
			"ASN_RATE_LIMIT",
		},
		{
			"distributed rate limit without redis",
			map[string]string{"ASN_PREFIX": "ASN", "ASN_NAMESPACE_RANGE": "600", "ASN_RATE_LIMIT_MODE": "distributed"},
			"ASN_REDIS_ADDR",
		},
		{
			"unknown rate limit mode",
			map[string]string{"ASN_PREFIX": "ASN", "ASN_NAMESPACE_RANGE": "600", "ASN_RATE_LIMIT_MODE": "cluster"},
			"ASN_RATE_LIMIT_MODE",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(context.Background(), cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
			assert.True(t, IsInvalidInput(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_BrokenFile(t *testing.T) {
	cfg := isolate(t)
	writeFile(t, cfg.Paths[0], "asnkeeper.yaml", "asn: [unclosed")

	_, err := Load(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrLoad)
}

func TestLoader_Get(t *testing.T) {
	cfg := isolate(t)
	t.Setenv("ASN_PREFIX", "ASN")

	l, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, l.Load(context.Background()))

	assert.Equal(t, "ASN", l.Get("asn.prefix"))

	var store kv.Config
	require.NoError(t, l.UnmarshalKey("store", &store))
	assert.Equal(t, "data", store.DataDir)
}
