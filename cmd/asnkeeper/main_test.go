package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/asnkeeper/asn"
	"github.com/ceyewan/asnkeeper/config"
	"github.com/ceyewan/asnkeeper/namespace"
)

type result struct {
	code   int
	stdout string
	stderr string
}

type harness struct {
	t   *testing.T
	dir string
}

// newHarness 每个测试独立的 SQLite 数据目录，多次调用共享同一份数据
func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ASN_ENV", "")
	t.Setenv("ASN_PREFIX", "ASN")
	t.Setenv("ASN_NAMESPACE_RANGE", "50")
	t.Setenv("ADDITIONAL_MANAGED_NAMESPACES", "<60 Pre-printed>")
	t.Setenv("ASN_STORE_DRIVER", "sqlite")
	t.Setenv("DATA_DIR", dir)
	t.Setenv("ASN_LOG_LEVEL", "error")
	return &harness{t: t, dir: dir}
}

func (h *harness) run(args ...string) result {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	c := newCLI(&stdout, &stderr)
	c.loader = config.Config{Paths: []string{h.dir}, DisableDotEnv: true}
	code := c.run(context.Background(), args)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestHelp(t *testing.T) {
	h := newHarness(t)

	for _, args := range [][]string{{"help"}, {"--help"}, {"generate", "--help"}, {"bump", "-h"}} {
		res := h.run(args...)
		assert.Equal(t, 0, res.code, args)
		assert.True(t, strings.HasPrefix(res.stdout, "Usage: asnkeeper"), args)
	}

	res := h.run("frobnicate")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, `unknown command "frobnicate"`)
}

func TestGenerate(t *testing.T) {
	h := newHarness(t)
	cfg := namespace.Config{Prefix: "ASN", Range: 50}

	res := h.run("generate", "--count", "3")
	require.Equal(t, 0, res.code, res.stderr)

	asns := lines(res.stdout)
	require.Len(t, asns, 3)
	seen := map[string]bool{}
	for _, s := range asns {
		assert.True(t, namespace.IsValidASN(s, cfg), s)
		assert.False(t, seen[s], "duplicate %s", s)
		seen[s] = true
	}

	// 每个 ASN 在 DATA_DIR 下都有一份审计文件
	sink := asn.NewFileSink(h.dir)
	for _, s := range asns {
		parsed, err := namespace.ParseASN(s, cfg)
		require.NoError(t, err)
		assert.FileExists(t, sink.Path(parsed.Namespace, parsed.Counter))
	}

	res = h.run("generate", "--count", "0")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "--count must be at least 1")
}

func TestFormat(t *testing.T) {
	h := newHarness(t)

	res := h.run("format")
	require.Equal(t, 0, res.code, res.stderr)

	cfg := namespace.Config{
		Prefix:     "ASN",
		Range:      50,
		Additional: []namespace.AdditionalNamespace{{Namespace: 60, Label: "Pre-printed"}},
	}
	assert.Equal(t, namespace.FormatDescription(cfg)+"\n", res.stdout)
}

func TestBump(t *testing.T) {
	h := newHarness(t)

	t.Run("单个命名空间", func(t *testing.T) {
		res := h.run("bump", "100", "--namespace", "10", "--by", "alice", "--reason", "restore")
		require.Equal(t, 0, res.code, res.stderr)
		assert.Equal(t, []string{
			"Bumping namespaces: ASN10XXX",
			"---",
			"Bumped ASN10XXX. Next registered ASN will be ASN10101.",
			"---",
			"Done.",
		}, lines(res.stdout))

		res = h.run("bump", "5", "--namespace", "10")
		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, "Next registered ASN will be ASN10106.")
	})

	t.Run("全部托管命名空间", func(t *testing.T) {
		res := h.run("bump", "1")
		require.Equal(t, 0, res.code, res.stderr)
		out := lines(res.stdout)
		assert.True(t, strings.HasPrefix(out[0], "Bumping namespaces: ASN10XXX, ASN11XXX"))
		assert.True(t, strings.HasSuffix(out[0], "ASN49XXX, ASN60XXX"))
		assert.Contains(t, res.stdout, "Bumped ASN10XXX. Next registered ASN will be ASN10107.")
		assert.Contains(t, res.stdout, "Bumped ASN60XXX. Next registered ASN will be ASN60002.")
		assert.Equal(t, "Done.", out[len(out)-1])
	})

	t.Run("未托管命名空间", func(t *testing.T) {
		res := h.run("bump", "10", "--namespace", "70")
		assert.Equal(t, 1, res.code)
		assert.Empty(t, res.stdout)
		out := lines(res.stderr)
		require.Len(t, out, 3)
		assert.Equal(t, "Namespace 70 (ASN70XXX) is not managed by the system.", out[0])
		assert.Equal(t, "It therefore cannot be bumped.", out[1])
		assert.True(t, strings.HasPrefix(out[2], "Managed namespace numbers are: 10, 11, 12"))
		assert.True(t, strings.HasSuffix(out[2], "48, 49, 60"))
	})

	t.Run("非法增量", func(t *testing.T) {
		for _, args := range [][]string{{"bump"}, {"bump", "0"}, {"bump", "-3"}, {"bump", "1.5"}, {"bump", "1", "2"}} {
			res := h.run(args...)
			assert.Equal(t, 1, res.code, args)
			assert.Contains(t, res.stderr, "error:", args)
		}
	})
}

func TestStats(t *testing.T) {
	h := newHarness(t)

	t.Run("数据不足", func(t *testing.T) {
		res := h.run("stats", "--namespace", "10")
		require.Equal(t, 0, res.code, res.stderr)
		out := lines(res.stdout)
		assert.Equal(t, []string{
			"Calculating statistics...",
			"Depending on the number of namespaces, this may take a while.",
			"---",
		}, out[:3])
		assert.True(t, strings.HasPrefix(out[3], "ASN10XXX: "))
		assert.Contains(t, res.stdout, "Filtered to only include namespaces with more than 3 ASN numbers.")
		assert.Contains(t, res.stdout, "Not enough data yet")
		assert.Equal(t, "Done.", out[len(out)-1])
	})

	// 每次调用在退出前等待统计写入完成
	for range 5 {
		require.Equal(t, 0, h.run("bump", "1", "--namespace", "10").code)
	}

	t.Run("最高速率与推荐增量", func(t *testing.T) {
		res := h.run("stats", "--since", "24h")
		require.Equal(t, 0, res.code, res.stderr)
		assert.Contains(t, res.stdout, "(5 numbers registered)")
		assert.Contains(t, res.stdout, "1σ (68.27 %): ")
		assert.Contains(t, res.stdout, "6σ (99.99 %): ")
		assert.Contains(t, res.stdout, "registered ASN numbers per namespace per hour")
		assert.Contains(t, res.stdout, "bump each namespace by the 3σ rate above multiplied by 24.")
		assert.Contains(t, res.stdout, "Suggested bump delta for a backup 24h0m0s old at 3σ (99.73 %): ")
		assert.NotContains(t, res.stdout, "Not enough data")
	})

	t.Run("非法参数", func(t *testing.T) {
		assert.Equal(t, 1, h.run("stats", "--namespace", "5").code)
		assert.Equal(t, 1, h.run("stats", "--sigma", "0").code)
	})
}

func TestConfigDrift(t *testing.T) {
	h := newHarness(t)
	t.Setenv("ADDITIONAL_MANAGED_NAMESPACES", "")
	require.Equal(t, 0, h.run("generate").code)

	t.Setenv("ASN_PREFIX", "PN")
	res := h.run("generate")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "ASN_PREFIX changed")
	assert.Empty(t, res.stdout)

	t.Setenv("ASN_PREFIX", "ASN")
	t.Setenv("ASN_NAMESPACE_RANGE", "500")
	res = h.run("generate")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "ASN_NAMESPACE_RANGE changed")

	// 位数不变的扩容是允许的
	t.Setenv("ASN_NAMESPACE_RANGE", "80")
	assert.Equal(t, 0, h.run("generate").code)
}

func TestBootstrap(t *testing.T) {
	newHarness(t)
	var stdout, stderr bytes.Buffer
	c := newCLI(&stdout, &stderr)
	c.loader = config.Config{Paths: []string{t.TempDir()}, DisableDotEnv: true}

	a, err := c.bootstrap(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	assert.NoError(t, a.healthCheck(context.Background()))

	limiter, err := a.limiter(context.Background())
	require.NoError(t, err)
	assert.Nil(t, limiter)

	a.cfg.Server.RateLimit = 5
	limiter, err = a.limiter(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, limiter)
}
