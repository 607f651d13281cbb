package timestats

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.UnixMilli(1_700_000_000_000)

// fold 从空统计开始，在 epoch 处连续折叠 n 次
func fold(n int) Stats {
	s := Empty(1, epoch)
	for i := 0; i < n; i++ {
		s = s.WithNewTimestamp(epoch.UnixMilli())
	}
	return s
}

func TestEmpty(t *testing.T) {
	s := Empty(42, epoch)
	assert.Equal(t, int64(42), s.Namespace)
	assert.Equal(t, epoch.UnixMilli()-10000, s.LastRegisteredTimestamp)
	assert.Zero(t, s.Count)
	assert.Zero(t, s.Avg)
	assert.Zero(t, s.SD)
}

func TestWithNewTimestamp_KnownValues(t *testing.T) {
	tests := []struct {
		folds int
		avg   float64
		sd    float64
	}{
		{1, 10000, 0},
		{2, 5000, 5000},
		{3, 3333.333, 4714.045},
		{10, 1000, 3000},
	}
	for _, tt := range tests {
		s := fold(tt.folds)
		assert.Equal(t, int64(tt.folds), s.Count)
		assert.InDelta(t, tt.avg, s.Avg, 0.01, "avg after %d folds", tt.folds)
		assert.InDelta(t, tt.sd, s.SD, 0.01, "sd after %d folds", tt.folds)
		assert.Equal(t, epoch.UnixMilli(), s.LastRegisteredTimestamp)
	}

	s := fold(3)
	assert.Equal(t, float64(0), s.Min)
	assert.Equal(t, float64(10000), s.Max)
}

func TestWithNewTimestamp_DoesNotMutate(t *testing.T) {
	s := fold(2)
	before := s
	_ = s.WithNewTimestamp(epoch.UnixMilli() + 500)
	assert.Equal(t, before, s)
}

func TestWithNewTimestamp_FirstSampleSetsMin(t *testing.T) {
	s := Empty(1, epoch).WithNewTimestamp(epoch.UnixMilli())
	assert.Equal(t, float64(10000), s.Min)
	assert.Equal(t, float64(10000), s.Max)
}

// 增量结果必须与一次性计算的总体统计一致
func TestWithNewTimestamp_MatchesBatch(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	s := Empty(1, epoch)
	ts := epoch.UnixMilli()

	diffs := make(stats.Float64Data, 0, 200)
	// 第一个间隔是与种子时间的 10 秒
	diffs = append(diffs, 10000)
	s = s.WithNewTimestamp(ts)
	for i := 0; i < 199; i++ {
		d := rng.Int64N(5000) + 1
		ts += d
		diffs = append(diffs, float64(d))
		s = s.WithNewTimestamp(ts)
	}

	mean, err := stats.Mean(diffs)
	require.NoError(t, err)
	variance, err := stats.PopulationVariance(diffs)
	require.NoError(t, err)
	sd, err := stats.StandardDeviationPopulation(diffs)
	require.NoError(t, err)
	lo, err := stats.Min(diffs)
	require.NoError(t, err)
	hi, err := stats.Max(diffs)
	require.NoError(t, err)

	assert.Equal(t, int64(len(diffs)), s.Count)
	assert.InDelta(t, mean, s.Avg, 1e-6)
	assert.InEpsilon(t, variance, s.Variance, 1e-9)
	assert.InEpsilon(t, sd, s.SD, 1e-9)
	assert.Equal(t, lo, s.Min)
	assert.Equal(t, hi, s.Max)
}

func TestHighestRate(t *testing.T) {
	assert.Zero(t, Stats{}.HighestRate(3))
	assert.InDelta(t, 1.0/200, Stats{Avg: 200}.HighestRate(3), 1e-12)
	assert.InDelta(t, 1.0/200+3.0/50, Stats{Avg: 200, SD: 50}.HighestRate(3), 1e-12)
}

func TestString(t *testing.T) {
	assert.Equal(t, "10000 +/- 0.0000 ms between registrations (1 numbers registered)", fold(1).String())
	assert.Equal(t, "5000.0 +/- 10000 ms between registrations (2 numbers registered)", fold(2).String())
}

func TestFormatSignificant(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.0000"},
		{5000, "5000.0"},
		{10000, "10000"},
		{3333.3333, "3333.3"},
		{9999.96, "10000"},
		{123456, "1.2346e+5"},
		{0.5, "0.50000"},
		{-42.125, "-42.125"},
		{0.0000001234, "1.2340e-7"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSignificant(tt.in, 5), "%v", tt.in)
	}
}

func TestConfidence(t *testing.T) {
	assert.InDelta(t, 0.6827, Confidence(1), 1e-4)
	assert.InDelta(t, 0.9545, Confidence(2), 1e-4)
	assert.InDelta(t, 0.9973, Confidence(3), 1e-4)
	assert.Zero(t, Confidence(0))

	assert.Equal(t, "1σ (68.27 %)", ConfidenceLabel(1))
	assert.Equal(t, "2σ (95.45 %)", ConfidenceLabel(2))
	assert.Equal(t, "3σ (99.73 %)", ConfidenceLabel(3))
	assert.Equal(t, "6σ (99.99 %)", ConfidenceLabel(6))
}
