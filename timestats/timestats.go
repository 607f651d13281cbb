// Package timestats 增量维护每个命名空间的签发间隔统计。
//
// 每签发一个 ASN，就把与上一次签发的时间差（毫秒）折叠进统计量，
// 存储开销固定为每个命名空间一条记录。统计结果用于估算备份恢复后需要
// bump 的计数器增量。
//
// Stats 是值类型，WithNewTimestamp 返回新值而不修改原值。
package timestats

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// seedOffset 空统计的虚拟上次签发时间，距今 10 秒
const seedOffset = 10 * time.Second

// Stats 签发间隔统计，时间单位均为毫秒。
//
// Min 由首个样本确定。旧版本写入的记录以 0 为初值比较，其 Min 始终为 0。
type Stats struct {
	Namespace               int64   `json:"namespace" msgpack:"namespace"`
	LastRegisteredTimestamp int64   `json:"lastRegisteredTimestamp" msgpack:"lastRegisteredTimestamp"`
	Count                   int64   `json:"count" msgpack:"count"`
	Total                   float64 `json:"total" msgpack:"total"`
	Min                     float64 `json:"min" msgpack:"min"`
	Max                     float64 `json:"max" msgpack:"max"`
	Avg                     float64 `json:"avg" msgpack:"avg"`
	Variance                float64 `json:"variance" msgpack:"variance"`
	SD                      float64 `json:"sd" msgpack:"sd"`
}

// Empty 尚无签发记录的统计，上次签发时间取 now 之前 10 秒
func Empty(ns int64, now time.Time) Stats {
	return Stats{
		Namespace:               ns,
		LastRegisteredTimestamp: now.Add(-seedOffset).UnixMilli(),
	}
}

// WithNewTimestamp 折叠一次新的签发。
//
// 方差为总体方差，增量公式：
//
//	n == 0: 0
//	n == 1: ((avg - avg') ² + (diff - avg') ²) / 2
//	n >= 2: (variance·n + (diff - avg')·(diff - avg)) / (n+1)
func (s Stats) WithNewTimestamp(tsMillis int64) Stats {
	diff := float64(tsMillis - s.LastRegisteredTimestamp)
	count := s.Count + 1
	total := s.Total + diff
	avg := total / float64(count)

	var variance float64
	switch s.Count {
	case 0:
		variance = 0
	case 1:
		variance = (math.Pow(s.Avg-avg, 2) + math.Pow(diff-avg, 2)) / 2
	default:
		variance = (s.Variance*float64(s.Count) + (diff-avg)*(diff-s.Avg)) / float64(count)
	}

	// 首个样本同时确定最小值与最大值
	lo, hi := diff, diff
	if s.Count > 0 {
		lo = math.Min(s.Min, diff)
		hi = math.Max(s.Max, diff)
	}

	return Stats{
		Namespace:               s.Namespace,
		LastRegisteredTimestamp: tsMillis,
		Count:                   count,
		Total:                   total,
		Min:                     lo,
		Max:                     hi,
		Avg:                     avg,
		Variance:                variance,
		SD:                      math.Sqrt(variance),
	}
}

// HighestRate 在 sigma 置信水平下预期的最高签发速率（次/毫秒）。
//
// 这是一个启发式估计：假设间隔近似正态分布，把速率 1/avg 加上 sigma/sd。
// 它不是严格的统计上界，只用于给出 bump 增量的参考值。
func (s Stats) HighestRate(sigma float64) float64 {
	if s.Avg == 0 {
		return 0
	}
	if s.SD == 0 {
		return 1 / s.Avg
	}
	return 1/s.Avg + sigma/s.SD
}

func (s Stats) String() string {
	return FormatSignificant(s.Avg, 5) + " +/- " + FormatSignificant(2*s.SD, 5) +
		" ms between registrations (" + strconv.FormatInt(s.Count, 10) + " numbers registered)"
}

// FormatSignificant 按有效数字格式化，保留尾随零：
//
//	5000     -> "5000.0"
//	3333.33  -> "3333.3"
//	123456   -> "1.2346e+5"
func FormatSignificant(x float64, digits int) string {
	if digits < 1 {
		digits = 1
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	if x == 0 {
		if digits == 1 {
			return "0"
		}
		return "0." + strings.Repeat("0", digits-1)
	}

	sci := strconv.FormatFloat(x, 'e', digits-1, 64)
	mantissa, expPart, _ := strings.Cut(sci, "e")
	exp, _ := strconv.Atoi(expPart)

	if exp < -6 || exp >= digits {
		sign := "+"
		if exp < 0 {
			sign, exp = "-", -exp
		}
		return mantissa + "e" + sign + strconv.Itoa(exp)
	}
	return strconv.FormatFloat(x, 'f', max(digits-1-exp, 0), 64)
}
