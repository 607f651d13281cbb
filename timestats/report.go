package timestats

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
)

// MinReportCount 参与速率估计的命名空间至少需要的签发次数（不含）
const MinReportCount = 3

// Report 多命名空间的统计汇总
type Report struct {
	Stats []Stats `json:"stats"`
	// Rates 按 StandardSigmas 顺序排列
	Rates []Rate `json:"rates"`
}

// Rate 某置信水平下所有合格命名空间中最高的每小时签发量
type Rate struct {
	Sigma      float64 `json:"sigma"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	PerHour    float64 `json:"perHour"`
	// Eligible 为 false 表示没有命名空间的签发次数超过 MinReportCount
	Eligible bool `json:"eligible"`
}

// BuildReport 并发读取各命名空间的统计并汇总。
//
// 每小时速率为 HighestRate（次/毫秒）乘以一小时的毫秒数。
func BuildReport(ctx context.Context, repo *Repository, namespaces []int64) (Report, error) {
	stats := make([]Stats, len(namespaces))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(16)
	for i, ns := range namespaces {
		g.Go(func() error {
			s, err := repo.Get(ctx, ns)
			if err != nil {
				return err
			}
			stats[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report := Report{Stats: stats}
	for _, sigma := range StandardSigmas {
		perHour, eligible := MaxHourlyRate(stats, sigma)
		report.Rates = append(report.Rates, Rate{
			Sigma:      sigma,
			Label:      ConfidenceLabel(sigma),
			Confidence: Confidence(sigma),
			PerHour:    perHour,
			Eligible:   eligible,
		})
	}
	return report, nil
}

// MaxHourlyRate 签发次数超过 MinReportCount 的命名空间中最高的速率
func MaxHourlyRate(stats []Stats, sigma float64) (float64, bool) {
	best := math.Inf(-1)
	for _, s := range stats {
		if s.Count > MinReportCount {
			best = math.Max(best, s.HighestRate(sigma))
		}
	}
	if math.IsInf(best, -1) {
		return 0, false
	}
	return best * float64(time.Hour.Milliseconds()), true
}
