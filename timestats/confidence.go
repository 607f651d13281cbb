package timestats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// StandardSigmas 报表中使用的置信水平
var StandardSigmas = []float64{1, 2, 3, 6}

// Confidence 正态分布下 ±sigma 区间的覆盖概率 2Φ(σ)-1
func Confidence(sigma float64) float64 {
	if sigma <= 0 {
		return 0
	}
	return 2*distuv.UnitNormal.CDF(sigma) - 1
}

// ConfidenceLabel 形如 "3σ (99.73 %)"，百分比最多显示到 99.99
func ConfidenceLabel(sigma float64) string {
	pct := math.Round(Confidence(sigma)*10000) / 100
	pct = math.Min(pct, 99.99)
	return fmt.Sprintf("%gσ (%.2f %%)", sigma, pct)
}
