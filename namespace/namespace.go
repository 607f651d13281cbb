// Package namespace 实现 ASN 的编码规则：前缀、数字命名空间与计数器。
//
// ASN 由三部分组成：
//
//	ASN   - 1234 - 001
//	前缀  - 命名空间 - 计数器（至少 3 位，超过 999 后继续增长）
//
// 命名空间有两种有效性：
//   - valid：位数与 Range 相同；开启九前缀扩展（Extension）时，先剥离开头连续的 9 再比较位数
//   - managed：位于通用区间 [MinGeneric, MaxGeneric]，或在 Additional 中显式声明
//
// 所有函数都是纯函数，Config 在进程生命周期内不可变，按值传递。
package namespace

import (
	"strconv"
	"strings"

	"github.com/ceyewan/asnkeeper/xerrors"
)

// MaxSafeInteger 可精确表示的最大整数 (2^53 - 1)，与存量 JSON 审计记录保持兼容
const MaxSafeInteger int64 = 1<<53 - 1

var (
	ErrInvalidNamespace = xerrors.Kind(xerrors.ErrInvalidInput, "invalid namespace")
	ErrInvalidCounter   = xerrors.Kind(xerrors.ErrInvalidInput, "invalid counter")
	ErrInvalidASN       = xerrors.Kind(xerrors.ErrInvalidInput, "invalid asn")
	ErrInvalidConfig    = xerrors.Kind(xerrors.ErrInvalidInput, "invalid namespace config")
	ErrInvalidArgument  = xerrors.Kind(xerrors.ErrInvalidInput, "invalid argument")
)

// AdditionalNamespace 通用区间之外显式托管的命名空间
type AdditionalNamespace struct {
	Namespace int64  `json:"namespace" msgpack:"namespace"`
	Label     string `json:"label" msgpack:"label"`
}

// Config 命名空间编码配置
type Config struct {
	// Prefix 部署前缀，仅大写字母，首次使用后不可更改
	Prefix string `json:"prefix"`
	// Range 通用命名空间为 [10^(D-1), Range-1]，D 为 Range 的位数
	Range int64 `json:"range"`
	// Extension 是否允许用前导 9 扩展命名空间位数
	Extension bool `json:"extension"`
	// Additional 按声明顺序保存
	Additional []AdditionalNamespace `json:"additional"`
}

// Digits 返回非负整数的十进制位数
func Digits(n int64) int {
	return len(strconv.FormatInt(n, 10))
}

// Width 通用命名空间的位数 D
func (c Config) Width() int {
	return Digits(c.Range)
}

// MinGeneric 与 Range 位数相同的最小整数
func MinGeneric(cfg Config) int64 {
	min := int64(1)
	for i := 1; i < cfg.Width(); i++ {
		min *= 10
	}
	return min
}

// MaxGeneric 通用区间上界 Range-1
func MaxGeneric(cfg Config) int64 {
	return cfg.Range - 1
}

// IsValid 判断命名空间在当前配置下是否语法合法
func IsValid(n int64, cfg Config) bool {
	if n < 0 || n > MaxSafeInteger || n < MinGeneric(cfg) {
		return false
	}
	s := strconv.FormatInt(n, 10)
	if cfg.Extension {
		s = strings.TrimLeft(s, "9")
	}
	return len(s) == cfg.Width()
}

// IsManaged 判断命名空间是否由系统托管
func IsManaged(n int64, cfg Config) bool {
	if n < MinGeneric(cfg) {
		return false
	}
	if n <= MaxGeneric(cfg) {
		return true
	}
	for _, a := range cfg.Additional {
		if a.Namespace == n {
			return true
		}
	}
	return false
}

// IsValidAdditional 额外托管的命名空间必须合法且不与通用区间重叠
func IsValidAdditional(n int64, cfg Config) bool {
	return IsValid(n, cfg) && n >= cfg.Range
}

// AllManaged 返回所有托管命名空间：先通用区间（含上界），再按声明顺序追加额外命名空间
func AllManaged(cfg Config) []int64 {
	min, max := MinGeneric(cfg), MaxGeneric(cfg)
	out := make([]int64, 0, max-min+1+int64(len(cfg.Additional)))
	for n := min; n <= max; n++ {
		out = append(out, n)
	}
	for _, a := range cfg.Additional {
		out = append(out, a.Namespace)
	}
	return out
}

// Label 返回额外命名空间的标签，通用命名空间返回空串
func Label(n int64, cfg Config) string {
	for _, a := range cfg.Additional {
		if a.Namespace == n {
			return a.Label
		}
	}
	return ""
}

// NthNinerExtensionRange 返回恰好带 n 个前导 9 的命名空间闭区间。
//
// n=1 时为 [9 后接 D 个 0, 98 后接 D-1 个 9]，之后每级在两端再前置一个 9。
// 仅用于格式说明，不参与分配。
func NthNinerExtensionRange(n int, baseRange int64) (int64, int64, error) {
	if n < 1 {
		return 0, 0, xerrors.Wrapf(ErrInvalidArgument, "n must be at least 1, got %d", n)
	}
	if baseRange < 1 {
		return 0, 0, xerrors.Wrapf(ErrInvalidArgument, "base range must be positive, got %d", baseRange)
	}

	d := Digits(baseRange)
	lo := "9" + strings.Repeat("0", d)
	hi := "98" + strings.Repeat("9", d-1)
	for i := 1; i < n; i++ {
		lo, hi = "9"+lo, "9"+hi
	}

	min, err := strconv.ParseInt(lo, 10, 64)
	if err != nil {
		return 0, 0, xerrors.Wrapf(ErrInvalidArgument, "niner range %d overflows", n)
	}
	max, err := strconv.ParseInt(hi, 10, 64)
	if err != nil {
		return 0, 0, xerrors.Wrapf(ErrInvalidArgument, "niner range %d overflows", n)
	}
	return min, max, nil
}
