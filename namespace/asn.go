package namespace

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ceyewan/asnkeeper/xerrors"
)

// ASN 解析结果
type ASN struct {
	Prefix    string
	Namespace int64
	Counter   int64
	// Canonical 重新格式化后的规范字符串
	Canonical string
}

func (a ASN) String() string {
	return a.Canonical
}

// IsValidCounter 计数器必须是非负的安全整数
func IsValidCounter(counter int64) bool {
	return counter >= 0 && counter <= MaxSafeInteger
}

// FormatASN 格式化为 前缀 + 命名空间 + 至少 3 位的计数器
func FormatASN(ns, counter int64, cfg Config) (string, error) {
	if !IsValid(ns, cfg) {
		return "", xerrors.Wrapf(ErrInvalidNamespace, "namespace %d", ns)
	}
	if !IsValidCounter(counter) {
		return "", xerrors.Wrapf(ErrInvalidCounter, "counter %d must be a safe integer >= 0", counter)
	}
	return fmt.Sprintf("%s%d%03d", cfg.Prefix, ns, counter), nil
}

// Placeholder 命名空间的占位写法，如 ASN123XXX
func Placeholder(ns int64, cfg Config) string {
	return fmt.Sprintf("%s%dXXX", cfg.Prefix, ns)
}

// IsValidASN 前缀可省略，之后至少需要 D 位命名空间与 3 位计数器
func IsValidASN(s string, cfg Config) bool {
	digits := strings.TrimPrefix(s, cfg.Prefix)
	return len(digits) >= cfg.Width()+3 && allDigits(digits)
}

// ParseASN 解析 ASN 字符串。
//
// 开启扩展时，开头连续的 9 全部归入命名空间，再取 D 位；
// 未开启时 9 只是普通数字。因此同一串数字在两种设置下的拆分结果不同：
//
//	Range=50 开启扩展：ASN90111 -> 命名空间 901，计数器 11
//	Range=50 关闭扩展：ASN90111 -> 命名空间 90， 计数器 111
func ParseASN(s string, cfg Config) (ASN, error) {
	if !IsValidASN(s, cfg) {
		return ASN{}, xerrors.Wrapf(ErrInvalidASN, "%q", s)
	}

	rest := strings.TrimPrefix(s, cfg.Prefix)
	width := cfg.Width()

	nines := 0
	if cfg.Extension {
		nines = len(rest) - len(strings.TrimLeft(rest, "9"))
	}
	if len(rest) <= nines+width {
		return ASN{}, xerrors.Wrapf(ErrInvalidASN, "%q has no counter after namespace", s)
	}

	ns, err := strconv.ParseInt(rest[:nines+width], 10, 64)
	if err != nil {
		return ASN{}, xerrors.Wrapf(ErrInvalidASN, "%q: namespace out of range", s)
	}
	counter, err := strconv.ParseInt(rest[nines+width:], 10, 64)
	if err != nil {
		return ASN{}, xerrors.Wrapf(ErrInvalidASN, "%q: counter out of range", s)
	}

	canonical, err := FormatASN(ns, counter, cfg)
	if err != nil {
		return ASN{}, xerrors.Wrapf(ErrInvalidASN, "%q: %v", s, err)
	}
	return ASN{Prefix: cfg.Prefix, Namespace: ns, Counter: counter, Canonical: canonical}, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
