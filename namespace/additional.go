package namespace

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ceyewan/asnkeeper/xerrors"
)

var (
	additionalItemPattern  = regexp.MustCompile(`<\d+ .+?>[, ]*`)
	additionalFieldPattern = regexp.MustCompile(`^<(\d+) (.+)>[, ]*$`)
)

// ParseAdditional 解析环境变量中的额外命名空间列表，格式为 "<500 Label><600 Other>"。
//
// 条目之间允许逗号和空格，无法识别的片段会被忽略。
func ParseAdditional(s string) ([]AdditionalNamespace, error) {
	items := additionalItemPattern.FindAllString(s, -1)
	out := make([]AdditionalNamespace, 0, len(items))
	for _, item := range items {
		m := additionalFieldPattern.FindStringSubmatch(item)
		if m == nil {
			continue
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || n > MaxSafeInteger {
			return nil, xerrors.Wrapf(ErrInvalidNamespace, "additional namespace %q", m[1])
		}
		out = append(out, AdditionalNamespace{Namespace: n, Label: m[2]})
	}
	return out, nil
}

// FormatAdditional ParseAdditional 的逆操作
func FormatAdditional(list []AdditionalNamespace) string {
	var b strings.Builder
	for _, a := range list {
		fmt.Fprintf(&b, "<%d %s>", a.Namespace, a.Label)
	}
	return b.String()
}
