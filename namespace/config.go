package namespace

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ceyewan/asnkeeper/xerrors"
)

var prefixPattern = regexp.MustCompile(`^[A-Z]{1,10}$`)

// Validate 校验前缀、范围以及额外命名空间
func (c Config) Validate() error {
	if !prefixPattern.MatchString(c.Prefix) {
		return xerrors.Wrapf(ErrInvalidConfig, "prefix %q must be 1-10 upper case letters", c.Prefix)
	}
	if c.Range < 1 || c.Range > MaxSafeInteger {
		return xerrors.Wrapf(ErrInvalidConfig, "namespace range %d must be a positive safe integer", c.Range)
	}
	// 10 的整数次幂会让通用区间 [MinGeneric, Range-1] 为空
	if c.Range <= MinGeneric(c) {
		return xerrors.Wrapf(ErrInvalidConfig, "namespace range %d leaves no generic namespace", c.Range)
	}
	// 通用区间若包含 9 开头的命名空间，会与扩展命名空间混淆
	if c.Extension && strings.HasPrefix(strconv.FormatInt(MaxGeneric(c), 10), "9") {
		return xerrors.Wrapf(ErrInvalidConfig,
			"namespace range %d includes namespaces with leading 9s, which is not allowed with the namespace extension enabled", c.Range)
	}

	var invalid []string
	seen := make(map[int64]struct{}, len(c.Additional))
	for _, a := range c.Additional {
		if _, dup := seen[a.Namespace]; dup || !IsValidAdditional(a.Namespace, c) {
			invalid = append(invalid, fmt.Sprintf("%s - %s", Placeholder(a.Namespace, c), a.Label))
		}
		seen[a.Namespace] = struct{}{}
	}
	if len(invalid) > 0 {
		return xerrors.Wrapf(ErrInvalidConfig, "invalid additional managed namespaces: %s", strings.Join(invalid, ", "))
	}
	return nil
}
