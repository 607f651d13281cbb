package config

import "github.com/ceyewan/asnkeeper/xerrors"

var (
	// ErrInvalidConfig 配置值非法
	ErrInvalidConfig = xerrors.Kind(xerrors.ErrInvalidInput, "invalid configuration")
	// ErrLoad 配置文件存在但无法读取或解析
	ErrLoad = xerrors.Kind(xerrors.ErrUnavailable, "failed to load configuration")
)

// IsInvalidInput 检查错误是否为配置格式无效或验证失败
func IsInvalidInput(err error) bool {
	return xerrors.Is(err, xerrors.ErrInvalidInput)
}
