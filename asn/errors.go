package asn

import "github.com/ceyewan/asnkeeper/xerrors"

var (
	// ErrInvalidDelta 计数器增量必须为正整数
	ErrInvalidDelta = xerrors.Kind(xerrors.ErrInvalidInput, "asn: delta counter must be at least 1")
	// ErrInvalidNamespace 显式指定的命名空间不合法
	ErrInvalidNamespace = xerrors.Kind(xerrors.ErrInvalidInput, "asn: invalid namespace")
	// ErrUnmanagedNamespace 命名空间不属于当前配置管理的范围
	ErrUnmanagedNamespace = xerrors.Kind(xerrors.ErrInvalidInput, "asn: namespace is not managed")
	// ErrCounterOverflow 计数器超出安全整数范围
	ErrCounterOverflow = xerrors.Kind(xerrors.ErrInvalidInput, "asn: counter exceeds safe integer range")
	// ErrAlreadyIssued 目标计数器已存在元数据记录，拒绝覆盖
	ErrAlreadyIssued = xerrors.Kind(xerrors.ErrConflict, "asn: metadata record already exists")
	// ErrNotFound ASN 从未签发
	ErrNotFound = xerrors.Kind(xerrors.ErrNotFound, "asn: not issued")
	// ErrConfigDrift 配置与持久化基线不兼容
	ErrConfigDrift = xerrors.Kind(xerrors.ErrConfigDrift, "asn: configuration drift")
)
