package connector

import "github.com/ceyewan/asnkeeper/xerrors"

// 连接器哨兵错误
var (
	ErrConfig      = xerrors.Kind(xerrors.ErrInvalidInput, "connector: invalid config")
	ErrConnection  = xerrors.Kind(xerrors.ErrUnavailable, "connector: connection failed")
	ErrClientNil   = xerrors.Kind(xerrors.ErrUnavailable, "connector: client not initialized")
	ErrHealthCheck = xerrors.Kind(xerrors.ErrUnavailable, "connector: health check failed")
)
