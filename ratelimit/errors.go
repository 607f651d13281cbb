package ratelimit

import "github.com/ceyewan/asnkeeper/xerrors"

var (
	ErrInvalidConfig = xerrors.Kind(xerrors.ErrInvalidInput, "ratelimit: invalid config")
	ErrConnectorNil  = xerrors.Kind(xerrors.ErrInvalidInput, "ratelimit: connector is nil")
	ErrKeyEmpty      = xerrors.Kind(xerrors.ErrInvalidInput, "ratelimit: key is empty")
	ErrInvalidLimit  = xerrors.Kind(xerrors.ErrInvalidInput, "ratelimit: invalid limit")
)
