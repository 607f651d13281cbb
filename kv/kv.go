// Package kv 提供计数器、元数据与统计数据所依赖的事务性键值存储。
//
// 分两层：
//   - Driver：底层原语，只提供带版本的读取和条件提交（Commit），
//     由 memory、sql（SQLite/MySQL）、redis、etcd 四种实现
//   - Store：在 Driver 之上提供 msgpack 编解码与乐观并发事务 Transact
//
// Transact 的语义：
//
//	err := store.Transact(ctx, func(txn *kv.Txn) error {
//		var counter int64
//		if _, err := txn.Get(kv.CounterKey(123), &counter); err != nil {
//			return err
//		}
//		return txn.Set(kv.CounterKey(123), counter+1)
//	})
//
// 事务函数内只做读取与纯计算，它可能被执行多次。提交时校验本次读到的每个 key
// 的版本，任何一个被并发修改都会整体重试；写入要么全部生效，要么全部不生效。
package kv

import (
	"context"

	"github.com/ceyewan/asnkeeper/xerrors"
)

// Entry 带版本的条目，Version 为 0 表示 key 不存在
type Entry struct {
	Key     string
	Value   []byte
	Version uint64
}

// Exists key 是否存在
func (e Entry) Exists() bool {
	return e.Version != 0
}

// Check 提交前置条件：key 当前版本必须等于 Version（0 表示必须不存在）
type Check struct {
	Key     string
	Version uint64
}

// Mutation 写入操作
type Mutation struct {
	Key   string
	Value []byte
}

// Driver 存储驱动
//
// 实现必须保证 Commit 的原子性：所有 Check 通过时全部 Mutation 生效，
// 否则不产生任何修改并返回 (false, nil)。
type Driver interface {
	Name() string
	Get(ctx context.Context, key string) (Entry, error)
	Commit(ctx context.Context, checks []Check, sets []Mutation) (bool, error)
	Close() error
}

var (
	// ErrBusy 存储暂时被锁定（如 SQLite 的 database is locked），短暂等待后重试
	ErrBusy = xerrors.Kind(xerrors.ErrUnavailable, "kv: store busy")
	// ErrConflict 事务回调发现读集已过期，Transact 按版本冲突退避后重跑回调
	ErrConflict = xerrors.Kind(xerrors.ErrConflict, "kv: read set changed")
	// ErrStore 非竞争类的存储错误，不会重试
	ErrStore = xerrors.Kind(xerrors.ErrUnavailable, "kv: store operation failed")
	// ErrClosed 驱动已关闭
	ErrClosed = xerrors.Kind(xerrors.ErrUnavailable, "kv: driver closed")
	// ErrCircuitOpen 熔断器打开，快速失败
	ErrCircuitOpen = xerrors.Kind(xerrors.ErrUnavailable, "kv: circuit breaker open")
	// ErrCorrupt 存储的值无法解码
	ErrCorrupt = xerrors.Kind(xerrors.ErrUnavailable, "kv: corrupt value")
	// ErrRetriesExhausted 冲突重试次数耗尽
	ErrRetriesExhausted = xerrors.Kind(xerrors.ErrRetriesExhausted, "kv: transaction retries exhausted")
	// ErrInvalidConfig 存储配置非法
	ErrInvalidConfig = xerrors.Kind(xerrors.ErrInvalidInput, "kv: invalid config")
)
