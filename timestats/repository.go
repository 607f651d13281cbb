package timestats

import (
	"context"
	"time"

	"github.com/ceyewan/asnkeeper/kv"
)

// Repository 统计数据的持久化，key 为 kv.StatsKey(ns)
type Repository struct {
	store *kv.Store
	now   func() time.Time
}

// RepositoryOption Repository 选项
type RepositoryOption func(*Repository)

// WithClock 替换时钟，测试中用于固定空统计的种子时间
func WithClock(now func() time.Time) RepositoryOption {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRepository 创建统计仓库
func NewRepository(store *kv.Store, opts ...RepositoryOption) *Repository {
	r := &Repository{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get 读取命名空间的统计，不存在时返回空统计
func (r *Repository) Get(ctx context.Context, ns int64) (Stats, error) {
	var s Stats
	found, err := r.store.Get(ctx, kv.StatsKey(ns), &s)
	if err != nil {
		return Stats{}, err
	}
	if !found {
		return Empty(ns, r.now()), nil
	}
	return s, nil
}

// AddTimestamp 在事务中折叠一次签发。
//
// 并发签发的折叠顺序不确定，早于上次签发的时间戳按间隔 0 计入，
// 不会产生负的间隔。
func (r *Repository) AddTimestamp(ctx context.Context, ns int64, tsMillis int64) error {
	return r.store.Transact(ctx, func(txn *kv.Txn) error {
		var s Stats
		found, err := txn.Get(kv.StatsKey(ns), &s)
		if err != nil {
			return err
		}
		if !found {
			s = Empty(ns, r.now())
		}
		return txn.Set(kv.StatsKey(ns), s.WithNewTimestamp(max(tsMillis, s.LastRegisteredTimestamp)))
	})
}
