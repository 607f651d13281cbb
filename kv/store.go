package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ceyewan/asnkeeper/clog"
	"github.com/ceyewan/asnkeeper/metrics"
	"github.com/ceyewan/asnkeeper/xerrors"
)

// 事务提交结果
const (
	resultCommitted = "committed"
	resultConflict  = "conflict"
	resultBusy      = "busy"
	resultError     = "error"
)

// Store 带编解码与乐观事务的存储
type Store struct {
	driver  Driver
	retry   RetryConfig
	logger  clog.Logger
	closers []func() error

	attempts metrics.Counter
	duration metrics.Histogram
}

// NewStore 在驱动之上创建 Store，Store.Close 会关闭驱动
func NewStore(driver Driver, opts ...Option) *Store {
	o := applyOptions(opts)
	s := &Store{
		driver: driver,
		retry:  *o.retry,
		logger: o.logger.With(clog.String("driver", driver.Name())),
	}

	var err error
	if s.attempts, err = o.meter.Counter("kv_commit_attempts_total", "Total number of conditional commit attempts."); err != nil {
		s.attempts, _ = metrics.Discard().Counter("", "")
	}
	if s.duration, err = o.meter.Histogram("kv_transaction_duration_seconds", "Duration of kv transactions including retries.",
		metrics.WithUnit("s")); err != nil {
		s.duration, _ = metrics.Discard().Histogram("", "")
	}
	return s
}

// Driver 返回底层驱动
func (s *Store) Driver() Driver {
	return s.driver
}

// Close 关闭驱动，再按 LIFO 顺序释放 Open 创建的连接
func (s *Store) Close() error {
	errs := []error{s.driver.Close()}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return xerrors.Combine(errs...)
}

// Get 事务外的一次性读取，found 为 false 时 v 保持不变
func (s *Store) Get(ctx context.Context, key string, v any) (bool, error) {
	e, err := s.driver.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: get %s: %w", ErrStore, key, err)
	}
	if !e.Exists() {
		return false, nil
	}
	return true, decode(key, e.Value, v)
}

// Transact 执行乐观并发事务。
//
// fn 内的每次 Get 都从存储新鲜读取，并记录版本作为提交条件。
// 版本冲突或 fn 返回 ErrConflict 时按指数退避重试，
// 存储繁忙时固定等待 BusyDelay 后重试，其余错误直接返回。
func (s *Store) Transact(ctx context.Context, fn func(txn *Txn) error) error {
	start := time.Now()
	outcome := metrics.OutcomeError
	defer func() {
		s.duration.Record(ctx, time.Since(start).Seconds(),
			metrics.L(metrics.LabelDriver, s.driver.Name()), metrics.L(metrics.LabelOutcome, outcome))
	}()

	backoff := s.retry.InitialBackoff
	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return xerrors.Wrap(err, "kv transaction")
		}

		txn := &Txn{ctx: ctx, driver: s.driver, reads: make(map[string]uint64), writes: make(map[string][]byte)}
		err := fn(txn)
		if err == nil {
			if len(txn.writeOrder) == 0 {
				outcome = metrics.OutcomeSuccess
				return nil
			}
			var ok bool
			ok, err = s.driver.Commit(ctx, txn.checks(), txn.mutations())
			switch {
			case err == nil && ok:
				s.observe(resultCommitted)
				outcome = metrics.OutcomeSuccess
				return nil
			case err == nil:
				err = ErrConflict
			case !errors.Is(err, ErrBusy):
				s.observe(resultError)
				return fmt.Errorf("%w: commit: %w", ErrStore, err)
			}
		}

		switch {
		case errors.Is(err, ErrConflict):
			s.observe(resultConflict)
			s.logger.Debug("transaction conflict, retrying",
				clog.Int("attempt", attempt), clog.Duration("backoff", backoff))
			if err := sleep(ctx, jitter(backoff)); err != nil {
				return xerrors.Wrap(err, "kv transaction")
			}
			backoff = s.retry.next(backoff)
		case errors.Is(err, ErrBusy):
			s.observe(resultBusy)
			s.logger.Debug("store busy, retrying", clog.Int("attempt", attempt), clog.Error(err))
			if err := sleep(ctx, s.retry.BusyDelay); err != nil {
				return xerrors.Wrap(err, "kv transaction")
			}
		default:
			return err
		}
	}

	s.logger.Warn("transaction retries exhausted", clog.Int("max_attempts", s.retry.MaxAttempts))
	return xerrors.Wrapf(ErrRetriesExhausted, "after %d attempts", s.retry.MaxAttempts)
}

func (s *Store) observe(result string) {
	s.attempts.Inc(context.Background(),
		metrics.L(metrics.LabelDriver, s.driver.Name()), metrics.L(metrics.LabelResult, result))
}

// Txn 一次事务尝试中的读写集合，只在 Transact 的回调内有效
type Txn struct {
	ctx    context.Context
	driver Driver

	reads     map[string]uint64
	readOrder []string

	writes     map[string][]byte
	writeOrder []string
}

// Context 返回事务所属的 context
func (t *Txn) Context() context.Context {
	return t.ctx
}

// Get 读取 key 并记录其版本。同一事务内已 Set 的 key 返回待写入的值
func (t *Txn) Get(key string, v any) (bool, error) {
	if raw, ok := t.writes[key]; ok {
		return true, decode(key, raw, v)
	}

	e, err := t.driver.Get(t.ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: get %s: %w", ErrStore, key, err)
	}
	if _, seen := t.reads[key]; !seen {
		t.readOrder = append(t.readOrder, key)
	}
	t.reads[key] = e.Version
	if !e.Exists() {
		return false, nil
	}
	return true, decode(key, e.Value, v)
}

// Changed 重新读取 key 的当前版本，与本次事务首次读到的版本比较。
// 未在事务内读取过的 key 返回 false
func (t *Txn) Changed(key string) (bool, error) {
	seen, ok := t.reads[key]
	if !ok {
		return false, nil
	}
	e, err := t.driver.Get(t.ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: get %s: %w", ErrStore, key, err)
	}
	return e.Version != seen, nil
}

// Set 缓存一次写入，提交时与所有读取的版本校验一并生效
func (t *Txn) Set(key string, v any) error {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return xerrors.Wrapf(err, "encode %s", key)
	}
	if _, seen := t.writes[key]; !seen {
		t.writeOrder = append(t.writeOrder, key)
	}
	t.writes[key] = raw
	return nil
}

func (t *Txn) checks() []Check {
	out := make([]Check, 0, len(t.readOrder))
	for _, k := range t.readOrder {
		out = append(out, Check{Key: k, Version: t.reads[k]})
	}
	return out
}

func (t *Txn) mutations() []Mutation {
	out := make([]Mutation, 0, len(t.writeOrder))
	for _, k := range t.writeOrder {
		out = append(out, Mutation{Key: k, Value: slices.Clone(t.writes[k])})
	}
	return out
}

// decode 使用宽松的 interface 解码，map[string]any 中的整数统一为 int64
func decode(key string, raw []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCorrupt, key, err)
	}
	return nil
}
