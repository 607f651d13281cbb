// Package asn 负责 ASN 的签发、查询与管理操作。
//
// 一次签发在单个乐观事务内完成：读取命名空间计数器，写回 counter+delta，
// 并在 (namespace, counter) 下写入不可变的元数据记录。提交之后：
//   - 同步写入审计目标（失败只记录日志，不影响签发结果）
//   - 异步把签发时间折叠进该命名空间的间隔统计
//
// 基本用法：
//
//	alloc, err := asn.New(cfg, store, asn.WithLogger(logger), asn.WithAuditSink(asn.NewFileSink(dir)))
//	if err != nil {
//	    return err
//	}
//	defer alloc.Wait()
//
//	rec, err := alloc.Generate(ctx, map[string]any{"client": "cli"})
package asn

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/maypok86/otter/v2"

	"github.com/ceyewan/asnkeeper/clog"
	"github.com/ceyewan/asnkeeper/kv"
	"github.com/ceyewan/asnkeeper/metrics"
	"github.com/ceyewan/asnkeeper/namespace"
	"github.com/ceyewan/asnkeeper/timestats"
	"github.com/ceyewan/asnkeeper/xerrors"
)

// isoMillis 与 JavaScript Date.toISOString 一致的 UTC 时间格式
const isoMillis = "2006-01-02T15:04:05.000Z"

const labelNamespaceKind = "namespace_kind"

// 命名空间类别
const (
	KindGeneric    = "generic"
	KindAdditional = "additional"
	KindExtension  = "extension"
)

// Record 一次签发的结果
type Record struct {
	ASN       string         `json:"asn"`
	Namespace int64          `json:"namespace"`
	Prefix    string         `json:"prefix"`
	Counter   int64          `json:"counter"`
	Metadata  map[string]any `json:"metadata"`
}

// storedMetadata 持久化在 kv.MetadataKey 下的记录
type storedMetadata struct {
	Metadata  map[string]any `msgpack:"metadata"`
	Timestamp int64          `msgpack:"timestamp"`
}

// Allocator ASN 签发器，并发安全
type Allocator struct {
	cfg    namespace.Config
	store  *kv.Store
	stats  *timestats.Repository
	sinks  []AuditSink
	logger clog.Logger
	now    func() time.Time
	cache  *otter.Cache[string, Record]
	wg     sync.WaitGroup

	generated     metrics.Counter
	bumped        metrics.Counter
	statsFailures metrics.Counter
	auditFailures metrics.Counter
}

// New 创建签发器，cfg 在此处校验一次
func New(cfg namespace.Config, store *kv.Store, opts ...Option) (*Allocator, error) {
	if store == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "asn: store is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	cache, err := otter.New(&otter.Options[string, Record]{MaximumSize: o.cacheSize})
	if err != nil {
		return nil, xerrors.Wrap(err, "asn: create lookup cache")
	}
	if o.stats == nil {
		o.stats = timestats.NewRepository(store, timestats.WithClock(o.now))
	}

	a := &Allocator{
		cfg:    cfg,
		store:  store,
		stats:  o.stats,
		sinks:  o.sinks,
		logger: o.logger,
		now:    o.now,
		cache:  cache,
	}
	a.generated = counter(o.meter, "asn_generated_total", "Total number of ASNs issued.")
	a.bumped = counter(o.meter, "asn_bumped_total", "Total number of namespace bumps.")
	a.statsFailures = counter(o.meter, "timestats_update_failures_total", "Total number of dropped timing samples.")
	a.auditFailures = counter(o.meter, "audit_write_failures_total", "Total number of failed audit sink writes.")
	return a, nil
}

func counter(m metrics.Meter, name, desc string) metrics.Counter {
	c, err := m.Counter(name, desc)
	if err != nil {
		c, _ = metrics.Discard().Counter(name, desc)
	}
	return c
}

// Config 返回签发器使用的命名空间配置
func (a *Allocator) Config() namespace.Config {
	return a.cfg
}

// Stats 返回统计仓库
func (a *Allocator) Stats() *timestats.Repository {
	return a.stats
}

// GenerateOption Generate 选项
type GenerateOption func(*generateOptions)

type generateOptions struct {
	namespace int64
	explicit  bool
	delta     int64
}

// WithNamespace 在指定命名空间签发，命名空间必须语法合法
func WithNamespace(ns int64) GenerateOption {
	return func(o *generateOptions) {
		o.namespace = ns
		o.explicit = true
	}
}

// WithDelta 计数器的推进量，默认 1
func WithDelta(delta int64) GenerateOption {
	return func(o *generateOptions) {
		o.delta = delta
	}
}

// Generate 签发一个 ASN。
//
// 未指定命名空间时按当前毫秒时间在通用区间内取一个。
// 参数错误在触碰存储前返回；存储冲突与繁忙由 kv.Store 重试，调用方不可见。
func (a *Allocator) Generate(ctx context.Context, metadata map[string]any, opts ...GenerateOption) (Record, error) {
	o := generateOptions{delta: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.delta < 1 {
		return Record{}, xerrors.Wrapf(ErrInvalidDelta, "got %d", o.delta)
	}

	now := a.now()
	ns := o.namespace
	if o.explicit {
		if !namespace.IsValid(ns, a.cfg) {
			return Record{}, xerrors.Wrapf(ErrInvalidNamespace, "namespace %d", ns)
		}
	} else {
		ns = a.implicitNamespace(now)
	}

	md := make(map[string]any, len(metadata)+1)
	maps.Copy(md, metadata)
	md["generatedAt"] = now.UTC().Format(isoMillis)

	var issued int64
	err := a.store.Transact(ctx, func(txn *kv.Txn) error {
		var current int64
		if _, err := txn.Get(kv.CounterKey(ns), &current); err != nil {
			return err
		}
		if current > namespace.MaxSafeInteger-o.delta {
			return xerrors.Wrapf(ErrCounterOverflow, "namespace %d counter %d delta %d", ns, current, o.delta)
		}
		next := current + o.delta

		var existing storedMetadata
		found, err := txn.Get(kv.MetadataKey(ns, next), &existing)
		if err != nil {
			return err
		}
		if found {
			// 计数器在两次读取之间被其他写入者推进，重跑即可读到新值
			changed, err := txn.Changed(kv.CounterKey(ns))
			if err != nil {
				return err
			}
			if changed {
				return xerrors.Wrapf(kv.ErrConflict, "namespace %d counter advanced", ns)
			}
			return xerrors.Wrapf(ErrAlreadyIssued, "namespace %d counter %d", ns, next)
		}

		if err := txn.Set(kv.CounterKey(ns), next); err != nil {
			return err
		}
		if err := txn.Set(kv.MetadataKey(ns, next), storedMetadata{Metadata: md, Timestamp: now.UnixMilli()}); err != nil {
			return err
		}
		issued = next
		return nil
	})
	if err != nil {
		return Record{}, xerrors.Wrapf(err, "generate asn in namespace %d", ns)
	}

	formatted, err := namespace.FormatASN(ns, issued, a.cfg)
	if err != nil {
		return Record{}, err
	}
	// 不写入缓存：Lookup 只缓存从存储解码的记录，元数据类型与冷读取一致
	rec := Record{ASN: formatted, Namespace: ns, Prefix: a.cfg.Prefix, Counter: issued, Metadata: md}

	// 提交之后的副作用不受调用方取消的影响
	detached := context.WithoutCancel(ctx)
	a.writeAudit(detached, rec)
	a.foldSample(detached, ns, now.UnixMilli())

	a.generated.Inc(ctx, metrics.L(labelNamespaceKind, a.kindOf(ns)))
	a.logger.DebugContext(ctx, "asn generated",
		clog.String("asn", formatted), clog.Int64("namespace", ns), clog.Int64("delta", o.delta))
	return rec, nil
}

// implicitNamespace 在 [MinGeneric, Range) 中按当前毫秒取模
func (a *Allocator) implicitNamespace(now time.Time) int64 {
	min := namespace.MinGeneric(a.cfg)
	return min + now.UnixMilli()%(a.cfg.Range-min)
}

func (a *Allocator) kindOf(ns int64) string {
	switch {
	case ns >= namespace.MinGeneric(a.cfg) && ns <= namespace.MaxGeneric(a.cfg):
		return KindGeneric
	case namespace.IsManaged(ns, a.cfg):
		return KindAdditional
	default:
		return KindExtension
	}
}

func (a *Allocator) writeAudit(ctx context.Context, rec Record) {
	for _, sink := range a.sinks {
		if err := sink.Write(ctx, rec); err != nil {
			a.auditFailures.Inc(ctx, metrics.L("sink", sink.Name()))
			a.logger.WarnContext(ctx, "failed to write audit record",
				clog.String("sink", sink.Name()), clog.String("asn", rec.ASN), clog.Error(err))
		}
	}
}

func (a *Allocator) foldSample(ctx context.Context, ns, tsMillis int64) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.stats.AddTimestamp(ctx, ns, tsMillis); err != nil {
			a.statsFailures.Inc(ctx)
			a.logger.WarnContext(ctx, "failed to update timing statistics",
				clog.Int64("namespace", ns), clog.Error(err))
		}
	}()
}

// Wait 等待所有进行中的统计折叠完成
func (a *Allocator) Wait() {
	a.wg.Wait()
}

// Lookup 查询已签发的 ASN。记录不可变，命中后进入缓存
func (a *Allocator) Lookup(ctx context.Context, s string) (Record, error) {
	parsed, err := namespace.ParseASN(s, a.cfg)
	if err != nil {
		return Record{}, err
	}
	if rec, ok := a.cache.GetIfPresent(parsed.Canonical); ok {
		return cloneRecord(rec), nil
	}

	var stored storedMetadata
	found, err := a.store.Get(ctx, kv.MetadataKey(parsed.Namespace, parsed.Counter), &stored)
	if err != nil {
		return Record{}, xerrors.Wrapf(err, "lookup %s", parsed.Canonical)
	}
	if !found {
		return Record{}, xerrors.Wrapf(ErrNotFound, "%s", parsed.Canonical)
	}

	rec := Record{
		ASN:       parsed.Canonical,
		Namespace: parsed.Namespace,
		Prefix:    a.cfg.Prefix,
		Counter:   parsed.Counter,
		Metadata:  stored.Metadata,
	}
	if rec.Metadata == nil {
		rec.Metadata = map[string]any{}
	}
	a.cache.Set(rec.ASN, cloneRecord(rec))
	return rec, nil
}

// Current 命名空间当前的计数器，尚未签发时为 0
func (a *Allocator) Current(ctx context.Context, ns int64) (int64, error) {
	if !namespace.IsValid(ns, a.cfg) {
		return 0, xerrors.Wrapf(ErrInvalidNamespace, "namespace %d", ns)
	}
	var current int64
	if _, err := a.store.Get(ctx, kv.CounterKey(ns), &current); err != nil {
		return 0, err
	}
	return current, nil
}

func cloneRecord(r Record) Record {
	r.Metadata = maps.Clone(r.Metadata)
	return r
}
