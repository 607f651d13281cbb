package asn

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ceyewan/asnkeeper/clog"
	"github.com/ceyewan/asnkeeper/namespace"
	"github.com/ceyewan/asnkeeper/timestats"
	"github.com/ceyewan/asnkeeper/xerrors"
)

// bumpConcurrency 同时推进的命名空间数上限
const bumpConcurrency = 16

// BumpRequest 一次批量推进
type BumpRequest struct {
	// Namespaces 为空时推进全部托管命名空间
	Namespaces []int64
	Delta      int64
	// By 操作人，可选
	By string
	// Reason 推进原因，可选
	Reason string
}

// BumpResult 单个命名空间的推进结果
type BumpResult struct {
	Namespace int64
	// Record 推进时写入的占位记录
	Record Record
	// Next 下一次签发将得到的 ASN
	Next string
}

// Bump 恢复备份后跳过可能已被占用的计数器。
//
// 每个命名空间以 Delta 作为增量执行一次签发，元数据只包含推进来源。
// 计数器只会增大，不会回退。任一命名空间非托管时整批在写入前拒绝。
func (a *Allocator) Bump(ctx context.Context, req BumpRequest) ([]BumpResult, error) {
	if req.Delta < 1 {
		return nil, xerrors.Wrapf(ErrInvalidDelta, "got %d", req.Delta)
	}
	targets := req.Namespaces
	if len(targets) == 0 {
		targets = namespace.AllManaged(a.cfg)
	}
	for _, ns := range targets {
		if !namespace.IsManaged(ns, a.cfg) {
			return nil, xerrors.Wrapf(ErrUnmanagedNamespace, "namespace %d (%s)", ns, namespace.Placeholder(ns, a.cfg))
		}
	}

	metadata := map[string]any{
		"bumpedBy": req.Delta,
		"bumpedAt": a.now().UTC().Format(isoMillis),
	}
	if req.By != "" {
		metadata["bumpedByUser"] = req.By
	}
	if req.Reason != "" {
		metadata["reason"] = req.Reason
	}

	results := make([]BumpResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bumpConcurrency)
	for i, ns := range targets {
		g.Go(func() error {
			rec, err := a.Generate(gctx, metadata, WithNamespace(ns), WithDelta(req.Delta))
			if err != nil {
				return xerrors.Wrapf(err, "bump %s", namespace.Placeholder(ns, a.cfg))
			}
			next, err := namespace.FormatASN(ns, rec.Counter+1, a.cfg)
			if err != nil {
				return err
			}
			results[i] = BumpResult{Namespace: ns, Record: rec, Next: next}
			a.bumped.Inc(gctx)
			a.logger.InfoContext(gctx, "namespace bumped",
				clog.Int64("namespace", ns), clog.Int64("delta", req.Delta), clog.String("next", next))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Recommend 估算恢复 elapsed 之前的备份时应使用的增量：ceil(HighestRate × elapsed)，至少为 1。
//
// 速率上界假设签发间隔服从正态分布，只是经验性的安全余量，并不保证无冲突。
func Recommend(stats timestats.Stats, sigma float64, elapsed time.Duration) int64 {
	delta := math.Ceil(stats.HighestRate(sigma) * float64(elapsed.Milliseconds()))
	if delta < 1 || math.IsNaN(delta) {
		return 1
	}
	if delta > float64(namespace.MaxSafeInteger) {
		return namespace.MaxSafeInteger
	}
	return int64(delta)
}
