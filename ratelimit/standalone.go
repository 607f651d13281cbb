package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ceyewan/asnkeeper/clog"
	"github.com/ceyewan/asnkeeper/metrics"
)

// bucket rate.Limiter 及其最后访问时间
type bucket struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	lastSeen time.Time
}

type standaloneLimiter struct {
	cfg      *Config
	logger   clog.Logger
	counters counters
	buckets  sync.Map // map[string]*bucket
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newStandalone(cfg *Config, o *options) *standaloneLimiter {
	l := &standaloneLimiter{
		cfg:      cfg,
		logger:   o.logger,
		counters: newCounters(o.meter),
		stopCh:   make(chan struct{}),
	}
	go l.cleanup()

	l.logger.Info("standalone rate limiter created",
		clog.Duration("cleanup_interval", cfg.CleanupInterval),
		clog.Duration("idle_timeout", cfg.IdleTimeout))
	return l
}

func (l *standaloneLimiter) Allow(ctx context.Context, key string, limit Limit) (bool, error) {
	return l.AllowN(ctx, key, limit, 1)
}

func (l *standaloneLimiter) AllowN(ctx context.Context, key string, limit Limit, n int) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}
	if !limit.Valid() || n <= 0 {
		return false, ErrInvalidLimit
	}

	b := l.bucket(key, limit)
	b.mu.Lock()
	now := time.Now()
	allowed := b.limiter.AllowN(now, n)
	b.lastSeen = now
	b.mu.Unlock()

	if allowed {
		l.counters.allowed.Inc(ctx, metrics.L(labelMode, ModeStandalone))
	} else {
		l.counters.denied.Inc(ctx, metrics.L(labelMode, ModeStandalone))
	}
	return allowed, nil
}

// bucket 规则变化时使用新的桶，rate 与 burst 都是 key 的一部分
func (l *standaloneLimiter) bucket(key string, limit Limit) *bucket {
	cacheKey := fmt.Sprintf("%s:%v:%d", key, limit.Rate, limit.Burst)
	if v, ok := l.buckets.Load(cacheKey); ok {
		return v.(*bucket)
	}
	b := &bucket{
		limiter:  rate.NewLimiter(rate.Limit(limit.Rate), limit.Burst),
		lastSeen: time.Now(),
	}
	actual, _ := l.buckets.LoadOrStore(cacheKey, b)
	return actual.(*bucket)
}

func (l *standaloneLimiter) cleanup() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictIdle(time.Now())
		case <-l.stopCh:
			return
		}
	}
}

// evictIdle 回收空闲超过 IdleTimeout 的桶，返回回收数量
func (l *standaloneLimiter) evictIdle(now time.Time) int {
	count := 0
	l.buckets.Range(func(key, value any) bool {
		b := value.(*bucket)
		b.mu.Lock()
		idle := now.Sub(b.lastSeen)
		b.mu.Unlock()
		if idle > l.cfg.IdleTimeout {
			l.buckets.Delete(key)
			count++
		}
		return true
	})
	if count > 0 {
		l.logger.Debug("cleaned up idle limiters", clog.Int("count", count))
	}
	return count
}

func (l *standaloneLimiter) Close() error {
	l.stopOnce.Do(func() { close(l.stopCh) })
	return nil
}
