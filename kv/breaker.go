package kv

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/ceyewan/asnkeeper/clog"
	"github.com/ceyewan/asnkeeper/xerrors"
)

// BreakerConfig 驱动熔断配置
type BreakerConfig struct {
	// MaxRequests 半开状态下允许通过的探测请求数（默认：1）
	MaxRequests uint32 `mapstructure:"max_requests"`
	// Interval 闭合状态下清空计数的周期（默认：60s）
	Interval time.Duration `mapstructure:"interval"`
	// Timeout 打开状态持续多久后进入半开（默认：10s）
	Timeout time.Duration `mapstructure:"timeout"`
	// FailureRatio 触发熔断的失败率（默认：0.6）
	FailureRatio float64 `mapstructure:"failure_ratio"`
	// MinimumRequests 触发熔断前的最少请求数（默认：5）
	MinimumRequests uint32 `mapstructure:"minimum_requests"`
}

func (c *BreakerConfig) setDefaults() {
	if c.MaxRequests == 0 {
		c.MaxRequests = 1
	}
	if c.Interval <= 0 {
		c.Interval = 60 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.FailureRatio <= 0 || c.FailureRatio > 1 {
		c.FailureRatio = 0.6
	}
	if c.MinimumRequests == 0 {
		c.MinimumRequests = 5
	}
}

// breakerDriver 为远程驱动增加熔断，存储不可用时快速失败
type breakerDriver struct {
	next   Driver
	cb     *gobreaker.CircuitBreaker[any]
	logger clog.Logger
}

// WithBreaker 用熔断器包装驱动。
//
// 版本冲突与 ErrBusy 属于正常竞争，不计入失败。
func WithBreaker(next Driver, cfg BreakerConfig, logger clog.Logger) Driver {
	cfg.setDefaults()
	if logger == nil {
		logger = clog.Discard()
	}
	d := &breakerDriver{next: next, logger: logger.With(clog.String("driver", next.Name()))}

	d.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "kv." + next.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinimumRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrBusy) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			d.logger.Warn("store circuit breaker state changed",
				clog.String("breaker", name),
				clog.String("from", from.String()),
				clog.String("to", to.String()))
		},
	})
	return d
}

func (d *breakerDriver) Name() string { return d.next.Name() }

func (d *breakerDriver) Get(ctx context.Context, key string) (Entry, error) {
	res, err := d.cb.Execute(func() (any, error) {
		return d.next.Get(ctx, key)
	})
	if err != nil {
		return Entry{}, d.translate(err)
	}
	return res.(Entry), nil
}

func (d *breakerDriver) Commit(ctx context.Context, checks []Check, sets []Mutation) (bool, error) {
	res, err := d.cb.Execute(func() (any, error) {
		return d.next.Commit(ctx, checks, sets)
	})
	if err != nil {
		return false, d.translate(err)
	}
	return res.(bool), nil
}

func (d *breakerDriver) Close() error { return d.next.Close() }

func (d *breakerDriver) translate(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return xerrors.Wrapf(ErrCircuitOpen, "%s: %v", d.next.Name(), err)
	}
	return err
}
