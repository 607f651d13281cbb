package kv

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryConfig 事务冲突重试配置
type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`    // 最大尝试次数 (默认: 100)
	InitialBackoff time.Duration `mapstructure:"initial_backoff"` // 首次冲突后的退避时间 (默认: 1ms)
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`     // 最大退避时间 (默认: 100ms)
	Multiplier     float64       `mapstructure:"multiplier"`      // 退避倍数 (默认: 2.0)
	BusyDelay      time.Duration `mapstructure:"busy_delay"`      // 存储繁忙时的固定等待 (默认: 10ms)
}

// DefaultRetryConfig 默认重试配置
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:    100,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     100 * time.Millisecond,
	Multiplier:     2.0,
	BusyDelay:      10 * time.Millisecond,
}

func (c *RetryConfig) setDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultRetryConfig.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = DefaultRetryConfig.InitialBackoff
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = max(DefaultRetryConfig.MaxBackoff, c.InitialBackoff)
	}
	if c.Multiplier <= 1.0 {
		c.Multiplier = DefaultRetryConfig.Multiplier
	}
	if c.BusyDelay <= 0 {
		c.BusyDelay = DefaultRetryConfig.BusyDelay
	}
}

// next 计算下一次退避时间
func (c RetryConfig) next(backoff time.Duration) time.Duration {
	backoff = time.Duration(float64(backoff) * c.Multiplier)
	if backoff > c.MaxBackoff {
		backoff = c.MaxBackoff
	}
	return backoff
}

// jitter 在 [d/2, d) 内随机取值，避免冲突的事务同步重试
func jitter(d time.Duration) time.Duration {
	if d < 2 {
		return d
	}
	half := d / 2
	return half + rand.N(half)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
