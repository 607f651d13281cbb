// Package ratelimit 为签发接口提供令牌桶限流。
//
// 两种模式：
//   - standalone：基于 golang.org/x/time/rate 的进程内限流
//   - distributed：基于 Redis + Lua，多实例共享同一个桶
//
// 基本使用：
//
//	limiter, _ := ratelimit.New(&ratelimit.Config{Mode: ratelimit.ModeStandalone}, nil, ratelimit.WithLogger(logger))
//	defer limiter.Close()
//
//	allowed, _ := limiter.Allow(ctx, c.ClientIP(), ratelimit.Limit{Rate: 2, Burst: 10})
package ratelimit

import (
	"context"
	"time"

	"github.com/ceyewan/asnkeeper/connector"
	"github.com/ceyewan/asnkeeper/xerrors"
)

// 限流模式
const (
	ModeStandalone  = "standalone"
	ModeDistributed = "distributed"
)

// Limit 令牌桶规则
type Limit struct {
	Rate  float64 // 每秒生成的令牌数
	Burst int     // 桶容量
}

// Valid 规则是否可用，Rate 或 Burst 非正时视为不限流
func (l Limit) Valid() bool {
	return l.Rate > 0 && l.Burst > 0
}

// Limiter 限流器
type Limiter interface {
	// Allow 非阻塞地获取 1 个令牌
	Allow(ctx context.Context, key string, limit Limit) (bool, error)
	// AllowN 非阻塞地获取 n 个令牌
	AllowN(ctx context.Context, key string, limit Limit, n int) (bool, error)
	Close() error
}

// Config 限流配置
type Config struct {
	Mode string `mapstructure:"mode"` // standalone | distributed (默认: standalone)

	// CleanupInterval 清理空闲桶的间隔，仅 standalone (默认: 1m)
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	// IdleTimeout 桶空闲多久后回收，仅 standalone (默认: 5m)
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// Prefix Redis key 前缀，仅 distributed (默认: "asnkeeper:ratelimit:")
	Prefix string `mapstructure:"prefix"`
}

func (c *Config) setDefaults() {
	if c.Mode == "" {
		c.Mode = ModeStandalone
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = time.Minute
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.Prefix == "" {
		c.Prefix = "asnkeeper:ratelimit:"
	}
}

// New 按模式创建限流器，distributed 模式需要 redisConn
func New(cfg *Config, redisConn connector.RedisConnector, opts ...Option) (Limiter, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	c := *cfg
	c.setDefaults()
	o := applyOptions(opts)

	switch c.Mode {
	case ModeStandalone:
		return newStandalone(&c, o), nil
	case ModeDistributed:
		if redisConn == nil {
			return nil, xerrors.WithCode(ErrConnectorNil, "redis_connector_required")
		}
		return newDistributed(&c, redisConn, o), nil
	default:
		return nil, xerrors.Wrapf(ErrInvalidConfig, "unknown mode %q", c.Mode)
	}
}
