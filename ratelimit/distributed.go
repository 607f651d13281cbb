package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/asnkeeper/clog"
	"github.com/ceyewan/asnkeeper/connector"
	"github.com/ceyewan/asnkeeper/metrics"
	"github.com/ceyewan/asnkeeper/xerrors"
)

// tokenBucketScript 以"下一次可放行时间"表示的令牌桶
//
// KEYS[1] 桶 key；ARGV: rate, burst, now(秒), requested
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

local interval = 1 / rate
local fill_time = capacity * interval

local last = tonumber(redis.call("GET", KEYS[1]))
if last == nil then
  last = now
end

local next_available = math.max(last, now)
local refreshed = next_available + requested * interval
local allow_at_most = now + fill_time

if refreshed <= allow_at_most then
  redis.call("SET", KEYS[1], refreshed, "EX", math.ceil(fill_time * 2))
  return {1, math.floor((allow_at_most - refreshed) / interval)}
end
return {0, math.floor((allow_at_most - next_available) / interval)}
`

type distributedLimiter struct {
	client   *redis.Client
	prefix   string
	logger   clog.Logger
	script   *redis.Script
	counters counters
}

func newDistributed(cfg *Config, conn connector.RedisConnector, o *options) *distributedLimiter {
	l := &distributedLimiter{
		client:   conn.GetClient(),
		prefix:   cfg.Prefix,
		logger:   o.logger,
		script:   redis.NewScript(tokenBucketScript),
		counters: newCounters(o.meter),
	}
	l.logger.Info("distributed rate limiter created", clog.String("prefix", cfg.Prefix))
	return l
}

func (l *distributedLimiter) Allow(ctx context.Context, key string, limit Limit) (bool, error) {
	return l.AllowN(ctx, key, limit, 1)
}

func (l *distributedLimiter) AllowN(ctx context.Context, key string, limit Limit, n int) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}
	if !limit.Valid() || n <= 0 {
		return false, ErrInvalidLimit
	}

	now := float64(time.Now().UnixNano()) / 1e9
	result, err := l.script.Run(ctx, l.client, []string{l.prefix + key}, limit.Rate, limit.Burst, now, n).Int64Slice()
	if err != nil {
		l.logger.Error("failed to execute rate limit script", clog.String("key", key), clog.Error(err))
		return false, xerrors.Wrap(err, "ratelimit: execute script")
	}
	if len(result) != 2 {
		return false, xerrors.Wrapf(xerrors.ErrUnavailable, "ratelimit: unexpected script result %v", result)
	}

	allowed := result[0] == 1
	if allowed {
		l.counters.allowed.Inc(ctx, metrics.L(labelMode, ModeDistributed))
	} else {
		l.counters.denied.Inc(ctx, metrics.L(labelMode, ModeDistributed))
	}
	l.logger.Debug("rate limit check",
		clog.String("key", key), clog.Bool("allowed", allowed), clog.Int64("remaining", result[1]))
	return allowed, nil
}

// Close 连接由 connector 管理
func (l *distributedLimiter) Close() error {
	return nil
}
