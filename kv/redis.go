package kv

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/asnkeeper/connector"
	"github.com/ceyewan/asnkeeper/xerrors"
)

// commitScript 原子地校验版本并写入。
//
// KEYS:  先是 n 个待校验的 key，之后是待写入的 key
// ARGV:  ARGV[1] = n，ARGV[2..n+1] 为期望版本，其后为写入值
var commitScript = redis.NewScript(`
	local n = tonumber(ARGV[1])
	for i = 1, n do
		local v = redis.call("HGET", KEYS[i], "version")
		if not v then
			v = "0"
		end
		if v ~= ARGV[1 + i] then
			return 0
		end
	end
	for i = n + 1, #KEYS do
		redis.call("HINCRBY", KEYS[i], "version", 1)
		redis.call("HSET", KEYS[i], "value", ARGV[1 + i])
	end
	return 1
`)

// redisDriver 每个 key 存为一个 hash {value, version}
type redisDriver struct {
	conn   connector.RedisConnector
	prefix string
}

// NewRedis 基于 Redis 连接器创建驱动，prefix 用于隔离同一实例上的多个部署
func NewRedis(conn connector.RedisConnector, prefix string) Driver {
	return &redisDriver{conn: conn, prefix: prefix}
}

func (d *redisDriver) Name() string { return DriverRedis }

func (d *redisDriver) client() (*redis.Client, error) {
	client := d.conn.GetClient()
	if client == nil {
		return nil, ErrClosed
	}
	return client, nil
}

func (d *redisDriver) Get(ctx context.Context, key string) (Entry, error) {
	client, err := d.client()
	if err != nil {
		return Entry{}, err
	}

	vals, err := client.HMGet(ctx, d.prefix+key, "value", "version").Result()
	if err != nil {
		return Entry{}, err
	}
	if len(vals) != 2 || vals[1] == nil {
		return Entry{Key: key}, nil
	}

	version, err := strconv.ParseUint(vals[1].(string), 10, 64)
	if err != nil {
		return Entry{}, xerrors.Wrapf(ErrCorrupt, "version of %s", key)
	}
	var value []byte
	if s, ok := vals[0].(string); ok {
		value = []byte(s)
	}
	return Entry{Key: key, Value: value, Version: version}, nil
}

func (d *redisDriver) Commit(ctx context.Context, checks []Check, sets []Mutation) (bool, error) {
	client, err := d.client()
	if err != nil {
		return false, err
	}

	keys := make([]string, 0, len(checks)+len(sets))
	args := make([]any, 0, 1+len(checks)+len(sets))
	args = append(args, len(checks))
	for _, c := range checks {
		keys = append(keys, d.prefix+c.Key)
		args = append(args, strconv.FormatUint(c.Version, 10))
	}
	for _, m := range sets {
		keys = append(keys, d.prefix+m.Key)
		args = append(args, m.Value)
	}

	ok, err := commitScript.Run(ctx, client, keys, args...).Int()
	if err != nil {
		return false, err
	}
	return ok == 1, nil
}

func (d *redisDriver) Close() error { return nil }
