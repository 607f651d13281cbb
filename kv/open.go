package kv

import (
	"context"

	"github.com/ceyewan/asnkeeper/connector"
	"github.com/ceyewan/asnkeeper/xerrors"
)

// Open 按配置建立连接并创建 Store。
//
// Open 创建的连接器由 Store 持有，Store.Close 时一并关闭。
func Open(ctx context.Context, cfg *Config, opts ...Option) (*Store, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrInvalidConfig, "config is nil")
	}
	c := *cfg
	if err := c.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	connOpts := []connector.Option{connector.WithLogger(o.logger), connector.WithMeter(o.meter)}

	var (
		driver Driver
		closer func() error
		err    error
	)
	switch c.Driver {
	case DriverMemory:
		driver = NewMemory()
	case DriverSQLite:
		driver, closer, err = openSQLite(ctx, c, connOpts)
	case DriverMySQL:
		driver, closer, err = openMySQL(ctx, c, connOpts)
	case DriverRedis:
		driver, closer, err = openRedis(ctx, c, connOpts)
	case DriverEtcd:
		driver, closer, err = openEtcd(ctx, c, connOpts)
	}
	if err != nil {
		return nil, err
	}

	if c.Breaker && c.Driver != DriverMemory && c.Driver != DriverSQLite {
		driver = WithBreaker(driver, c.BreakerConfig, o.logger)
	}

	store := NewStore(driver, append([]Option{WithRetry(c.Retry)}, opts...)...)
	if closer != nil {
		store.closers = append(store.closers, closer)
	}
	store.logger.Info("store opened")
	return store, nil
}

type connectable interface {
	Connect(ctx context.Context) error
	Close() error
}

// connect 连接失败时立即释放连接器
func connect(ctx context.Context, conn connectable) error {
	if err := conn.Connect(ctx); err != nil {
		_ = conn.Close()
		return xerrors.Wrap(err, "kv: connect")
	}
	return nil
}

func openSQLite(ctx context.Context, c Config, opts []connector.Option) (Driver, func() error, error) {
	conn, err := connector.NewSQLite(&connector.SQLiteConfig{Name: "kv", Path: c.SQLitePath()}, opts...)
	if err != nil {
		return nil, nil, err
	}
	if err := connect(ctx, conn); err != nil {
		return nil, nil, err
	}
	driver, err := NewSQL(ctx, conn.GetClient())
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return driver, conn.Close, nil
}

func openMySQL(ctx context.Context, c Config, opts []connector.Option) (Driver, func() error, error) {
	conn, err := connector.NewMySQL(&connector.MySQLConfig{Name: "kv", DSN: c.MySQLDSN}, opts...)
	if err != nil {
		return nil, nil, err
	}
	if err := connect(ctx, conn); err != nil {
		return nil, nil, err
	}
	driver, err := NewSQL(ctx, conn.GetClient())
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return driver, conn.Close, nil
}

func openRedis(ctx context.Context, c Config, opts []connector.Option) (Driver, func() error, error) {
	conn, err := connector.NewRedis(&connector.RedisConfig{
		Name:     "kv",
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}, opts...)
	if err != nil {
		return nil, nil, err
	}
	if err := connect(ctx, conn); err != nil {
		return nil, nil, err
	}
	return NewRedis(conn, c.KeyPrefix), conn.Close, nil
}

func openEtcd(ctx context.Context, c Config, opts []connector.Option) (Driver, func() error, error) {
	conn, err := connector.NewEtcd(&connector.EtcdConfig{Name: "kv", Endpoints: c.EtcdEndpoints}, opts...)
	if err != nil {
		return nil, nil, err
	}
	if err := connect(ctx, conn); err != nil {
		return nil, nil, err
	}
	return NewEtcd(conn, c.KeyPrefix), conn.Close, nil
}
