package connector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ceyewan/asnkeeper/clog"
	"github.com/ceyewan/asnkeeper/xerrors"
)

type sqliteConnector struct {
	base
	cfg *SQLiteConfig
	mu  sync.RWMutex
	db  *gorm.DB
}

// NewSQLite 创建 SQLite 连接器，实际连接在 Connect 时建立
func NewSQLite(cfg *SQLiteConfig, opts ...Option) (SQLiteConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "sqlite config is nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &sqliteConnector{cfg: cfg}
	c.init("sqlite", cfg.Name, applyOptions(opts))
	return c, nil
}

func (c *sqliteConnector) dsn() string {
	if c.cfg.BusyTimeout <= 0 {
		return c.cfg.Path
	}
	return fmt.Sprintf("%s?_busy_timeout=%d", c.cfg.Path, c.cfg.BusyTimeout.Milliseconds())
}

func (c *sqliteConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return nil
	}

	c.logger.Info("attempting to connect to sqlite", clog.String("path", c.cfg.Path))

	if c.cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(c.cfg.Path), 0o755); err != nil {
			c.markConnected("sqlite", false)
			return xerrors.Wrapf(ErrConnection, "sqlite connector[%s]: create data dir: %v", c.name, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(c.dsn()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		c.markConnected("sqlite", false)
		c.logger.Error("failed to open sqlite", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "sqlite connector[%s]: %v", c.name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		c.markConnected("sqlite", false)
		return xerrors.Wrapf(ErrConnection, "sqlite connector[%s]: get db instance: %v", c.name, err)
	}
	sqlDB.SetMaxOpenConns(c.cfg.MaxOpenConns)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		c.markConnected("sqlite", false)
		c.logger.Error("failed to ping sqlite", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "sqlite connector[%s]: ping: %v", c.name, err)
	}

	c.db = db
	c.markConnected("sqlite", true)
	c.logger.Info("successfully connected to sqlite", clog.String("path", c.cfg.Path))
	return nil
}

func (c *sqliteConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.markClosed("sqlite")
	if c.db == nil {
		return nil
	}

	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	c.db = nil
	if err := sqlDB.Close(); err != nil {
		c.logger.Error("failed to close sqlite connection", clog.Error(err))
		return err
	}
	c.logger.Info("sqlite connection closed")
	return nil
}

func (c *sqliteConnector) HealthCheck(ctx context.Context) error {
	db := c.GetClient()
	if db == nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrClientNil, "sqlite connector[%s]", c.name)
	}
	if err := pingGorm(ctx, db); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("sqlite health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "sqlite connector[%s]: %v", c.name, err)
	}
	c.healthy.Store(true)
	return nil
}

func (c *sqliteConnector) GetClient() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

func pingGorm(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
