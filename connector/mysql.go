package connector

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ceyewan/asnkeeper/clog"
	"github.com/ceyewan/asnkeeper/xerrors"
)

type mysqlConnector struct {
	base
	cfg *MySQLConfig
	mu  sync.RWMutex
	db  *gorm.DB
}

// NewMySQL 创建 MySQL 连接器，实际连接在 Connect 时建立
func NewMySQL(cfg *MySQLConfig, opts ...Option) (MySQLConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "mysql config is nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &mysqlConnector{cfg: cfg}
	c.init("mysql", cfg.Name, applyOptions(opts))
	return c, nil
}

func (c *mysqlConnector) dsn() string {
	if c.cfg.DSN != "" {
		return c.cfg.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.cfg.Username, c.cfg.Password, c.cfg.Host, c.cfg.Port, c.cfg.Database, c.cfg.Charset)
}

func (c *mysqlConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return nil
	}

	c.logger.Info("attempting to connect to mysql", clog.String("host", c.cfg.Host), clog.String("database", c.cfg.Database))

	db, err := gorm.Open(mysql.Open(c.dsn()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		c.markConnected("mysql", false)
		c.logger.Error("failed to open mysql", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "mysql connector[%s]: %v", c.name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		c.markConnected("mysql", false)
		return xerrors.Wrapf(ErrConnection, "mysql connector[%s]: get db instance: %v", c.name, err)
	}
	sqlDB.SetMaxIdleConns(c.cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(c.cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(c.cfg.ConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		c.markConnected("mysql", false)
		c.logger.Error("failed to ping mysql", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "mysql connector[%s]: ping: %v", c.name, err)
	}

	c.db = db
	c.markConnected("mysql", true)
	c.logger.Info("successfully connected to mysql")
	return nil
}

func (c *mysqlConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.markClosed("mysql")
	if c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	c.db = nil
	if err := sqlDB.Close(); err != nil {
		c.logger.Error("failed to close mysql connection", clog.Error(err))
		return err
	}
	c.logger.Info("mysql connection closed")
	return nil
}

func (c *mysqlConnector) HealthCheck(ctx context.Context) error {
	db := c.GetClient()
	if db == nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrClientNil, "mysql connector[%s]", c.name)
	}
	if err := pingGorm(ctx, db); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("mysql health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "mysql connector[%s]: %v", c.name, err)
	}
	c.healthy.Store(true)
	return nil
}

func (c *mysqlConnector) GetClient() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}
