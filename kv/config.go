package kv

import (
	"path/filepath"
	"slices"

	"github.com/ceyewan/asnkeeper/xerrors"
)

// 支持的驱动
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverRedis  = "redis"
	DriverEtcd   = "etcd"
)

var drivers = []string{DriverMemory, DriverSQLite, DriverMySQL, DriverRedis, DriverEtcd}

// Config 存储配置
type Config struct {
	// Driver memory|sqlite|mysql|redis|etcd (默认: sqlite)
	Driver string `mapstructure:"driver"`

	// DataDir 数据目录，SQLite 文件与审计日志都在这里 (默认: data)
	DataDir string `mapstructure:"data_dir"`
	// DBFileName SQLite 文件名 (默认: denokv.sqlite3)
	DBFileName string `mapstructure:"db_file_name"`

	MySQLDSN string `mapstructure:"mysql_dsn"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	EtcdEndpoints []string `mapstructure:"etcd_endpoints"`

	// KeyPrefix Redis/Etcd 上的 key 前缀 (默认: asnkeeper/)
	KeyPrefix string `mapstructure:"key_prefix"`

	// Breaker 是否为远程驱动启用熔断
	Breaker       bool          `mapstructure:"breaker"`
	BreakerConfig BreakerConfig `mapstructure:"breaker_config"`

	Retry RetryConfig `mapstructure:"retry"`
}

func (c *Config) setDefaults() {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.DBFileName == "" {
		c.DBFileName = "denokv.sqlite3"
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "asnkeeper/"
	}
}

func (c *Config) validate() error {
	c.setDefaults()

	if !slices.Contains(drivers, c.Driver) {
		return xerrors.Wrapf(ErrInvalidConfig, "unsupported driver %q", c.Driver)
	}
	switch c.Driver {
	case DriverMySQL:
		if c.MySQLDSN == "" {
			return xerrors.Wrap(ErrInvalidConfig, "mysql dsn is required")
		}
	case DriverRedis:
		if c.RedisAddr == "" {
			return xerrors.Wrap(ErrInvalidConfig, "redis addr is required")
		}
	case DriverEtcd:
		if len(c.EtcdEndpoints) == 0 {
			return xerrors.Wrap(ErrInvalidConfig, "etcd endpoints are required")
		}
	}
	return nil
}

// SQLitePath SQLite 数据库文件路径
func (c Config) SQLitePath() string {
	return filepath.Join(c.DataDir, c.DBFileName)
}
