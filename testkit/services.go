package testkit

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/ceyewan/asnkeeper/connector"
)

// 外部服务地址可通过环境变量覆盖，CI 中指向 docker compose 起的容器
const (
	envRedisAddr = "ASN_TEST_REDIS_ADDR"
	envEtcd      = "ASN_TEST_ETCD_ENDPOINTS"
	envMySQLDSN  = "ASN_TEST_MYSQL_DSN"
	envNATSURL   = "ASN_TEST_NATS_URL"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

type service interface {
	Connect(ctx context.Context) error
	Close() error
}

// mustConnect 服务不可达时跳过测试而不是失败，只有 -tags integration 会走到这里
func mustConnect[T service](t *testing.T, name string, conn T, err error) T {
	t.Helper()
	if err != nil {
		t.Fatalf("create %s connector: %v", name, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Connect(ctx); err != nil {
		_ = conn.Close()
		t.Skipf("%s unavailable: %v", name, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// GetRedisConnector 默认 localhost:6379 的 DB 1，避免污染 DB 0
func GetRedisConnector(t *testing.T) connector.RedisConnector {
	conn, err := connector.NewRedis(&connector.RedisConfig{
		Name:        "test-redis",
		Addr:        envOr(envRedisAddr, "localhost:6379"),
		DB:          1,
		DialTimeout: 2 * time.Second,
	}, connector.WithLogger(NewLogger()))
	return mustConnect(t, "redis", conn, err)
}

// GetEtcdConnector 多个 endpoint 以逗号分隔
func GetEtcdConnector(t *testing.T) connector.EtcdConnector {
	conn, err := connector.NewEtcd(&connector.EtcdConfig{
		Name:        "test-etcd",
		Endpoints:   strings.Split(envOr(envEtcd, "localhost:2379"), ","),
		DialTimeout: 2 * time.Second,
	}, connector.WithLogger(NewLogger()))
	return mustConnect(t, "etcd", conn, err)
}

// GetMySQLDB 默认连接 asnkeeper_test 库
func GetMySQLDB(t *testing.T) *gorm.DB {
	conn, err := connector.NewMySQL(&connector.MySQLConfig{
		Name: "test-mysql",
		DSN:  envOr(envMySQLDSN, "root:asnkeeper@tcp(localhost:3306)/asnkeeper_test?parseTime=true"),
	}, connector.WithLogger(NewLogger()))
	return mustConnect(t, "mysql", conn, err).GetClient()
}

func GetNATSConnector(t *testing.T) connector.NATSConnector {
	conn, err := connector.NewNATS(&connector.NATSConfig{
		Name:          "test-nats",
		URL:           envOr(envNATSURL, "nats://localhost:4222"),
		MaxReconnects: 3,
		ReconnectWait: 100 * time.Millisecond,
	}, connector.WithLogger(NewLogger()))
	return mustConnect(t, "nats", conn, err)
}
