package testkit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ceyewan/asnkeeper/connector"
)

// NewPersistentSQLiteConfig 返回持久化 SQLite 测试配置
// 数据库文件存储在 t.TempDir() 中，测试结束后自动清理
func NewPersistentSQLiteConfig(t *testing.T) *connector.SQLiteConfig {
	return &connector.SQLiteConfig{
		Name: "test-sqlite",
		Path: filepath.Join(t.TempDir(), "test.sqlite3"),
	}
}

// NewPersistentSQLiteConnector 获取持久化 SQLite 连接器
// 生命周期由 t.Cleanup 管理
func NewPersistentSQLiteConnector(t *testing.T) connector.SQLiteConnector {
	conn, err := connector.NewSQLite(NewPersistentSQLiteConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create sqlite connector")

	require.NoError(t, conn.Connect(context.Background()), "failed to connect to sqlite")

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

// NewSQLiteDB 获取 GORM DB 实例
func NewSQLiteDB(t *testing.T) *gorm.DB {
	return NewPersistentSQLiteConnector(t).GetClient()
}
