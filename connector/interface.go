// Package connector 管理 asnkeeper 所依赖外部系统的连接生命周期。
//
// 支持 Redis、Etcd、SQLite、MySQL、NATS。每个连接器通过 TypedConnector[T]
// 暴露类型安全的客户端，上层组件（kv 驱动、审计 sink）只借用连接，不负责关闭。
//
// 基本使用：
//
//	conn, err := connector.NewRedis(&connector.RedisConfig{Addr: "127.0.0.1:6379"},
//		connector.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	if err := conn.Connect(ctx); err != nil {
//		return err
//	}
//	client := conn.GetClient()
//
// 资源所有权：应用层按 LIFO 顺序释放，先关闭借用连接的组件，再关闭连接器。
package connector

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
	"gorm.io/gorm"
)

// Connector 所有连接器的通用行为，方法均为并发安全
type Connector interface {
	// Connect 建立连接，幂等
	Connect(ctx context.Context) error
	// Close 关闭连接并释放资源，幂等
	Close() error
	// HealthCheck 主动探测连接，同时刷新 IsHealthy 的缓存结果
	HealthCheck(ctx context.Context) error
	IsHealthy() bool
	Name() string
}

// TypedConnector 提供类型安全的客户端访问
//
// Connect 之前或 Close 之后 GetClient 可能返回 nil。
type TypedConnector[T any] interface {
	Connector
	GetClient() T
}

type RedisConnector interface {
	TypedConnector[*redis.Client]
}

type EtcdConnector interface {
	TypedConnector[*clientv3.Client]
}

// SQLiteConnector 基于 GORM，支持文件数据库与内存数据库
type SQLiteConnector interface {
	TypedConnector[*gorm.DB]
}

type MySQLConnector interface {
	TypedConnector[*gorm.DB]
}

// NATSConnector 内置自动重连
type NATSConnector interface {
	TypedConnector[*nats.Conn]
}
