//go:build integration

package connector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// 需要本地服务：redis localhost:6379，etcd localhost:2379

func TestRedisConnector_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := NewRedis(&RedisConfig{Addr: "localhost:6379", DB: 1})
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Connect(ctx))
	require.NoError(t, conn.HealthCheck(ctx))
	require.True(t, conn.IsHealthy())
}

func TestEtcdConnector_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := NewEtcd(&EtcdConfig{Endpoints: []string{"localhost:2379"}})
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Connect(ctx))
	require.NoError(t, conn.HealthCheck(ctx))
	require.NotNil(t, conn.GetClient())
}
