//go:build integration

package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ceyewan/asnkeeper/testkit"
)

func TestRedisDriver_Integration(t *testing.T) {
	conn := testkit.GetRedisConnector(t)
	runDriverContract(t, NewRedis(conn, "asnkeeper-test/"+testkit.NewID()+"/"))
}

func TestEtcdDriver_Integration(t *testing.T) {
	conn := testkit.GetEtcdConnector(t)
	runDriverContract(t, NewEtcd(conn, "asnkeeper-test/"+testkit.NewID()+"/"))
}

func TestMySQLDriver_Integration(t *testing.T) {
	db := testkit.GetMySQLDB(t)
	d, err := NewSQL(context.Background(), db)
	require.NoError(t, err)
	require.NoError(t, db.Exec("DELETE FROM kv_entries WHERE entry_key LIKE ?", "contract/%").Error)
	require.Equal(t, DriverMySQL, d.Name())
	runDriverContract(t, d)
}

func TestRedisStore_ConcurrentIncrements_Integration(t *testing.T) {
	ctx, _ := testkit.NewContext(t, 30*time.Second)
	s := NewStore(NewRedis(testkit.GetRedisConnector(t), "asnkeeper-test/"+testkit.NewID()+"/"), WithRetry(fastRetry))

	done := make(chan error, 40)
	for i := 0; i < 40; i++ {
		go func() { done <- s.Transact(ctx, increment(CounterKey(1))) }()
	}
	for i := 0; i < 40; i++ {
		require.NoError(t, <-done)
	}

	var n int64
	_, err := s.Get(ctx, CounterKey(1), &n)
	require.NoError(t, err)
	require.Equal(t, int64(40), n)
}
