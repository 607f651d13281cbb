package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/asnkeeper/xerrors"
)

func TestWithBreaker_OpensOnFailures(t *testing.T) {
	errDown := errors.New("connection refused")
	d := &scriptedDriver{Driver: NewMemory()}
	d.onCommit = func(int32) (bool, bool, error) { return true, false, errDown }

	b := WithBreaker(d, BreakerConfig{MinimumRequests: 2, FailureRatio: 0.5, Timeout: time.Minute}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := b.Commit(ctx, nil, []Mutation{{Key: "k", Value: []byte("v")}})
		assert.ErrorIs(t, err, errDown)
	}

	_, err := b.Commit(ctx, nil, []Mutation{{Key: "k", Value: []byte("v")}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, err, xerrors.ErrUnavailable)
	assert.Equal(t, int32(2), d.commits.Load(), "open breaker must not reach the driver")

	_, err = b.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestWithBreaker_ContentionIsHealthy(t *testing.T) {
	d := &scriptedDriver{Driver: NewMemory()}
	d.onCommit = func(n int32) (bool, bool, error) {
		if n%2 == 0 {
			return true, false, xerrors.Wrap(ErrBusy, "database is locked")
		}
		return true, false, nil
	}
	b := WithBreaker(d, BreakerConfig{MinimumRequests: 2, FailureRatio: 0.5}, nil)

	for i := 0; i < 10; i++ {
		ok, err := b.Commit(context.Background(), nil, nil)
		assert.False(t, ok)
		if err != nil {
			assert.ErrorIs(t, err, ErrBusy)
		}
	}
	assert.Equal(t, int32(10), d.commits.Load())
	assert.Equal(t, DriverMemory, b.Name())
}

func TestWithBreaker_PassThrough(t *testing.T) {
	b := WithBreaker(NewMemory(), BreakerConfig{}, nil)
	runDriverContract(t, b)
	assert.NoError(t, b.Close())
}
