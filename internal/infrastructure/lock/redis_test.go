package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bims/pkg/errors"
)

func newTestRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(mr.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	locker := NewRedisLocker(client)
	locker.retryWait = 5 * time.Millisecond
	locker.maxWait = 2 * time.Second
	return locker, mr
}

func TestRedisLockerAcquireAndRelease(t *testing.T) {
	locker, mr := newTestRedisLocker(t)

	release, err := locker.Acquire(context.Background(), "payment:ref-1")
	require.NoError(t, err)

	key := "bims:lock:payment:ref-1"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, locker.ttl, mr.TTL(key))

	release()
	assert.False(t, mr.Exists(key))
}

func TestRedisLockerWaitsForHolder(t *testing.T) {
	locker, _ := newTestRedisLocker(t)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "k")
	require.NoError(t, err)

	acquired := make(chan func(), 1)
	go func() {
		second, err := locker.Acquire(ctx, "k")
		if !assert.NoError(t, err) {
			close(acquired)
			return
		}
		acquired <- second
	}()

	select {
	case <-acquired:
		t.Fatal("second caller entered while the lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	release()

	select {
	case second, ok := <-acquired:
		require.True(t, ok)
		second()
	case <-time.After(time.Second):
		t.Fatal("second caller never acquired the lock")
	}
}

func TestRedisLockerIndependentKeys(t *testing.T) {
	locker, _ := newTestRedisLocker(t)
	ctx := context.Background()

	r1, err := locker.Acquire(ctx, "a")
	require.NoError(t, err)
	defer r1()

	r2, err := locker.Acquire(ctx, "b")
	require.NoError(t, err)
	r2()
}

func TestRedisLockerGivesUp(t *testing.T) {
	locker, _ := newTestRedisLocker(t)
	locker.maxWait = 30 * time.Millisecond

	release, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	_, err = locker.Acquire(context.Background(), "k")
	assert.True(t, errors.Is(err, "CONFLICT"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	locker.maxWait = 5 * time.Second
	_, err = locker.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisLockerReleaseKeepsTakenOverLock(t *testing.T) {
	locker, mr := newTestRedisLocker(t)
	ctx := context.Background()
	key := "bims:lock:k"

	stale, err := locker.Acquire(ctx, "k")
	require.NoError(t, err)

	mr.FastForward(locker.ttl + time.Second)
	require.False(t, mr.Exists(key))

	current, err := locker.Acquire(ctx, "k")
	require.NoError(t, err)
	token, err := mr.Get(key)
	require.NoError(t, err)

	stale()
	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, token, got, "an expired holder must not release the new holder's lock")

	current()
	assert.False(t, mr.Exists(key))
}

func TestNewRedisClientPings(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()

	client, err := NewRedisClient(addr, "")
	require.NoError(t, err)
	assert.NoError(t, client.Ping(context.Background()).Err())
	client.Close()

	mr.Close()
	_, err = NewRedisClient(addr, "")
	assert.Error(t, err)
}

var _ Locker = (*RedisLocker)(nil)
