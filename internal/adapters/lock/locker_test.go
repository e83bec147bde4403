package lock

import (
	"context"
	"logistics-route-service/internal/ports"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, ""), mr
}

func TestRedisLockerExclusive(t *testing.T) {
	l, mr := newRedisLocker(t)
	ctx := context.Background()

	unlock, ok, err := l.TryLock(ctx, 1, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("logistics:route-lock:1"))

	_, ok, err = l.TryLock(ctx, 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not get the lease")

	_, ok, err = l.TryLock(ctx, 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "other routes are independent")

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("logistics:route-lock:1"))

	_, ok, err = l.TryLock(ctx, 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockerExpiredLeaseIsNotReleasedByOldHolder(t *testing.T) {
	l, mr := newRedisLocker(t)
	ctx := context.Background()

	oldUnlock, ok, err := l.TryLock(ctx, 1, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = l.TryLock(ctx, 1, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, oldUnlock(ctx))
	assert.True(t, mr.Exists("logistics:route-lock:1"), "new holder's lease must survive")
}

func TestRedisLockerRejectsBadTTL(t *testing.T) {
	l, _ := newRedisLocker(t)
	_, _, err := l.TryLock(context.Background(), 1, 0)
	assert.Error(t, err)
}

func TestMemoryLockerExclusiveAndExpiry(t *testing.T) {
	l := NewMemoryLocker()
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	oldUnlock, ok, err := l.TryLock(ctx, 1, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, _ = l.TryLock(ctx, 1, time.Minute)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	newUnlock, ok, _ := l.TryLock(ctx, 1, time.Minute)
	require.True(t, ok)

	require.NoError(t, oldUnlock(ctx))
	_, ok, _ = l.TryLock(ctx, 1, time.Minute)
	assert.False(t, ok, "stale unlock must not free the new lease")

	require.NoError(t, newUnlock(ctx))
	_, ok, _ = l.TryLock(ctx, 1, time.Minute)
	assert.True(t, ok)
}

func TestLockersGrantOneHolderUnderContention(t *testing.T) {
	redisLocker, _ := newRedisLocker(t)
	lockers := map[string]ports.RouteLocker{
		"memory": NewMemoryLocker(),
		"redis":  redisLocker,
	}

	for name, l := range lockers {
		t.Run(name, func(t *testing.T) {
			var granted atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, ok, err := l.TryLock(context.Background(), 7, time.Minute); err == nil && ok {
						granted.Add(1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), granted.Load())
		})
	}
}
