package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLocker(client, ttl), mr
}

func TestRedisLockerExcludesSecondHolder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	locker, mr := newTestRedisLocker(t, time.Minute)

	release, err := locker.Acquire(ctx, "products")
	require.NoError(t, err)
	assert.True(t, mr.Exists("product-sets:lock:products"))
	assert.Equal(t, time.Minute, mr.TTL("product-sets:lock:products"))

	_, err = locker.Acquire(ctx, "products")
	require.ErrorIs(t, err, ErrLocked)

	other, err := locker.Acquire(ctx, "set_items")
	require.NoError(t, err, "other tables are independent")
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists("product-sets:lock:products"))

	again, err := locker.Acquire(ctx, "products")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestRedisLockerReleaseKeepsNewerHolder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	locker, mr := newTestRedisLocker(t, time.Minute)

	stale, err := locker.Acquire(ctx, "products")
	require.NoError(t, err)

	// The first run outlives its TTL and a second run takes the table.
	mr.FastForward(2 * time.Minute)
	fresh, err := locker.Acquire(ctx, "products")
	require.NoError(t, err)

	require.NoError(t, stale(ctx))
	assert.True(t, mr.Exists("product-sets:lock:products"))

	_, err = locker.Acquire(ctx, "products")
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, fresh(ctx))
	assert.False(t, mr.Exists("product-sets:lock:products"))
}

func TestRedisLockerBackendDown(t *testing.T) {
	t.Parallel()

	locker, mr := newTestRedisLocker(t, time.Minute)
	mr.Close()

	_, err := locker.Acquire(context.Background(), "products")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)
}
