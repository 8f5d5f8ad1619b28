package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes runs that target the same table across processes.
type Locker interface {
	// Acquire returns ErrLocked when the key is held by someone else.
	Acquire(ctx context.Context, key string) (release func(context.Context) error, err error)
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker holds locks as keys with an expiry, so a crashed run frees the
// table after TTL.
type RedisLocker struct {
	Client *redis.Client
	TTL    time.Duration
	Prefix string
}

var _ Locker = (*RedisLocker)(nil)

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{Client: client, TTL: ttl, Prefix: "product-sets:lock:"}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	full := l.Prefix + key
	token := uuid.NewString()

	ok, err := l.Client.SetNX(ctx, full, token, l.TTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", full, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.Client, []string{full}, token).Err(); err != nil {
			return fmt.Errorf("release lock %s: %w", full, err)
		}
		return nil
	}
	return release, nil
}
