package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/VlastikSap/product-sets-integration/internal/model"
)

// CachedStore keeps query results in redis for TTL. Redis failures are
// logged and the wrapped store is queried directly.
type CachedStore struct {
	Next   Store
	Client *redis.Client
	TTL    time.Duration
	Prefix string
	Logger *slog.Logger
}

var _ Store = (*CachedStore)(nil)

func NewCachedStore(next Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{Next: next, Client: client, TTL: ttl, Prefix: "product-sets:cache:", Logger: logger}
}

func (c *CachedStore) SetsForProduct(ctx context.Context, productCode string) ([]model.SetSummary, error) {
	return cached(ctx, c, "sets-for:"+productCode, func() ([]model.SetSummary, error) {
		return c.Next.SetsForProduct(ctx, productCode)
	})
}

// SetByCode caches hits only, so a set created by the next import shows up
// without waiting for expiry.
func (c *CachedStore) SetByCode(ctx context.Context, setCode string) (model.SetSummary, error) {
	return cached(ctx, c, "set:"+setCode, func() (model.SetSummary, error) {
		return c.Next.SetByCode(ctx, setCode)
	})
}

func (c *CachedStore) SetItems(ctx context.Context, setCode string) ([]model.SetItem, error) {
	return cached(ctx, c, "items:"+setCode, func() ([]model.SetItem, error) {
		return c.Next.SetItems(ctx, setCode)
	})
}

func cached[T any](ctx context.Context, c *CachedStore, key string, load func() (T, error)) (T, error) {
	key = c.Prefix + key

	raw, err := c.Client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		c.Logger.Warn("discarding undecodable cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.Logger.Warn("cache read failed", "key", key, "error", err)
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return v, nil
	}
	if err := c.Client.Set(ctx, key, data, c.TTL).Err(); err != nil {
		c.Logger.Warn("cache write failed", "key", key, "error", err)
	}
	return v, nil
}
