package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/VlastikSap/product-sets-integration/internal/config"
	"github.com/VlastikSap/product-sets-integration/internal/db"
	"github.com/VlastikSap/product-sets-integration/internal/pipeline"
	"github.com/VlastikSap/product-sets-integration/internal/repository"
	"github.com/VlastikSap/product-sets-integration/internal/warehouse"
)

// Closer releases a resource opened during wiring.
type Closer func()

func noop() {}

// Tables maps the configured table names for the read side.
func Tables(cfg *config.Config) repository.Tables {
	return repository.Tables{Products: cfg.Products.Table, SetItems: cfg.Sets.Table}
}

// Definitions returns both pipelines in their canonical order.
func Definitions(cfg *config.Config) []pipeline.Definition {
	return []pipeline.Definition{
		pipeline.Products(cfg.Products),
		pipeline.SetMemberships(cfg.Sets),
	}
}

// NewLoader opens the configured warehouse backend.
func NewLoader(ctx context.Context, cfg *config.Config) (warehouse.Loader, Closer, error) {
	switch cfg.Warehouse.Driver {
	case config.DriverPostgres:
		conn, err := db.New(ctx, cfg.Warehouse.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		return warehouse.NewPostgresLoader(conn), func() { conn.Close() }, nil
	case config.DriverBigQuery:
		client, err := db.NewBigQuery(ctx, cfg.Warehouse.ProjectID, cfg.Warehouse.Location)
		if err != nil {
			return nil, noop, err
		}
		loader := warehouse.NewBigQueryLoader(client, cfg.Warehouse.Dataset, cfg.Warehouse.Location)
		return loader, func() { client.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown warehouse driver %q", cfg.Warehouse.Driver)
	}
}

// NewStore opens the read store for the configured backend, wrapped in a
// redis cache when REDIS_URL is set.
func NewStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, Closer, error) {
	var (
		store  repository.Store
		closer Closer
	)
	switch cfg.Warehouse.Driver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.Warehouse.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		store, closer = repository.NewPostgresStore(pool, Tables(cfg)), pool.Close
	case config.DriverBigQuery:
		client, err := db.NewBigQuery(ctx, cfg.Warehouse.ProjectID, cfg.Warehouse.Location)
		if err != nil {
			return nil, noop, err
		}
		store = repository.NewBigQueryStore(client, cfg.Warehouse.Dataset, cfg.Warehouse.Location, Tables(cfg))
		closer = func() { client.Close() }
	default:
		return nil, noop, fmt.Errorf("unknown warehouse driver %q", cfg.Warehouse.Driver)
	}

	rdb, err := openRedis(ctx, cfg)
	if err != nil {
		closer()
		return nil, noop, err
	}
	if rdb == nil || cfg.CacheTTL <= 0 {
		return store, closer, nil
	}

	cached := repository.NewCachedStore(store, rdb, cfg.CacheTTL, logger.With("component", "cache"))
	return cached, func() { rdb.Close(); closer() }, nil
}

// NewLocker returns a redis run lock, or nil when REDIS_URL is unset.
func NewLocker(ctx context.Context, cfg *config.Config) (pipeline.Locker, Closer, error) {
	rdb, err := openRedis(ctx, cfg)
	if err != nil || rdb == nil {
		return nil, noop, err
	}
	return pipeline.NewRedisLocker(rdb, cfg.RunLockTTL), func() { rdb.Close() }, nil
}

func openRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	return db.NewRedis(ctx, cfg.RedisURL)
}

// Serve runs srv until ctx is canceled, then drains in-flight requests.
func Serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
