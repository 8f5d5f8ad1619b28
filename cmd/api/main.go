package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/VlastikSap/product-sets-integration/internal/api"
	"github.com/VlastikSap/product-sets-integration/internal/app"
	"github.com/VlastikSap/product-sets-integration/internal/config"
	"github.com/VlastikSap/product-sets-integration/internal/logging"
	"github.com/VlastikSap/product-sets-integration/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger := logging.New(cfg.Log.Level, logging.FormatFor(cfg.Environment, cfg.Log.Format))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := app.NewStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open read store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	handler := api.NewHandler(store, logger.With("component", "api"))
	srv := &http.Server{
		Addr: ":" + cfg.HTTP.Port,
		Handler: api.NewReadRouter(handler, api.Options{
			AllowedOrigin:      cfg.HTTP.AllowedOrigin,
			Development:        cfg.IsDevelopment(),
			RateLimitPerMinute: cfg.HTTP.RateLimitPerMinute,
			Metrics:            metrics,
			MetricsHandler:     observability.Handler(reg),
		}),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	logger.Info("product sets api starting",
		"environment", cfg.Environment,
		"allowed_origin", cfg.HTTP.AllowedOrigin,
		"warehouse", cfg.Warehouse.Driver)

	if err := app.Serve(ctx, srv, logger); err != nil {
		logger.Error("http server stopped", "error", err)
		os.Exit(1)
	}
}
