package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/VlastikSap/product-sets-integration/internal/api"
	"github.com/VlastikSap/product-sets-integration/internal/app"
	"github.com/VlastikSap/product-sets-integration/internal/config"
	"github.com/VlastikSap/product-sets-integration/internal/feed"
	"github.com/VlastikSap/product-sets-integration/internal/logging"
	"github.com/VlastikSap/product-sets-integration/internal/observability"
	"github.com/VlastikSap/product-sets-integration/internal/pipeline"
	"github.com/VlastikSap/product-sets-integration/internal/warehouse"
)

// importer -pipeline=products
// importer -pipeline=sets -dry-run > set_items.ndjson
// importer -serve
func main() {
	name := flag.String("pipeline", "products", "pipeline to run once: products or sets")
	serve := flag.Bool("serve", false, "serve /import/<pipeline> over HTTP instead of running once")
	dryRun := flag.Bool("dry-run", false, "write rows to stdout as NDJSON instead of loading them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	// Dry-run rows go to stdout, so logs move to stderr.
	logOut := os.Stdout
	if *dryRun {
		logOut = os.Stderr
	}
	logger := slog.New(logging.NewHandler(logOut, cfg.Log.Level, logging.FormatFor(cfg.Environment, cfg.Log.Format)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, logger, *name, *serve, *dryRun))
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, name string, serve, dryRun bool) int {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	var loader warehouse.Loader
	if dryRun {
		loader = warehouse.NewNDJSONLoader(os.Stdout)
	} else {
		l, closeLoader, err := app.NewLoader(ctx, cfg)
		if err != nil {
			logger.Error("open warehouse", "error", err)
			return 1
		}
		defer closeLoader()
		loader = l
	}

	locker, closeLocker, err := app.NewLocker(ctx, cfg)
	if err != nil {
		logger.Error("open run lock", "error", err)
		return 1
	}
	defer closeLocker()

	orch := pipeline.New(pipeline.Deps{
		Fetcher: feed.NewClient(cfg.FetchTimeout),
		Loader:  loader,
		Logger:  logger.With("component", "importer"),
		Metrics: metrics,
		Locker:  locker,
	})
	defs := app.Definitions(cfg)

	if serve {
		srv := &http.Server{
			Addr: ":" + cfg.HTTP.Port,
			Handler: api.NewImportRouter(orch, defs, api.Options{
				Metrics:        metrics,
				MetricsHandler: observability.Handler(reg),
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		if err := app.Serve(ctx, srv, logger); err != nil {
			logger.Error("http server stopped", "error", err)
			return 1
		}
		return 0
	}

	for _, def := range defs {
		if def.Name != name {
			continue
		}
		out := orch.Run(ctx, def)
		if !dryRun {
			_ = json.NewEncoder(os.Stdout).Encode(out)
		}
		if !out.Success {
			return 1
		}
		return 0
	}

	logger.Error("unknown pipeline", "pipeline", name)
	return 2
}
