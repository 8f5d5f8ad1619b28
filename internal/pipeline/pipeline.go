package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/VlastikSap/product-sets-integration/internal/config"
	"github.com/VlastikSap/product-sets-integration/internal/feed"
	"github.com/VlastikSap/product-sets-integration/internal/warehouse"
)

const (
	MessageImported = "Import completed successfully"
	MessageEmpty    = "nothing to import"
)

// State is a run lifecycle position.
type State string

const (
	StateStart      State = "START"
	StateFetched    State = "FETCHED"
	StateNormalized State = "NORMALIZED"
	StateEmpty      State = "EMPTY"
	StateLoaded     State = "LOADED"
	StateDone       State = "DONE"
	StateFailed     State = "FAILED"
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Normalizer maps a raw feed into rows stamped with loadedAt.
type Normalizer func(data []byte, loadedAt time.Time) ([]warehouse.Row, error)

type Recorder interface {
	ObserveRun(pipeline, result string, elapsed time.Duration, rows int64)
}

// Definition parameterizes one pipeline instance.
type Definition struct {
	Name      string
	CountKey  string
	FeedURL   string
	Table     string
	Schema    warehouse.Schema
	Normalize Normalizer
}

// Products builds the catalog pipeline.
func Products(cfg config.FeedConfig) Definition {
	return Definition{
		Name:     "products",
		CountKey: "productsCount",
		FeedURL:  cfg.URL,
		Table:    cfg.Table,
		Schema:   warehouse.ProductsSchema,
		Normalize: func(data []byte, loadedAt time.Time) ([]warehouse.Row, error) {
			rows, err := feed.ParseProducts(data, loadedAt)
			return warehouse.RowsOf(rows), err
		},
	}
}

// SetMemberships builds the set composition pipeline.
func SetMemberships(cfg config.FeedConfig) Definition {
	return Definition{
		Name:     "sets",
		CountKey: "setItemsCount",
		FeedURL:  cfg.URL,
		Table:    cfg.Table,
		Schema:   warehouse.SetItemsSchema,
		Normalize: func(data []byte, loadedAt time.Time) ([]warehouse.Row, error) {
			rows, err := feed.ParseSetItems(data, loadedAt)
			return warehouse.RowsOf(rows), err
		},
	}
}

// Deps are the collaborators of a run. Fetcher and Loader are required;
// Metrics and Locker may be nil.
type Deps struct {
	Fetcher Fetcher
	Loader  warehouse.Loader
	Logger  *slog.Logger
	Metrics Recorder
	Locker  Locker
	Clock   func() time.Time
}

type Orchestrator struct {
	deps Deps
}

func New(deps Deps) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Orchestrator{deps: deps}
}

// Run executes fetch, normalize and load once. It never retries and always
// returns an Outcome; Outcome.Err is set on failure.
func (o *Orchestrator) Run(ctx context.Context, def Definition) Outcome {
	start := o.deps.Clock()
	logger := o.deps.Logger.With("pipeline", def.Name, "table", def.Table)
	out := Outcome{Pipeline: def.Name, CountKey: def.CountKey, State: StateStart}

	logger.Info("import.start", "url", def.FeedURL)

	finish := func(state State, err error) Outcome {
		out.State = state
		out.Duration = o.deps.Clock().Sub(start)
		result := "success"
		if err != nil {
			out.Err = err
			out.Message = errorMessage(err)
			result = "failure"
			logger.Error("import.failure",
				"error", out.Message,
				"kind", string(KindOf(err)),
				"duration_ms", out.Duration.Milliseconds())
		} else {
			out.Success = true
		}
		if o.deps.Metrics != nil {
			o.deps.Metrics.ObserveRun(def.Name, result, out.Duration, out.RowsLoaded)
		}
		return out
	}

	if def.FeedURL == "" {
		return finish(StateFailed, fail(KindConfiguration, errors.New("feed url is not configured for "+def.Name)))
	}

	if o.deps.Locker != nil {
		release, err := o.deps.Locker.Acquire(ctx, def.Table)
		if errors.Is(err, ErrLocked) {
			return finish(StateFailed, fail(KindConflict, err))
		}
		if err != nil {
			return finish(StateFailed, fail(KindLock, err))
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("release run lock", "error", err)
			}
		}()
	}

	data, err := o.deps.Fetcher.Fetch(ctx, def.FeedURL)
	if err != nil {
		return finish(StateFailed, fail(KindTransport, err))
	}
	out.State = StateFetched
	logger.Debug("feed fetched", "bytes", len(data))

	rows, err := def.Normalize(data, o.deps.Clock().UTC())
	if err != nil {
		return finish(StateFailed, fail(KindParse, err))
	}
	out.State = StateNormalized
	out.ItemCount = len(rows)

	if len(rows) == 0 {
		out.State = StateEmpty
		out.Message = MessageEmpty
		logger.Warn("import.empty", "bytes", len(data))
		return finish(StateDone, nil)
	}

	result, err := o.deps.Loader.Load(ctx, def.Table, def.Schema, rows)
	if err != nil {
		return finish(StateFailed, fail(KindLoad, err))
	}
	out.State = StateLoaded
	out.RowsLoaded = result.RowsLoaded
	out.JobID = result.JobID
	out.Message = MessageImported

	done := finish(StateDone, nil)
	logger.Info("import.success",
		def.CountKey, done.ItemCount,
		"rows_loaded", done.RowsLoaded,
		"job_id", done.JobID,
		"duration_ms", done.Duration.Milliseconds())
	return done
}

func errorMessage(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	return err.Error()
}
