package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/VlastikSap/product-sets-integration/internal/model"
	"github.com/VlastikSap/product-sets-integration/internal/repository"
)

const cacheControl = "public, max-age=3600"

// Handler serves the read endpoints over a Store.
type Handler struct {
	Store  repository.Store
	Logger *slog.Logger
	Now    func() time.Time
}

func NewHandler(store repository.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Store: store, Logger: logger, Now: time.Now}
}

func (h *Handler) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"timestamp": h.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
}

// ProductSets lists the sets containing ?productCode=.
func (h *Handler) ProductSets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := h.Now()

		productCode := r.URL.Query().Get("productCode")
		if productCode == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": "Missing required parameter: productCode",
			})
			return
		}

		sets, err := h.Store.SetsForProduct(r.Context(), productCode)
		if err != nil {
			h.internalError(w, "query product sets", err, start)
			return
		}
		if sets == nil {
			sets = []model.SetSummary{}
		}

		w.Header().Set("Cache-Control", cacheControl)
		writeJSON(w, http.StatusOK, map[string]any{
			"sets":        sets,
			"count":       len(sets),
			"productCode": productCode,
			"queryTime":   h.since(start),
		})
	}
}

// SetDetail returns a set and its members for ?setCode=. Both queries run
// concurrently.
func (h *Handler) SetDetail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := h.Now()

		setCode := r.URL.Query().Get("setCode")
		if setCode == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": "Missing required parameter: setCode",
			})
			return
		}

		var (
			set   model.SetSummary
			items []model.SetItem
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() error {
			var err error
			set, err = h.Store.SetByCode(ctx, setCode)
			return err
		})
		g.Go(func() error {
			var err error
			items, err = h.Store.SetItems(ctx, setCode)
			return err
		})

		err := g.Wait()
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error":   "Set not found",
				"setCode": setCode,
			})
			return
		}
		if err != nil {
			h.internalError(w, "query set detail", err, start)
			return
		}
		if items == nil {
			items = []model.SetItem{}
		}

		w.Header().Set("Cache-Control", cacheControl)
		writeJSON(w, http.StatusOK, map[string]any{
			"set":        set,
			"items":      items,
			"itemsCount": len(items),
			"queryTime":  h.since(start),
		})
	}
}

// NotFound answers every unmatched path.
func NotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": "Not found",
			"path":  r.URL.Path,
		})
	}
}

func (h *Handler) internalError(w http.ResponseWriter, what string, err error, start time.Time) {
	h.Logger.Error(what, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"error":     "Internal server error",
		"message":   err.Error(),
		"queryTime": h.since(start),
	})
}

func (h *Handler) since(start time.Time) int64 {
	return h.Now().Sub(start).Milliseconds()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
