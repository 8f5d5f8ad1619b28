package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VlastikSap/product-sets-integration/internal/model"
	"github.com/VlastikSap/product-sets-integration/internal/repository"
)

type memoryStore struct {
	setsByProduct map[string][]model.SetSummary
	sets          map[string]model.SetSummary
	items         map[string][]model.SetItem
	err           error
}

func (s *memoryStore) SetsForProduct(ctx context.Context, productCode string) ([]model.SetSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.setsByProduct[productCode], nil
}

func (s *memoryStore) SetByCode(ctx context.Context, setCode string) (model.SetSummary, error) {
	if s.err != nil {
		return model.SetSummary{}, s.err
	}
	set, ok := s.sets[setCode]
	if !ok {
		return model.SetSummary{}, repository.ErrNotFound
	}
	return set, nil
}

func (s *memoryStore) SetItems(ctx context.Context, setCode string) ([]model.SetItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.items[setCode], nil
}

var giftBox = model.SetSummary{
	Code:        "BA195",
	Name:        "Gift box",
	URL:         "https://shop.example/gift-box",
	ImgURL:      "https://cdn.example/gift.jpg",
	Description: "Honey and wine",
}

func newStore() *memoryStore {
	return &memoryStore{
		setsByProduct: map[string][]model.SetSummary{"CHM045": {giftBox}},
		sets:          map[string]model.SetSummary{"BA195": giftBox},
		items: map[string][]model.SetItem{"BA195": {
			{Code: "CHM045", Amount: 2, Name: "Honey", Availability: "in stock"},
			{Code: "CHM010", Amount: 1, Name: "Wine"},
		}},
	}
}

func newTestRouter(store repository.Store) http.Handler {
	h := NewHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewReadRouter(h, Options{AllowedOrigin: "https://www.chutmoravy.cz", RateLimitPerMinute: 500})
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func TestHealth(t *testing.T) {
	t.Parallel()

	h := NewHandler(newStore(), nil)
	h.Now = func() time.Time { return time.Date(2025, time.March, 3, 4, 5, 6, 0, time.UTC) }

	rec, body := get(t, NewReadRouter(h, Options{}), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "2025-03-03T04:05:06.000Z", body["timestamp"])
}

func TestProductSets(t *testing.T) {
	t.Parallel()

	rec, body := get(t, newTestRouter(newStore()), "/product-sets?productCode=CHM045")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, "CHM045", body["productCode"])
	assert.Contains(t, body, "queryTime")

	sets := body["sets"].([]any)
	require.Len(t, sets, 1)
	set := sets[0].(map[string]any)
	assert.Equal(t, "BA195", set["code"])
	assert.Equal(t, "https://cdn.example/gift.jpg", set["imgUrl"])
}

func TestProductSetsMissingParameter(t *testing.T) {
	t.Parallel()

	rec, body := get(t, newTestRouter(newStore()), "/product-sets")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required parameter: productCode", body["error"])
	assert.Empty(t, rec.Header().Get("Cache-Control"))
}

func TestProductSetsUnknownProduct(t *testing.T) {
	t.Parallel()

	rec, body := get(t, newTestRouter(newStore()), "/product-sets?productCode=UNKNOWN")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, body["sets"])
	assert.Equal(t, float64(0), body["count"])
}

func TestProductSetsStoreFailure(t *testing.T) {
	t.Parallel()

	rec, body := get(t, newTestRouter(&memoryStore{err: errors.New("bigquery: quota exceeded")}), "/product-sets?productCode=CHM045")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", body["error"])
	assert.Equal(t, "bigquery: quota exceeded", body["message"])
	assert.Contains(t, body, "queryTime")
}

func TestSetDetail(t *testing.T) {
	t.Parallel()

	rec, body := get(t, newTestRouter(newStore()), "/set-detail?setCode=BA195")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "Gift box", body["set"].(map[string]any)["name"])
	assert.Equal(t, float64(2), body["itemsCount"])

	items := body["items"].([]any)
	first := items[0].(map[string]any)
	assert.Equal(t, "CHM045", first["code"])
	assert.Equal(t, float64(2), first["amount"])
	assert.Equal(t, "in stock", first["availability"])
}

func TestSetDetailErrors(t *testing.T) {
	t.Parallel()

	rec, body := get(t, newTestRouter(newStore()), "/set-detail")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required parameter: setCode", body["error"])

	rec, body = get(t, newTestRouter(newStore()), "/set-detail?setCode=NOPE")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Set not found", body["error"])
	assert.Equal(t, "NOPE", body["setCode"])

	rec, body = get(t, newTestRouter(&memoryStore{err: errors.New("boom")}), "/set-detail?setCode=BA195")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "boom", body["message"])
}

func TestSetDetailWithoutItems(t *testing.T) {
	t.Parallel()

	store := newStore()
	store.sets["EMPTY"] = model.SetSummary{Code: "EMPTY"}

	rec, body := get(t, newTestRouter(store), "/set-detail?setCode=EMPTY")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, body["items"])
	assert.Equal(t, float64(0), body["itemsCount"])
}

func TestUnknownPath(t *testing.T) {
	t.Parallel()

	rec, body := get(t, newTestRouter(newStore()), "/nope/here")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", body["error"])
	assert.Equal(t, "/nope/here", body["path"])
}
