package api

import (
	"net/http"
	"time"

	"github.com/VlastikSap/product-sets-integration/internal/observability"
	"github.com/VlastikSap/product-sets-integration/internal/pipeline"
)

// Options configure the cross-cutting behavior of both routers.
type Options struct {
	AllowedOrigin      string
	Development        bool
	RateLimitPerMinute int
	Metrics            *observability.Metrics
	MetricsHandler     http.Handler
}

// NewReadRouter serves /health, /product-sets and /set-detail.
func NewReadRouter(h *Handler, opts Options) http.Handler {
	mux := http.NewServeMux()
	r := routes{mux: mux, metrics: opts.Metrics}

	r.handle("GET /health", "/health", h.Health())
	r.handle("GET /product-sets", "/product-sets", h.ProductSets())
	r.handle("GET /set-detail", "/set-detail", h.SetDetail())
	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}
	r.handle("/", "unmatched", NotFound())

	return Chain(mux,
		SecurityHeaders,
		CORS(opts.AllowedOrigin, opts.Development),
		NewRateLimiter(opts.RateLimitPerMinute).Middleware,
	)
}

// NewImportRouter exposes one /import/<name> endpoint per definition.
func NewImportRouter(runner Runner, defs []pipeline.Definition, opts Options) http.Handler {
	mux := http.NewServeMux()
	r := routes{mux: mux, metrics: opts.Metrics}

	health := &Handler{Now: time.Now}
	r.handle("GET /health", "/health", health.Health())
	for _, def := range defs {
		path := "/import/" + def.Name
		r.handle(path, path, Import(runner, def))
	}
	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}
	r.handle("/", "unmatched", NotFound())

	return Chain(mux, SecurityHeaders)
}

type routes struct {
	mux     *http.ServeMux
	metrics *observability.Metrics
}

func (r routes) handle(pattern, name string, h http.Handler) {
	if r.metrics != nil {
		h = r.metrics.Instrument(name, h)
	}
	r.mux.Handle(pattern, h)
}
