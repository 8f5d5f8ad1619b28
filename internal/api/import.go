package api

import (
	"context"
	"net/http"

	"github.com/VlastikSap/product-sets-integration/internal/pipeline"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, def pipeline.Definition) pipeline.Outcome
}

// Import triggers def on GET or POST and answers with the run outcome.
func Import(runner Runner, def pipeline.Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			w.Header().Set("Allow", "GET, POST")
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "Method not allowed"})
			return
		}

		out := runner.Run(r.Context(), def)
		writeJSON(w, out.StatusCode(), out)
	}
}
