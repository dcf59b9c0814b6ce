// Package http provides HTTP routing for the read-only inspector API over
// a finalized database.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/hashloader/internal/middleware"
)

// NewRouter constructs the inspector API handler.
//
// Routes:
//
//	GET /api/stats         → inspector.Stats
//	GET /api/salts         → inspector.Salts (offset, limit query parameters)
//	GET /api/salts/{index} → inspector.Salt
//	GET /api/runs          → runs.List, only when runs is not nil
func NewRouter(
	inspector *InspectorHandler,
	runs *RunsHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", inspector.Stats)
		r.Get("/salts", inspector.Salts)
		r.Get("/salts/{index}", inspector.Salt)
		if runs != nil {
			r.Get("/runs", runs.List)
		}
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
