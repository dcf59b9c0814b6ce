package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/hashloader/internal/models"
)

// RunLister defines the run listing required by the RunsHandler.
type RunLister interface {
	List(ctx context.Context, limit int) ([]models.Run, error)
}

// RunsHandler serves recorded load runs.
type RunsHandler struct {
	Service RunLister
}

// List handles GET /api/runs?limit=N.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}
	runs, err := h.Service.List(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []models.Run{}
	}
	writeJSON(w, runs)
}
