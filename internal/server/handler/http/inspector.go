package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/hashloader/internal/models"
)

const defaultSaltPage = 100

// InspectorService defines the read-only queries the InspectorHandler
// serves.
type InspectorService interface {
	Stats() models.Stats
	Salts(offset, limit int) []models.SaltSummary
	Salt(index int) (models.SaltSummary, bool)
}

// InspectorHandler serves database statistics and salt buckets.
type InspectorHandler struct {
	Service InspectorService
}

// Stats handles GET /api/stats.
func (h *InspectorHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Service.Stats())
}

// Salts handles GET /api/salts?offset=N&limit=M.
func (h *InspectorHandler) Salts(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		http.Error(w, "invalid offset", http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit", defaultSaltPage)
	if err != nil || limit <= 0 {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}
	writeJSON(w, h.Service.Salts(offset, limit))
}

// Salt handles GET /api/salts/{index}.
func (h *InspectorHandler) Salt(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "invalid index", http.StatusBadRequest)
		return
	}
	sum, ok := h.Service.Salt(index)
	if !ok {
		http.Error(w, "salt not found", http.StatusNotFound)
		return
	}
	writeJSON(w, sum)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
