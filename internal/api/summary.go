package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/assettrack/internal/store"
)

// SummaryHandler serves dashboard aggregates and the health check.
type SummaryHandler struct {
	DB *sql.DB
}

// Get handles GET /api/summary.
func (h *SummaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	summary, err := store.GetSummary(r.Context(), h.DB)
	if err != nil {
		storeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, summary)
}

// Health handles GET /healthz.
func (h *SummaryHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.PingContext(r.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		jsonError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
