package api

import (
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/erazemk/assettrack/internal/model"
	"github.com/erazemk/assettrack/internal/store"
)

// CatalogHandler serves one master data catalog.
type CatalogHandler struct {
	DB   *sql.DB
	Kind model.CatalogKind
}

// List handles GET /api/{catalog}. Inactive entries are hidden unless
// include_inactive is set.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := store.ListCatalog(r.Context(), h.DB, h.Kind, queryBool(r.URL.Query(), "include_inactive"))
	if err != nil {
		storeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"results": entries})
}

// Create handles POST /api/{catalog}.
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CatalogEntry
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := store.CreateCatalogEntry(r.Context(), h.DB, h.Kind, req)
	if err != nil {
		storeError(w, r, err)
		return
	}

	slog.Info("catalog entry created", "catalog", h.Kind, "id", entry.ID, "name", entry.Name)
	jsonResponse(w, http.StatusCreated, entry)
}

// Get handles GET /api/{catalog}/{id}.
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return
	}

	entry, err := store.GetCatalogEntry(r.Context(), h.DB, h.Kind, id)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if entry == nil {
		jsonError(w, http.StatusNotFound, string(h.Kind)+" entry not found")
		return
	}
	jsonResponse(w, http.StatusOK, entry)
}

// Update handles PATCH /api/{catalog}/{id}. Fields absent from the body keep
// their current values.
func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return
	}

	body, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	current, err := store.GetCatalogEntry(r.Context(), h.DB, h.Kind, id)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if current == nil {
		jsonError(w, http.StatusNotFound, string(h.Kind)+" entry not found")
		return
	}

	if err := json.Unmarshal(body, current); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := store.UpdateCatalogEntry(r.Context(), h.DB, h.Kind, id, *current)
	if err != nil {
		storeError(w, r, err)
		return
	}

	slog.Info("catalog entry updated", "catalog", h.Kind, "id", entry.ID, "name", entry.Name)
	jsonResponse(w, http.StatusOK, entry)
}

// Delete handles DELETE /api/{catalog}/{id}. Entries are deactivated, never
// removed, so references from assets and tickets stay resolvable.
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := store.DeactivateCatalogEntry(r.Context(), h.DB, h.Kind, id); err != nil {
		storeError(w, r, err)
		return
	}

	slog.Info("catalog entry deactivated", "catalog", h.Kind, "id", id)
	w.WriteHeader(http.StatusNoContent)
}
