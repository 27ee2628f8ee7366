package api

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/erazemk/assettrack/internal/export"
	"github.com/erazemk/assettrack/internal/metrics"
	"github.com/erazemk/assettrack/internal/model"
	"github.com/erazemk/assettrack/internal/store"
)

// AssetsHandler handles the asset registry endpoints.
type AssetsHandler struct {
	DB          *sql.DB
	Metrics     *metrics.Metrics
	PageSize    int
	MaxPageSize int
}

type createAssetRequest struct {
	model.AssetAttrs
	Status     *int64 `json:"status"`
	Department *int64 `json:"current_department"`
}

// filter parses the listing query parameters shared by List and Export.
func (h *AssetsHandler) filter(q url.Values) (store.AssetFilter, error) {
	f := store.AssetFilter{
		Search:          q.Get("search"),
		Ordering:        q.Get("ordering"),
		IncludeInactive: queryBool(q, "include_inactive"),
		PageSize:        h.PageSize,
		Page:            1,
	}

	var err error
	if f.CategoryID, err = queryID(q, "category"); err != nil {
		return f, err
	}
	if f.DepartmentID, err = queryID(q, "department"); err != nil {
		return f, err
	}
	if f.StatusID, err = queryID(q, "status"); err != nil {
		return f, err
	}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, errInvalid("page")
		}
		f.Page = n
	}
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, errInvalid("page_size")
		}
		f.PageSize = min(n, h.MaxPageSize)
	}
	return f, nil
}

// List handles GET /api/assets.
func (h *AssetsHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := h.filter(r.URL.Query())
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := store.ListAssets(r.Context(), h.DB, f)
	if err != nil {
		storeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, page)
}

// Export handles GET /api/assets/export.xlsx.
func (h *AssetsHandler) Export(w http.ResponseWriter, r *http.Request) {
	f, err := h.filter(r.URL.Query())
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	assets, err := store.ExportAssets(r.Context(), h.DB, f)
	if err != nil {
		storeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="assets.xlsx"`)
	if err := export.WriteAssets(w, assets); err != nil {
		slog.Error("exporting assets", "error", err)
	}
}

// Create handles POST /api/assets.
func (h *AssetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAssetRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	asset, err := store.CreateAsset(r.Context(), h.DB, req.AssetAttrs, req.Status, req.Department)
	observe(h.Metrics, "create_asset", err)
	if err != nil {
		storeError(w, r, err)
		return
	}

	slog.Info("asset created", "asset", asset.ID, "name", asset.Name)
	jsonResponse(w, http.StatusCreated, asset)
}

// Get handles GET /api/assets/{id}.
func (h *AssetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	asset, err := store.GetAsset(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if asset == nil {
		jsonError(w, http.StatusNotFound, "asset not found")
		return
	}
	jsonResponse(w, http.StatusOK, asset)
}

// Update handles PUT /api/assets/{id}, replacing all descriptive attributes.
func (h *AssetsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	var attrs model.AssetAttrs
	if err := decodeJSON(r, &attrs); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.update(w, r, id, attrs)
}

func (h *AssetsHandler) update(w http.ResponseWriter, r *http.Request, id int64, attrs model.AssetAttrs) {
	asset, err := store.UpdateAsset(r.Context(), h.DB, id, attrs)
	observe(h.Metrics, "update_asset", err)
	if err != nil {
		storeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, asset)
}

// Patch handles PATCH /api/assets/{id}. A body holding only "status" is a
// status change; any other body patches descriptive attributes. Department
// moves go through the transfer ledger.
func (h *AssetsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	body, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, ok := fields["current_department"]; ok {
		jsonError(w, http.StatusBadRequest, "current_department cannot be patched; record a transfer instead")
		return
	}

	if raw, ok := fields["status"]; ok {
		if len(fields) > 1 {
			jsonError(w, http.StatusBadRequest, "status must be changed on its own")
			return
		}
		var statusID *int64
		if err := json.Unmarshal(raw, &statusID); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid status")
			return
		}

		change, err := store.ChangeStatus(r.Context(), h.DB, id, statusID)
		observe(h.Metrics, "change_status", err)
		if err != nil {
			storeError(w, r, err)
			return
		}

		slog.Info("asset status changed", "asset", change.AssetID,
			"from", change.OldStatusID, "to", change.NewStatusID)
		jsonResponse(w, http.StatusOK, change)
		return
	}

	var check model.AssetAttrs
	if err := json.Unmarshal(body, &check); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	asset, err := store.PatchAsset(r.Context(), h.DB, id, func(attrs *model.AssetAttrs) error {
		if err := json.Unmarshal(body, attrs); err != nil {
			return fmt.Errorf("%w: invalid request body", store.ErrValidation)
		}
		return nil
	})
	observe(h.Metrics, "update_asset", err)
	if err != nil {
		storeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, asset)
}

// Delete handles DELETE /api/assets/{id}.
func (h *AssetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	err := store.SoftDeleteAsset(r.Context(), h.DB, id)
	observe(h.Metrics, "delete_asset", err)
	if err != nil {
		storeError(w, r, err)
		return
	}

	slog.Info("asset deleted", "asset", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "asset deleted"})
}

// History handles GET /api/assets/{id}/history.
func (h *AssetsHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	history, err := store.GetAssetHistory(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if history == nil {
		jsonError(w, http.StatusNotFound, "asset not found")
		return
	}
	jsonResponse(w, http.StatusOK, history)
}
