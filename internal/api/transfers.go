package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/assettrack/internal/metrics"
	"github.com/erazemk/assettrack/internal/model"
	"github.com/erazemk/assettrack/internal/store"
)

// TransfersHandler handles the transfer ledger endpoints.
type TransfersHandler struct {
	DB      *sql.DB
	Metrics *metrics.Metrics
}

type createTransferRequest struct {
	Product      int64  `json:"product"`
	ToDepartment *int64 `json:"to_department"`
	Note         string `json:"note"`
}

type createTransferResponse struct {
	Transfer          *model.Transfer `json:"transfer"`
	CurrentDepartment int64           `json:"current_department"`
}

// Create handles POST /api/transfers.
func (h *TransfersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Product <= 0 {
		jsonError(w, http.StatusBadRequest, "product is required")
		return
	}

	transfer, err := store.RecordTransfer(r.Context(), h.DB, req.Product, req.ToDepartment, req.Note)
	observe(h.Metrics, "record_transfer", err)
	if err != nil {
		storeError(w, r, err)
		return
	}

	slog.Info("transfer recorded", "asset", transfer.AssetID, "to", transfer.ToDepartmentID)
	jsonResponse(w, http.StatusCreated, createTransferResponse{
		Transfer:          transfer,
		CurrentDepartment: transfer.ToDepartmentID,
	})
}

// List handles GET /api/transfers.
func (h *TransfersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f store.TransferFilter
	var err error
	if f.AssetID, err = queryID(q, "product"); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.DepartmentID, err = queryID(q, "department"); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	transfers, err := store.ListTransfers(r.Context(), h.DB, f)
	if err != nil {
		storeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, transfers)
}

// ListForAsset handles GET /api/assets/{id}/transfers.
func (h *TransfersHandler) ListForAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	transfers, err := store.ListTransfers(r.Context(), h.DB, store.TransferFilter{AssetID: &id})
	if err != nil {
		storeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, transfers)
}

// Replay handles GET /api/assets/{id}/replay, comparing the cached
// department with the one the ledger replays to.
func (h *TransfersHandler) Replay(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid asset id")
		return
	}

	replayed, err := store.ReplayDepartment(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, r, err)
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

	jsonResponse(w, http.StatusOK, map[string]any{
		"product":             id,
		"cached_department":   asset.CurrentDepartmentID,
		"replayed_department": replayed,
	})
}

// Verify handles GET /api/transfers/verify.
func (h *TransfersHandler) Verify(w http.ResponseWriter, r *http.Request) {
	mismatches, err := store.VerifyLedger(r.Context(), h.DB)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if len(mismatches) > 0 {
		slog.Warn("ledger mismatches found", "count", len(mismatches))
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"consistent": len(mismatches) == 0,
		"mismatches": mismatches,
	})
}
