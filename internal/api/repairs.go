package api

import (
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/erazemk/assettrack/internal/metrics"
	"github.com/erazemk/assettrack/internal/model"
	"github.com/erazemk/assettrack/internal/store"
)

// RepairsHandler handles the repair workflow endpoints.
type RepairsHandler struct {
	DB      *sql.DB
	Metrics *metrics.Metrics
}

type openTicketRequest struct {
	Product          int64  `json:"product"`
	FaultDescription string `json:"fault_description"`
}

type patchTicketRequest struct {
	RepairVendor *int64              `json:"repair_vendor"`
	SentDate     *model.Date         `json:"sent_date"`
	ReceivedDate *model.Date         `json:"received_date"`
	RepairCost   decimal.NullDecimal `json:"repair_cost"`
	Status       *int64              `json:"status"`
}

var (
	dispatchFields = map[string]bool{"repair_vendor": true, "sent_date": true}
	returnFields   = map[string]bool{"received_date": true, "repair_cost": true, "status": true}
)

// Create handles POST /api/repair-tickets.
func (h *RepairsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req openTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Product <= 0 {
		jsonError(w, http.StatusBadRequest, "product is required")
		return
	}

	ticket, err := store.OpenTicket(r.Context(), h.DB, req.Product, req.FaultDescription)
	observe(h.Metrics, "open_ticket", err)
	if err != nil {
		storeError(w, r, err)
		return
	}

	slog.Info("repair ticket opened", "ticket", ticket.ID, "asset", ticket.AssetID)
	jsonResponse(w, http.StatusCreated, ticket)
}

// List handles GET /api/repair-tickets.
func (h *RepairsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	assetID, err := queryID(q, "product")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	tickets, err := store.ListTickets(r.Context(), h.DB, store.TicketFilter{
		Stage:   q.Get("stage"),
		Search:  q.Get("search"),
		AssetID: assetID,
	})
	if err != nil {
		storeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, tickets)
}

// Get handles GET /api/repair-tickets/{id}.
func (h *RepairsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid ticket id")
		return
	}

	ticket, err := store.GetTicket(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, r, err)
		return
	}
	if ticket == nil {
		jsonError(w, http.StatusNotFound, "repair ticket not found")
		return
	}
	jsonResponse(w, http.StatusOK, ticket)
}

// Patch handles PATCH /api/repair-tickets/{id}. The fields present select
// the workflow step: repair_vendor and sent_date dispatch the ticket,
// received_date records the return, and a lone status resolves a returned
// ticket.
func (h *RepairsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid ticket id")
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
	var req patchTicketRequest
	if err := json.Unmarshal(body, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	var (
		ticket    *model.RepairTicket
		operation string
	)
	switch {
	case fields["received_date"] != nil:
		if !onlyFields(fields, returnFields) {
			jsonError(w, http.StatusBadRequest, "a return accepts only received_date, repair_cost and status")
			return
		}
		operation = "record_return"
		ticket, err = store.RecordReturn(r.Context(), h.DB, id, req.ReceivedDate, req.RepairCost, req.Status)
	case fields["repair_vendor"] != nil || fields["sent_date"] != nil:
		if !onlyFields(fields, dispatchFields) {
			jsonError(w, http.StatusBadRequest, "a dispatch accepts only repair_vendor and sent_date")
			return
		}
		operation = "dispatch_ticket"
		ticket, err = store.DispatchToVendor(r.Context(), h.DB, id, req.RepairVendor, req.SentDate)
	case fields["status"] != nil && len(fields) == 1:
		operation = "resolve_ticket"
		ticket, err = store.ResolveTicket(r.Context(), h.DB, id, req.Status)
	default:
		jsonError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	observe(h.Metrics, operation, err)
	if err != nil {
		storeError(w, r, err)
		return
	}

	slog.Info("repair ticket updated", "ticket", ticket.ID, "asset", ticket.AssetID, "stage", ticket.Stage)
	jsonResponse(w, http.StatusOK, ticket)
}

func onlyFields(fields map[string]json.RawMessage, allowed map[string]bool) bool {
	for k := range fields {
		if !allowed[k] {
			return false
		}
	}
	return true
}
