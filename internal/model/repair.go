package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Stage is the lifecycle position of a repair ticket.
type Stage string

// Repair ticket stages, in lifecycle order.
const (
	StageReported   Stage = "reported"
	StageDispatched Stage = "dispatched"
	StageReturned   Stage = "returned"
	StageResolved   Stage = "resolved"
)

// ParseStage validates a stage name.
func ParseStage(s string) (Stage, error) {
	switch st := Stage(s); st {
	case StageReported, StageDispatched, StageReturned, StageResolved:
		return st, nil
	default:
		return "", fmt.Errorf("invalid stage %q", s)
	}
}

// Open reports whether the repair cycle is still running.
func (s Stage) Open() bool {
	return s != StageResolved
}

// RepairTicket tracks one fault-to-resolution cycle for one asset.
type RepairTicket struct {
	ID               int64               `json:"id"`
	AssetID          int64               `json:"product"`
	FaultDescription string              `json:"fault_description"`
	RepairVendorID   *int64              `json:"repair_vendor"`
	SentDate         *Date               `json:"sent_date"`
	ReceivedDate     *Date               `json:"received_date"`
	RepairCost       decimal.NullDecimal `json:"repair_cost"`
	StatusID         *int64              `json:"status"`
	Stage            Stage               `json:"stage"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`

	// Joined fields.
	AssetName  string  `json:"product_name"`
	VendorName *string `json:"repair_vendor_name"`
	StatusName *string `json:"status_name"`
}

// DeriveStage computes the stage implied by the ticket's dates and outcome.
// terminal reports whether the recorded outcome status is terminal.
func DeriveStage(t *RepairTicket, terminal bool) Stage {
	switch {
	case t.SentDate == nil:
		return StageReported
	case t.ReceivedDate == nil:
		return StageDispatched
	case terminal:
		return StageResolved
	default:
		return StageReturned
	}
}
