package model

import "time"

// Transfer is an immutable ledger entry recording a department move.
type Transfer struct {
	ID               int64     `json:"id"`
	AssetID          int64     `json:"product"`
	FromDepartmentID *int64    `json:"from_department"`
	ToDepartmentID   int64     `json:"to_department"`
	TransferDate     time.Time `json:"transfer_date"`
	Note             string    `json:"note"`
	CreatedAt        time.Time `json:"created_at"`

	// Joined fields.
	AssetName          string  `json:"product_name"`
	FromDepartmentName *string `json:"from_department_name"`
	ToDepartmentName   *string `json:"to_department_name"`
}

// LedgerMismatch describes an asset whose cached department disagrees with
// the department obtained by replaying its transfers.
type LedgerMismatch struct {
	AssetID  int64  `json:"product"`
	Cached   *int64 `json:"cached_department"`
	Replayed *int64 `json:"replayed_department"`
}
