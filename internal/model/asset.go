package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetAttrs are the display attributes of an asset. They are the only
// fields UpdateAsset and PatchAsset may replace.
type AssetAttrs struct {
	Name          string          `json:"name"`
	ModelNumber   string          `json:"model_number"`
	SerialNumber  string          `json:"serial_number"`
	Description   string          `json:"description"`
	CategoryID    *int64          `json:"category"`
	VendorID      *int64          `json:"vendor"`
	PurchaseDate  *Date           `json:"purchase_date"`
	WarrantyYears int             `json:"warranty_years"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity"`
}

// WarrantyEndDate derives the end of warranty from the purchase date.
// Returns nil when either input is missing.
func (a AssetAttrs) WarrantyEndDate() *Date {
	if a.PurchaseDate == nil || a.PurchaseDate.IsZero() || a.WarrantyYears <= 0 {
		return nil
	}
	end := Date{a.PurchaseDate.AddDate(a.WarrantyYears, 0, 0)}
	return &end
}

// Asset is a tracked physical item. Status and CurrentDepartmentID are owned
// by the status authority, repair workflow and transfer ledger.
type Asset struct {
	ID int64 `json:"id"`
	AssetAttrs

	StatusID            int64  `json:"status"`
	CurrentDepartmentID *int64 `json:"current_department"`
	IntakeDepartmentID  *int64 `json:"intake_department"`
	IsActive            bool   `json:"is_active"`

	WarrantyEnd *Date `json:"warranty_end_date"`

	// Resolved at read time; null when the reference is unset or missing.
	CategoryName   *string `json:"category_name"`
	VendorName     *string `json:"vendor_name"`
	DepartmentName *string `json:"department_name"`
	StatusName     *string `json:"status_name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusChange is the projection returned by a direct status change.
type StatusChange struct {
	AssetID       int64   `json:"id"`
	Name          string  `json:"name"`
	OldStatusID   int64   `json:"old_status"`
	OldStatusName *string `json:"old_status_name"`
	NewStatusID   int64   `json:"new_status"`
	NewStatusName *string `json:"new_status_name"`
}

// Page is one page of a listing.
type Page[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

// AssetHistory is the movement and repair record of one asset, oldest first.
type AssetHistory struct {
	Asset     *Asset         `json:"product"`
	Transfers []Transfer     `json:"transfers"`
	Repairs   []RepairTicket `json:"repairs"`
}
