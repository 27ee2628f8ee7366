package model

import "github.com/shopspring/decimal"

// Summary aggregates the active asset register for the dashboard.
type Summary struct {
	TotalAssets    int             `json:"total_assets"`
	TotalValue     decimal.Decimal `json:"total_value"`
	ByStatus       []GroupCount    `json:"by_status"`
	ByDepartment   []GroupCount    `json:"by_department"`
	RepairsByStage map[Stage]int   `json:"repairs_by_stage"`
}

// GroupCount is the number of assets sharing a catalog reference.
// ID and Name are null for assets without one.
type GroupCount struct {
	ID    *int64  `json:"id"`
	Name  *string `json:"name"`
	Count int     `json:"count"`
}
