// Package export renders asset listings as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/assettrack/internal/model"
)

// SheetName is the worksheet holding the asset rows.
const SheetName = "Assets"

var headers = []string{
	"ID", "Name", "Model number", "Serial number", "Category", "Vendor",
	"Department", "Status", "Purchase date", "Warranty end", "Price", "Quantity", "Active",
}

// WriteAssets writes assets as an .xlsx workbook to w.
func WriteAssets(w io.Writer, assets []model.Asset) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	last, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetCellStyle(SheetName, "A1", last+"1", bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, a := range assets {
		row := i + 2
		price, _ := a.Price.Float64()
		values := []any{
			a.ID, a.Name, a.ModelNumber, a.SerialNumber,
			deref(a.CategoryName), deref(a.VendorName), deref(a.DepartmentName), deref(a.StatusName),
			dateCell(a.PurchaseDate), dateCell(a.WarrantyEnd),
			price, a.Quantity, a.IsActive,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", row, err)
		}
	}

	if err := f.SetColWidth(SheetName, "B", "H", 20); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dateCell(d *model.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}
