package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/erazemk/assettrack/internal/model"
)

// Listing defaults. The API may lower MaxPageSize through configuration but
// never raise it above this value.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// AssetFilter selects and orders a page of assets.
type AssetFilter struct {
	Search          string
	CategoryID      *int64
	DepartmentID    *int64
	StatusID        *int64
	IncludeInactive bool

	// Ordering is a field name, optionally prefixed with "-" for descending.
	Ordering string
	Page     int
	PageSize int
}

var assetOrderings = map[string]exp.Orderable{
	"name":          goqu.I("a.name"),
	"created_at":    goqu.I("a.created_at"),
	"purchase_date": goqu.I("a.purchase_date"),
	"price":         goqu.L("CAST(a.price AS REAL)"),
	"quantity":      goqu.I("a.quantity"),
	"id":            goqu.I("a.id"),
}

func assetSelect() *goqu.SelectDataset {
	return selectFrom(goqu.T("assets").As("a")).
		LeftJoin(goqu.T("categories").As("c"), goqu.On(goqu.I("c.id").Eq(goqu.I("a.category_id")))).
		LeftJoin(goqu.T("vendors").As("v"), goqu.On(goqu.I("v.id").Eq(goqu.I("a.vendor_id")))).
		LeftJoin(goqu.T("departments").As("d"), goqu.On(goqu.I("d.id").Eq(goqu.I("a.current_department_id")))).
		LeftJoin(goqu.T("statuses").As("s"), goqu.On(goqu.I("s.id").Eq(goqu.I("a.status_id"))))
}

var assetColumns = []any{
	goqu.I("a.id"), goqu.I("a.name"), goqu.I("a.model_number"), goqu.I("a.serial_number"),
	goqu.I("a.description"), goqu.I("a.category_id"), goqu.I("a.vendor_id"),
	goqu.I("a.purchase_date"), goqu.I("a.warranty_years"), goqu.I("a.price"), goqu.I("a.quantity"),
	goqu.I("a.status_id"), goqu.I("a.current_department_id"), goqu.I("a.intake_department_id"),
	goqu.I("a.is_active"), goqu.I("a.created_at"), goqu.I("a.updated_at"),
	goqu.I("c.name"), goqu.I("v.name"), goqu.I("d.name"), goqu.I("s.name"),
}

func scanAsset(s interface{ Scan(...any) error }) (*model.Asset, error) {
	var (
		a                                   model.Asset
		category, vendor, current, intake   sql.NullInt64
		purchase                            sql.Null[model.Date]
		categoryName, vendorName, dept, sts sql.NullString
	)
	if err := s.Scan(&a.ID, &a.Name, &a.ModelNumber, &a.SerialNumber,
		&a.Description, &category, &vendor,
		&purchase, &a.WarrantyYears, &a.Price, &a.Quantity,
		&a.StatusID, &current, &intake,
		&a.IsActive, &a.CreatedAt, &a.UpdatedAt,
		&categoryName, &vendorName, &dept, &sts); err != nil {
		return nil, err
	}

	a.CategoryID = nullableID(category)
	a.VendorID = nullableID(vendor)
	a.CurrentDepartmentID = nullableID(current)
	a.IntakeDepartmentID = nullableID(intake)
	if purchase.Valid && !purchase.V.IsZero() {
		d := purchase.V
		a.PurchaseDate = &d
	}
	a.WarrantyEnd = a.WarrantyEndDate()
	a.CategoryName = nullableName(categoryName)
	a.VendorName = nullableName(vendorName)
	a.DepartmentName = nullableName(dept)
	a.StatusName = nullableName(sts)
	return &a, nil
}

// GetAsset returns an asset by ID, including soft-deleted ones.
// Returns nil if the asset does not exist.
func GetAsset(ctx context.Context, db *sql.DB, id int64) (*model.Asset, error) {
	return getAsset(ctx, db, id)
}

func getAsset(ctx context.Context, q queryer, id int64) (*model.Asset, error) {
	row, err := queryRow(ctx, q, assetSelect().Select(assetColumns...).Where(goqu.I("a.id").Eq(id)))
	if err != nil {
		return nil, err
	}
	a, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting asset: %w", err)
	}
	return a, nil
}

// activeAsset loads an asset that is about to be mutated. Missing and
// soft-deleted assets are both reported as ErrNotFound.
func activeAsset(ctx context.Context, q queryer, id int64) (*model.Asset, error) {
	a, err := getAsset(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if a == nil || !a.IsActive {
		return nil, notFoundf("asset %d does not exist", id)
	}
	return a, nil
}

func validateAttrs(a *model.AssetAttrs) error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return validationf("name is required")
	}
	if a.Price.IsNegative() {
		return validationf("price must not be negative")
	}
	if a.Quantity < 0 {
		return validationf("quantity must not be negative")
	}
	if a.WarrantyYears < 0 {
		return validationf("warranty_years must not be negative")
	}
	if a.PurchaseDate != nil && a.PurchaseDate.IsZero() {
		a.PurchaseDate = nil
	}
	return nil
}

func checkAttrRefs(ctx context.Context, q queryer, a model.AssetAttrs) error {
	if a.CategoryID != nil {
		if _, err := lookupActive(ctx, q, model.CatalogCategories, *a.CategoryID); err != nil {
			return err
		}
	}
	if a.VendorID != nil {
		if _, err := lookupActive(ctx, q, model.CatalogVendors, *a.VendorID); err != nil {
			return err
		}
	}
	return nil
}

func attrsRecord(a model.AssetAttrs) goqu.Record {
	return goqu.Record{
		"name":           a.Name,
		"model_number":   a.ModelNumber,
		"serial_number":  a.SerialNumber,
		"description":    a.Description,
		"category_id":    idArg(a.CategoryID),
		"vendor_id":      idArg(a.VendorID),
		"purchase_date":  dateArg(a.PurchaseDate),
		"warranty_years": a.WarrantyYears,
		"price":          a.Price.String(),
		"quantity":       a.Quantity,
	}
}

// CreateAsset registers a new asset. When statusID is nil the first active
// in-service status is used. A department, if given, becomes both the intake
// and the current department.
func CreateAsset(ctx context.Context, db *sql.DB, attrs model.AssetAttrs, statusID, departmentID *int64) (*model.Asset, error) {
	if err := validateAttrs(&attrs); err != nil {
		return nil, err
	}

	var id int64
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		if err := checkAttrRefs(ctx, tx, attrs); err != nil {
			return err
		}

		var status *model.CatalogEntry
		var err error
		if statusID != nil {
			status, err = lookupActive(ctx, tx, model.CatalogStatuses, *statusID)
		} else {
			status, err = findByRole(ctx, tx, model.CatalogStatuses, model.StatusRoleInService)
			if err == nil && status == nil {
				err = validationf("status is required: no active in-service status exists")
			}
		}
		if err != nil {
			return err
		}

		if departmentID != nil {
			if _, err := lookupActive(ctx, tx, model.CatalogDepartments, *departmentID); err != nil {
				return err
			}
		}

		rec := attrsRecord(attrs)
		rec["status_id"] = status.ID
		rec["intake_department_id"] = idArg(departmentID)
		rec["current_department_id"] = idArg(departmentID)

		result, err := exec(ctx, tx, insertInto("assets").Rows(rec))
		if err != nil {
			return fmt.Errorf("inserting asset: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting asset id: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return getAsset(ctx, db, id)
}

// UpdateAsset replaces the descriptive attributes of an active asset.
// Status and department are left untouched.
func UpdateAsset(ctx context.Context, db *sql.DB, id int64, attrs model.AssetAttrs) (*model.Asset, error) {
	return PatchAsset(ctx, db, id, func(a *model.AssetAttrs) error {
		*a = attrs
		return nil
	})
}

// PatchAsset applies merge to the stored attributes of an active asset and
// writes the result. Reading, merging and writing share one transaction, so
// concurrent patches of different fields do not overwrite each other.
func PatchAsset(ctx context.Context, db *sql.DB, id int64, merge func(*model.AssetAttrs) error) (*model.Asset, error) {
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		current, err := activeAsset(ctx, tx, id)
		if err != nil {
			return err
		}

		attrs := current.AssetAttrs
		if err := merge(&attrs); err != nil {
			return err
		}
		if err := validateAttrs(&attrs); err != nil {
			return err
		}
		if err := checkAttrRefs(ctx, tx, attrs); err != nil {
			return err
		}

		rec := attrsRecord(attrs)
		rec["updated_at"] = goqu.L("CURRENT_TIMESTAMP")
		if _, err := exec(ctx, tx, update("assets").Set(rec).Where(goqu.C("id").Eq(id))); err != nil {
			return fmt.Errorf("updating asset: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return getAsset(ctx, db, id)
}

// SoftDeleteAsset marks an asset inactive. Its transfers, tickets and
// documents are kept. Deleting an already inactive asset is a no-op.
func SoftDeleteAsset(ctx context.Context, db *sql.DB, id int64) error {
	result, err := exec(ctx, db, update("assets").
		Set(goqu.Record{"is_active": false, "updated_at": goqu.L("CURRENT_TIMESTAMP")}).
		Where(goqu.C("id").Eq(id)))
	if err != nil {
		return fmt.Errorf("deleting asset: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFoundf("asset %d does not exist", id)
	}
	return nil
}

func assetOrder(ordering string) ([]exp.OrderedExpression, error) {
	if ordering == "" {
		ordering = "-created_at"
	}
	desc := strings.HasPrefix(ordering, "-")
	field := strings.TrimPrefix(ordering, "-")

	col, ok := assetOrderings[field]
	if !ok {
		return nil, validationf("cannot order by %q", field)
	}
	id := goqu.I("a.id")
	if desc {
		return []exp.OrderedExpression{col.Desc(), id.Desc()}, nil
	}
	return []exp.OrderedExpression{col.Asc(), id.Asc()}, nil
}

func filterAssets(f AssetFilter) *goqu.SelectDataset {
	ds := assetSelect()
	if !f.IncludeInactive {
		ds = ds.Where(goqu.I("a.is_active").IsTrue())
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		pattern := "%" + term + "%"
		ds = ds.Where(goqu.Or(
			goqu.I("a.name").Like(pattern),
			goqu.I("a.model_number").Like(pattern),
			goqu.I("a.serial_number").Like(pattern),
		))
	}
	if f.CategoryID != nil {
		ds = ds.Where(goqu.I("a.category_id").Eq(*f.CategoryID))
	}
	if f.DepartmentID != nil {
		ds = ds.Where(goqu.I("a.current_department_id").Eq(*f.DepartmentID))
	}
	if f.StatusID != nil {
		ds = ds.Where(goqu.I("a.status_id").Eq(*f.StatusID))
	}

	return ds
}

// ListAssets returns one page of assets matching f along with the total
// number of matches. Pages past the end are empty.
func ListAssets(ctx context.Context, db *sql.DB, f AssetFilter) (*model.Page[model.Asset], error) {
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Page < 1 {
		return nil, validationf("page must be a positive integer")
	}
	if f.PageSize < 0 {
		return nil, validationf("page_size must be a positive integer")
	}
	if f.PageSize == 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}

	order, err := assetOrder(f.Ordering)
	if err != nil {
		return nil, err
	}

	ds := filterAssets(f)
	page := &model.Page[model.Asset]{Results: []model.Asset{}}

	row, err := queryRow(ctx, db, ds.Select(goqu.COUNT(goqu.Star())))
	if err != nil {
		return nil, err
	}
	if err := row.Scan(&page.Count); err != nil {
		return nil, fmt.Errorf("counting assets: %w", err)
	}

	offset := uint((f.Page - 1) * f.PageSize)
	if int(offset) >= page.Count {
		return page, nil
	}

	rows, err := query(ctx, db, ds.Select(assetColumns...).
		Order(order...).
		Limit(uint(f.PageSize)).
		Offset(offset))
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		page.Results = append(page.Results, *a)
	}
	return page, rows.Err()
}

// ExportAssets returns every asset matching f in the requested order,
// without pagination.
func ExportAssets(ctx context.Context, db *sql.DB, f AssetFilter) ([]model.Asset, error) {
	order, err := assetOrder(f.Ordering)
	if err != nil {
		return nil, err
	}

	rows, err := query(ctx, db, filterAssets(f).Select(assetColumns...).Order(order...))
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	defer rows.Close()

	assets := []model.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

// GetAssetHistory returns an asset with its transfers and repair tickets.
// Returns nil if the asset does not exist.
func GetAssetHistory(ctx context.Context, db *sql.DB, id int64) (*model.AssetHistory, error) {
	a, err := getAsset(ctx, db, id)
	if err != nil || a == nil {
		return nil, err
	}

	transfers, err := ListTransfers(ctx, db, TransferFilter{AssetID: &id})
	if err != nil {
		return nil, err
	}
	repairs, err := ListTickets(ctx, db, TicketFilter{AssetID: &id})
	if err != nil {
		return nil, err
	}
	// Tickets list newest first; history reads oldest first.
	slices.Reverse(repairs)

	return &model.AssetHistory{Asset: a, Transfers: transfers, Repairs: repairs}, nil
}
