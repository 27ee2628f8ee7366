package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"

	"github.com/erazemk/assettrack/internal/model"
)

// catalogTable describes how a catalog kind is stored.
type catalogTable struct {
	name       string
	hasRole    bool
	hasMapping bool
	text       []string
}

var catalogTables = map[model.CatalogKind]catalogTable{
	model.CatalogDepartments:    {name: "departments", text: []string{"location", "responsible_person"}},
	model.CatalogVendors:        {name: "vendors", text: []string{"phone", "email", "address"}},
	model.CatalogCategories:     {name: "categories"},
	model.CatalogStatuses:       {name: "statuses", hasRole: true},
	model.CatalogRepairStatuses: {name: "repair_statuses", hasRole: true, hasMapping: true},
}

var catalogTextColumns = []string{"location", "responsible_person", "phone", "email", "address"}

func tableFor(kind model.CatalogKind) (catalogTable, error) {
	t, ok := catalogTables[kind]
	if !ok {
		return catalogTable{}, validationf("unknown catalog %q", kind)
	}
	return t, nil
}

func (t catalogTable) hasText(col string) bool {
	for _, c := range t.text {
		if c == col {
			return true
		}
	}
	return false
}

// columns selects a uniform row shape for every catalog, filling columns the
// table does not have with empty values.
func (t catalogTable) columns() []any {
	cols := []any{goqu.C("id"), goqu.C("name")}
	if t.hasRole {
		cols = append(cols, goqu.C("role"))
	} else {
		cols = append(cols, goqu.L("''").As("role"))
	}
	if t.hasMapping {
		cols = append(cols, goqu.C("product_status_id"))
	} else {
		cols = append(cols, goqu.L("NULL").As("product_status_id"))
	}
	for _, c := range catalogTextColumns {
		if t.hasText(c) {
			cols = append(cols, goqu.C(c))
		} else {
			cols = append(cols, goqu.L("''").As(c))
		}
	}
	return append(cols, goqu.C("is_active"), goqu.C("created_at"), goqu.C("updated_at"))
}

func (t catalogTable) record(e model.CatalogEntry) goqu.Record {
	rec := goqu.Record{"name": e.Name}
	if t.hasRole {
		rec["role"] = e.Role
	}
	if t.hasMapping {
		rec["product_status_id"] = idArg(e.ProductStatusID)
	}
	values := map[string]string{
		"location":           e.Location,
		"responsible_person": e.ResponsiblePerson,
		"phone":              e.Phone,
		"email":              e.Email,
		"address":            e.Address,
	}
	for _, c := range t.text {
		rec[c] = values[c]
	}
	return rec
}

func scanCatalogEntry(kind model.CatalogKind, s interface{ Scan(...any) error }) (*model.CatalogEntry, error) {
	e := &model.CatalogEntry{Kind: kind}
	var mapping sql.NullInt64
	if err := s.Scan(&e.ID, &e.Name, &e.Role, &mapping,
		&e.Location, &e.ResponsiblePerson, &e.Phone, &e.Email, &e.Address,
		&e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.ProductStatusID = nullableID(mapping)
	return e, nil
}

// ListCatalog returns catalog entries ordered by name. Inactive entries are
// included only when requested.
func ListCatalog(ctx context.Context, db *sql.DB, kind model.CatalogKind, includeInactive bool) ([]model.CatalogEntry, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	ds := selectFrom(t.name).Select(t.columns()...).Order(goqu.C("name").Asc(), goqu.C("id").Asc())
	if !includeInactive {
		ds = ds.Where(goqu.C("is_active").IsTrue())
	}

	rows, err := query(ctx, db, ds)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}
	defer rows.Close()

	entries := []model.CatalogEntry{}
	for rows.Next() {
		e, err := scanCatalogEntry(kind, rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", kind, err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// GetCatalogEntry returns a catalog entry by ID, active or not.
func GetCatalogEntry(ctx context.Context, db *sql.DB, kind model.CatalogKind, id int64) (*model.CatalogEntry, error) {
	return getCatalogEntry(ctx, db, kind, id)
}

func getCatalogEntry(ctx context.Context, q queryer, kind model.CatalogKind, id int64) (*model.CatalogEntry, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	row, err := queryRow(ctx, q, selectFrom(t.name).Select(t.columns()...).Where(goqu.C("id").Eq(id)))
	if err != nil {
		return nil, err
	}
	e, err := scanCatalogEntry(kind, row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s entry: %w", kind, err)
	}
	return e, nil
}

// lookupActive resolves a catalog ID that is about to be written somewhere.
// A missing or deactivated entry is reported as ErrNotFound.
func lookupActive(ctx context.Context, q queryer, kind model.CatalogKind, id int64) (*model.CatalogEntry, error) {
	e, err := getCatalogEntry(ctx, q, kind, id)
	if err != nil {
		return nil, err
	}
	if e == nil || !e.IsActive {
		return nil, notFoundf("%s entry %d does not exist", kind, id)
	}
	return e, nil
}

// findByRole returns the first active entry carrying role, or nil if none does.
func findByRole(ctx context.Context, q queryer, kind model.CatalogKind, role string) (*model.CatalogEntry, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	if !t.hasRole {
		return nil, fmt.Errorf("catalog %s has no roles", kind)
	}

	row, err := queryRow(ctx, q, selectFrom(t.name).
		Select(t.columns()...).
		Where(goqu.C("role").Eq(role), goqu.C("is_active").IsTrue()).
		Order(goqu.C("id").Asc()).
		Limit(1))
	if err != nil {
		return nil, err
	}
	e, err := scanCatalogEntry(kind, row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding %s with role %s: %w", kind, role, err)
	}
	return e, nil
}

func normalizeCatalogEntry(ctx context.Context, q queryer, kind model.CatalogKind, e *model.CatalogEntry) error {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return validationf("name is required")
	}
	if e.Role == "" {
		e.Role = kind.DefaultRole()
	}
	if !kind.ValidRole(e.Role) {
		return validationf("invalid role %q for %s", e.Role, kind)
	}
	if kind != model.CatalogRepairStatuses {
		e.ProductStatusID = nil
	} else if e.ProductStatusID != nil {
		if e.Role != model.RepairRoleTerminal {
			return validationf("only terminal repair statuses can map to an asset status")
		}
		mapped, err := lookupActive(ctx, q, model.CatalogStatuses, *e.ProductStatusID)
		if err != nil {
			return err
		}
		if mapped.Role == model.StatusRoleUnderRepair {
			return validationf("status %q is an under-repair status and cannot end a repair", mapped.Name)
		}
	}
	return nil
}

// guardRoleChange rejects status role edits that would desynchronise assets
// from their repair tickets.
func guardRoleChange(ctx context.Context, q queryer, current *model.CatalogEntry, next model.CatalogEntry) error {
	if current.Kind != model.CatalogStatuses || current.Role == next.Role {
		return nil
	}

	if current.Role == model.StatusRoleUnderRepair {
		row, err := queryRow(ctx, q, selectFrom(goqu.T("repair_tickets").As("r")).
			Join(goqu.T("assets").As("a"), goqu.On(goqu.I("a.id").Eq(goqu.I("r.asset_id")))).
			Select(goqu.I("r.id")).
			Where(
				goqu.I("a.status_id").Eq(current.ID),
				goqu.I("r.stage").Neq(string(model.StageResolved)),
			).
			Limit(1))
		if err != nil {
			return err
		}
		var ticketID int64
		switch err := row.Scan(&ticketID); {
		case err == nil:
			return conflictf("status %q is held by an asset under repair on ticket %d", current.Name, ticketID)
		case err != sql.ErrNoRows:
			return fmt.Errorf("checking assets under repair: %w", err)
		}
	}

	if next.Role == model.StatusRoleUnderRepair {
		row, err := queryRow(ctx, q, selectFrom("repair_statuses").
			Select("name").
			Where(goqu.C("product_status_id").Eq(current.ID)).
			Limit(1))
		if err != nil {
			return err
		}
		var repairStatus string
		switch err := row.Scan(&repairStatus); {
		case err == nil:
			return validationf("status %q ends repairs under %q and cannot be an under-repair status", current.Name, repairStatus)
		case err != sql.ErrNoRows:
			return fmt.Errorf("checking repair status mappings: %w", err)
		}
	}
	return nil
}

// CreateCatalogEntry adds an entry to a catalog.
func CreateCatalogEntry(ctx context.Context, db *sql.DB, kind model.CatalogKind, e model.CatalogEntry) (*model.CatalogEntry, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	if err := normalizeCatalogEntry(ctx, db, kind, &e); err != nil {
		return nil, err
	}

	result, err := exec(ctx, db, insertInto(t.name).Rows(t.record(e)))
	if err != nil {
		return nil, fmt.Errorf("creating %s entry: %w", kind, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting %s id: %w", kind, err)
	}

	return getCatalogEntry(ctx, db, kind, id)
}

// UpdateCatalogEntry renames an entry and replaces its role and details.
// References held by assets and tickets are unaffected. A status cannot
// lose its under-repair role while an asset holding it has an unresolved
// ticket.
func UpdateCatalogEntry(ctx context.Context, db *sql.DB, kind model.CatalogKind, id int64, e model.CatalogEntry) (*model.CatalogEntry, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	err = withTx(ctx, db, func(tx *sql.Tx) error {
		current, err := getCatalogEntry(ctx, tx, kind, id)
		if err != nil {
			return err
		}
		if current == nil {
			return notFoundf("%s entry %d does not exist", kind, id)
		}
		if err := normalizeCatalogEntry(ctx, tx, kind, &e); err != nil {
			return err
		}
		if err := guardRoleChange(ctx, tx, current, e); err != nil {
			return err
		}

		rec := t.record(e)
		rec["updated_at"] = goqu.L("CURRENT_TIMESTAMP")
		if _, err := exec(ctx, tx, update(t.name).Set(rec).Where(goqu.C("id").Eq(id))); err != nil {
			return fmt.Errorf("updating %s entry: %w", kind, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return getCatalogEntry(ctx, db, kind, id)
}

// DeactivateCatalogEntry hides an entry from listings and from new writes.
// Rows referencing it keep resolving its name.
func DeactivateCatalogEntry(ctx context.Context, db *sql.DB, kind model.CatalogKind, id int64) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}

	result, err := exec(ctx, db, update(t.name).
		Set(goqu.Record{"is_active": false, "updated_at": goqu.L("CURRENT_TIMESTAMP")}).
		Where(goqu.C("id").Eq(id)))
	if err != nil {
		return fmt.Errorf("deactivating %s entry: %w", kind, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFoundf("%s entry %d does not exist", kind, id)
	}
	return nil
}
