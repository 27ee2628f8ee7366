package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/erazemk/assettrack/internal/model"
)

// TransferFilter narrows a ledger listing. A department matches transfers
// leaving or entering it.
type TransferFilter struct {
	AssetID      *int64
	DepartmentID *int64
}

// RecordTransfer moves an asset to another department. The ledger entry and
// the asset's current department are written in a single transaction, so
// readers observe both or neither.
func RecordTransfer(ctx context.Context, db *sql.DB, assetID int64, toDepartmentID *int64, note string) (*model.Transfer, error) {
	if toDepartmentID == nil {
		return nil, validationf("to_department is required")
	}

	var transferID int64
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		asset, err := activeAsset(ctx, tx, assetID)
		if err != nil {
			return err
		}

		to, err := getCatalogEntry(ctx, tx, model.CatalogDepartments, *toDepartmentID)
		if err != nil {
			return err
		}
		if to == nil || !to.IsActive {
			return validationf("department %d does not exist", *toDepartmentID)
		}
		if asset.CurrentDepartmentID != nil && *asset.CurrentDepartmentID == to.ID {
			return validationf("asset is already in department %q", to.Name)
		}

		result, err := exec(ctx, tx, insertInto("transfers").Rows(goqu.Record{
			"asset_id":           assetID,
			"from_department_id": idArg(asset.CurrentDepartmentID),
			"to_department_id":   to.ID,
			"transfer_date":      time.Now().UTC(),
			"note":               strings.TrimSpace(note),
		}))
		if err != nil {
			return fmt.Errorf("recording transfer: %w", err)
		}
		transferID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting transfer id: %w", err)
		}

		if _, err := exec(ctx, tx, update("assets").
			Set(goqu.Record{"current_department_id": to.ID, "updated_at": goqu.L("CURRENT_TIMESTAMP")}).
			Where(goqu.C("id").Eq(assetID))); err != nil {
			return fmt.Errorf("updating asset department: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetTransfer(ctx, db, transferID)
}

func transferSelect() *goqu.SelectDataset {
	return selectFrom(goqu.T("transfers").As("t")).
		Join(goqu.T("assets").As("a"), goqu.On(goqu.I("a.id").Eq(goqu.I("t.asset_id")))).
		LeftJoin(goqu.T("departments").As("fd"), goqu.On(goqu.I("fd.id").Eq(goqu.I("t.from_department_id")))).
		LeftJoin(goqu.T("departments").As("td"), goqu.On(goqu.I("td.id").Eq(goqu.I("t.to_department_id")))).
		Select(
			goqu.I("t.id"), goqu.I("t.asset_id"), goqu.I("t.from_department_id"), goqu.I("t.to_department_id"),
			goqu.I("t.transfer_date"), goqu.I("t.note"), goqu.I("t.created_at"),
			goqu.I("a.name"), goqu.I("fd.name"), goqu.I("td.name"),
		)
}

func scanTransfer(s interface{ Scan(...any) error }) (*model.Transfer, error) {
	var (
		t        model.Transfer
		from     sql.NullInt64
		fromName sql.NullString
		toName   sql.NullString
	)
	if err := s.Scan(&t.ID, &t.AssetID, &from, &t.ToDepartmentID,
		&t.TransferDate, &t.Note, &t.CreatedAt,
		&t.AssetName, &fromName, &toName); err != nil {
		return nil, err
	}
	t.FromDepartmentID = nullableID(from)
	t.FromDepartmentName = nullableName(fromName)
	t.ToDepartmentName = nullableName(toName)
	return &t, nil
}

// GetTransfer returns a ledger entry by ID, or nil if it does not exist.
func GetTransfer(ctx context.Context, db *sql.DB, id int64) (*model.Transfer, error) {
	row, err := queryRow(ctx, db, transferSelect().Where(goqu.I("t.id").Eq(id)))
	if err != nil {
		return nil, err
	}
	t, err := scanTransfer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting transfer: %w", err)
	}
	return t, nil
}

// ListTransfers returns ledger entries in creation order. Entries of
// soft-deleted assets are included.
func ListTransfers(ctx context.Context, db *sql.DB, f TransferFilter) ([]model.Transfer, error) {
	ds := transferSelect().Order(goqu.I("t.id").Asc())
	if f.AssetID != nil {
		ds = ds.Where(goqu.I("t.asset_id").Eq(*f.AssetID))
	}
	if f.DepartmentID != nil {
		ds = ds.Where(goqu.Or(
			goqu.I("t.from_department_id").Eq(*f.DepartmentID),
			goqu.I("t.to_department_id").Eq(*f.DepartmentID),
		))
	}

	rows, err := query(ctx, db, ds)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	defer rows.Close()

	transfers := []model.Transfer{}
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}
		transfers = append(transfers, *t)
	}
	return transfers, rows.Err()
}

// ReplayDepartment recomputes an asset's department by applying its ledger
// entries, in creation order, to its intake department.
func ReplayDepartment(ctx context.Context, db *sql.DB, assetID int64) (*int64, error) {
	asset, err := getAsset(ctx, db, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, notFoundf("asset %d does not exist", assetID)
	}

	rows, err := query(ctx, db, selectFrom("transfers").
		Select("to_department_id").
		Where(goqu.C("asset_id").Eq(assetID)).
		Order(goqu.C("id").Asc()))
	if err != nil {
		return nil, fmt.Errorf("replaying transfers: %w", err)
	}
	defer rows.Close()

	department := asset.IntakeDepartmentID
	for rows.Next() {
		var to int64
		if err := rows.Scan(&to); err != nil {
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}
		department = &to
	}
	return department, rows.Err()
}

// VerifyLedger lists every asset whose cached department differs from the
// department its ledger replays to.
func VerifyLedger(ctx context.Context, db *sql.DB) ([]model.LedgerMismatch, error) {
	latest := dialect.From(goqu.T("transfers").As("t")).
		Select(goqu.I("t.to_department_id")).
		Where(goqu.I("t.asset_id").Eq(goqu.I("a.id"))).
		Order(goqu.I("t.id").Desc()).
		Limit(1)
	replayed := goqu.COALESCE(latest, goqu.I("a.intake_department_id"))

	rows, err := query(ctx, db, selectFrom(goqu.T("assets").As("a")).
		Select(goqu.I("a.id"), goqu.I("a.current_department_id"), replayed).
		Where(goqu.L("? IS NOT ?", goqu.I("a.current_department_id"), replayed)).
		Order(goqu.I("a.id").Asc()))
	if err != nil {
		return nil, fmt.Errorf("verifying ledger: %w", err)
	}
	defer rows.Close()

	mismatches := []model.LedgerMismatch{}
	for rows.Next() {
		var (
			m            model.LedgerMismatch
			cached, last sql.NullInt64
		)
		if err := rows.Scan(&m.AssetID, &cached, &last); err != nil {
			return nil, fmt.Errorf("scanning mismatch: %w", err)
		}
		m.Cached = nullableID(cached)
		m.Replayed = nullableID(last)
		mismatches = append(mismatches, m)
	}
	return mismatches, rows.Err()
}
