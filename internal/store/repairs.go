package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/shopspring/decimal"

	"github.com/erazemk/assettrack/internal/model"
)

// TicketFilter narrows a ticket listing. Stage, when set, must name a stage.
type TicketFilter struct {
	Stage   string
	Search  string
	AssetID *int64
}

func ticketSelect() *goqu.SelectDataset {
	return selectFrom(goqu.T("repair_tickets").As("r")).
		Join(goqu.T("assets").As("a"), goqu.On(goqu.I("a.id").Eq(goqu.I("r.asset_id")))).
		LeftJoin(goqu.T("vendors").As("v"), goqu.On(goqu.I("v.id").Eq(goqu.I("r.repair_vendor_id")))).
		LeftJoin(goqu.T("repair_statuses").As("rs"), goqu.On(goqu.I("rs.id").Eq(goqu.I("r.status_id")))).
		Select(
			goqu.I("r.id"), goqu.I("r.asset_id"), goqu.I("r.fault_description"), goqu.I("r.repair_vendor_id"),
			goqu.I("r.sent_date"), goqu.I("r.received_date"), goqu.I("r.repair_cost"), goqu.I("r.status_id"),
			goqu.I("r.stage"), goqu.I("r.created_at"), goqu.I("r.updated_at"),
			goqu.I("a.name"), goqu.I("v.name"), goqu.I("rs.name"),
		)
}

func scanTicket(s interface{ Scan(...any) error }) (*model.RepairTicket, error) {
	var (
		t                  model.RepairTicket
		vendor, status     sql.NullInt64
		sent, received     sql.Null[model.Date]
		vendorName, stName sql.NullString
	)
	if err := s.Scan(&t.ID, &t.AssetID, &t.FaultDescription, &vendor,
		&sent, &received, &t.RepairCost, &status,
		&t.Stage, &t.CreatedAt, &t.UpdatedAt,
		&t.AssetName, &vendorName, &stName); err != nil {
		return nil, err
	}
	t.RepairVendorID = nullableID(vendor)
	t.StatusID = nullableID(status)
	if sent.Valid {
		t.SentDate = &sent.V
	}
	if received.Valid {
		t.ReceivedDate = &received.V
	}
	t.VendorName = nullableName(vendorName)
	t.StatusName = nullableName(stName)
	return &t, nil
}

// GetTicket returns a repair ticket by ID, or nil if it does not exist.
func GetTicket(ctx context.Context, db *sql.DB, id int64) (*model.RepairTicket, error) {
	return getTicket(ctx, db, id)
}

func getTicket(ctx context.Context, q queryer, id int64) (*model.RepairTicket, error) {
	row, err := queryRow(ctx, q, ticketSelect().Where(goqu.I("r.id").Eq(id)))
	if err != nil {
		return nil, err
	}
	t, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting repair ticket: %w", err)
	}
	return t, nil
}

func existingTicket(ctx context.Context, q queryer, id int64) (*model.RepairTicket, error) {
	t, err := getTicket(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, notFoundf("repair ticket %d does not exist", id)
	}
	return t, nil
}

// ListTickets returns tickets newest first. Tickets of soft-deleted assets
// are included.
func ListTickets(ctx context.Context, db *sql.DB, f TicketFilter) ([]model.RepairTicket, error) {
	ds := ticketSelect().Order(goqu.I("r.created_at").Desc(), goqu.I("r.id").Desc())
	if f.Stage != "" {
		stage, err := model.ParseStage(f.Stage)
		if err != nil {
			return nil, validationf("%v", err)
		}
		ds = ds.Where(goqu.I("r.stage").Eq(string(stage)))
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		pattern := "%" + term + "%"
		ds = ds.Where(goqu.Or(
			goqu.I("a.name").Like(pattern),
			goqu.I("r.fault_description").Like(pattern),
		))
	}
	if f.AssetID != nil {
		ds = ds.Where(goqu.I("r.asset_id").Eq(*f.AssetID))
	}

	rows, err := query(ctx, db, ds)
	if err != nil {
		return nil, fmt.Errorf("listing repair tickets: %w", err)
	}
	defer rows.Close()

	tickets := []model.RepairTicket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning repair ticket: %w", err)
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

func unresolvedTicket(ctx context.Context, q queryer, assetID int64) (int64, error) {
	row, err := queryRow(ctx, q, selectFrom("repair_tickets").
		Select("id").
		Where(goqu.C("asset_id").Eq(assetID), goqu.C("stage").Neq(string(model.StageResolved))))
	if err != nil {
		return 0, err
	}
	var id int64
	err = row.Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("checking open repair tickets: %w", err)
	}
	return id, nil
}

func setAssetStatus(ctx context.Context, q queryer, assetID, statusID int64) error {
	if _, err := exec(ctx, q, update("assets").
		Set(goqu.Record{"status_id": statusID, "updated_at": goqu.L("CURRENT_TIMESTAMP")}).
		Where(goqu.C("id").Eq(assetID))); err != nil {
		return fmt.Errorf("updating asset status: %w", err)
	}
	return nil
}

// OpenTicket reports a fault on an asset. The asset is moved to the first
// active under-repair status if one exists; otherwise its status is left
// alone and a warning is logged.
func OpenTicket(ctx context.Context, db *sql.DB, assetID int64, faultDescription string) (*model.RepairTicket, error) {
	var ticketID int64
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := activeAsset(ctx, tx, assetID); err != nil {
			return err
		}

		open, err := unresolvedTicket(ctx, tx, assetID)
		if err != nil {
			return err
		}
		if open != 0 {
			return conflictf("asset %d already has unresolved repair ticket %d", assetID, open)
		}

		faultDescription = strings.TrimSpace(faultDescription)
		if faultDescription == "" {
			return validationf("fault_description is required")
		}

		initial, err := findByRole(ctx, tx, model.CatalogRepairStatuses, model.RepairRoleOpen)
		if err != nil {
			return err
		}
		var statusID *int64
		if initial != nil {
			statusID = &initial.ID
		}

		result, err := exec(ctx, tx, insertInto("repair_tickets").Rows(goqu.Record{
			"asset_id":          assetID,
			"fault_description": faultDescription,
			"status_id":         idArg(statusID),
			"stage":             string(model.StageReported),
		}))
		if err != nil {
			return fmt.Errorf("creating repair ticket: %w", err)
		}
		ticketID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting repair ticket id: %w", err)
		}

		repairing, err := findByRole(ctx, tx, model.CatalogStatuses, model.StatusRoleUnderRepair)
		if err != nil {
			return err
		}
		if repairing == nil {
			slog.Warn("no under-repair status configured, asset status unchanged",
				"asset", assetID, "ticket", ticketID)
			return nil
		}
		return setAssetStatus(ctx, tx, assetID, repairing.ID)
	})
	if err != nil {
		return nil, err
	}

	return GetTicket(ctx, db, ticketID)
}

// DispatchToVendor sends a reported ticket's asset out for repair.
func DispatchToVendor(ctx context.Context, db *sql.DB, ticketID int64, vendorID *int64, sentDate *model.Date) (*model.RepairTicket, error) {
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		t, err := existingTicket(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if t.Stage != model.StageReported {
			return conflictf("repair ticket %d is already %s", ticketID, t.Stage)
		}

		if vendorID == nil {
			return validationf("repair_vendor is required")
		}
		if sentDate == nil || sentDate.IsZero() {
			return validationf("sent_date is required")
		}

		if _, err := lookupActive(ctx, tx, model.CatalogVendors, *vendorID); err != nil {
			return err
		}

		t.RepairVendorID = vendorID
		t.SentDate = sentDate
		if _, err := exec(ctx, tx, update("repair_tickets").
			Set(goqu.Record{
				"repair_vendor_id": *vendorID,
				"sent_date":        dateArg(sentDate),
				"stage":            string(model.DeriveStage(t, false)),
				"updated_at":       goqu.L("CURRENT_TIMESTAMP"),
			}).
			Where(goqu.C("id").Eq(ticketID))); err != nil {
			return fmt.Errorf("dispatching repair ticket: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetTicket(ctx, db, ticketID)
}

// RecordReturn records the asset coming back from the vendor. A terminal
// outcome resolves the ticket and returns the asset to service; any other
// outcome leaves the ticket in the returned stage.
func RecordReturn(ctx context.Context, db *sql.DB, ticketID int64, receivedDate *model.Date, repairCost decimal.NullDecimal, outcomeStatusID *int64) (*model.RepairTicket, error) {
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		t, err := existingTicket(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		switch t.Stage {
		case model.StageDispatched:
		case model.StageReported:
			return conflictf("repair ticket %d has not been dispatched", ticketID)
		default:
			return conflictf("repair ticket %d is already %s", ticketID, t.Stage)
		}

		if receivedDate == nil || receivedDate.IsZero() {
			return validationf("received_date is required")
		}
		if outcomeStatusID == nil {
			return validationf("status is required")
		}
		if receivedDate.Before(*t.SentDate) {
			return validationf("received_date %s is before sent_date %s", receivedDate, t.SentDate)
		}
		if repairCost.Valid && repairCost.Decimal.IsNegative() {
			return validationf("repair_cost must not be negative")
		}

		outcome, err := lookupActive(ctx, tx, model.CatalogRepairStatuses, *outcomeStatusID)
		if err != nil {
			return err
		}

		t.ReceivedDate = receivedDate
		stage := model.DeriveStage(t, outcome.IsTerminal())

		var cost any
		if repairCost.Valid {
			cost = repairCost.Decimal.String()
		}
		if _, err := exec(ctx, tx, update("repair_tickets").
			Set(goqu.Record{
				"received_date": dateArg(receivedDate),
				"repair_cost":   cost,
				"status_id":     outcome.ID,
				"stage":         string(stage),
				"updated_at":    goqu.L("CURRENT_TIMESTAMP"),
			}).
			Where(goqu.C("id").Eq(ticketID))); err != nil {
			return fmt.Errorf("recording repair return: %w", err)
		}

		if stage == model.StageResolved {
			return returnToService(ctx, tx, t.AssetID, outcome)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetTicket(ctx, db, ticketID)
}

// ResolveTicket closes a returned ticket with a terminal outcome.
func ResolveTicket(ctx context.Context, db *sql.DB, ticketID int64, outcomeStatusID *int64) (*model.RepairTicket, error) {
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		t, err := existingTicket(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if t.Stage != model.StageReturned {
			return conflictf("repair ticket %d is %s, not returned", ticketID, t.Stage)
		}

		if outcomeStatusID == nil {
			return validationf("status is required")
		}

		outcome, err := lookupActive(ctx, tx, model.CatalogRepairStatuses, *outcomeStatusID)
		if err != nil {
			return err
		}
		if !outcome.IsTerminal() {
			return validationf("repair status %q is not terminal", outcome.Name)
		}

		if _, err := exec(ctx, tx, update("repair_tickets").
			Set(goqu.Record{
				"status_id":  outcome.ID,
				"stage":      string(model.DeriveStage(t, true)),
				"updated_at": goqu.L("CURRENT_TIMESTAMP"),
			}).
			Where(goqu.C("id").Eq(ticketID))); err != nil {
			return fmt.Errorf("resolving repair ticket: %w", err)
		}

		return returnToService(ctx, tx, t.AssetID, outcome)
	})
	if err != nil {
		return nil, err
	}

	return GetTicket(ctx, db, ticketID)
}

// returnToService moves an asset out of repair after a terminal outcome.
// The outcome's mapped status wins over the in-service role unless it is
// itself an under-repair status. If neither
// resolves, an asset still flagged under repair is a lookup failure; any
// other asset keeps its status.
func returnToService(ctx context.Context, q queryer, assetID int64, outcome *model.CatalogEntry) error {
	var target *model.CatalogEntry
	if outcome.ProductStatusID != nil {
		mapped, err := getCatalogEntry(ctx, q, model.CatalogStatuses, *outcome.ProductStatusID)
		if err != nil {
			return err
		}
		switch {
		case mapped == nil || !mapped.IsActive:
			slog.Warn("repair status maps to a missing asset status",
				"repair_status", outcome.ID, "status", *outcome.ProductStatusID)
		case mapped.Role == model.StatusRoleUnderRepair:
			slog.Warn("repair status maps to an under-repair asset status, ignoring mapping",
				"repair_status", outcome.ID, "status", mapped.ID)
		default:
			target = mapped
		}
	}
	if target == nil {
		inService, err := findByRole(ctx, q, model.CatalogStatuses, model.StatusRoleInService)
		if err != nil {
			return err
		}
		target = inService
	}

	if target != nil {
		return setAssetStatus(ctx, q, assetID, target.ID)
	}

	asset, err := getAsset(ctx, q, assetID)
	if err != nil {
		return err
	}
	current, err := getCatalogEntry(ctx, q, model.CatalogStatuses, asset.StatusID)
	if err != nil {
		return err
	}
	if current != nil && current.Role == model.StatusRoleUnderRepair {
		return notFoundf("no in-service status to return asset %d to", assetID)
	}
	slog.Warn("no in-service status configured, asset status unchanged", "asset", assetID)
	return nil
}
