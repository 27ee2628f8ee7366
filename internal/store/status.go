package store

import (
	"context"
	"database/sql"

	"github.com/erazemk/assettrack/internal/model"
)

// ChangeStatus sets an asset's status directly, outside the repair workflow.
// Any status may follow any other, except that an asset with an unresolved
// repair ticket cannot leave its under-repair status this way.
func ChangeStatus(ctx context.Context, db *sql.DB, assetID int64, newStatusID *int64) (*model.StatusChange, error) {
	if newStatusID == nil {
		return nil, validationf("status is required")
	}

	var change *model.StatusChange
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		asset, err := activeAsset(ctx, tx, assetID)
		if err != nil {
			return err
		}

		next, err := lookupActive(ctx, tx, model.CatalogStatuses, *newStatusID)
		if err != nil {
			return err
		}

		current, err := getCatalogEntry(ctx, tx, model.CatalogStatuses, asset.StatusID)
		if err != nil {
			return err
		}
		if current != nil && current.Role == model.StatusRoleUnderRepair && next.Role != model.StatusRoleUnderRepair {
			open, err := unresolvedTicket(ctx, tx, assetID)
			if err != nil {
				return err
			}
			if open != 0 {
				return conflictf("asset %d is under repair on ticket %d; resolve the ticket first", assetID, open)
			}
		}

		if err := setAssetStatus(ctx, tx, assetID, next.ID); err != nil {
			return err
		}

		name := next.Name
		change = &model.StatusChange{
			AssetID:       asset.ID,
			Name:          asset.Name,
			OldStatusID:   asset.StatusID,
			OldStatusName: asset.StatusName,
			NewStatusID:   next.ID,
			NewStatusName: &name,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}
