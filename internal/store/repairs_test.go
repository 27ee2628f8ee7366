package store

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/assettrack/internal/model"
)

func assetStatus(t *testing.T, f *fixture, id int64) int64 {
	t.Helper()
	a, err := GetAsset(f.ctx, f.db, id)
	require.NoError(t, err)
	return a.StatusID
}

func TestRepairCycle(t *testing.T) {
	f := newFixture(t)
	a := f.asset(t, "A1", &f.it)

	ticket, err := OpenTicket(f.ctx, f.db, a.ID, "won't boot")
	require.NoError(t, err)
	assert.Equal(t, model.StageReported, ticket.Stage)
	assert.Equal(t, "won't boot", ticket.FaultDescription)
	assert.Equal(t, f.pending, *ticket.StatusID)
	assert.Equal(t, "A1", ticket.AssetName)
	assert.Equal(t, f.repairing, assetStatus(t, f, a.ID))

	ticket, err = DispatchToVendor(f.ctx, f.db, ticket.ID, &f.fixIt, date("2025-01-10"))
	require.NoError(t, err)
	assert.Equal(t, model.StageDispatched, ticket.Stage)
	assert.Equal(t, "FixIt Co", *ticket.VendorName)
	assert.Equal(t, "2025-01-10", ticket.SentDate.String())

	ticket, err = RecordReturn(f.ctx, f.db, ticket.ID, date("2025-01-20"),
		decimal.NewNullDecimal(decimal.NewFromInt(500)), &f.repaired)
	require.NoError(t, err)
	assert.Equal(t, model.StageResolved, ticket.Stage)
	assert.Equal(t, "Repaired", *ticket.StatusName)
	assert.True(t, ticket.RepairCost.Valid)
	assert.True(t, ticket.RepairCost.Decimal.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, f.inStock, assetStatus(t, f, a.ID))
}

func TestRecordReturnBeforeDispatchConflicts(t *testing.T) {
	f := newFixture(t)
	a := f.asset(t, "A1", nil)

	ticket, err := OpenTicket(f.ctx, f.db, a.ID, "cracked screen")
	require.NoError(t, err)

	_, err = RecordReturn(f.ctx, f.db, ticket.ID, date("2025-01-20"), decimal.NullDecimal{}, &f.repaired)
	assert.ErrorIs(t, err, ErrConflict)

	got, err := GetTicket(f.ctx, f.db, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StageReported, got.Stage)
	assert.Nil(t, got.ReceivedDate)
}

func TestDispatchTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	a := f.asset(t, "A1", nil)

	ticket, err := OpenTicket(f.ctx, f.db, a.ID, "fan noise")
	require.NoError(t, err)
	_, err = DispatchToVendor(f.ctx, f.db, ticket.ID, &f.fixIt, date("2025-01-10"))
	require.NoError(t, err)

	_, err = DispatchToVendor(f.ctx, f.db, ticket.ID, &f.fixIt, date("2025-01-11"))
	assert.ErrorIs(t, err, ErrConflict)

	// Missing input on an out-of-sequence call still reports the sequence error.
	_, err = DispatchToVendor(f.ctx, f.db, ticket.ID, nil, nil)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestDispatchValidation(t *testing.T) {
	f := newFixture(t)
	a := f.asset(t, "A1", nil)
	ticket, err := OpenTicket(f.ctx, f.db, a.ID, "fan noise")
	require.NoError(t, err)

	_, err = DispatchToVendor(f.ctx, f.db, ticket.ID, nil, date("2025-01-10"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = DispatchToVendor(f.ctx, f.db, ticket.ID, &f.fixIt, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = DispatchToVendor(f.ctx, f.db, ticket.ID, ptr(int64(999)), date("2025-01-10"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = DispatchToVendor(f.ctx, f.db, 999, &f.fixIt, date("2025-01-10"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordReturnValidation(t *testing.T) {
	f := newFixture(t)
	a := f.asset(t, "A1", nil)
	ticket, err := OpenTicket(f.ctx, f.db, a.ID, "fan noise")
	require.NoError(t, err)
	_, err = DispatchToVendor(f.ctx, f.db, ticket.ID, &f.fixIt, date("2025-01-10"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		received *model.Date
		cost     decimal.NullDecimal
		outcome  *int64
		want     error
	}{
		{"missing received date", nil, decimal.NullDecimal{}, &f.repaired, ErrValidation},
		{"missing outcome", date("2025-01-20"), decimal.NullDecimal{}, nil, ErrValidation},
		{"received before sent", date("2025-01-09"), decimal.NullDecimal{}, &f.repaired, ErrValidation},
		{"negative cost", date("2025-01-20"), decimal.NewNullDecimal(decimal.NewFromInt(-5)), &f.repaired, ErrValidation},
		{"unknown outcome", date("2025-01-20"), decimal.NullDecimal{}, ptr(int64(999)), ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RecordReturn(f.ctx, f.db, ticket.ID, tt.received, tt.cost, tt.outcome)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	got, err := GetTicket(f.ctx, f.db, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StageDispatched, got.Stage)
	assert.Equal(t, f.repairing, assetStatus(t, f, a.ID))
}

func TestNonTerminalReturnThenResolve(t *testing.T) {
	f := newFixture(t)
	a := f.asset(t, "A1", nil)
	ticket, err := OpenTicket(f.ctx, f.db, a.ID, "battery")
	require.NoError(t, err)
	_, err = DispatchToVendor(f.ctx, f.db, ticket.ID, &f.fixIt, date("2025-02-01"))
	require.NoError(t, err)

	ticket, err = RecordReturn(f.ctx, f.db, ticket.ID, date("2025-02-05"), decimal.NullDecimal{}, &f.waitingParts)
	require.NoError(t, err)
	assert.Equal(t, model.StageReturned, ticket.Stage)
	assert.False(t, ticket.RepairCost.Valid)
	assert.Equal(t, f.repairing, assetStatus(t, f, a.ID), "asset stays under repair until resolved")

	_, err = ResolveTicket(f.ctx, f.db, ticket.ID, &f.waitingParts)
	assert.ErrorIs(t, err, ErrValidation, "outcome must be terminal")

	_, err = RecordReturn(f.ctx, f.db, ticket.ID, date("2025-02-06"), decimal.NullDecimal{}, &f.repaired)
	assert.ErrorIs(t, err, ErrConflict)

	ticket, err = ResolveTicket(f.ctx, f.db, ticket.ID, &f.notRepaired)
	require.NoError(t, err)
	assert.Equal(t, model.StageResolved, ticket.Stage)
	assert.Equal(t, f.retired, assetStatus(t, f, a.ID), "mapped status wins over in-service role")

	_, err = ResolveTicket(f.ctx, f.db, ticket.ID, &f.repaired)
	assert.ErrorIs(t, err, ErrConflict)
	_, err = DispatchToVendor(f.ctx, f.db, ticket.ID, &f.fixIt, date("2025-03-01"))
	assert.ErrorIs(t, err, ErrConflict, "resolved tickets are never re-dispatched")
}

func TestOpenTicketRules(t *testing.T) {
	f := newFixture(t)
	a := f.asset(t, "A1", nil)

	_, err := OpenTicket(f.ctx, f.db, a.ID, "   ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = OpenTicket(f.ctx, f.db, 999, "broken")
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := OpenTicket(f.ctx, f.db, a.ID, "broken")
	require.NoError(t, err)

	_, err = OpenTicket(f.ctx, f.db, a.ID, "still broken")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = DispatchToVendor(f.ctx, f.db, first.ID, &f.fixIt, date("2025-01-10"))
	require.NoError(t, err)
	_, err = RecordReturn(f.ctx, f.db, first.ID, date("2025-01-12"), decimal.NullDecimal{}, &f.repaired)
	require.NoError(t, err)

	second, err := OpenTicket(f.ctx, f.db, a.ID, "broken again")
	require.NoError(t, err, "a new cycle is a new ticket")
	assert.NotEqual(t, first.ID, second.ID)

	b := f.asset(t, "B1", nil)
	require.NoError(t, SoftDeleteAsset(f.ctx, f.db, b.ID))
	_, err = OpenTicket(f.ctx, f.db, b.ID, "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentOpenTicketAllowsOne(t *testing.T) {
	f := newFixture(t)
	a := f.asset(t, "A1", nil)

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = OpenTicket(f.ctx, f.db, a.ID, "broken")
		}(i)
	}
	wg.Wait()

	opened := 0
	for _, err := range errs {
		if err == nil {
			opened++
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
	}
	assert.Equal(t, 1, opened)

	tickets, err := ListTickets(f.ctx, f.db, TicketFilter{AssetID: &a.ID})
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
	assert.Equal(t, f.repairing, assetStatus(t, f, a.ID))
}

func TestOpenTicketWithoutRepairStatusIsBestEffort(t *testing.T) {
	f := newFixture(t)
	a := f.asset(t, "A1", nil)
	require.NoError(t, DeactivateCatalogEntry(f.ctx, f.db, model.CatalogStatuses, f.repairing))

	ticket, err := OpenTicket(f.ctx, f.db, a.ID, "no power")
	require.NoError(t, err)
	assert.Equal(t, model.StageReported, ticket.Stage)
	assert.Equal(t, f.inStock, assetStatus(t, f, a.ID))
}

func TestResolutionWithoutInServiceStatusFails(t *testing.T) {
	f := newFixture(t)
	a := f.asset(t, "A1", nil)
	ticket, err := OpenTicket(f.ctx, f.db, a.ID, "no power")
	require.NoError(t, err)
	_, err = DispatchToVendor(f.ctx, f.db, ticket.ID, &f.fixIt, date("2025-01-10"))
	require.NoError(t, err)

	require.NoError(t, DeactivateCatalogEntry(f.ctx, f.db, model.CatalogStatuses, f.inStock))

	_, err = RecordReturn(f.ctx, f.db, ticket.ID, date("2025-01-12"), decimal.NullDecimal{}, &f.repaired)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := GetTicket(f.ctx, f.db, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StageDispatched, got.Stage, "ticket must not resolve while the asset stays under repair")
}

func TestRepairOutcomeCannotMapToUnderRepair(t *testing.T) {
	f := newFixture(t)

	_, err := CreateCatalogEntry(f.ctx, f.db, model.CatalogRepairStatuses, model.CatalogEntry{
		Name: "Sent back", Role: model.RepairRoleTerminal, ProductStatusID: &f.repairing,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = UpdateCatalogEntry(f.ctx, f.db, model.CatalogRepairStatuses, f.notRepaired, model.CatalogEntry{
		Name: "Not Repaired", Role: model.RepairRoleTerminal, ProductStatusID: &f.repairing,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = UpdateCatalogEntry(f.ctx, f.db, model.CatalogStatuses, f.retired, model.CatalogEntry{
		Name: "Retired", Role: model.StatusRoleUnderRepair,
	})
	assert.ErrorIs(t, err, ErrValidation, "a status that ends repairs cannot become an under-repair status")
}

func TestResolutionIgnoresUnderRepairMapping(t *testing.T) {
	f := newFixture(t)
	a := f.asset(t, "A1", nil)
	ticket, err := OpenTicket(f.ctx, f.db, a.ID, "no power")
	require.NoError(t, err)
	_, err = DispatchToVendor(f.ctx, f.db, ticket.ID, &f.fixIt, date("2025-01-10"))
	require.NoError(t, err)

	// Rows written before the mapping rule existed can still point at a repair status.
	_, err = f.db.ExecContext(f.ctx, "UPDATE repair_statuses SET product_status_id = ? WHERE id = ?", f.repairing, f.notRepaired)
	require.NoError(t, err)

	got, err := RecordReturn(f.ctx, f.db, ticket.ID, date("2025-01-12"), decimal.NullDecimal{}, &f.notRepaired)
	require.NoError(t, err)
	assert.Equal(t, model.StageResolved, got.Stage)
	assert.Equal(t, f.inStock, assetStatus(t, f, a.ID))
}

func TestListTickets(t *testing.T) {
	f := newFixture(t)
	a := f.asset(t, "ThinkPad", nil)
	b := f.asset(t, "MacBook", nil)

	ta, err := OpenTicket(f.ctx, f.db, a.ID, "keyboard sticky")
	require.NoError(t, err)
	tb, err := OpenTicket(f.ctx, f.db, b.ID, "no wifi")
	require.NoError(t, err)
	_, err = DispatchToVendor(f.ctx, f.db, tb.ID, &f.fixIt, date("2025-01-10"))
	require.NoError(t, err)

	all, err := ListTickets(f.ctx, f.db, TicketFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, tb.ID, all[0].ID, "newest first")

	reported, err := ListTickets(f.ctx, f.db, TicketFilter{Stage: "reported"})
	require.NoError(t, err)
	require.Len(t, reported, 1)
	assert.Equal(t, ta.ID, reported[0].ID)

	dispatched, err := ListTickets(f.ctx, f.db, TicketFilter{Stage: "dispatched"})
	require.NoError(t, err)
	require.Len(t, dispatched, 1)
	assert.Equal(t, tb.ID, dispatched[0].ID)

	byFault, err := ListTickets(f.ctx, f.db, TicketFilter{Search: "WIFI"})
	require.NoError(t, err)
	require.Len(t, byFault, 1)
	assert.Equal(t, tb.ID, byFault[0].ID)

	byAsset, err := ListTickets(f.ctx, f.db, TicketFilter{Search: "think"})
	require.NoError(t, err)
	require.Len(t, byAsset, 1)
	assert.Equal(t, ta.ID, byAsset[0].ID)

	_, err = ListTickets(f.ctx, f.db, TicketFilter{Stage: "lost"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAssetHistory(t *testing.T) {
	f := newFixture(t)
	a := f.asset(t, "A1", &f.it)

	_, err := RecordTransfer(f.ctx, f.db, a.ID, &f.finance, "")
	require.NoError(t, err)
	_, err = OpenTicket(f.ctx, f.db, a.ID, "broken")
	require.NoError(t, err)
	require.NoError(t, SoftDeleteAsset(f.ctx, f.db, a.ID))

	h, err := GetAssetHistory(f.ctx, f.db, a.ID)
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.False(t, h.Asset.IsActive)
	assert.Len(t, h.Transfers, 1)
	assert.Len(t, h.Repairs, 1)

	missing, err := GetAssetHistory(f.ctx, f.db, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
