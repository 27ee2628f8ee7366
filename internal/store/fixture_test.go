package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/assettrack/internal/db"
	"github.com/erazemk/assettrack/internal/model"
)

// fixture is a database seeded with a small set of catalogs.
type fixture struct {
	db  *sql.DB
	ctx context.Context

	it, finance, hr int64
	fixIt           int64
	laptops         int64

	inStock, repairing, retired int64

	pending, repaired, notRepaired, waitingParts int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: db.NewTestDB(t), ctx: context.Background()}

	f.it = f.catalog(t, model.CatalogDepartments, model.CatalogEntry{Name: "IT", Location: "Floor 2"})
	f.finance = f.catalog(t, model.CatalogDepartments, model.CatalogEntry{Name: "Finance"})
	f.hr = f.catalog(t, model.CatalogDepartments, model.CatalogEntry{Name: "HR"})
	f.fixIt = f.catalog(t, model.CatalogVendors, model.CatalogEntry{Name: "FixIt Co", Phone: "555-0100"})
	f.laptops = f.catalog(t, model.CatalogCategories, model.CatalogEntry{Name: "Laptops"})

	f.inStock = f.catalog(t, model.CatalogStatuses, model.CatalogEntry{Name: "In Stock", Role: model.StatusRoleInService})
	f.repairing = f.catalog(t, model.CatalogStatuses, model.CatalogEntry{Name: "Repairing", Role: model.StatusRoleUnderRepair})
	f.retired = f.catalog(t, model.CatalogStatuses, model.CatalogEntry{Name: "Retired"})

	f.pending = f.catalog(t, model.CatalogRepairStatuses, model.CatalogEntry{Name: "Pending", Role: model.RepairRoleOpen})
	f.repaired = f.catalog(t, model.CatalogRepairStatuses, model.CatalogEntry{Name: "Repaired", Role: model.RepairRoleTerminal})
	f.notRepaired = f.catalog(t, model.CatalogRepairStatuses, model.CatalogEntry{
		Name: "Not Repaired", Role: model.RepairRoleTerminal, ProductStatusID: &f.retired,
	})
	f.waitingParts = f.catalog(t, model.CatalogRepairStatuses, model.CatalogEntry{Name: "Waiting for parts", Role: model.RepairRoleOpen})

	return f
}

func (f *fixture) catalog(t *testing.T, kind model.CatalogKind, e model.CatalogEntry) int64 {
	t.Helper()
	created, err := CreateCatalogEntry(f.ctx, f.db, kind, e)
	require.NoError(t, err)
	return created.ID
}

// asset creates an in-stock laptop in department dept.
func (f *fixture) asset(t *testing.T, name string, dept *int64) *model.Asset {
	t.Helper()
	a, err := CreateAsset(f.ctx, f.db, model.AssetAttrs{
		Name:       name,
		CategoryID: &f.laptops,
		Price:      decimal.RequireFromString("1200.50"),
		Quantity:   1,
	}, nil, dept)
	require.NoError(t, err)
	return a
}

func ptr[T any](v T) *T {
	return &v
}

func date(s string) *model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return &d
}
