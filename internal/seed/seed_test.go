package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/assettrack/internal/db"
	"github.com/erazemk/assettrack/internal/model"
	"github.com/erazemk/assettrack/internal/store"
)

const catalogs = `
departments:
  - name: IT
    location: Floor 2
  - name: Finance
vendors:
  - name: FixIt Co
    phone: 555-0100
categories: [Laptops, Monitors]
statuses:
  - name: In Stock
    role: in_service
  - name: Repairing
    role: under_repair
  - name: Retired
repair_statuses:
  - name: Pending
    role: open
  - name: Repaired
    role: terminal
  - name: Not Repaired
    role: terminal
    product_status: Retired
`

func TestApply(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	f, err := Parse(strings.NewReader(catalogs))
	require.NoError(t, err)

	res, err := Apply(ctx, database, f)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 11}, res)

	statuses, err := store.ListCatalog(ctx, database, model.CatalogStatuses, false)
	require.NoError(t, err)
	var retired int64
	for _, s := range statuses {
		if s.Name == "Retired" {
			retired = s.ID
			assert.Equal(t, model.StatusRoleNone, s.Role)
		}
	}

	repairs, err := store.ListCatalog(ctx, database, model.CatalogRepairStatuses, false)
	require.NoError(t, err)
	for _, rs := range repairs {
		if rs.Name == "Not Repaired" {
			require.NotNil(t, rs.ProductStatusID)
			assert.Equal(t, retired, *rs.ProductStatusID)
		}
	}

	again, err := Apply(ctx, database, f)
	require.NoError(t, err)
	assert.Equal(t, Result{Skipped: 11}, again)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("owners:\n  - Alice\n"))
	assert.Error(t, err)
}

func TestApplyUnknownMapping(t *testing.T) {
	database := db.NewTestDB(t)

	f, err := Parse(strings.NewReader("repair_statuses:\n  - name: Done\n    role: terminal\n    product_status: Nowhere\n"))
	require.NoError(t, err)

	_, err = Apply(context.Background(), database, f)
	assert.Error(t, err)
}
