package store

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/assettrack/internal/model"
)

func TestGetSummary(t *testing.T) {
	f := newFixture(t)
	a := f.asset(t, "A1", &f.it)
	f.asset(t, "A2", &f.it)
	_, err := CreateAsset(f.ctx, f.db, model.AssetAttrs{
		Name: "Chairs", Price: decimal.RequireFromString("49.90"), Quantity: 10,
	}, nil, nil)
	require.NoError(t, err)
	gone := f.asset(t, "Gone", &f.hr)
	require.NoError(t, SoftDeleteAsset(f.ctx, f.db, gone.ID))

	_, err = OpenTicket(f.ctx, f.db, a.ID, "broken")
	require.NoError(t, err)

	s, err := GetSummary(f.ctx, f.db)
	require.NoError(t, err)

	assert.Equal(t, 3, s.TotalAssets)
	assert.True(t, s.TotalValue.Equal(decimal.RequireFromString("2900.00")), "got %s", s.TotalValue)

	require.Len(t, s.ByDepartment, 2)
	assert.Equal(t, 2, s.ByDepartment[0].Count)
	assert.Equal(t, "IT", *s.ByDepartment[0].Name)
	assert.Nil(t, s.ByDepartment[1].ID)

	counts := map[string]int{}
	for _, c := range s.ByStatus {
		counts[*c.Name] = c.Count
	}
	assert.Equal(t, map[string]int{"In Stock": 2, "Repairing": 1}, counts)

	assert.Equal(t, 1, s.RepairsByStage[model.StageReported])
	assert.Equal(t, 0, s.RepairsByStage[model.StageResolved])
}
