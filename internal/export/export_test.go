package export

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/erazemk/assettrack/internal/model"
)

func TestWriteAssets(t *testing.T) {
	it := "IT"
	purchase := model.NewDate(2024, 3, 15)
	assets := []model.Asset{
		{
			ID: 1,
			AssetAttrs: model.AssetAttrs{
				Name: "ThinkPad", SerialNumber: "SN-1", PurchaseDate: &purchase,
				Price: decimal.RequireFromString("1499.99"), Quantity: 2,
			},
			DepartmentName: &it,
			IsActive:       true,
		},
		{ID: 2, AssetAttrs: model.AssetAttrs{Name: "Cable"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAssets(&buf, assets))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Name", rows[0][1])
	assert.Equal(t, "ThinkPad", rows[1][1])
	assert.Equal(t, "SN-1", rows[1][3])
	assert.Equal(t, "IT", rows[1][6])
	assert.Equal(t, "2024-03-15", rows[1][8])
	assert.Equal(t, "1499.99", rows[1][10])
	assert.Equal(t, "Cable", rows[2][1])
}

func TestWriteAssetsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAssets(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
