package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStage(t *testing.T) {
	sent := NewDate(2025, time.January, 10)
	received := NewDate(2025, time.January, 20)

	tests := []struct {
		name     string
		ticket   RepairTicket
		terminal bool
		want     Stage
	}{
		{"fresh", RepairTicket{}, false, StageReported},
		{"fresh with terminal status", RepairTicket{}, true, StageReported},
		{"sent", RepairTicket{SentDate: &sent}, false, StageDispatched},
		{"back, open outcome", RepairTicket{SentDate: &sent, ReceivedDate: &received}, false, StageReturned},
		{"back, terminal outcome", RepairTicket{SentDate: &sent, ReceivedDate: &received}, true, StageResolved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStage(&tt.ticket, tt.terminal))
		})
	}
}

func TestParseStage(t *testing.T) {
	for _, s := range []string{"reported", "dispatched", "returned", "resolved"} {
		got, err := ParseStage(s)
		assert.NoError(t, err)
		assert.Equal(t, Stage(s), got)
	}

	_, err := ParseStage("Pending Send")
	assert.Error(t, err)
}

func TestWarrantyEndDate(t *testing.T) {
	bought := NewDate(2023, time.March, 15)

	attrs := AssetAttrs{PurchaseDate: &bought, WarrantyYears: 2}
	end := attrs.WarrantyEndDate()
	if assert.NotNil(t, end) {
		assert.Equal(t, NewDate(2025, time.March, 15), *end)
	}

	assert.Nil(t, AssetAttrs{WarrantyYears: 2}.WarrantyEndDate())
	assert.Nil(t, AssetAttrs{PurchaseDate: &bought}.WarrantyEndDate())
}

func TestCatalogRoles(t *testing.T) {
	assert.True(t, CatalogStatuses.ValidRole(StatusRoleUnderRepair))
	assert.False(t, CatalogStatuses.ValidRole(RepairRoleTerminal))
	assert.True(t, CatalogRepairStatuses.ValidRole(RepairRoleTerminal))
	assert.True(t, CatalogDepartments.ValidRole(""))
	assert.False(t, CatalogDepartments.ValidRole(StatusRoleNone))
	assert.False(t, CatalogKind("owners").Valid())
}
