package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiremarket/internal/models"
)

func TestConnect_SQLiteAndMigrate(t *testing.T) {
	gdb, err := Connect("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(gdb))

	for _, table := range []string{"agreements", "agreement_exceptions", "tire_brands",
		"tire_diameters", "user_roles", "role_permissions", "audit_logs"} {
		assert.True(t, gdb.Migrator().HasTable(table), table)
	}

	brand := int64(5)
	exc := models.AgreementException{AgreementID: 1, TireBrandID: &brand, CommissionPercent: 7.5, Active: true}
	require.NoError(t, gdb.Create(&exc).Error)

	var got models.AgreementException
	require.NoError(t, gdb.First(&got, exc.ID).Error)
	assert.Nil(t, got.TireDiameter)
	assert.True(t, got.Rule().Diameter.IsAny())
}

func TestConnect_UnknownDriver(t *testing.T) {
	_, err := Connect("oracle", "x")
	assert.ErrorContains(t, err, "oracle")
}
