package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// dryRunMySQL renders MySQL statements without a server and returns the
// SELECTs issued through it.
func dryRunMySQL(t *testing.T) (*gorm.DB, *[]string) {
	t.Helper()
	gdb, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "user:pass@tcp(127.0.0.1:3306)/tiremarket?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true, Logger: logger.Discard})
	require.NoError(t, err)

	var queries []string
	err = gdb.Callback().Query().After("gorm:query").Register("test:capture", func(d *gorm.DB) {
		queries = append(queries, d.Statement.SQL.String())
	})
	require.NoError(t, err)
	return gdb, &queries
}

func TestLockAgreement_SelectsForUpdate(t *testing.T) {
	gdb, queries := dryRunMySQL(t)

	_, _ = lockAgreement(gdb, 1, 7)
	require.Len(t, *queries, 1)
	assert.Contains(t, (*queries)[0], "FROM `agreements`")
	assert.Contains(t, (*queries)[0], "FOR UPDATE")
}

func TestFindAgreement_DoesNotLock(t *testing.T) {
	gdb, queries := dryRunMySQL(t)

	_, _ = findAgreement(gdb, 1, 7)
	require.Len(t, *queries, 1)
	assert.NotContains(t, (*queries)[0], "FOR UPDATE")
}

func TestFindException_LocksAgreementOnly(t *testing.T) {
	gdb, queries := dryRunMySQL(t)

	_, _ = findException(gdb, 1, 7, 3)
	require.Len(t, *queries, 2)
	assert.Contains(t, (*queries)[0], "FROM `agreements`")
	assert.Contains(t, (*queries)[0], "FOR UPDATE")
	assert.Contains(t, (*queries)[1], "FROM `agreement_exceptions`")
	assert.NotContains(t, (*queries)[1], "FOR UPDATE")
}
