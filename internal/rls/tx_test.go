package rls_test

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phishdeck/internal/authz"
	"phishdeck/internal/db"
	"phishdeck/internal/rls"
)

// seedTwoTenants inserts two tenants with one course each, bypassing
// enforcement.
func seedTwoTenants(t *testing.T, pool *sql.DB) {
	t.Helper()
	_, err := pool.Exec(`
		INSERT INTO tenants (id, name, slug, suspended, created_at) VALUES
			(1, 'Acme', 'acme', 0, datetime('now')),
			(2, 'Globex', 'globex', 0, datetime('now'));
		INSERT INTO courses (id, tenant_id, title, description, created_at) VALUES
			(1, 1, 'Acme Course', '', datetime('now')),
			(2, 2, 'Globex Course', '', datetime('now'));
	`)
	require.NoError(t, err)
}

func beginTx(t *testing.T, pool *sql.DB) *rls.Tx {
	t.Helper()
	tx, err := rls.Begin(context.Background(), pool, authz.PlatformRegistry(), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback() })
	return tx
}

func countCourses(t *testing.T, tx *rls.Tx) int {
	t.Helper()
	rows, err := tx.QueryContext(context.Background(), `SELECT COUNT(*) FROM courses`)
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var n int
	require.NoError(t, rows.Scan(&n))
	require.NoError(t, rows.Err())
	return n
}

func TestTxFiltersByTenant(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	seedTwoTenants(t, writeDB)

	tx := beginTx(t, writeDB)
	tenantID := int64(1)
	tx.SetSettings(rls.Settings{TenantID: &tenantID, Bound: true})

	assert.Equal(t, 1, countCourses(t, tx))
}

func TestTxUnboundSeesNothing(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	seedTwoTenants(t, writeDB)

	tx := beginTx(t, writeDB)
	assert.Equal(t, 0, countCourses(t, tx))
}

func TestTxAdminSeesEverything(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	seedTwoTenants(t, writeDB)

	tx := beginTx(t, writeDB)
	tx.SetSettings(rls.Settings{Admin: true, Bound: true})

	assert.Equal(t, 2, countCourses(t, tx))
}

// The enforcement layer alone must contain a statement with no WHERE clause
// at all: an UPDATE that would touch every row only reaches the bound
// tenant's rows.
func TestTxUpdateCannotCrossTenants(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	seedTwoTenants(t, writeDB)

	tx := beginTx(t, writeDB)
	tenantID := int64(1)
	tx.SetSettings(rls.Settings{TenantID: &tenantID, Bound: true})

	res, err := tx.ExecContext(context.Background(), `UPDATE courses SET title = 'owned'`)
	require.NoError(t, err)
	affected, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	require.NoError(t, tx.Commit())

	var title string
	require.NoError(t, writeDB.QueryRow(`SELECT title FROM courses WHERE id = 2`).Scan(&title))
	assert.Equal(t, "Globex Course", title)
}

func TestTxPositionalArgsBindInOrder(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	seedTwoTenants(t, writeDB)

	tx := beginTx(t, writeDB)
	tx.SetSettings(rls.Settings{Admin: true, Bound: true})

	rows, err := tx.QueryContext(context.Background(),
		`SELECT id FROM courses WHERE tenant_id = ? AND title = ?`, 2, "Globex Course")
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var id int64
	require.NoError(t, rows.Scan(&id))
	assert.Equal(t, int64(2), id)
}

func TestTxSettingsDieWithTransaction(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)

	tx := beginTx(t, writeDB)
	tenantID := int64(1)
	tx.SetSettings(rls.Settings{TenantID: &tenantID, Bound: true})
	require.NoError(t, tx.Commit())

	assert.Equal(t, rls.Settings{}, tx.Settings())
}

func TestVerifyRejectsUnregisteredTables(t *testing.T) {
	writeDB, readDB := db.OpenTestSQLite(t)

	require.NoError(t, rls.Verify(context.Background(), readDB, authz.PlatformRegistry()))

	_, err := writeDB.Exec(`CREATE TABLE rogue (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)

	err = rls.Verify(context.Background(), readDB, authz.PlatformRegistry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rogue")
}
