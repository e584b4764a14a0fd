package rls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phishdeck/internal/authz"
)

func tenantSettings(id int64) Settings {
	return Settings{TenantID: &id, Bound: true}
}

func ownerSettings(id int64) Settings {
	return Settings{UserID: &id, Bound: true}
}

func TestRewriteTenantScope(t *testing.T) {
	t.Parallel()
	reg := authz.PlatformRegistry()

	out, err := Rewrite("SELECT id, title FROM courses", reg, tenantSettings(7))
	require.NoError(t, err)
	assert.Contains(t, out, "courses.tenant_id = 7")
}

func TestRewriteOwnerScope(t *testing.T) {
	t.Parallel()
	reg := authz.PlatformRegistry()

	out, err := Rewrite("SELECT id FROM enrollments", reg, ownerSettings(3))
	require.NoError(t, err)
	assert.Contains(t, out, "enrollments.user_id = 3")
}

func TestRewriteOwnerScopeWithoutOwnerColumnMatchesNothing(t *testing.T) {
	t.Parallel()
	reg := authz.PlatformRegistry()

	// courses has no owner column; an owner-scoped caller sees none.
	out, err := Rewrite("SELECT id FROM courses", reg, ownerSettings(3))
	require.NoError(t, err)
	assert.Contains(t, out, "1 = 0")
}

func TestRewriteAdminPassesThrough(t *testing.T) {
	t.Parallel()
	reg := authz.PlatformRegistry()

	out, err := Rewrite("SELECT id FROM users", reg, Settings{Admin: true, Bound: true})
	require.NoError(t, err)
	assert.NotContains(t, out, "tenant_id =")
	assert.NotContains(t, out, "1 = 0")
}

func TestRewriteUnboundFailsClosed(t *testing.T) {
	t.Parallel()
	reg := authz.PlatformRegistry()

	out, err := Rewrite("SELECT id FROM users", reg, Settings{})
	require.NoError(t, err)
	assert.Contains(t, out, "1 = 0")
}

func TestRewriteBoundEmptyScopeFailsClosed(t *testing.T) {
	t.Parallel()
	reg := authz.PlatformRegistry()

	// Bound with no identity: an anonymous caller's unit of work.
	out, err := Rewrite("SELECT id FROM users", reg, Settings{Bound: true})
	require.NoError(t, err)
	assert.Contains(t, out, "1 = 0")
}

func TestRewritePreservesExistingWhere(t *testing.T) {
	t.Parallel()
	reg := authz.PlatformRegistry()

	out, err := Rewrite("SELECT id FROM users WHERE email = 'a@b.test'", reg, tenantSettings(2))
	require.NoError(t, err)
	assert.Contains(t, out, "email = 'a@b.test'")
	assert.Contains(t, out, "users.tenant_id = 2")
}

func TestRewriteQualifiesJoinedTables(t *testing.T) {
	t.Parallel()
	reg := authz.PlatformRegistry()

	out, err := Rewrite(
		"SELECT u.id FROM users u JOIN enrollments e ON e.user_id = u.id", reg, tenantSettings(5))
	require.NoError(t, err)
	assert.Contains(t, out, "u.tenant_id = 5")
	assert.Contains(t, out, "e.tenant_id = 5")
}

func TestRewriteUpdateAndDelete(t *testing.T) {
	t.Parallel()
	reg := authz.PlatformRegistry()

	out, err := Rewrite("UPDATE courses SET title = 'x' WHERE id = 1", reg, tenantSettings(4))
	require.NoError(t, err)
	assert.Contains(t, out, "tenant_id = 4")

	out, err = Rewrite("DELETE FROM courses WHERE id = 1", reg, tenantSettings(4))
	require.NoError(t, err)
	assert.Contains(t, out, "tenant_id = 4")
}

func TestRewriteInsertValuesUntouched(t *testing.T) {
	t.Parallel()
	reg := authz.PlatformRegistry()

	out, err := Rewrite(
		"INSERT INTO courses (tenant_id, title) VALUES (?, ?)", reg, tenantSettings(4))
	require.NoError(t, err)
	assert.NotContains(t, out, "1 = 0")
}

func TestRewriteInsertSelectGetsPredicate(t *testing.T) {
	t.Parallel()
	reg := authz.PlatformRegistry()

	out, err := Rewrite(
		"INSERT INTO courses (tenant_id, title) SELECT tenant_id, title FROM courses", reg, tenantSettings(4))
	require.NoError(t, err)
	assert.Contains(t, out, "courses.tenant_id = 4")
}

func TestRewriteSubqueryInWhere(t *testing.T) {
	t.Parallel()
	reg := authz.PlatformRegistry()

	out, err := Rewrite(
		"SELECT id FROM users WHERE id IN (SELECT user_id FROM enrollments)", reg, tenantSettings(9))
	require.NoError(t, err)
	assert.Contains(t, out, "users.tenant_id = 9")
	assert.Contains(t, out, "enrollments.tenant_id = 9")
}

func TestRewriteSubqueryInTargetList(t *testing.T) {
	t.Parallel()
	reg := authz.PlatformRegistry()

	out, err := Rewrite(
		"SELECT id, (SELECT count(*) FROM enrollments) FROM courses", reg, tenantSettings(9))
	require.NoError(t, err)
	assert.Contains(t, out, "enrollments.tenant_id = 9")
	assert.Contains(t, out, "courses.tenant_id = 9")
}

func TestRewriteCTENameIsNotABaseTable(t *testing.T) {
	t.Parallel()
	reg := authz.PlatformRegistry()

	out, err := Rewrite(
		"WITH recent AS (SELECT id, tenant_id FROM campaigns) SELECT id FROM recent", reg, tenantSettings(6))
	require.NoError(t, err)
	// The CTE body is filtered; the reference to "recent" is not.
	assert.Contains(t, out, "campaigns.tenant_id = 6")
}

func TestRewriteExemptTable(t *testing.T) {
	t.Parallel()
	reg := authz.PlatformRegistry()

	out, err := Rewrite("SELECT version_id FROM goose_db_version", reg, tenantSettings(1))
	require.NoError(t, err)
	assert.NotContains(t, out, "1 = 0")
	assert.NotContains(t, out, "tenant_id")
}

func TestRewriteUnknownTableFails(t *testing.T) {
	t.Parallel()
	reg := authz.PlatformRegistry()

	_, err := Rewrite("SELECT * FROM mystery", reg, tenantSettings(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mystery")
}

func TestRewritePlaceholdersSurvive(t *testing.T) {
	t.Parallel()
	reg := authz.PlatformRegistry()

	out, err := Rewrite("SELECT id FROM users WHERE email = ?", reg, tenantSettings(1))
	require.NoError(t, err)
	assert.Contains(t, out, "$1")
}

func TestRewriteWideTenantID(t *testing.T) {
	t.Parallel()
	reg := authz.PlatformRegistry()

	out, err := Rewrite("SELECT id FROM courses", reg, tenantSettings(4294967400))
	require.NoError(t, err)
	assert.Contains(t, out, "4294967400")
}

func TestExtractTables(t *testing.T) {
	t.Parallel()

	tables, err := ExtractTables(
		"WITH x AS (SELECT id FROM campaigns) SELECT u.id FROM users u JOIN x ON x.id = u.id WHERE u.id IN (SELECT user_id FROM enrollments)")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"campaigns", "users", "enrollments"}, tables)
}
