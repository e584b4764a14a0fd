package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phishdeck/internal/domain"
)

func int64Ptr(v int64) *int64 { return &v }

func TestFilterPerScope(t *testing.T) {
	t.Parallel()
	reg := PlatformRegistry()

	tests := []struct {
		name     string
		scope    domain.Scope
		table    string
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:  "admin matches all",
			scope: domain.UnrestrictedScope{},
			table: TableUsers,
		},
		{
			name:     "tenant scope filters tenant column",
			scope:    domain.TenantScope{TenantID: 7},
			table:    TableCourses,
			wantSQL:  "tenant_id = ?",
			wantArgs: []interface{}{int64(7)},
		},
		{
			name:     "tenant scope on tenants table filters primary key",
			scope:    domain.TenantScope{TenantID: 7},
			table:    TableTenants,
			wantSQL:  "id = ?",
			wantArgs: []interface{}{int64(7)},
		},
		{
			name:     "owner scope filters owner column",
			scope:    domain.OwnerScope{UserID: 3},
			table:    TableEnrollments,
			wantSQL:  "user_id = ?",
			wantArgs: []interface{}{int64(3)},
		},
		{
			name:    "owner scope without owner column matches nothing",
			scope:   domain.OwnerScope{UserID: 3},
			table:   TableCourses,
			wantSQL: "1 = 0",
		},
		{
			name:    "no scope matches nothing",
			scope:   domain.NoScope{},
			table:   TableUsers,
			wantSQL: "1 = 0",
		},
		{
			name:  "exempt table matches all",
			scope: domain.NoScope{},
			table: "goose_db_version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pred, err := NewPolicy(tt.scope, reg).Filter(tt.table)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, pred.SQL)
			assert.Equal(t, tt.wantArgs, pred.Args)
		})
	}
}

func TestFilterUnknownTable(t *testing.T) {
	t.Parallel()
	_, err := NewPolicy(domain.UnrestrictedScope{}, PlatformRegistry()).Filter("mystery")
	require.Error(t, err)
}

func TestNilScopeFailsClosed(t *testing.T) {
	t.Parallel()
	pred, err := NewPolicy(nil, PlatformRegistry()).Filter(TableUsers)
	require.NoError(t, err)
	assert.Equal(t, domain.MatchNone(), pred)
}

func TestCanCreate(t *testing.T) {
	t.Parallel()
	reg := PlatformRegistry()

	tests := []struct {
		name    string
		scope   domain.Scope
		table   string
		payload Ref
		want    bool
	}{
		{"admin can create anywhere", domain.UnrestrictedScope{}, TableCourses, Ref{TenantID: int64Ptr(99)}, true},
		{"tenant can create in own tenant", domain.TenantScope{TenantID: 7}, TableCourses, Ref{TenantID: int64Ptr(7)}, true},
		{"tenant cannot create in other tenant", domain.TenantScope{TenantID: 7}, TableCourses, Ref{TenantID: int64Ptr(8)}, false},
		{"unstated tenant defers stamping", domain.TenantScope{TenantID: 7}, TableCourses, Ref{}, true},
		{"tenants table passes the evaluator, the service gates it", domain.TenantScope{TenantID: 7}, TableTenants, Ref{}, true},
		{"owner can create own rows", domain.OwnerScope{UserID: 3}, TableEnrollments, Ref{OwnerID: int64Ptr(3)}, true},
		{"owner cannot create for others", domain.OwnerScope{UserID: 3}, TableEnrollments, Ref{OwnerID: int64Ptr(4)}, false},
		{"owner cannot create ownerless tables", domain.OwnerScope{UserID: 3}, TableCourses, Ref{}, false},
		{"no scope cannot create", domain.NoScope{}, TableCourses, Ref{}, false},
		{"nobody creates into exempt tables", domain.TenantScope{TenantID: 7}, "goose_db_version", Ref{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NewPolicy(tt.scope, reg).CanCreate(tt.table, tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanUpdate(t *testing.T) {
	t.Parallel()
	reg := PlatformRegistry()

	tests := []struct {
		name    string
		scope   domain.Scope
		current Ref
		payload Ref
		want    bool
	}{
		{"admin updates anything", domain.UnrestrictedScope{}, Ref{TenantID: int64Ptr(9)}, Ref{TenantID: int64Ptr(2)}, true},
		{"tenant updates own row", domain.TenantScope{TenantID: 7}, Ref{TenantID: int64Ptr(7)}, Ref{}, true},
		{"tenant cannot update foreign row", domain.TenantScope{TenantID: 7}, Ref{TenantID: int64Ptr(8)}, Ref{}, false},
		{"tenant cannot move row to other tenant", domain.TenantScope{TenantID: 7}, Ref{TenantID: int64Ptr(7)}, Ref{TenantID: int64Ptr(8)}, false},
		{"no scope updates nothing", domain.NoScope{}, Ref{TenantID: int64Ptr(7)}, Ref{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NewPolicy(tt.scope, reg).CanUpdate(TableCourses, tt.current, tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanDelete(t *testing.T) {
	t.Parallel()
	reg := PlatformRegistry()

	ok, err := NewPolicy(domain.TenantScope{TenantID: 7}, reg).CanDelete(TableCourses, Ref{TenantID: int64Ptr(7)})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NewPolicy(domain.TenantScope{TenantID: 7}, reg).CanDelete(TableCourses, Ref{TenantID: int64Ptr(8)})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = NewPolicy(domain.OwnerScope{UserID: 3}, reg).CanDelete(TableEnrollments, Ref{OwnerID: int64Ptr(3)})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegistryRejectsBadRegistrations(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	require.Error(t, r.Register(EntityInfo{}))
	require.Error(t, r.Register(EntityInfo{Table: "plain"}))
	require.Error(t, r.Register(EntityInfo{Table: "both", TenantColumn: "tenant_id", Exempt: true}))

	require.NoError(t, r.Register(EntityInfo{Table: "ok", TenantColumn: "tenant_id"}))
	require.Error(t, r.Register(EntityInfo{Table: "ok", TenantColumn: "tenant_id"}))
}

func TestPlatformRegistryCoversSchema(t *testing.T) {
	t.Parallel()
	reg := PlatformRegistry()

	for _, table := range []string{
		TableTenants, TableUsers, TableCourses, TableLessons,
		TableEnrollments, TableQuizAttempts, TableCampaigns,
		TableCampaignTargets, TableCampaignEvents, TableAuditLog, TableAPIKeys,
	} {
		assert.True(t, reg.Known(table), "table %s not registered", table)
	}
}
