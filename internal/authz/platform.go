package authz

// Governed table names. Repositories and the enforcement layer refer to
// tables through these constants so a rename stays a one-line change.
const (
	TableTenants         = "tenants"
	TableUsers           = "users"
	TableCourses         = "courses"
	TableLessons         = "lessons"
	TableEnrollments     = "enrollments"
	TableQuizAttempts    = "quiz_attempts"
	TableCampaigns       = "campaigns"
	TableCampaignTargets = "campaign_targets"
	TableCampaignEvents  = "campaign_events"
	TableAuditLog        = "audit_log"
	TableAPIKeys         = "api_keys"
)

// PlatformRegistry declares every table in the platform schema. The tenants
// table is governed by its own primary key: a tenant-scoped caller sees
// exactly its own row. goose's version table is the only exempt entry.
func PlatformRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(EntityInfo{Table: TableTenants, TenantColumn: "id"})
	r.MustRegister(EntityInfo{Table: TableUsers, TenantColumn: "tenant_id", OwnerColumn: "id"})
	r.MustRegister(EntityInfo{Table: TableCourses, TenantColumn: "tenant_id"})
	r.MustRegister(EntityInfo{Table: TableLessons, TenantColumn: "tenant_id"})
	r.MustRegister(EntityInfo{Table: TableEnrollments, TenantColumn: "tenant_id", OwnerColumn: "user_id"})
	r.MustRegister(EntityInfo{Table: TableQuizAttempts, TenantColumn: "tenant_id", OwnerColumn: "user_id"})
	r.MustRegister(EntityInfo{Table: TableCampaigns, TenantColumn: "tenant_id"})
	r.MustRegister(EntityInfo{Table: TableCampaignTargets, TenantColumn: "tenant_id"})
	r.MustRegister(EntityInfo{Table: TableCampaignEvents, TenantColumn: "tenant_id"})
	r.MustRegister(EntityInfo{Table: TableAuditLog, TenantColumn: "tenant_id"})
	r.MustRegister(EntityInfo{Table: TableAPIKeys, TenantColumn: "tenant_id"})
	r.MustRegister(EntityInfo{Table: "goose_db_version", Exempt: true})
	return r
}
