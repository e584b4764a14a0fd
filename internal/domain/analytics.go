package domain

// TenantOverview summarizes a tenant's training posture. Every count is
// computed inside one guarded unit of work, so a tenant-scoped caller's
// overview covers exactly its own rows.
type TenantOverview struct {
	Users                int64
	Courses              int64
	Enrollments          int64
	CompletedEnrollments int64
	Campaigns            int64
}
