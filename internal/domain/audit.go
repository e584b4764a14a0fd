package domain

import "time"

// Audit statuses.
const (
	AuditAllowed = "ALLOWED"
	AuditDenied  = "DENIED"
	AuditError   = "ERROR"
)

// AuditEntry represents a single audit log record. Entries carry the tenant
// they concern so the audit trail itself is a governed table: tenants read
// their own history, platform admins read everything.
type AuditEntry struct {
	ID            int64
	TenantID      *int64
	PrincipalName string
	Action        string
	Entity        string // governed table the action touched
	EntityID      *int64
	Status        string // AuditAllowed, AuditDenied, AuditError
	Detail        *string
	CreatedAt     time.Time
}

// AuditFilter narrows audit list queries. Nil fields mean "no filter".
type AuditFilter struct {
	PrincipalName *string
	Action        *string
	Status        *string
	Page          PageRequest
}
