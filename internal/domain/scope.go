package domain

import "fmt"

// Principal is the authenticated identity behind one request. It is built
// once from verified credentials, is immutable for the request's duration,
// and is never persisted.
type Principal struct {
	UserID          *int64 // nil for anonymous or machine principals
	TenantID        *int64 // nil for platform admins and pre-tenant signup
	IsPlatformAdmin bool
	Name            string // display name for audit entries
}

// Scope is the resolved visibility boundary derived from a Principal.
// Exactly one variant is active per request. The zero value of a scope-typed
// field must never be treated as unrestricted; absence of a scope is the
// most restrictive state.
type Scope interface {
	fmt.Stringer
	isScope()
}

// TenantScope restricts visibility to a single tenant's rows.
type TenantScope struct {
	TenantID int64
}

func (TenantScope) isScope()         {}
func (s TenantScope) String() string { return fmt.Sprintf("tenant(%d)", s.TenantID) }

// OwnerScope restricts visibility to rows owned by a single user.
type OwnerScope struct {
	UserID int64
}

func (OwnerScope) isScope()         {}
func (s OwnerScope) String() string { return fmt.Sprintf("owner(%d)", s.UserID) }

// UnrestrictedScope is the platform-admin scope: no filtering, all
// capability checks pass.
type UnrestrictedScope struct{}

func (UnrestrictedScope) isScope()       {}
func (UnrestrictedScope) String() string { return "unrestricted" }

// NoScope is the fail-closed scope: every filtered query matches nothing
// and every capability check is false. It is the default for a unit of work
// that was never bound.
type NoScope struct{}

func (NoScope) isScope()       {}
func (NoScope) String() string { return "none" }

// DeriveScope resolves a Principal to its active Scope using the
// admin > tenant > owner > none precedence. A platform admin with a tenant
// membership still resolves to UnrestrictedScope: admin capability is never
// narrowed by tenant membership.
func DeriveScope(p Principal) Scope {
	switch {
	case p.IsPlatformAdmin:
		return UnrestrictedScope{}
	case p.TenantID != nil:
		return TenantScope{TenantID: *p.TenantID}
	case p.UserID != nil:
		return OwnerScope{UserID: *p.UserID}
	default:
		return NoScope{}
	}
}

// SystemPrincipal is the identity used by in-process jobs (scheduler,
// tracking ingestion) that act across tenants by design.
func SystemPrincipal(name string) Principal {
	return Principal{IsPlatformAdmin: true, Name: name}
}
