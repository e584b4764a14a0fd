// Package service implements the platform's business operations. Every
// operation runs inside a guarded unit of work: the session guard derives
// the caller's scope, the policy evaluator gates mutations and filters
// reads, and the enforcement layer independently constrains the SQL that
// reaches the database.
package service

import (
	"context"

	"phishdeck/internal/db/repository"
	"phishdeck/internal/domain"
	"phishdeck/internal/session"
)

// caller extracts the request's principal. An absent principal is the
// anonymous principal, which derives the fail-closed scope.
func caller(ctx context.Context) domain.Principal {
	p, _ := domain.PrincipalFromContext(ctx)
	return p
}

// resolveTenant picks the tenant a new row is stamped with: an explicit
// request value when present (platform admins acting on behalf of a
// tenant), otherwise the caller's own tenant.
func resolveTenant(p domain.Principal, requested *int64) (int64, error) {
	if requested != nil {
		return *requested, nil
	}
	if p.TenantID != nil {
		return *p.TenantID, nil
	}
	return 0, domain.ErrValidation("tenant_id is required")
}

// auditor appends audit entries in their own committed unit of work, so a
// DENIED entry survives the rollback of the mutation it refuses.
type auditor struct {
	guard *session.Guard
}

func newAuditor(guard *session.Guard) *auditor {
	return &auditor{guard: guard}
}

func (a *auditor) record(ctx context.Context, e domain.AuditEntry) {
	_ = a.guard.System(ctx, "audit", func(ctx context.Context, u *session.Unit) error {
		return repository.NewAuditRepo(u.Tx).Insert(ctx, &e)
	})
}

// outcome records the final audit status of one mutation: ALLOWED on nil
// error, DENIED on an access-denied error, nothing for other failures. It
// must run after the mutation's transaction has been released; the write
// pool has a single connection and the audit unit needs it.
func (a *auditor) outcome(ctx context.Context, p domain.Principal, action, entity string, entityID *int64, err error) {
	status := ""
	switch {
	case err == nil:
		status = domain.AuditAllowed
	case domain.IsAccessDenied(err):
		status = domain.AuditDenied
	default:
		return
	}
	a.record(ctx, domain.AuditEntry{
		TenantID:      p.TenantID,
		PrincipalName: p.Name,
		Action:        action,
		Entity:        entity,
		EntityID:      entityID,
		Status:        status,
	})
}
