package service

import (
	"context"

	"phishdeck/internal/authz"
	"phishdeck/internal/db/repository"
	"phishdeck/internal/domain"
	"phishdeck/internal/session"
)

// AuditService exposes the audit trail. The audit_log table is governed
// like any other: tenants read their own history, platform admins read
// everything.
type AuditService struct {
	guard *session.Guard
}

// NewAuditService creates an AuditService.
func NewAuditService(guard *session.Guard) *AuditService {
	return &AuditService{guard: guard}
}

// List returns audit entries matching the filter, newest first.
func (s *AuditService) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int64, error) {
	var (
		out   []domain.AuditEntry
		total int64
	)
	err := s.guard.Read(ctx, caller(ctx), func(ctx context.Context, u *session.Unit) error {
		pred, err := u.Policy.Filter(authz.TableAuditLog)
		if err != nil {
			return err
		}
		out, total, err = repository.NewAuditRepo(u.Tx).List(ctx, filter, pred)
		return err
	})
	return out, total, err
}
