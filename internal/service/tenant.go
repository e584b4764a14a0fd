package service

import (
	"context"
	"fmt"

	"phishdeck/internal/authz"
	"phishdeck/internal/db/repository"
	"phishdeck/internal/domain"
	"phishdeck/internal/session"
)

// TenantService provides tenant provisioning and administration.
type TenantService struct {
	guard *session.Guard
	audit *auditor
}

// NewTenantService creates a TenantService.
func NewTenantService(guard *session.Guard) *TenantService {
	return &TenantService{guard: guard, audit: newAuditor(guard)}
}

// Create provisions a new tenant. Platform admins only: a tenant-scoped
// caller cannot create organizations.
func (s *TenantService) Create(ctx context.Context, req domain.CreateTenantRequest) (*domain.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := caller(ctx)
	action := fmt.Sprintf("CREATE_TENANT(slug=%s)", req.Slug)
	if _, ok := domain.DeriveScope(p).(domain.UnrestrictedScope); !ok {
		err := domain.ErrAccessDenied("tenant provisioning requires platform admin")
		s.audit.outcome(ctx, p, action, authz.TableTenants, nil, err)
		return nil, err
	}

	var out *domain.Tenant
	err := s.guard.Write(ctx, p, func(ctx context.Context, u *session.Unit) error {
		t, err := repository.NewTenantRepo(u.Tx).Create(ctx, req)
		if err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.outcome(ctx, p, action, authz.TableTenants, &out.ID, nil)
	return out, nil
}

// Get returns one tenant. A tenant-scoped caller sees only its own row; a
// foreign id reads as not found.
func (s *TenantService) Get(ctx context.Context, id int64) (*domain.Tenant, error) {
	var out *domain.Tenant
	err := s.guard.Read(ctx, caller(ctx), func(ctx context.Context, u *session.Unit) error {
		pred, err := u.Policy.Filter(authz.TableTenants)
		if err != nil {
			return err
		}
		t, err := repository.NewTenantRepo(u.Tx).GetByID(ctx, id, pred)
		if err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}

// List returns the tenants visible to the caller.
func (s *TenantService) List(ctx context.Context, page domain.PageRequest) ([]domain.Tenant, int64, error) {
	var (
		out   []domain.Tenant
		total int64
	)
	err := s.guard.Read(ctx, caller(ctx), func(ctx context.Context, u *session.Unit) error {
		pred, err := u.Policy.Filter(authz.TableTenants)
		if err != nil {
			return err
		}
		out, total, err = repository.NewTenantRepo(u.Tx).List(ctx, pred, page)
		return err
	})
	return out, total, err
}

// SetSuspended suspends or reinstates a tenant. Platform admins only.
func (s *TenantService) SetSuspended(ctx context.Context, id int64, suspended bool) error {
	p := caller(ctx)
	action := fmt.Sprintf("SUSPEND_TENANT(id=%d, suspended=%t)", id, suspended)
	if _, ok := domain.DeriveScope(p).(domain.UnrestrictedScope); !ok {
		err := domain.ErrAccessDenied("tenant suspension requires platform admin")
		s.audit.outcome(ctx, p, action, authz.TableTenants, &id, err)
		return err
	}

	err := s.guard.Write(ctx, p, func(ctx context.Context, u *session.Unit) error {
		return repository.NewTenantRepo(u.Tx).SetSuspended(ctx, id, suspended)
	})
	if err != nil {
		return err
	}
	s.audit.outcome(ctx, p, action, authz.TableTenants, &id, nil)
	return nil
}

// Delete removes a tenant together with all the data it owns. Platform
// admins only.
func (s *TenantService) Delete(ctx context.Context, id int64) error {
	p := caller(ctx)
	action := fmt.Sprintf("DELETE_TENANT(id=%d)", id)
	if _, ok := domain.DeriveScope(p).(domain.UnrestrictedScope); !ok {
		err := domain.ErrAccessDenied("tenant deletion requires platform admin")
		s.audit.outcome(ctx, p, action, authz.TableTenants, &id, err)
		return err
	}

	err := s.guard.Write(ctx, p, func(ctx context.Context, u *session.Unit) error {
		return repository.NewTenantRepo(u.Tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.audit.outcome(ctx, p, action, authz.TableTenants, &id, nil)
	return nil
}
