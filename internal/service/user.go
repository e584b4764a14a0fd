package service

import (
	"context"
	"fmt"

	"github.com/alexedwards/argon2id"

	"phishdeck/internal/authz"
	"phishdeck/internal/db/repository"
	"phishdeck/internal/domain"
	"phishdeck/internal/session"
)

// UserService provides account management inside a tenant.
type UserService struct {
	guard *session.Guard
	audit *auditor
}

// NewUserService creates a UserService.
func NewUserService(guard *session.Guard) *UserService {
	return &UserService{guard: guard, audit: newAuditor(guard)}
}

// Create adds a user to a tenant. The policy evaluator refuses creation
// outside the caller's own tenant.
func (s *UserService) Create(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := caller(ctx)
	action := fmt.Sprintf("CREATE_USER(email=%s)", req.Email)

	tenantID, err := resolveTenant(p, req.TenantID)
	if err != nil {
		return nil, err
	}

	hash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var out *domain.User
	err = s.guard.Write(ctx, p, func(ctx context.Context, u *session.Unit) error {
		ok, err := u.Policy.CanCreate(authz.TableUsers, authz.Ref{TenantID: &tenantID})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAccessDenied("cannot create user in tenant %d", tenantID)
		}

		created, err := repository.NewUserRepo(u.Tx).Create(ctx, &domain.User{
			TenantID:     &tenantID,
			Email:        req.Email,
			DisplayName:  req.DisplayName,
			PasswordHash: hash,
		})
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		s.audit.outcome(ctx, p, action, authz.TableUsers, nil, err)
		return nil, err
	}
	s.audit.outcome(ctx, p, action, authz.TableUsers, &out.ID, nil)
	return out, nil
}

// Get returns one user visible to the caller.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	var out *domain.User
	err := s.guard.Read(ctx, caller(ctx), func(ctx context.Context, u *session.Unit) error {
		pred, err := u.Policy.Filter(authz.TableUsers)
		if err != nil {
			return err
		}
		found, err := repository.NewUserRepo(u.Tx).GetByID(ctx, id, pred)
		if err != nil {
			return err
		}
		out = found
		return nil
	})
	return out, err
}

// List returns the users visible to the caller.
func (s *UserService) List(ctx context.Context, page domain.PageRequest) ([]domain.User, int64, error) {
	var (
		out   []domain.User
		total int64
	)
	err := s.guard.Read(ctx, caller(ctx), func(ctx context.Context, u *session.Unit) error {
		pred, err := u.Policy.Filter(authz.TableUsers)
		if err != nil {
			return err
		}
		out, total, err = repository.NewUserRepo(u.Tx).List(ctx, pred, page)
		return err
	})
	return out, total, err
}

// Update applies a partial user update. The policy evaluator refuses
// cross-tenant moves and updates to rows outside the caller's scope.
func (s *UserService) Update(ctx context.Context, id int64, req domain.UpdateUserRequest) (*domain.User, error) {
	p := caller(ctx)
	action := fmt.Sprintf("UPDATE_USER(id=%d)", id)

	var out *domain.User
	err := s.guard.Write(ctx, p, func(ctx context.Context, u *session.Unit) error {
		repo := repository.NewUserRepo(u.Tx)

		pred, err := u.Policy.Filter(authz.TableUsers)
		if err != nil {
			return err
		}
		current, err := repo.GetByID(ctx, id, pred)
		if err != nil {
			return err
		}

		ok, err := u.Policy.CanUpdate(authz.TableUsers,
			authz.Ref{TenantID: current.TenantID, OwnerID: &current.ID},
			authz.Ref{TenantID: req.TenantID})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAccessDenied("cannot update user %d", id)
		}

		if req.DisplayName != nil {
			if err := repo.UpdateDisplayName(ctx, id, *req.DisplayName); err != nil {
				return err
			}
			current.DisplayName = *req.DisplayName
		}
		out = current
		return nil
	})
	s.audit.outcome(ctx, p, action, authz.TableUsers, &id, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a user visible to the caller.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	p := caller(ctx)
	action := fmt.Sprintf("DELETE_USER(id=%d)", id)

	err := s.guard.Write(ctx, p, func(ctx context.Context, u *session.Unit) error {
		repo := repository.NewUserRepo(u.Tx)

		pred, err := u.Policy.Filter(authz.TableUsers)
		if err != nil {
			return err
		}
		current, err := repo.GetByID(ctx, id, pred)
		if err != nil {
			return err
		}

		ok, err := u.Policy.CanDelete(authz.TableUsers,
			authz.Ref{TenantID: current.TenantID, OwnerID: &current.ID})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAccessDenied("cannot delete user %d", id)
		}
		return repo.Delete(ctx, id)
	})
	s.audit.outcome(ctx, p, action, authz.TableUsers, &id, err)
	return err
}
