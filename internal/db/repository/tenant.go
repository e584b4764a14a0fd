package repository

import (
	"context"
	"time"

	"phishdeck/internal/db"
	"phishdeck/internal/domain"
)

// TenantRepo persists tenants.
type TenantRepo struct {
	q db.Querier
}

// NewTenantRepo creates a TenantRepo over one unit of work.
func NewTenantRepo(q db.Querier) *TenantRepo {
	return &TenantRepo{q: q}
}

// Create inserts a new tenant.
func (r *TenantRepo) Create(ctx context.Context, req domain.CreateTenantRequest) (*domain.Tenant, error) {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO tenants (name, slug, suspended, created_at) VALUES (?, ?, 0, ?)`,
		req.Name, req.Slug, now)
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.Tenant{ID: id, Name: req.Name, Slug: req.Slug, CreatedAt: now}, nil
}

// GetByID returns one tenant visible under the predicate.
func (r *TenantRepo) GetByID(ctx context.Context, id int64, pred domain.Predicate) (*domain.Tenant, error) {
	query, args := withPredicate(
		`SELECT id, name, slug, suspended, created_at FROM tenants WHERE id = ?`,
		[]interface{}{id}, pred)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, domain.ErrNotFound("tenant %d not found", id)
	}
	return scanTenant(rows)
}

// GetBySlug returns one tenant by its slug, unfiltered. Used by login to
// resolve the tenant before any principal exists; callers run it under the
// system scope.
func (r *TenantRepo) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, name, slug, suspended, created_at FROM tenants WHERE slug = ?`, slug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, domain.ErrNotFound("tenant %q not found", slug)
	}
	return scanTenant(rows)
}

// List returns tenants visible under the predicate, paginated.
func (r *TenantRepo) List(ctx context.Context, pred domain.Predicate, page domain.PageRequest) ([]domain.Tenant, int64, error) {
	countQuery, countArgs := withPredicate(
		`SELECT COUNT(*) FROM tenants WHERE 1 = 1`, nil, pred)
	total, err := countRows(ctx, r.q, countQuery, countArgs)
	if err != nil {
		return nil, 0, err
	}

	query, args := withPredicate(
		`SELECT id, name, slug, suspended, created_at FROM tenants WHERE 1 = 1`,
		nil, pred)
	query += ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tenants []domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, 0, err
		}
		tenants = append(tenants, *t)
	}
	return tenants, total, rows.Err()
}

// SetSuspended flips a tenant's suspended flag.
func (r *TenantRepo) SetSuspended(ctx context.Context, id int64, suspended bool) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE tenants SET suspended = ? WHERE id = ?`, suspended, id)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("tenant %d not found", id)
	}
	return nil
}

// Delete removes a tenant and everything it owns, children first so the
// foreign keys hold throughout. Audit entries outlive the tenant with their
// tenant linkage cleared.
func (r *TenantRepo) Delete(ctx context.Context, id int64) error {
	children := []string{
		`DELETE FROM campaign_events WHERE tenant_id = ?`,
		`DELETE FROM campaign_targets WHERE tenant_id = ?`,
		`DELETE FROM campaigns WHERE tenant_id = ?`,
		`DELETE FROM quiz_attempts WHERE tenant_id = ?`,
		`DELETE FROM enrollments WHERE tenant_id = ?`,
		`DELETE FROM lessons WHERE tenant_id = ?`,
		`DELETE FROM courses WHERE tenant_id = ?`,
		`DELETE FROM api_keys WHERE tenant_id = ?`,
		`DELETE FROM users WHERE tenant_id = ?`,
		`UPDATE audit_log SET tenant_id = NULL WHERE tenant_id = ?`,
	}
	for _, query := range children {
		if _, err := r.q.ExecContext(ctx, query, id); err != nil {
			return mapDBError(err)
		}
	}

	res, err := r.q.ExecContext(ctx, `DELETE FROM tenants WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("tenant %d not found", id)
	}
	return nil
}

func scanTenant(row rowScanner) (*domain.Tenant, error) {
	var t domain.Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Suspended, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
