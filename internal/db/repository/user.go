package repository

import (
	"context"
	"database/sql"
	"time"

	"phishdeck/internal/db"
	"phishdeck/internal/domain"
)

// UserRepo persists users.
type UserRepo struct {
	q db.Querier
}

// NewUserRepo creates a UserRepo over one unit of work.
func NewUserRepo(q db.Querier) *UserRepo {
	return &UserRepo{q: q}
}

const userColumns = `id, tenant_id, email, display_name, password_hash, is_platform_admin, created_at`

// Create inserts a new user. The password hash is computed by the service
// layer; the repository never sees a cleartext password.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO users (tenant_id, email, display_name, password_hash, is_platform_admin, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		nullInt64(u.TenantID), u.Email, u.DisplayName, u.PasswordHash, u.IsPlatformAdmin, now)
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *u
	out.ID = id
	out.CreatedAt = now
	return &out, nil
}

// GetByID returns one user visible under the predicate.
func (r *UserRepo) GetByID(ctx context.Context, id int64, pred domain.Predicate) (*domain.User, error) {
	query, args := withPredicate(
		`SELECT `+userColumns+` FROM users WHERE id = ?`,
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
		return nil, domain.ErrNotFound("user %d not found", id)
	}
	return scanUser(rows)
}

// GetByEmail returns one user by email, unfiltered. Login resolves
// credentials before any principal exists; callers run it under the system
// scope.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, domain.ErrNotFound("user %q not found", email)
	}
	return scanUser(rows)
}

// List returns users visible under the predicate, paginated.
func (r *UserRepo) List(ctx context.Context, pred domain.Predicate, page domain.PageRequest) ([]domain.User, int64, error) {
	countQuery, countArgs := withPredicate(
		`SELECT COUNT(*) FROM users WHERE 1 = 1`, nil, pred)
	total, err := countRows(ctx, r.q, countQuery, countArgs)
	if err != nil {
		return nil, 0, err
	}

	query, args := withPredicate(
		`SELECT `+userColumns+` FROM users WHERE 1 = 1`, nil, pred)
	query += ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

// UpdateDisplayName changes a user's display name.
func (r *UserRepo) UpdateDisplayName(ctx context.Context, id int64, displayName string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET display_name = ? WHERE id = ?`, displayName, id)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("user %d not found", id)
	}
	return nil
}

// Delete removes a user.
func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("user %d not found", id)
	}
	return nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u        domain.User
		tenantID sql.NullInt64
	)
	if err := row.Scan(&u.ID, &tenantID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.IsPlatformAdmin, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.TenantID = int64Ptr(tenantID)
	return &u, nil
}
