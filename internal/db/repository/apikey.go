package repository

import (
	"context"
	"database/sql"
	"time"

	"phishdeck/internal/db"
	"phishdeck/internal/domain"
)

// APIKeyRepo persists API keys. Only key hashes are stored.
type APIKeyRepo struct {
	q db.Querier
}

// NewAPIKeyRepo creates an APIKeyRepo over one unit of work.
func NewAPIKeyRepo(q db.Querier) *APIKeyRepo {
	return &APIKeyRepo{q: q}
}

const apiKeyColumns = `id, tenant_id, user_id, name, key_prefix, key_hash, expires_at, created_at`

// Create inserts a new API key record.
func (r *APIKeyRepo) Create(ctx context.Context, k *domain.APIKey) (*domain.APIKey, error) {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO api_keys (tenant_id, user_id, name, key_prefix, key_hash, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullInt64(k.TenantID), k.UserID, k.Name, k.KeyPrefix, k.KeyHash, nullTime(k.ExpiresAt), now)
	if err != nil {
		return nil, mapDBError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *k
	out.ID = id
	out.CreatedAt = now
	return &out, nil
}

// GetByHash resolves a presented key's hash, unfiltered. Authentication
// runs before any principal exists; callers run it under the system scope.
func (r *APIKeyRepo) GetByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = ?`, keyHash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, domain.ErrNotFound("unknown api key")
	}
	return scanAPIKey(rows)
}

// List returns API keys visible under the predicate.
func (r *APIKeyRepo) List(ctx context.Context, pred domain.Predicate) ([]domain.APIKey, error) {
	query, args := withPredicate(
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE 1 = 1`, nil, pred)
	query += ` ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []domain.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, *k)
	}
	return keys, rows.Err()
}

// Delete revokes an API key.
func (r *APIKeyRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM api_keys WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("api key %d not found", id)
	}
	return nil
}

func scanAPIKey(row rowScanner) (*domain.APIKey, error) {
	var (
		k         domain.APIKey
		tenantID  sql.NullInt64
		expiresAt sql.NullTime
	)
	if err := row.Scan(&k.ID, &tenantID, &k.UserID, &k.Name, &k.KeyPrefix, &k.KeyHash, &expiresAt, &k.CreatedAt); err != nil {
		return nil, err
	}
	k.TenantID = int64Ptr(tenantID)
	k.ExpiresAt = timePtr(expiresAt)
	return &k, nil
}
