package repository

import (
	"context"
	"database/sql"
	"time"

	"phishdeck/internal/db"
	"phishdeck/internal/domain"
)

// AuditRepo persists the audit trail. The audit_log table is itself
// governed, so tenants listing their history see only their own entries.
type AuditRepo struct {
	q db.Querier
}

// NewAuditRepo creates an AuditRepo over one unit of work.
func NewAuditRepo(q db.Querier) *AuditRepo {
	return &AuditRepo{q: q}
}

// Insert appends one audit entry.
func (r *AuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO audit_log (tenant_id, principal_name, action, entity, entity_id, status, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nullInt64(e.TenantID), e.PrincipalName, e.Action, e.Entity, nullInt64(e.EntityID),
		e.Status, nullStr(e.Detail), now)
	return mapDBError(err)
}

// List returns audit entries matching the filter and visible under the
// predicate, newest first.
func (r *AuditRepo) List(ctx context.Context, filter domain.AuditFilter, pred domain.Predicate) ([]domain.AuditEntry, int64, error) {
	where := ` WHERE 1 = 1`
	var args []interface{}
	if filter.PrincipalName != nil {
		where += ` AND principal_name = ?`
		args = append(args, *filter.PrincipalName)
	}
	if filter.Action != nil {
		where += ` AND action = ?`
		args = append(args, *filter.Action)
	}
	if filter.Status != nil {
		where += ` AND status = ?`
		args = append(args, *filter.Status)
	}

	countQuery, countArgs := withPredicate(`SELECT COUNT(*) FROM audit_log`+where, args, pred)
	total, err := countRows(ctx, r.q, countQuery, countArgs)
	if err != nil {
		return nil, 0, err
	}

	query, queryArgs := withPredicate(
		`SELECT id, tenant_id, principal_name, action, entity, entity_id, status, detail, created_at
		 FROM audit_log`+where, args, pred)
	query += ` ORDER BY id DESC LIMIT ? OFFSET ?`
	queryArgs = append(queryArgs, filter.Page.Limit(), filter.Page.Offset())

	rows, err := r.q.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var (
			e        domain.AuditEntry
			tenantID sql.NullInt64
			entityID sql.NullInt64
			detail   sql.NullString
		)
		if err := rows.Scan(&e.ID, &tenantID, &e.PrincipalName, &e.Action, &e.Entity, &entityID, &e.Status, &detail, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		e.TenantID = int64Ptr(tenantID)
		e.EntityID = int64Ptr(entityID)
		e.Detail = strPtr(detail)
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
