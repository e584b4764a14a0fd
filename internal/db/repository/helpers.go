// Package repository implements SQL persistence over the enforced query
// surface. Repositories never open their own transactions: every method
// takes the unit of work's querier, so all statements pass through the
// enforcement rewrite. List and lookup methods additionally take the policy
// evaluator's predicate; that application-level filter and the rewrite are
// independent layers, and either alone must exclude foreign rows.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"phishdeck/internal/db"
	"phishdeck/internal/domain"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func countRows(ctx context.Context, q db.Querier, query string, args []interface{}) (int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var total int64
	if rows.Next() {
		if err := rows.Scan(&total); err != nil {
			return 0, err
		}
	}
	return total, rows.Err()
}

func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound("resource not found")
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return domain.ErrConflict("resource already exists")
	}
	return err
}

// withPredicate appends the policy predicate to a statement whose text ends
// in a WHERE clause. Placeholder arguments stay positional, so predicate
// args must be appended in the same call.
func withPredicate(query string, args []interface{}, pred domain.Predicate) (string, []interface{}) {
	if pred.IsEmpty() {
		return query, args
	}
	return query + " AND " + pred.SQL, append(args, pred.Args...)
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	return &v.Time
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullStr(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}
