package rls

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"phishdeck/internal/authz"
	"phishdeck/internal/domain"
)

// Verify checks at startup that every table in the database is accounted
// for by the registry, either as a governed entity or on the explicit
// exempt allowlist. A table the registry has never heard of would be
// invisible to enforcement, so it fails the boot instead.
func Verify(ctx context.Context, db *sql.DB, reg *authz.Registry) error {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var unregistered []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scan table name: %w", err)
		}
		if !reg.Known(name) {
			unregistered = append(unregistered, name)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list tables: %w", err)
	}

	if len(unregistered) > 0 {
		return domain.ErrConfiguration(
			"tables present in the database but unknown to the entity registry: %s",
			strings.Join(unregistered, ", "))
	}
	return nil
}
