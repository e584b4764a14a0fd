package db

import (
	"context"
	"database/sql"
)

// Querier is the query surface repositories depend on. *sql.DB and *sql.Tx
// satisfy it, and so does the enforced transaction wrapper — repositories
// receive whichever unit of work the caller's guard produced and never open
// their own. Single-row lookups go through QueryContext deliberately: the
// enforcement wrapper cannot surface rewrite failures through *sql.Row.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}
