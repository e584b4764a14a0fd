package rls

import (
	"context"
	"database/sql"
	"log/slog"

	"phishdeck/internal/authz"
)

// Settings are the transaction-local variables the enforcement layer reads.
// They live on the Tx wrapper, never on the pooled connection, so they are
// discarded with the transaction on commit or rollback and cannot leak
// across requests that reuse the same physical connection.
type Settings struct {
	TenantID *int64
	UserID   *int64
	Admin    bool
	Bound    bool
}

// Tx wraps one *sql.Tx and rewrites every statement before execution. A Tx
// with no bound settings is fail-closed: governed reads match nothing.
type Tx struct {
	tx       *sql.Tx
	reg      *authz.Registry
	logger   *slog.Logger
	settings Settings
	warned   bool
}

// Begin opens a transaction on the pool and wraps it for enforcement.
// The returned Tx starts unbound.
func Begin(ctx context.Context, db *sql.DB, reg *authz.Registry, logger *slog.Logger) (*Tx, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, reg: reg, logger: logger}, nil
}

// SetSettings binds the transaction-local variables. Called by the session
// binder, never by handlers.
func (t *Tx) SetSettings(s Settings) {
	t.settings = s
}

// ClearSettings resets the transaction to the fail-closed unbound state.
func (t *Tx) ClearSettings() {
	t.settings = Settings{}
}

// Settings returns the currently bound variables.
func (t *Tx) Settings() Settings {
	return t.settings
}

// QueryContext rewrites and executes a query.
func (t *Tx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	rewritten, err := t.rewrite(query)
	if err != nil {
		return nil, err
	}
	return t.tx.QueryContext(ctx, rewritten, args...)
}

// ExecContext rewrites and executes a statement.
func (t *Tx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	rewritten, err := t.rewrite(query)
	if err != nil {
		return nil, err
	}
	return t.tx.ExecContext(ctx, rewritten, args...)
}

// Commit commits the transaction and discards the settings.
func (t *Tx) Commit() error {
	t.ClearSettings()
	return t.tx.Commit()
}

// Rollback rolls back the transaction and discards the settings. Calling
// it after Commit is safe and returns sql.ErrTxDone like the underlying
// transaction would.
func (t *Tx) Rollback() error {
	t.ClearSettings()
	return t.tx.Rollback()
}

func (t *Tx) rewrite(query string) (string, error) {
	if !t.settings.Bound && !t.warned {
		// A statement on an unbound transaction means a guard call was
		// skipped somewhere. Enforcement stays fail-closed; the warning is
		// the breadcrumb for finding the missing guard.
		t.warned = true
		if t.logger != nil {
			t.logger.Warn("statement on unbound transaction; scope defaults to none")
		}
	}
	return Rewrite(query, t.reg, t.settings)
}
