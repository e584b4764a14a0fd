// Package session binds a resolved scope to one unit of work. The guard is
// the only place a transaction is opened, bound, and released, so a route
// handler can neither forget the release nor observe another request's
// scope.
package session

import (
	"context"
	"database/sql"
	"log/slog"

	"phishdeck/internal/authz"
	"phishdeck/internal/domain"
	"phishdeck/internal/rls"
)

// Unit is one request's unit of work: the enforced transaction plus the
// policy evaluator for the same scope. Both see the identical scope value,
// passed explicitly rather than read from ambient state.
type Unit struct {
	Tx     *rls.Tx
	Policy *authz.Policy
}

// Bind stores the scope's identity as the transaction-local variables the
// enforcement layer reads. Every variant binds explicitly, including
// NoScope: a deliberately bound empty scope matches nothing without
// triggering the unbound-transaction warning.
func Bind(tx *rls.Tx, scope domain.Scope) {
	switch s := scope.(type) {
	case domain.UnrestrictedScope:
		tx.SetSettings(rls.Settings{Admin: true, Bound: true})
	case domain.TenantScope:
		tenantID := s.TenantID
		tx.SetSettings(rls.Settings{TenantID: &tenantID, Bound: true})
	case domain.OwnerScope:
		userID := s.UserID
		tx.SetSettings(rls.Settings{UserID: &userID, Bound: true})
	default:
		tx.SetSettings(rls.Settings{Bound: true})
	}
}

// Unbind clears the transaction-local variables, returning the transaction
// to the fail-closed unbound state.
func Unbind(tx *rls.Tx) {
	tx.ClearSettings()
}

// Guard is the per-request façade: it derives the scope from the principal,
// opens the transaction on the right pool, binds, runs the handler's work,
// and releases on every exit path.
type Guard struct {
	writeDB *sql.DB
	readDB  *sql.DB
	reg     *authz.Registry
	logger  *slog.Logger
}

// NewGuard wires the guard over the write/read pool pair.
func NewGuard(writeDB, readDB *sql.DB, reg *authz.Registry, logger *slog.Logger) *Guard {
	return &Guard{writeDB: writeDB, readDB: readDB, reg: reg, logger: logger}
}

// Read runs fn inside a read-only unit of work on the read pool. The
// transaction is always rolled back; reads have nothing to commit, and the
// rollback doubles as the guaranteed settings release.
func (g *Guard) Read(ctx context.Context, p domain.Principal, fn func(ctx context.Context, u *Unit) error) error {
	return g.run(ctx, g.readDB, p, fn, false)
}

// Write runs fn inside a unit of work on the write pool, committing on nil
// error and rolling back otherwise.
func (g *Guard) Write(ctx context.Context, p domain.Principal, fn func(ctx context.Context, u *Unit) error) error {
	return g.run(ctx, g.writeDB, p, fn, true)
}

// System runs fn under the unrestricted scope on behalf of an in-process
// job. The name shows up in audit entries.
func (g *Guard) System(ctx context.Context, name string, fn func(ctx context.Context, u *Unit) error) error {
	return g.run(ctx, g.writeDB, domain.SystemPrincipal(name), fn, true)
}

func (g *Guard) run(ctx context.Context, db *sql.DB, p domain.Principal, fn func(ctx context.Context, u *Unit) error, commit bool) (err error) {
	scope := domain.DeriveScope(p)

	tx, err := rls.Begin(ctx, db, g.reg, g.logger)
	if err != nil {
		return err
	}

	// Rollback on every non-commit path, including panics in fn. Rollback
	// after Commit is a harmless sql.ErrTxDone, and either way the
	// transaction-local settings die with the transaction.
	defer func() {
		Unbind(tx)
		_ = tx.Rollback()
	}()

	Bind(tx, scope)
	unit := &Unit{Tx: tx, Policy: authz.NewPolicy(scope, g.reg)}

	if err = fn(ctx, unit); err != nil {
		return err
	}
	if commit {
		return tx.Commit()
	}
	return nil
}
