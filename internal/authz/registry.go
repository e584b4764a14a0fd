// Package authz implements the policy evaluator: pure, per-request access
// decisions and query filters derived from the caller's scope.
package authz

import (
	"sort"

	"phishdeck/internal/domain"
)

// EntityInfo declares how one persisted table is governed. Column presence
// is declared here once, at startup, instead of being sniffed from model
// objects at call time.
type EntityInfo struct {
	Table        string
	TenantColumn string // empty when the table has no tenant association
	OwnerColumn  string // empty when the table has no owner association
	Exempt       bool   // explicitly ungoverned (bookkeeping tables only)
}

// Governed reports whether the table carries at least one scoping column.
func (e EntityInfo) Governed() bool {
	return e.TenantColumn != "" || e.OwnerColumn != ""
}

// Registry is the per-process table of governed entities. It is assembled
// once during wiring and read-only afterwards.
type Registry struct {
	entities map[string]EntityInfo
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entities: make(map[string]EntityInfo)}
}

// Register adds one entity declaration. A table must either be governed or
// explicitly exempt; silent middle ground is a configuration error, as is a
// duplicate registration.
func (r *Registry) Register(info EntityInfo) error {
	if info.Table == "" {
		return domain.ErrConfiguration("entity registration requires a table name")
	}
	if _, exists := r.entities[info.Table]; exists {
		return domain.ErrConfiguration("table %q registered twice", info.Table)
	}
	if !info.Governed() && !info.Exempt {
		return domain.ErrConfiguration("table %q has no tenant or owner column and is not marked exempt", info.Table)
	}
	if info.Governed() && info.Exempt {
		return domain.ErrConfiguration("table %q cannot be both governed and exempt", info.Table)
	}
	r.entities[info.Table] = info
	return nil
}

// MustRegister is Register for static wiring code, where a failure is a
// programming error.
func (r *Registry) MustRegister(info EntityInfo) {
	if err := r.Register(info); err != nil {
		panic(err)
	}
}

// Lookup resolves a table name. An unregistered table is a fatal
// configuration error, never a runtime access-control outcome.
func (r *Registry) Lookup(table string) (EntityInfo, error) {
	info, ok := r.entities[table]
	if !ok {
		return EntityInfo{}, domain.ErrConfiguration("table %q is not registered with the entity registry", table)
	}
	return info, nil
}

// Known reports whether the table is registered at all.
func (r *Registry) Known(table string) bool {
	_, ok := r.entities[table]
	return ok
}

// Tables returns all registered table names in stable order.
func (r *Registry) Tables() []string {
	names := make([]string, 0, len(r.entities))
	for name := range r.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
