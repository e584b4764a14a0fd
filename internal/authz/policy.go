package authz

import (
	"phishdeck/internal/domain"
)

// Ref carries the tenant/owner associations of a payload or a stored row,
// which is all the evaluator needs to decide a mutation. Nil means "no
// association stated": on create that defers stamping to the caller, on a
// stored row it means the column is genuinely null.
type Ref struct {
	TenantID *int64
	OwnerID  *int64
}

// Policy evaluates access decisions for one scope. It is constructed fresh
// per unit of work, holds no mutable state, and never touches the database:
// all four operations are pure functions of scope, registry, and arguments.
type Policy struct {
	scope domain.Scope
	reg   *Registry
}

// NewPolicy builds the evaluator for one scope.
func NewPolicy(scope domain.Scope, reg *Registry) *Policy {
	if scope == nil {
		scope = domain.NoScope{}
	}
	return &Policy{scope: scope, reg: reg}
}

// Scope returns the scope this policy evaluates for.
func (p *Policy) Scope() domain.Scope { return p.scope }

// Filter returns the predicate that constrains a query over the given table
// to the caller's visible rows. It fails closed: a governed table without a
// usable scoping column for this scope variant yields a match-nothing
// predicate, not an error. The only error is an unregistered table.
//
// When a table carries both a tenant and an owner column, tenant scope
// filters on the tenant column alone; owner-level narrowing applies only to
// owner scopes.
func (p *Policy) Filter(table string) (domain.Predicate, error) {
	info, err := p.reg.Lookup(table)
	if err != nil {
		return domain.Predicate{}, err
	}
	if info.Exempt {
		return domain.MatchAll(), nil
	}

	switch s := p.scope.(type) {
	case domain.UnrestrictedScope:
		return domain.MatchAll(), nil
	case domain.TenantScope:
		if info.TenantColumn == "" {
			return domain.MatchNone(), nil
		}
		return domain.Predicate{SQL: info.TenantColumn + " = ?", Args: []interface{}{s.TenantID}}, nil
	case domain.OwnerScope:
		if info.OwnerColumn == "" {
			return domain.MatchNone(), nil
		}
		return domain.Predicate{SQL: info.OwnerColumn + " = ?", Args: []interface{}{s.UserID}}, nil
	default:
		return domain.MatchNone(), nil
	}
}

// CanCreate decides whether the caller may insert a row into the table.
// A payload that omits its tenant/owner association is allowed: the caller
// is responsible for stamping the scope's value before persisting.
func (p *Policy) CanCreate(table string, payload Ref) (bool, error) {
	info, err := p.reg.Lookup(table)
	if err != nil {
		return false, err
	}
	if info.Exempt {
		return false, nil
	}

	switch s := p.scope.(type) {
	case domain.UnrestrictedScope:
		return true, nil
	case domain.TenantScope:
		if info.TenantColumn == "" {
			return false, nil
		}
		return payload.TenantID == nil || *payload.TenantID == s.TenantID, nil
	case domain.OwnerScope:
		if info.OwnerColumn == "" {
			return false, nil
		}
		return payload.OwnerID == nil || *payload.OwnerID == s.UserID, nil
	default:
		return false, nil
	}
}

// CanUpdate decides whether the caller may apply the payload to the stored
// row: the row must be visible under this scope and the payload must not
// move the row to a different tenant or owner than the scope's own.
func (p *Policy) CanUpdate(table string, current, payload Ref) (bool, error) {
	info, err := p.reg.Lookup(table)
	if err != nil {
		return false, err
	}
	if _, ok := p.scope.(domain.UnrestrictedScope); ok {
		return true, nil
	}
	if !p.visible(info, current) {
		return false, nil
	}

	switch s := p.scope.(type) {
	case domain.TenantScope:
		return payload.TenantID == nil || *payload.TenantID == s.TenantID, nil
	case domain.OwnerScope:
		return payload.OwnerID == nil || *payload.OwnerID == s.UserID, nil
	default:
		return false, nil
	}
}

// CanDelete decides whether the caller may delete the stored row.
func (p *Policy) CanDelete(table string, current Ref) (bool, error) {
	info, err := p.reg.Lookup(table)
	if err != nil {
		return false, err
	}
	if _, ok := p.scope.(domain.UnrestrictedScope); ok {
		return true, nil
	}
	return p.visible(info, current), nil
}

// visible reports whether the stored row falls inside the scope's boundary.
func (p *Policy) visible(info EntityInfo, current Ref) bool {
	if info.Exempt {
		return false
	}
	switch s := p.scope.(type) {
	case domain.TenantScope:
		return info.TenantColumn != "" && current.TenantID != nil && *current.TenantID == s.TenantID
	case domain.OwnerScope:
		return info.OwnerColumn != "" && current.OwnerID != nil && *current.OwnerID == s.UserID
	default:
		return false
	}
}
