package domain

// Predicate is a SQL filter fragment with positional arguments, produced by
// the policy evaluator and appended to list queries by the repositories.
type Predicate struct {
	SQL  string
	Args []interface{}
}

// MatchAll is the empty predicate: no additional filtering.
func MatchAll() Predicate { return Predicate{} }

// MatchNone is the fail-closed predicate: guaranteed to match zero rows.
func MatchNone() Predicate { return Predicate{SQL: "1 = 0"} }

// IsEmpty reports whether the predicate adds no constraint.
func (p Predicate) IsEmpty() bool { return p.SQL == "" }
