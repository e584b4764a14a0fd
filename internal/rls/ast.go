package rls

import (
	"math"
	"strconv"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Parse-tree construction helpers for the visibility predicates injected by
// the rewriter. Kept separate from the walking logic in rewrite.go.

// makeColumnRef creates a ColumnRef node. If tableAlias is non-empty, the
// reference is qualified (alias.column).
func makeColumnRef(column, tableAlias string) *pg_query.Node {
	var fields []*pg_query.Node
	if tableAlias != "" {
		fields = append(fields, makeStringNode(tableAlias))
	}
	fields = append(fields, makeStringNode(column))

	return &pg_query.Node{
		Node: &pg_query.Node_ColumnRef{
			ColumnRef: &pg_query.ColumnRef{
				Fields: fields,
			},
		},
	}
}

func makeIntegerConst(v int64) *pg_query.Node {
	// The parse tree's Integer node is 32-bit; wider ids ride through as a
	// numeric Float literal, which deparses to the same digits.
	if v > math.MaxInt32 || v < math.MinInt32 {
		return &pg_query.Node{
			Node: &pg_query.Node_AConst{
				AConst: &pg_query.A_Const{
					Val: &pg_query.A_Const_Fval{
						Fval: &pg_query.Float{Fval: strconv.FormatInt(v, 10)},
					},
				},
			},
		}
	}
	return &pg_query.Node{
		Node: &pg_query.Node_AConst{
			AConst: &pg_query.A_Const{
				Val: &pg_query.A_Const_Ival{
					Ival: &pg_query.Integer{Ival: int32(v)},
				},
			},
		},
	}
}

func makeStringNode(s string) *pg_query.Node {
	return &pg_query.Node{
		Node: &pg_query.Node_String_{
			String_: &pg_query.String{Sval: s},
		},
	}
}

// makeEqualsExpr creates `column = value` with an optional table alias.
func makeEqualsExpr(column, tableAlias string, value int64) *pg_query.Node {
	return &pg_query.Node{
		Node: &pg_query.Node_AExpr{
			AExpr: &pg_query.A_Expr{
				Kind:  pg_query.A_Expr_Kind_AEXPR_OP,
				Name:  []*pg_query.Node{makeStringNode("=")},
				Lexpr: makeColumnRef(column, tableAlias),
				Rexpr: makeIntegerConst(value),
			},
		},
	}
}

// makeMatchNothingExpr creates the fail-closed `1 = 0` condition.
func makeMatchNothingExpr() *pg_query.Node {
	return &pg_query.Node{
		Node: &pg_query.Node_AExpr{
			AExpr: &pg_query.A_Expr{
				Kind:  pg_query.A_Expr_Kind_AEXPR_OP,
				Name:  []*pg_query.Node{makeStringNode("=")},
				Lexpr: makeIntegerConst(1),
				Rexpr: makeIntegerConst(0),
			},
		},
	}
}

// combineOr combines expressions into a single BoolExpr OR.
// A single expression is returned unchanged.
func combineOr(exprs []*pg_query.Node) *pg_query.Node {
	if len(exprs) == 1 {
		return exprs[0]
	}
	return &pg_query.Node{
		Node: &pg_query.Node_BoolExpr{
			BoolExpr: &pg_query.BoolExpr{
				Boolop: pg_query.BoolExprType_OR_EXPR,
				Args:   exprs,
			},
		},
	}
}

// makeAndExpr creates a BoolExpr AND of two expressions, flattening sides
// that are already ANDs.
func makeAndExpr(left, right *pg_query.Node) *pg_query.Node {
	var args []*pg_query.Node

	if be, ok := left.Node.(*pg_query.Node_BoolExpr); ok && be.BoolExpr.Boolop == pg_query.BoolExprType_AND_EXPR {
		args = append(args, be.BoolExpr.Args...)
	} else {
		args = append(args, left)
	}

	if be, ok := right.Node.(*pg_query.Node_BoolExpr); ok && be.BoolExpr.Boolop == pg_query.BoolExprType_AND_EXPR {
		args = append(args, be.BoolExpr.Args...)
	} else {
		args = append(args, right)
	}

	return &pg_query.Node{
		Node: &pg_query.Node_BoolExpr{
			BoolExpr: &pg_query.BoolExpr{
				Boolop: pg_query.BoolExprType_AND_EXPR,
				Args:   args,
			},
		},
	}
}
