// Package rls is the database-level enforcement layer. It re-validates
// tenant isolation independently of the policy evaluator by rewriting every
// statement executed inside a guarded transaction: each governed table
// reference gains a visibility predicate derived from the transaction-local
// settings. A statement that skipped the application-level filter is still
// constrained here.
package rls

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"phishdeck/internal/authz"
	"phishdeck/internal/domain"
)

// Rewrite parses the statement, injects a visibility predicate for every
// governed table it references, and returns the rewritten SQL. Statements
// referencing a table unknown to the registry fail with a configuration
// error: enforcement never silently skips a table.
func Rewrite(sqlStr string, reg *authz.Registry, s Settings) (string, error) {
	result, err := pg_query.Parse(numberParams(sqlStr))
	if err != nil {
		return "", fmt.Errorf("parse SQL: %w", err)
	}

	w := &rewriter{reg: reg, settings: s, cteNames: map[string]bool{}}
	for _, stmt := range result.Stmts {
		if err := w.rewriteNode(stmt.Stmt); err != nil {
			return "", err
		}
	}

	output, err := pg_query.Deparse(result)
	if err != nil {
		return "", fmt.Errorf("deparse SQL: %w", err)
	}
	return output, nil
}

// ExtractTables parses a statement and returns the deduplicated table names
// it references, excluding CTE names.
func ExtractTables(sqlStr string) ([]string, error) {
	result, err := pg_query.Parse(numberParams(sqlStr))
	if err != nil {
		return nil, fmt.Errorf("parse SQL: %w", err)
	}

	w := &rewriter{cteNames: map[string]bool{}}
	seen := map[string]bool{}
	var tables []string
	for _, stmt := range result.Stmts {
		w.collectTables(stmt.Stmt, seen, &tables)
	}
	return tables, nil
}

// rewriter walks one statement's parse tree. cteNames accumulates WITH
// clause names so references to them are not mistaken for base tables.
type rewriter struct {
	reg      *authz.Registry
	settings Settings
	cteNames map[string]bool
}

// visibilityExpr builds the predicate for one table, or nil when the table
// needs none (exempt, or admin settings). Rule shape: a row is visible iff
// the admin flag is set, OR the tenant column equals the transaction's
// tenant id, OR the owner column equals the transaction's user id. Unbound
// settings and settings with no usable identity match nothing.
func (w *rewriter) visibilityExpr(info authz.EntityInfo, alias string) *pg_query.Node {
	if info.Exempt {
		return nil
	}
	if !w.settings.Bound {
		return makeMatchNothingExpr()
	}
	if w.settings.Admin {
		return nil
	}

	var disjuncts []*pg_query.Node
	if info.TenantColumn != "" && w.settings.TenantID != nil {
		disjuncts = append(disjuncts, makeEqualsExpr(info.TenantColumn, alias, *w.settings.TenantID))
	}
	if info.OwnerColumn != "" && w.settings.UserID != nil {
		disjuncts = append(disjuncts, makeEqualsExpr(info.OwnerColumn, alias, *w.settings.UserID))
	}
	if len(disjuncts) == 0 {
		return makeMatchNothingExpr()
	}
	return combineOr(disjuncts)
}

func (w *rewriter) lookup(table string) (authz.EntityInfo, error) {
	if w.cteNames[table] {
		return authz.EntityInfo{Exempt: true}, nil
	}
	info, err := w.reg.Lookup(table)
	if err != nil {
		return authz.EntityInfo{}, domain.ErrConfiguration("row-level enforcement: %v", err)
	}
	return info, nil
}

func (w *rewriter) rewriteNode(node *pg_query.Node) error {
	if node == nil {
		return nil
	}

	switch n := node.Node.(type) {
	case *pg_query.Node_SelectStmt:
		return w.rewriteSelect(n.SelectStmt)
	case *pg_query.Node_InsertStmt:
		// Inserts are gated by the policy evaluator's capability checks;
		// only the sourcing SELECT (if any) needs row visibility.
		return w.rewriteNode(n.InsertStmt.SelectStmt)
	case *pg_query.Node_UpdateStmt:
		return w.rewriteUpdate(n.UpdateStmt)
	case *pg_query.Node_DeleteStmt:
		return w.rewriteDelete(n.DeleteStmt)
	}
	return nil
}

func (w *rewriter) rewriteSelect(sel *pg_query.SelectStmt) error {
	if sel == nil {
		return nil
	}

	// UNION/INTERSECT/EXCEPT: both sides carry their own FROM clauses.
	if sel.Larg != nil {
		if err := w.rewriteSelect(sel.Larg); err != nil {
			return err
		}
	}
	if sel.Rarg != nil {
		if err := w.rewriteSelect(sel.Rarg); err != nil {
			return err
		}
	}

	if sel.WithClause != nil {
		for _, cte := range sel.WithClause.Ctes {
			if c, ok := cte.Node.(*pg_query.Node_CommonTableExpr); ok {
				if err := w.rewriteNode(c.CommonTableExpr.Ctequery); err != nil {
					return err
				}
				w.cteNames[c.CommonTableExpr.Ctename] = true
			}
		}
	}

	refs := collectTableRefs(sel.FromClause)

	var predicates []*pg_query.Node
	for _, ref := range refs {
		info, err := w.lookup(ref.tableName)
		if err != nil {
			return err
		}
		if expr := w.visibilityExpr(info, ref.columnQualifier()); expr != nil {
			predicates = append(predicates, expr)
		}
	}

	for i, pred := range predicates {
		if i == 0 && sel.WhereClause == nil {
			sel.WhereClause = pred
			continue
		}
		sel.WhereClause = makeAndExpr(sel.WhereClause, pred)
	}

	// Subqueries in FROM, WHERE, and the target list get their own
	// predicates.
	for _, from := range sel.FromClause {
		if err := w.rewriteFromNode(from); err != nil {
			return err
		}
	}
	for _, target := range sel.TargetList {
		if err := w.rewriteExpr(target); err != nil {
			return err
		}
	}
	if err := w.rewriteExpr(sel.HavingClause); err != nil {
		return err
	}
	return w.rewriteExpr(sel.WhereClause)
}

func (w *rewriter) rewriteUpdate(upd *pg_query.UpdateStmt) error {
	if upd == nil || upd.Relation == nil {
		return nil
	}
	info, err := w.lookup(upd.Relation.Relname)
	if err != nil {
		return err
	}
	alias := ""
	if upd.Relation.Alias != nil {
		alias = upd.Relation.Alias.Aliasname
	}
	if expr := w.visibilityExpr(info, alias); expr != nil {
		if upd.WhereClause == nil {
			upd.WhereClause = expr
		} else {
			upd.WhereClause = makeAndExpr(upd.WhereClause, expr)
		}
	}
	for _, from := range upd.FromClause {
		if err := w.rewriteFromNode(from); err != nil {
			return err
		}
	}
	return w.rewriteExpr(upd.WhereClause)
}

func (w *rewriter) rewriteDelete(del *pg_query.DeleteStmt) error {
	if del == nil || del.Relation == nil {
		return nil
	}
	info, err := w.lookup(del.Relation.Relname)
	if err != nil {
		return err
	}
	alias := ""
	if del.Relation.Alias != nil {
		alias = del.Relation.Alias.Aliasname
	}
	if expr := w.visibilityExpr(info, alias); expr != nil {
		if del.WhereClause == nil {
			del.WhereClause = expr
		} else {
			del.WhereClause = makeAndExpr(del.WhereClause, expr)
		}
	}
	return w.rewriteExpr(del.WhereClause)
}

func (w *rewriter) rewriteFromNode(node *pg_query.Node) error {
	if node == nil {
		return nil
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_RangeSubselect:
		return w.rewriteNode(n.RangeSubselect.Subquery)
	case *pg_query.Node_JoinExpr:
		if err := w.rewriteFromNode(n.JoinExpr.Larg); err != nil {
			return err
		}
		return w.rewriteFromNode(n.JoinExpr.Rarg)
	}
	return nil
}

func (w *rewriter) rewriteExpr(node *pg_query.Node) error {
	if node == nil {
		return nil
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_SubLink:
		return w.rewriteNode(n.SubLink.Subselect)
	case *pg_query.Node_BoolExpr:
		for _, arg := range n.BoolExpr.Args {
			if err := w.rewriteExpr(arg); err != nil {
				return err
			}
		}
	case *pg_query.Node_AExpr:
		if err := w.rewriteExpr(n.AExpr.Lexpr); err != nil {
			return err
		}
		return w.rewriteExpr(n.AExpr.Rexpr)
	case *pg_query.Node_ResTarget:
		return w.rewriteExpr(n.ResTarget.Val)
	}
	return nil
}

// tableRef holds one base-table reference and its alias.
type tableRef struct {
	tableName string
	alias     string
}

// columnQualifier returns the identifier injected predicates should qualify
// columns with. Joins always need qualification to stay unambiguous.
func (r tableRef) columnQualifier() string {
	if r.alias != "" {
		return r.alias
	}
	return r.tableName
}

func collectTableRefs(fromClause []*pg_query.Node) []tableRef {
	var refs []tableRef
	for _, node := range fromClause {
		collectTableRefsFromNode(node, &refs)
	}
	return refs
}

func collectTableRefsFromNode(node *pg_query.Node, refs *[]tableRef) {
	if node == nil {
		return
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_RangeVar:
		ref := tableRef{tableName: n.RangeVar.Relname}
		if n.RangeVar.Alias != nil && n.RangeVar.Alias.Aliasname != "" {
			ref.alias = n.RangeVar.Alias.Aliasname
		}
		*refs = append(*refs, ref)
	case *pg_query.Node_JoinExpr:
		collectTableRefsFromNode(n.JoinExpr.Larg, refs)
		collectTableRefsFromNode(n.JoinExpr.Rarg, refs)
	}
}

// collectTables gathers base-table names across the whole statement,
// including subqueries, for ExtractTables and Verify.
func (w *rewriter) collectTables(node *pg_query.Node, seen map[string]bool, tables *[]string) {
	if node == nil {
		return
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_SelectStmt:
		w.collectTablesFromSelect(n.SelectStmt, seen, tables)
	case *pg_query.Node_InsertStmt:
		if n.InsertStmt.Relation != nil {
			w.addTable(n.InsertStmt.Relation.Relname, seen, tables)
		}
		w.collectTables(n.InsertStmt.SelectStmt, seen, tables)
	case *pg_query.Node_UpdateStmt:
		if n.UpdateStmt.Relation != nil {
			w.addTable(n.UpdateStmt.Relation.Relname, seen, tables)
		}
		for _, from := range n.UpdateStmt.FromClause {
			w.collectTablesFromFrom(from, seen, tables)
		}
	case *pg_query.Node_DeleteStmt:
		if n.DeleteStmt.Relation != nil {
			w.addTable(n.DeleteStmt.Relation.Relname, seen, tables)
		}
	}
}

func (w *rewriter) collectTablesFromSelect(sel *pg_query.SelectStmt, seen map[string]bool, tables *[]string) {
	if sel == nil {
		return
	}
	if sel.Larg != nil {
		w.collectTablesFromSelect(sel.Larg, seen, tables)
	}
	if sel.Rarg != nil {
		w.collectTablesFromSelect(sel.Rarg, seen, tables)
	}
	if sel.WithClause != nil {
		for _, cte := range sel.WithClause.Ctes {
			if c, ok := cte.Node.(*pg_query.Node_CommonTableExpr); ok {
				w.collectTables(c.CommonTableExpr.Ctequery, seen, tables)
				w.cteNames[c.CommonTableExpr.Ctename] = true
			}
		}
	}
	for _, from := range sel.FromClause {
		w.collectTablesFromFrom(from, seen, tables)
	}
	w.collectTablesFromExpr(sel.WhereClause, seen, tables)
	w.collectTablesFromExpr(sel.HavingClause, seen, tables)
	for _, target := range sel.TargetList {
		w.collectTablesFromExpr(target, seen, tables)
	}
}

func (w *rewriter) collectTablesFromFrom(node *pg_query.Node, seen map[string]bool, tables *[]string) {
	if node == nil {
		return
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_RangeVar:
		w.addTable(n.RangeVar.Relname, seen, tables)
	case *pg_query.Node_JoinExpr:
		w.collectTablesFromFrom(n.JoinExpr.Larg, seen, tables)
		w.collectTablesFromFrom(n.JoinExpr.Rarg, seen, tables)
	case *pg_query.Node_RangeSubselect:
		w.collectTables(n.RangeSubselect.Subquery, seen, tables)
	}
}

func (w *rewriter) collectTablesFromExpr(node *pg_query.Node, seen map[string]bool, tables *[]string) {
	if node == nil {
		return
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_SubLink:
		w.collectTables(n.SubLink.Subselect, seen, tables)
	case *pg_query.Node_BoolExpr:
		for _, arg := range n.BoolExpr.Args {
			w.collectTablesFromExpr(arg, seen, tables)
		}
	case *pg_query.Node_AExpr:
		w.collectTablesFromExpr(n.AExpr.Lexpr, seen, tables)
		w.collectTablesFromExpr(n.AExpr.Rexpr, seen, tables)
	case *pg_query.Node_ResTarget:
		w.collectTablesFromExpr(n.ResTarget.Val, seen, tables)
	}
}

func (w *rewriter) addTable(name string, seen map[string]bool, tables *[]string) {
	if name == "" || seen[name] || w.cteNames[name] {
		return
	}
	seen[name] = true
	*tables = append(*tables, name)
}
