package algebra

import (
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// Simplify removes empty-BGP children from joins whose condition is absent or
// provably constant-true, returning a rewritten tree. Nodes are rebuilt, not
// mutated, so shared sub-trees stay valid.
//
// A constant-false condition is left as-is: such a join can never produce
// rows and could be rewritten to an empty-result node, but that rewrite is
// deliberately not performed.
func Simplify(n Node) Node {
	switch t := n.(type) {
	case *Join:
		left := Simplify(t.Left)
		right := Simplify(t.Right)
		expr := t.Expr
		if expr != nil && query.IsConstantTrue(expr) {
			expr = nil
		}
		if expr == nil {
			if merged, ok := mergeEmpty(left, right); ok {
				return merged
			}
		}
		return &Join{Left: left, Right: right, Expr: expr}
	case *LeftJoin:
		left := Simplify(t.Left)
		right := Simplify(t.Right)
		expr := t.Expr
		if expr != nil && query.IsConstantTrue(expr) {
			expr = nil
		}
		if expr == nil {
			if merged, ok := mergeEmpty(left, right); ok {
				return merged
			}
		}
		return &LeftJoin{Left: left, Right: right, Expr: expr}
	case *Union:
		return &Union{Left: Simplify(t.Left), Right: Simplify(t.Right)}
	case *Filter:
		if t.Input == nil {
			return t
		}
		return &Filter{Expr: t.Expr, Input: Simplify(t.Input)}
	case *OrderBy:
		return &OrderBy{Input: Simplify(t.Input), Conditions: t.Conditions, Distinct: t.Distinct}
	case *Project:
		return &Project{Input: Simplify(t.Input), Vars: t.Vars, Exprs: t.Exprs}
	case *Distinct:
		return &Distinct{Input: Simplify(t.Input), Reduced: t.Reduced}
	case *Slice:
		return &Slice{Input: Simplify(t.Input), Limit: t.Limit, Offset: t.Offset}
	case *Graph:
		return &Graph{Input: Simplify(t.Input), Origin: t.Origin}
	case *Group:
		return &Group{Input: Simplify(t.Input), By: t.By}
	case *Aggregation:
		return &Aggregation{Input: Simplify(t.Input), Exprs: t.Exprs, Vars: t.Vars}
	case *Having:
		return &Having{Input: Simplify(t.Input), Exprs: t.Exprs}
	default:
		// Leaves: BGP, Assign, Values, Service.
		return n
	}
}

// mergeEmpty returns the non-empty child when exactly one of the two is an
// empty BGP. When neither or both are empty no rewrite occurs.
func mergeEmpty(left, right Node) (Node, bool) {
	leftEmpty := isEmptyBGP(left)
	rightEmpty := isEmptyBGP(right)
	if leftEmpty == rightEmpty {
		return nil, false
	}
	if leftEmpty {
		return right, true
	}
	return left, true
}

func isEmptyBGP(n Node) bool {
	bgp, ok := n.(*BGP)
	return ok && bgp.IsEmpty()
}

// Equal reports structural equality of two algebra trees. Used by tests and
// by determinism checks.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch ta := a.(type) {
	case *BGP:
		tb, ok := b.(*BGP)
		if !ok {
			return false
		}
		if ta.IsEmpty() && tb.IsEmpty() {
			return true
		}
		return ta.Start == tb.Start && ta.End == tb.End
	case *Filter:
		tb, ok := b.(*Filter)
		return ok && query.ExprEqual(ta.Expr, tb.Expr) && Equal(ta.Input, tb.Input)
	case *Join:
		tb, ok := b.(*Join)
		return ok && query.ExprEqual(ta.Expr, tb.Expr) &&
			Equal(ta.Left, tb.Left) && Equal(ta.Right, tb.Right)
	case *LeftJoin:
		tb, ok := b.(*LeftJoin)
		return ok && query.ExprEqual(ta.Expr, tb.Expr) &&
			Equal(ta.Left, tb.Left) && Equal(ta.Right, tb.Right)
	case *Union:
		tb, ok := b.(*Union)
		return ok && Equal(ta.Left, tb.Left) && Equal(ta.Right, tb.Right)
	case *OrderBy:
		tb, ok := b.(*OrderBy)
		if !ok || ta.Distinct != tb.Distinct || len(ta.Conditions) != len(tb.Conditions) {
			return false
		}
		for i := range ta.Conditions {
			if ta.Conditions[i].Ascending != tb.Conditions[i].Ascending ||
				!query.ExprEqual(ta.Conditions[i].Expression, tb.Conditions[i].Expression) {
				return false
			}
		}
		return Equal(ta.Input, tb.Input)
	case *Project:
		tb, ok := b.(*Project)
		if !ok || len(ta.Vars) != len(tb.Vars) {
			return false
		}
		for i := range ta.Vars {
			if ta.Vars[i].Name != tb.Vars[i].Name {
				return false
			}
			if !query.ExprEqual(ta.Exprs[i], tb.Exprs[i]) {
				return false
			}
		}
		return Equal(ta.Input, tb.Input)
	case *Distinct:
		tb, ok := b.(*Distinct)
		return ok && ta.Reduced == tb.Reduced && Equal(ta.Input, tb.Input)
	case *Slice:
		tb, ok := b.(*Slice)
		return ok && intPtrEqual(ta.Limit, tb.Limit) && intPtrEqual(ta.Offset, tb.Offset) &&
			Equal(ta.Input, tb.Input)
	case *Graph:
		tb, ok := b.(*Graph)
		return ok && ta.Origin.String() == tb.Origin.String() && Equal(ta.Input, tb.Input)
	case *Assign:
		tb, ok := b.(*Assign)
		return ok && ta.Var.Name == tb.Var.Name && query.ExprEqual(ta.Expr, tb.Expr)
	case *Group:
		tb, ok := b.(*Group)
		if !ok || len(ta.By) != len(tb.By) {
			return false
		}
		for i := range ta.By {
			if !query.ExprEqual(ta.By[i], tb.By[i]) {
				return false
			}
		}
		return Equal(ta.Input, tb.Input)
	case *Aggregation:
		tb, ok := b.(*Aggregation)
		if !ok || len(ta.Exprs) != len(tb.Exprs) {
			return false
		}
		for i := range ta.Exprs {
			if ta.Vars[i].Name != tb.Vars[i].Name ||
				!query.ExprEqual(ta.Exprs[i], tb.Exprs[i]) {
				return false
			}
		}
		return Equal(ta.Input, tb.Input)
	case *Having:
		tb, ok := b.(*Having)
		if !ok || len(ta.Exprs) != len(tb.Exprs) {
			return false
		}
		for i := range ta.Exprs {
			if !query.ExprEqual(ta.Exprs[i], tb.Exprs[i]) {
				return false
			}
		}
		return Equal(ta.Input, tb.Input)
	case *Values:
		tb, ok := b.(*Values)
		return ok && ta.Bindings == tb.Bindings
	case *Service:
		tb, ok := b.(*Service)
		return ok && ta.Endpoint == tb.Endpoint && ta.Query == tb.Query &&
			ta.Silent == tb.Silent
	}
	return false
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
