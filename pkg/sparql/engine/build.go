package engine

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/aleksaelezovic/quercus/pkg/sparql/algebra"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// Runtime carries everything the builder needs besides the algebra tree: the
// local store, the remote service client, and the owning query for its triple
// list and variable table.
type Runtime struct {
	Store   Matcher
	Service ServiceClient
	Query   *query.Query
	Log     *logrus.Logger
}

// Build turns a compiled algebra tree into an executable rowsource pipeline.
func Build(node algebra.Node, rt *Runtime) (Rowsource, error) {
	rs, err := build(node, rt)
	if err != nil {
		return nil, err
	}
	if rt.Log != nil {
		rt.Log.WithField("pipeline", rs.Name()).Debug("built rowsource pipeline")
	}
	return rs, nil
}

func build(node algebra.Node, rt *Runtime) (Rowsource, error) {
	switch n := node.(type) {
	case *algebra.BGP:
		if n.IsEmpty() {
			// The empty pattern is the join identity: one empty row.
			return newSingleton(), nil
		}
		return newTriples(rt.Store, rt.Query.Triples[n.Start:n.End]), nil

	case *algebra.Filter:
		inner, err := buildOrSingleton(n.Input, rt)
		if err != nil {
			return nil, err
		}
		return newFilter(inner, n.Expr), nil

	case *algebra.Join:
		return buildJoin(n, rt)

	case *algebra.LeftJoin:
		left, err := build(n.Left, rt)
		if err != nil {
			return nil, err
		}
		right, err := build(n.Right, rt)
		if err != nil {
			return nil, err
		}
		return newLeftJoin(left, right, n.Expr), nil

	case *algebra.Union:
		left, err := build(n.Left, rt)
		if err != nil {
			return nil, err
		}
		right, err := build(n.Right, rt)
		if err != nil {
			return nil, err
		}
		return newUnion(left, right), nil

	case *algebra.OrderBy:
		inner, err := build(n.Input, rt)
		if err != nil {
			return nil, err
		}
		return newSort(inner, n.Conditions, n.Distinct), nil

	case *algebra.Project:
		inner, err := build(n.Input, rt)
		if err != nil {
			return nil, err
		}
		return newProject(inner, n.Vars, n.Exprs), nil

	case *algebra.Distinct:
		inner, err := build(n.Input, rt)
		if err != nil {
			return nil, err
		}
		return newDistinct(inner, n.Reduced), nil

	case *algebra.Slice:
		inner, err := build(n.Input, rt)
		if err != nil {
			return nil, err
		}
		return newSlice(inner, n.Limit, n.Offset), nil

	case *algebra.Graph:
		if n.Origin.IsVariable() {
			return nil, fmt.Errorf("graph variable %s is not supported", n.Origin.Variable)
		}
		inner, err := build(n.Input, rt)
		if err != nil {
			return nil, err
		}
		inner.SetOrigin(n.Origin.Term)
		return inner, nil

	case *algebra.Assign:
		// A bare assignment extends the single empty row.
		return newAssign(newSingleton(), n.Var, n.Expr), nil

	case *algebra.Group:
		inner, err := build(n.Input, rt)
		if err != nil {
			return nil, err
		}
		return newGroup(inner, n.By), nil

	case *algebra.Aggregation:
		inner, err := build(n.Input, rt)
		if err != nil {
			return nil, err
		}
		return newAggregation(inner, n.Exprs, n.Vars), nil

	case *algebra.Having:
		inner, err := build(n.Input, rt)
		if err != nil {
			return nil, err
		}
		return newHaving(inner, n.Exprs), nil

	case *algebra.Values:
		return newValues(n.Bindings), nil

	case *algebra.Service:
		return newService(rt.Service, rt.Query.Vars, n.Endpoint, n.Query, n.Silent)

	default:
		return nil, fmt.Errorf("cannot build rowsource for %T", node)
	}
}

// buildJoin handles the join's special cases: a joined Assign extends the
// other side's rows in place rather than materializing a cross product.
func buildJoin(n *algebra.Join, rt *Runtime) (Rowsource, error) {
	if assign, ok := n.Right.(*algebra.Assign); ok {
		inner, err := build(n.Left, rt)
		if err != nil {
			return nil, err
		}
		return wrapJoinCondition(newAssign(inner, assign.Var, assign.Expr), n.Expr), nil
	}
	if assign, ok := n.Left.(*algebra.Assign); ok {
		inner, err := build(n.Right, rt)
		if err != nil {
			return nil, err
		}
		return wrapJoinCondition(newAssign(inner, assign.Var, assign.Expr), n.Expr), nil
	}

	left, err := build(n.Left, rt)
	if err != nil {
		return nil, err
	}
	right, err := build(n.Right, rt)
	if err != nil {
		return nil, err
	}
	return newJoin(left, right, n.Expr), nil
}

func wrapJoinCondition(rs Rowsource, expr query.Expression) Rowsource {
	if expr == nil || query.IsConstantTrue(expr) {
		return rs
	}
	return newFilter(rs, expr)
}

func buildOrSingleton(node algebra.Node, rt *Runtime) (Rowsource, error) {
	if node == nil {
		return newSingleton(), nil
	}
	return build(node, rt)
}
