package algebra

import (
	"errors"
	"fmt"

	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// ErrAggregateInHaving is returned when a HAVING clause contains an aggregate
// expression absent from the SELECT projection. The aggregation operator can
// only materialize variables it was told about during its own construction
// from the SELECT pass, so a late aggregate is a hard compilation error.
var ErrAggregateInHaving = errors.New("HAVING introduces an aggregate not present in the projection")

// extractor rewrites aggregate calls inside projection and HAVING expressions
// into references to internal variables. Structurally equal aggregate calls
// share one variable; unseen calls mint a fresh one while permitted.
type extractor struct {
	table   *query.VarTable
	exprs   []*query.AggregateExpression
	vars    []*query.Variable
	nextAgg int
	frozen  bool
}

func newExtractor(table *query.VarTable) *extractor {
	return &extractor{table: table}
}

// freeze forbids minting further internal variables. Called before HAVING
// processing.
func (x *extractor) freeze() {
	x.frozen = true
}

// rewrite returns the expression with every aggregate call replaced by a
// variable reference. The input tree is not mutated.
func (x *extractor) rewrite(e query.Expression) (query.Expression, error) {
	switch ex := e.(type) {
	case *query.AggregateExpression:
		return x.variableFor(ex)
	case *query.UnaryExpression:
		operand, err := x.rewrite(ex.Operand)
		if err != nil {
			return nil, err
		}
		return &query.UnaryExpression{Operator: ex.Operator, Operand: operand}, nil
	case *query.BinaryExpression:
		left, err := x.rewrite(ex.Left)
		if err != nil {
			return nil, err
		}
		right, err := x.rewrite(ex.Right)
		if err != nil {
			return nil, err
		}
		return &query.BinaryExpression{Left: left, Operator: ex.Operator, Right: right}, nil
	case *query.FunctionCallExpression:
		args := make([]query.Expression, len(ex.Arguments))
		for i, a := range ex.Arguments {
			rewritten, err := x.rewrite(a)
			if err != nil {
				return nil, err
			}
			args[i] = rewritten
		}
		return &query.FunctionCallExpression{Function: ex.Function, Arguments: args}, nil
	default:
		// Variables and literals contain no aggregate calls.
		return e, nil
	}
}

func (x *extractor) variableFor(agg *query.AggregateExpression) (query.Expression, error) {
	for i, seen := range x.exprs {
		if query.ExprEqual(seen, agg) {
			return &query.VariableExpression{Variable: x.vars[i]}, nil
		}
	}
	if x.frozen {
		return nil, fmt.Errorf("%w: %s", ErrAggregateInHaving, agg)
	}
	v := x.mint()
	x.exprs = append(x.exprs, agg)
	x.vars = append(x.vars, v)
	return &query.VariableExpression{Variable: v}, nil
}

// mint returns the internal variable for the next extraction slot. The
// counter is per compilation and the names are interned in the table, so
// compiling the same parsed query again lands on the same agg0, agg1, ...
// variables. Names held by query-text variables are skipped.
func (x *extractor) mint() *query.Variable {
	for {
		name := fmt.Sprintf("agg%d", x.nextAgg)
		x.nextAgg++
		if v := x.table.Lookup(name); v != nil && !v.Internal {
			continue
		}
		return x.table.DeclareInternal(name)
	}
}
