// Package eval evaluates SPARQL expressions against variable bindings. It is
// the collaborator the filter, having, join-condition, assignment, and
// order-by machinery call into; evaluation failure is reported as an error
// and the caller decides whether that rejects a row.
package eval

import (
	"fmt"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// Context supplies variable values during evaluation. A nil term means the
// variable is unbound.
type Context interface {
	Value(v *query.Variable) rdf.Term
}

// Evaluator evaluates SPARQL expressions against a Context
type Evaluator struct{}

// NewEvaluator creates a new expression evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate evaluates an expression and returns the result term. Type errors,
// unbound variables, and unsupported constructs return an error.
func (e *Evaluator) Evaluate(expr query.Expression, ctx Context) (rdf.Term, error) {
	if expr == nil {
		return nil, fmt.Errorf("cannot evaluate nil expression")
	}

	switch ex := expr.(type) {
	case *query.VariableExpression:
		value := ctx.Value(ex.Variable)
		if value == nil {
			return nil, fmt.Errorf("unbound variable: %s", ex.Variable)
		}
		return value, nil
	case *query.LiteralExpression:
		return ex.Literal, nil
	case *query.UnaryExpression:
		return e.evaluateUnary(ex, ctx)
	case *query.BinaryExpression:
		return e.evaluateBinary(ex, ctx)
	case *query.FunctionCallExpression:
		return e.evaluateFunction(ex, ctx)
	case *query.AggregateExpression:
		return nil, fmt.Errorf("bare aggregate call outside aggregation: %s", ex)
	default:
		return nil, fmt.Errorf("unsupported expression type: %T", expr)
	}
}

// EvaluateBool evaluates an expression and applies the effective boolean
// value rules. The error reports evaluation failure, which filter-style
// callers treat as "condition not satisfied".
func (e *Evaluator) EvaluateBool(expr query.Expression, ctx Context) (bool, error) {
	result, err := e.Evaluate(expr, ctx)
	if err != nil {
		return false, err
	}
	return EffectiveBooleanValue(result)
}

// EffectiveBooleanValue implements SPARQL EBV: booleans by value, numerics by
// non-zero, strings by non-empty. Other terms have no EBV.
func EffectiveBooleanValue(t rdf.Term) (bool, error) {
	lit, ok := t.(*rdf.Literal)
	if !ok {
		return false, fmt.Errorf("no effective boolean value for %s", t)
	}
	if b, ok := lit.BooleanValue(); ok {
		return b, nil
	}
	if n, ok := lit.NumericValue(); ok {
		return n != 0, nil
	}
	if lit.Datatype == nil || lit.Datatype.IRI == rdf.XSDString.IRI {
		return lit.Value != "", nil
	}
	return false, fmt.Errorf("no effective boolean value for %s", t)
}

func (e *Evaluator) evaluateUnary(expr *query.UnaryExpression, ctx Context) (rdf.Term, error) {
	switch expr.Operator {
	case query.OpNot:
		v, err := e.EvaluateBool(expr.Operand, ctx)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(!v), nil
	case query.OpSubtract:
		operand, err := e.Evaluate(expr.Operand, ctx)
		if err != nil {
			return nil, err
		}
		n, ok := numericValue(operand)
		if !ok {
			return nil, fmt.Errorf("unary minus on non-numeric %s", operand)
		}
		if isInteger(operand) {
			return rdf.NewIntegerLiteral(-int64(n)), nil
		}
		return rdf.NewDoubleLiteral(-n), nil
	default:
		return nil, fmt.Errorf("unsupported unary operator: %s", expr.Operator)
	}
}

func (e *Evaluator) evaluateBinary(expr *query.BinaryExpression, ctx Context) (rdf.Term, error) {
	switch expr.Operator {
	case query.OpAnd, query.OpOr:
		return e.evaluateLogical(expr, ctx)
	}

	left, err := e.Evaluate(expr.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := e.Evaluate(expr.Right, ctx)
	if err != nil {
		return nil, err
	}

	switch expr.Operator {
	case query.OpEqual:
		return rdf.NewBooleanLiteral(termEqual(left, right)), nil
	case query.OpNotEqual:
		return rdf.NewBooleanLiteral(!termEqual(left, right)), nil
	case query.OpLessThan, query.OpLessThanOrEqual,
		query.OpGreaterThan, query.OpGreaterThanOrEqual:
		return compareTerms(expr.Operator, left, right)
	case query.OpAdd, query.OpSubtract, query.OpMultiply, query.OpDivide:
		return arithmetic(expr.Operator, left, right)
	default:
		return nil, fmt.Errorf("unsupported binary operator: %s", expr.Operator)
	}
}

// evaluateLogical applies SPARQL || and &&. Both operands are evaluated so
// that errors can be recovered when the other side decides the result:
// (error || true) is true, (error && false) is false.
func (e *Evaluator) evaluateLogical(expr *query.BinaryExpression, ctx Context) (rdf.Term, error) {
	left, leftErr := e.EvaluateBool(expr.Left, ctx)
	right, rightErr := e.EvaluateBool(expr.Right, ctx)

	if expr.Operator == query.OpOr {
		if leftErr == nil && left || rightErr == nil && right {
			return rdf.NewBooleanLiteral(true), nil
		}
		if leftErr != nil {
			return nil, leftErr
		}
		if rightErr != nil {
			return nil, rightErr
		}
		return rdf.NewBooleanLiteral(false), nil
	}

	if leftErr == nil && !left || rightErr == nil && !right {
		return rdf.NewBooleanLiteral(false), nil
	}
	if leftErr != nil {
		return nil, leftErr
	}
	if rightErr != nil {
		return nil, rightErr
	}
	return rdf.NewBooleanLiteral(true), nil
}

// termEqual applies SPARQL = semantics: numerics compare by value, everything
// else by term equality.
func termEqual(a, b rdf.Term) bool {
	av, aok := numericValue(a)
	bv, bok := numericValue(b)
	if aok && bok {
		return av == bv
	}
	return a.Equals(b)
}

func compareTerms(op query.Operator, a, b rdf.Term) (rdf.Term, error) {
	la, aok := a.(*rdf.Literal)
	lb, bok := b.(*rdf.Literal)
	if !aok || !bok {
		return nil, fmt.Errorf("cannot order %s and %s", a, b)
	}
	c := rdf.Compare(la, lb)
	var result bool
	switch op {
	case query.OpLessThan:
		result = c < 0
	case query.OpLessThanOrEqual:
		result = c <= 0
	case query.OpGreaterThan:
		result = c > 0
	case query.OpGreaterThanOrEqual:
		result = c >= 0
	}
	return rdf.NewBooleanLiteral(result), nil
}

func arithmetic(op query.Operator, a, b rdf.Term) (rdf.Term, error) {
	av, aok := numericValue(a)
	bv, bok := numericValue(b)
	if !aok || !bok {
		return nil, fmt.Errorf("arithmetic on non-numeric operands: %s, %s", a, b)
	}
	var result float64
	switch op {
	case query.OpAdd:
		result = av + bv
	case query.OpSubtract:
		result = av - bv
	case query.OpMultiply:
		result = av * bv
	case query.OpDivide:
		if bv == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		result = av / bv
	}
	if isInteger(a) && isInteger(b) && op != query.OpDivide {
		return rdf.NewIntegerLiteral(int64(result)), nil
	}
	return rdf.NewDoubleLiteral(result), nil
}

func numericValue(t rdf.Term) (float64, bool) {
	lit, ok := t.(*rdf.Literal)
	if !ok {
		return 0, false
	}
	return lit.NumericValue()
}

func isInteger(t rdf.Term) bool {
	lit, ok := t.(*rdf.Literal)
	return ok && lit.Datatype != nil && lit.Datatype.IRI == rdf.XSDInteger.IRI
}
