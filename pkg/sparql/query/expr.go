package query

import (
	"fmt"
	"strings"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
)

// Expression represents a SPARQL expression
type Expression interface {
	expressionNode()
	String() string
}

// Operator represents an operator in expressions
type Operator int

const (
	// Logical operators
	OpAnd Operator = iota
	OpOr
	OpNot

	// Comparison operators
	OpEqual
	OpNotEqual
	OpLessThan
	OpLessThanOrEqual
	OpGreaterThan
	OpGreaterThanOrEqual

	// Arithmetic operators
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
)

var operatorNames = map[Operator]string{
	OpAnd:                "&&",
	OpOr:                 "||",
	OpNot:                "!",
	OpEqual:              "=",
	OpNotEqual:           "!=",
	OpLessThan:           "<",
	OpLessThanOrEqual:    "<=",
	OpGreaterThan:        ">",
	OpGreaterThanOrEqual: ">=",
	OpAdd:                "+",
	OpSubtract:           "-",
	OpMultiply:           "*",
	OpDivide:             "/",
}

func (op Operator) String() string {
	if s, ok := operatorNames[op]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// BinaryExpression represents a binary operation
type BinaryExpression struct {
	Left     Expression
	Operator Operator
	Right    Expression
}

func (e *BinaryExpression) expressionNode() {}

func (e *BinaryExpression) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Operator, e.Right)
}

// UnaryExpression represents a unary operation
type UnaryExpression struct {
	Operator Operator
	Operand  Expression
}

func (e *UnaryExpression) expressionNode() {}

func (e *UnaryExpression) String() string {
	return fmt.Sprintf("%s(%s)", e.Operator, e.Operand)
}

// VariableExpression represents a variable reference in an expression
type VariableExpression struct {
	Variable *Variable
}

func (e *VariableExpression) expressionNode() {}

func (e *VariableExpression) String() string {
	return e.Variable.String()
}

// LiteralExpression represents a constant term in an expression
type LiteralExpression struct {
	Literal rdf.Term
}

func (e *LiteralExpression) expressionNode() {}

func (e *LiteralExpression) String() string {
	return e.Literal.String()
}

// FunctionCallExpression represents a non-aggregate function call
type FunctionCallExpression struct {
	Function  string
	Arguments []Expression
}

func (e *FunctionCallExpression) expressionNode() {}

func (e *FunctionCallExpression) String() string {
	args := make([]string, len(e.Arguments))
	for i, a := range e.Arguments {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", strings.ToUpper(e.Function), strings.Join(args, ", "))
}

// AggregateFunc identifies a SPARQL aggregate function
type AggregateFunc int

const (
	AggCount AggregateFunc = iota
	AggSum
	AggAvg
	AggMin
	AggMax
	AggSample
	AggGroupConcat
)

var aggregateNames = map[AggregateFunc]string{
	AggCount:       "COUNT",
	AggSum:         "SUM",
	AggAvg:         "AVG",
	AggMin:         "MIN",
	AggMax:         "MAX",
	AggSample:      "SAMPLE",
	AggGroupConcat: "GROUP_CONCAT",
}

func (f AggregateFunc) String() string {
	if s, ok := aggregateNames[f]; ok {
		return s
	}
	return fmt.Sprintf("agg(%d)", int(f))
}

// AggregateExpression represents an aggregate function call. Argument is nil
// for COUNT(*). Separator applies to GROUP_CONCAT only.
type AggregateExpression struct {
	Function  AggregateFunc
	Argument  Expression
	Distinct  bool
	Separator string
}

func (e *AggregateExpression) expressionNode() {}

func (e *AggregateExpression) String() string {
	arg := "*"
	if e.Argument != nil {
		arg = e.Argument.String()
	}
	if e.Distinct {
		arg = "DISTINCT " + arg
	}
	if e.Function == AggGroupConcat && e.Separator != "" {
		return fmt.Sprintf("%s(%s; SEPARATOR=%q)", e.Function, arg, e.Separator)
	}
	return fmt.Sprintf("%s(%s)", e.Function, arg)
}

// ExprEqual reports structural equality of two expressions. Variables compare
// by identity (they are interned per query), literals by term equality.
func ExprEqual(a, b Expression) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch ea := a.(type) {
	case *VariableExpression:
		eb, ok := b.(*VariableExpression)
		return ok && ea.Variable == eb.Variable
	case *LiteralExpression:
		eb, ok := b.(*LiteralExpression)
		return ok && ea.Literal.Equals(eb.Literal)
	case *UnaryExpression:
		eb, ok := b.(*UnaryExpression)
		return ok && ea.Operator == eb.Operator && ExprEqual(ea.Operand, eb.Operand)
	case *BinaryExpression:
		eb, ok := b.(*BinaryExpression)
		return ok && ea.Operator == eb.Operator &&
			ExprEqual(ea.Left, eb.Left) && ExprEqual(ea.Right, eb.Right)
	case *FunctionCallExpression:
		eb, ok := b.(*FunctionCallExpression)
		if !ok || ea.Function != eb.Function || len(ea.Arguments) != len(eb.Arguments) {
			return false
		}
		for i := range ea.Arguments {
			if !ExprEqual(ea.Arguments[i], eb.Arguments[i]) {
				return false
			}
		}
		return true
	case *AggregateExpression:
		eb, ok := b.(*AggregateExpression)
		return ok && ea.Function == eb.Function && ea.Distinct == eb.Distinct &&
			ea.Separator == eb.Separator && ExprEqual(ea.Argument, eb.Argument)
	}
	return false
}

// HasAggregate reports whether the expression tree contains an aggregate call.
func HasAggregate(e Expression) bool {
	switch ex := e.(type) {
	case *AggregateExpression:
		return true
	case *UnaryExpression:
		return HasAggregate(ex.Operand)
	case *BinaryExpression:
		return HasAggregate(ex.Left) || HasAggregate(ex.Right)
	case *FunctionCallExpression:
		for _, a := range ex.Arguments {
			if HasAggregate(a) {
				return true
			}
		}
	}
	return false
}

// ConstantTrue and ConstantFalse are the boolean constants the simplifier
// recognizes as join conditions.
var (
	ConstantTrue  Expression = &LiteralExpression{Literal: rdf.NewBooleanLiteral(true)}
	ConstantFalse Expression = &LiteralExpression{Literal: rdf.NewBooleanLiteral(false)}
)

// IsConstantTrue reports whether the expression is a literal xsd:boolean true.
func IsConstantTrue(e Expression) bool {
	lit, ok := e.(*LiteralExpression)
	if !ok {
		return false
	}
	l, ok := lit.Literal.(*rdf.Literal)
	if !ok {
		return false
	}
	v, ok := l.BooleanValue()
	return ok && v
}

// IsConstantFalse reports whether the expression is a literal xsd:boolean false.
func IsConstantFalse(e Expression) bool {
	lit, ok := e.(*LiteralExpression)
	if !ok {
		return false
	}
	l, ok := lit.Literal.(*rdf.Literal)
	if !ok {
		return false
	}
	v, ok := l.BooleanValue()
	return ok && !v
}
