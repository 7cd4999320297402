package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/eval"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// mapContext binds variables by name for tests.
type mapContext map[string]rdf.Term

func (m mapContext) Value(v *query.Variable) rdf.Term { return m[v.Name] }

func integer(v string) *rdf.Literal {
	return rdf.NewLiteralWithDatatype(v, rdf.XSDInteger)
}

func lit(e rdf.Term) query.Expression {
	return &query.LiteralExpression{Literal: e}
}

func varRef(name string) query.Expression {
	return &query.VariableExpression{Variable: &query.Variable{Name: name}}
}

func binary(l query.Expression, op query.Operator, r query.Expression) query.Expression {
	return &query.BinaryExpression{Left: l, Operator: op, Right: r}
}

func call(fn string, args ...query.Expression) query.Expression {
	return &query.FunctionCallExpression{Function: fn, Arguments: args}
}

func evalTerm(t *testing.T, expr query.Expression, ctx eval.Context) rdf.Term {
	t.Helper()
	result, err := eval.NewEvaluator().Evaluate(expr, ctx)
	require.NoError(t, err)
	return result
}

func evalBool(t *testing.T, expr query.Expression, ctx eval.Context) bool {
	t.Helper()
	result, err := eval.NewEvaluator().EvaluateBool(expr, ctx)
	require.NoError(t, err)
	return result
}

func TestEvaluateVariableLookup(t *testing.T) {
	ctx := mapContext{"x": integer("7")}
	got := evalTerm(t, varRef("x"), ctx)
	assert.Equal(t, "7", got.(*rdf.Literal).Value)

	_, err := eval.NewEvaluator().Evaluate(varRef("missing"), ctx)
	assert.Error(t, err)
}

func TestEvaluateArithmetic(t *testing.T) {
	ctx := mapContext{}
	cases := []struct {
		op   query.Operator
		want string
	}{
		{query.OpAdd, "9"},
		{query.OpSubtract, "3"},
		{query.OpMultiply, "18"},
	}
	for _, tc := range cases {
		got := evalTerm(t, binary(lit(integer("6")), tc.op, lit(integer("3"))), ctx)
		assert.Equal(t, tc.want, got.(*rdf.Literal).Value)
	}

	// Integer division produces a double.
	got := evalTerm(t, binary(lit(integer("7")), query.OpDivide, lit(integer("2"))), ctx)
	div := got.(*rdf.Literal)
	assert.Equal(t, "3.5", div.Value)
	assert.Equal(t, rdf.XSDDouble.IRI, div.Datatype.IRI)

	_, err := eval.NewEvaluator().Evaluate(
		binary(lit(integer("1")), query.OpDivide, lit(integer("0"))), ctx)
	assert.Error(t, err)
}

func TestEvaluateComparisons(t *testing.T) {
	ctx := mapContext{}
	assert.True(t, evalBool(t, binary(lit(integer("2")), query.OpLessThan, lit(integer("10"))), ctx))
	assert.False(t, evalBool(t, binary(lit(integer("10")), query.OpLessThan, lit(integer("2"))), ctx))
	assert.True(t, evalBool(t, binary(lit(integer("5")), query.OpGreaterThanOrEqual, lit(integer("5"))), ctx))

	// Ordering an IRI is an evaluation failure, not false.
	_, err := eval.NewEvaluator().EvaluateBool(
		binary(lit(rdf.NewNamedNode("http://example.org/x")), query.OpLessThan, lit(integer("1"))), ctx)
	assert.Error(t, err)
}

func TestEvaluateEqualityComparesNumericsByValue(t *testing.T) {
	ctx := mapContext{}
	double := rdf.NewLiteralWithDatatype("2.0", rdf.XSDDouble)
	assert.True(t, evalBool(t, binary(lit(integer("2")), query.OpEqual, lit(double)), ctx))
	assert.False(t, evalBool(t, binary(lit(integer("2")), query.OpNotEqual, lit(double)), ctx))

	// Non-numeric literals compare by term.
	assert.False(t, evalBool(t, binary(lit(rdf.NewLiteral("a")), query.OpEqual, lit(rdf.NewLiteral("b"))), ctx))
}

func TestEvaluateLogicalErrorRecovery(t *testing.T) {
	ctx := mapContext{}
	failing := varRef("unbound")
	truthy := lit(rdf.NewBooleanLiteral(true))
	falsy := lit(rdf.NewBooleanLiteral(false))

	// (error || true) is true and (error && false) is false.
	assert.True(t, evalBool(t, binary(failing, query.OpOr, truthy), ctx))
	assert.False(t, evalBool(t, binary(failing, query.OpAnd, falsy), ctx))

	// The error survives when the other side cannot decide the result.
	_, err := eval.NewEvaluator().EvaluateBool(binary(failing, query.OpOr, falsy), ctx)
	assert.Error(t, err)
	_, err = eval.NewEvaluator().EvaluateBool(binary(failing, query.OpAnd, truthy), ctx)
	assert.Error(t, err)
}

func TestEvaluateNot(t *testing.T) {
	ctx := mapContext{}
	expr := &query.UnaryExpression{
		Operator: query.OpNot,
		Operand:  lit(rdf.NewBooleanLiteral(false)),
	}
	assert.True(t, evalBool(t, expr, ctx))
}

func TestEvaluateUnaryMinusKeepsIntegerDatatype(t *testing.T) {
	ctx := mapContext{}
	expr := &query.UnaryExpression{
		Operator: query.OpSubtract,
		Operand:  lit(integer("5")),
	}

	result := evalTerm(t, expr, ctx).(*rdf.Literal)
	assert.Equal(t, "-5", result.Value)
	assert.Equal(t, rdf.XSDInteger.IRI, result.Datatype.IRI)
}

func TestEvaluateUnaryMinusOnDouble(t *testing.T) {
	ctx := mapContext{}
	expr := &query.UnaryExpression{
		Operator: query.OpSubtract,
		Operand:  lit(rdf.NewDoubleLiteral(2.5)),
	}

	result := evalTerm(t, expr, ctx).(*rdf.Literal)
	assert.Equal(t, "-2.5", result.Value)
	assert.Equal(t, rdf.XSDDouble.IRI, result.Datatype.IRI)
}

func TestEffectiveBooleanValue(t *testing.T) {
	cases := []struct {
		term rdf.Term
		want bool
	}{
		{rdf.NewBooleanLiteral(true), true},
		{rdf.NewBooleanLiteral(false), false},
		{integer("0"), false},
		{integer("42"), true},
		{rdf.NewLiteral(""), false},
		{rdf.NewLiteral("x"), true},
	}
	for _, tc := range cases {
		got, err := eval.EffectiveBooleanValue(tc.term)
		require.NoError(t, err, "EBV of %s", tc.term)
		assert.Equal(t, tc.want, got, "EBV of %s", tc.term)
	}

	_, err := eval.EffectiveBooleanValue(rdf.NewNamedNode("http://example.org/x"))
	assert.Error(t, err, "IRIs have no EBV")
}

func TestEvaluateBound(t *testing.T) {
	ctx := mapContext{"x": integer("1")}
	assert.True(t, evalBool(t, call("BOUND", varRef("x")), ctx))
	assert.False(t, evalBool(t, call("BOUND", varRef("y")), ctx))
}

func TestEvaluateStringFunctions(t *testing.T) {
	ctx := mapContext{}

	got := evalTerm(t, call("STR", lit(rdf.NewNamedNode("http://example.org/x"))), ctx)
	assert.Equal(t, "http://example.org/x", got.(*rdf.Literal).Value)

	got = evalTerm(t, call("UCASE", lit(rdf.NewLiteral("abc"))), ctx)
	assert.Equal(t, "ABC", got.(*rdf.Literal).Value)

	got = evalTerm(t, call("STRLEN", lit(rdf.NewLiteral("abcd"))), ctx)
	assert.Equal(t, "4", got.(*rdf.Literal).Value)

	got = evalTerm(t, call("CONCAT", lit(rdf.NewLiteral("a")), lit(rdf.NewLiteral("b"))), ctx)
	assert.Equal(t, "ab", got.(*rdf.Literal).Value)

	assert.True(t, evalBool(t, call("CONTAINS", lit(rdf.NewLiteral("haystack")), lit(rdf.NewLiteral("sta"))), ctx))
	assert.True(t, evalBool(t, call("STRSTARTS", lit(rdf.NewLiteral("haystack")), lit(rdf.NewLiteral("hay"))), ctx))
	assert.False(t, evalBool(t, call("STRENDS", lit(rdf.NewLiteral("haystack")), lit(rdf.NewLiteral("hay"))), ctx))
}

func TestEvaluateTypeChecks(t *testing.T) {
	ctx := mapContext{}
	iriTerm := lit(rdf.NewNamedNode("http://example.org/x"))
	litTerm := lit(rdf.NewLiteral("x"))

	assert.True(t, evalBool(t, call("ISIRI", iriTerm), ctx))
	assert.False(t, evalBool(t, call("ISIRI", litTerm), ctx))
	assert.True(t, evalBool(t, call("ISLITERAL", litTerm), ctx))
	assert.True(t, evalBool(t, call("ISNUMERIC", lit(integer("3"))), ctx))
	assert.False(t, evalBool(t, call("ISNUMERIC", litTerm), ctx))
}

func TestEvaluateLangAndDatatype(t *testing.T) {
	ctx := mapContext{}

	got := evalTerm(t, call("LANG", lit(rdf.NewLiteralWithLanguage("chat", "fr"))), ctx)
	assert.Equal(t, "fr", got.(*rdf.Literal).Value)

	got = evalTerm(t, call("DATATYPE", lit(integer("1"))), ctx)
	assert.True(t, got.Equals(rdf.XSDInteger))
}

func TestEvaluateRegex(t *testing.T) {
	ctx := mapContext{}
	assert.True(t, evalBool(t, call("REGEX", lit(rdf.NewLiteral("Alice")), lit(rdf.NewLiteral("^Ali"))), ctx))
	assert.False(t, evalBool(t, call("REGEX", lit(rdf.NewLiteral("Bob")), lit(rdf.NewLiteral("^Ali"))), ctx))
}

func TestCompareOrdersTermClasses(t *testing.T) {
	blank := rdf.NewBlankNode("b0")
	iri := rdf.NewNamedNode("http://example.org/x")
	literal := rdf.NewLiteral("x")

	// unbound < blank < IRI < literal
	assert.Negative(t, rdf.Compare(nil, blank))
	assert.Negative(t, rdf.Compare(blank, iri))
	assert.Negative(t, rdf.Compare(iri, literal))
	assert.Zero(t, rdf.Compare(iri, rdf.NewNamedNode("http://example.org/x")))
}

func TestCompareNumericsByValue(t *testing.T) {
	assert.Negative(t, rdf.Compare(integer("9"), integer("10")))
	assert.Zero(t, rdf.Compare(integer("2"), rdf.NewLiteralWithDatatype("2.0", rdf.XSDDouble)))
}

func TestAccumulators(t *testing.T) {
	step := func(a *eval.Accumulator, values ...rdf.Term) {
		for _, v := range values {
			a.Step(v)
		}
	}

	t.Run("count skips unbound", func(t *testing.T) {
		a := eval.NewAccumulator(&query.AggregateExpression{Function: query.AggCount, Argument: varRef("x")})
		step(a, integer("1"), nil, integer("2"))
		got, err := a.Result()
		require.NoError(t, err)
		assert.Equal(t, "2", got.(*rdf.Literal).Value)
	})

	t.Run("sum stays integral for integers", func(t *testing.T) {
		a := eval.NewAccumulator(&query.AggregateExpression{Function: query.AggSum, Argument: varRef("x")})
		step(a, integer("1"), integer("2"))
		got, err := a.Result()
		require.NoError(t, err)
		l := got.(*rdf.Literal)
		assert.Equal(t, "3", l.Value)
		assert.Equal(t, rdf.XSDInteger.IRI, l.Datatype.IRI)
	})

	t.Run("avg divides by stepped count", func(t *testing.T) {
		a := eval.NewAccumulator(&query.AggregateExpression{Function: query.AggAvg, Argument: varRef("x")})
		step(a, integer("2"), integer("4"))
		got, err := a.Result()
		require.NoError(t, err)
		assert.Equal(t, "3", got.(*rdf.Literal).Value)
	})

	t.Run("min max order by term", func(t *testing.T) {
		a := eval.NewAccumulator(&query.AggregateExpression{Function: query.AggMin, Argument: varRef("x")})
		step(a, integer("5"), integer("2"), integer("9"))
		got, err := a.Result()
		require.NoError(t, err)
		assert.Equal(t, "2", got.(*rdf.Literal).Value)

		b := eval.NewAccumulator(&query.AggregateExpression{Function: query.AggMax, Argument: varRef("x")})
		step(b, integer("5"), integer("2"), integer("9"))
		got, err = b.Result()
		require.NoError(t, err)
		assert.Equal(t, "9", got.(*rdf.Literal).Value)
	})

	t.Run("group_concat with separator", func(t *testing.T) {
		a := eval.NewAccumulator(&query.AggregateExpression{
			Function: query.AggGroupConcat, Argument: varRef("x"), Separator: ", ",
		})
		step(a, rdf.NewLiteral("a"), rdf.NewLiteral("b"))
		got, err := a.Result()
		require.NoError(t, err)
		assert.Equal(t, "a, b", got.(*rdf.Literal).Value)
	})

	t.Run("distinct collapses duplicates", func(t *testing.T) {
		a := eval.NewAccumulator(&query.AggregateExpression{
			Function: query.AggCount, Argument: varRef("x"), Distinct: true,
		})
		step(a, integer("1"), integer("1"), integer("2"))
		got, err := a.Result()
		require.NoError(t, err)
		assert.Equal(t, "2", got.(*rdf.Literal).Value)
	})

	t.Run("sum over non-numerics fails", func(t *testing.T) {
		a := eval.NewAccumulator(&query.AggregateExpression{Function: query.AggSum, Argument: varRef("x")})
		step(a, rdf.NewLiteral("abc"))
		_, err := a.Result()
		assert.Error(t, err)
	})

	t.Run("min over empty group fails", func(t *testing.T) {
		a := eval.NewAccumulator(&query.AggregateExpression{Function: query.AggMin, Argument: varRef("x")})
		_, err := a.Result()
		assert.Error(t, err)
	})
}
