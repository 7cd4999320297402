package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

func TestVarTableInternsByName(t *testing.T) {
	vt := query.NewVarTable()

	a := vt.Declare("x")
	b := vt.Declare("x")
	c := vt.Declare("y")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, vt.Len())
	assert.Same(t, a, vt.Lookup("x"))
	assert.Nil(t, vt.Lookup("z"))
	assert.Same(t, a, vt.At(0))
}

func TestVarTableInternalVariables(t *testing.T) {
	vt := query.NewVarTable()

	first := vt.DeclareInternal("agg0")
	second := vt.DeclareInternal("agg1")

	assert.True(t, first.Internal)
	assert.Equal(t, "agg0", first.Name)
	assert.Equal(t, "agg1", second.Name)
	assert.NotSame(t, first, second)
}

func TestVarTableInternalInternsByName(t *testing.T) {
	vt := query.NewVarTable()

	first := vt.DeclareInternal("agg0")
	again := vt.DeclareInternal("agg0")

	assert.Same(t, first, again)
	assert.Equal(t, 1, vt.Len())
}

func TestBindingsRowCopyIsIndependent(t *testing.T) {
	vt := query.NewVarTable()
	b := query.NewBindings([]*query.Variable{vt.Declare("x")})
	b.AddRow([]rdf.Term{rdf.NewLiteral("a")})

	row := b.RowCopy(0)
	row[0] = rdf.NewLiteral("mutated")
	assert.Equal(t, "a", b.Rows[0][0].(*rdf.Literal).Value)
	assert.Equal(t, 1, b.Size())
}

func TestExprEqualComparesStructurally(t *testing.T) {
	vt := query.NewVarTable()
	x := vt.Declare("x")

	count := func() query.Expression {
		return &query.AggregateExpression{
			Function: query.AggCount,
			Argument: &query.VariableExpression{Variable: x},
		}
	}
	assert.True(t, query.ExprEqual(count(), count()))

	other := &query.AggregateExpression{
		Function: query.AggSum,
		Argument: &query.VariableExpression{Variable: x},
	}
	assert.False(t, query.ExprEqual(count(), other))
}

func TestHasAggregateWalksSubexpressions(t *testing.T) {
	vt := query.NewVarTable()
	x := vt.Declare("x")

	agg := &query.AggregateExpression{Function: query.AggCount}
	nested := &query.BinaryExpression{
		Left:     agg,
		Operator: query.OpGreaterThan,
		Right:    &query.VariableExpression{Variable: x},
	}
	assert.True(t, query.HasAggregate(nested))
	assert.False(t, query.HasAggregate(&query.VariableExpression{Variable: x}))
}

func TestConstantBooleanPredicates(t *testing.T) {
	assert.True(t, query.IsConstantTrue(query.ConstantTrue))
	assert.False(t, query.IsConstantTrue(query.ConstantFalse))
	assert.True(t, query.IsConstantFalse(query.ConstantFalse))

	lit := &query.LiteralExpression{Literal: rdf.NewLiteral("true")}
	assert.False(t, query.IsConstantTrue(lit), "plain strings are not boolean constants")
}

func newTriple(q *query.Query, s, p, o string) {
	q.AddTriple(&query.TriplePattern{
		Subject:   query.TermOrVariable{Variable: q.Vars.Declare(s)},
		Predicate: query.TermOrVariable{Term: rdf.NewNamedNode("http://example.org/" + p)},
		Object:    query.TermOrVariable{Variable: q.Vars.Declare(o)},
	})
}

func TestWritePatternBasic(t *testing.T) {
	q := query.NewQuery()
	newTriple(q, "s", "p", "o")

	text := query.WritePattern(q, &query.GraphPattern{
		Kind:        query.PatternBasic,
		TripleStart: 0,
		TripleEnd:   1,
	})
	assert.Equal(t, "SELECT * WHERE { ?s <http://example.org/p> ?o . }", text)
}

func TestWritePatternOptionalAndFilter(t *testing.T) {
	q := query.NewQuery()
	newTriple(q, "s", "a", "x")
	newTriple(q, "s", "b", "y")

	group := &query.GraphPattern{
		Kind: query.PatternGroup,
		SubPatterns: []*query.GraphPattern{
			{Kind: query.PatternBasic, TripleStart: 0, TripleEnd: 1},
			{Kind: query.PatternOptional, SubPatterns: []*query.GraphPattern{
				{Kind: query.PatternBasic, TripleStart: 1, TripleEnd: 2},
			}},
			{Kind: query.PatternFilter, Filter: query.ConstantTrue},
		},
	}

	text := query.WritePattern(q, group)
	assert.Contains(t, text, "OPTIONAL { ?s <http://example.org/b> ?y . }")
	assert.Contains(t, text, "FILTER(")
}

func TestWritePatternValuesWithUndef(t *testing.T) {
	q := query.NewQuery()
	b := query.NewBindings([]*query.Variable{q.Vars.Declare("x"), q.Vars.Declare("y")})
	b.AddRow([]rdf.Term{rdf.NewNamedNode("http://example.org/a"), nil})

	text := query.WritePattern(q, &query.GraphPattern{Kind: query.PatternValues, Bindings: b})
	assert.Contains(t, text, "VALUES (?x ?y)")
	assert.Contains(t, text, "(<http://example.org/a> UNDEF)")
}

func TestWritePatternRoundTripsThroughParser(t *testing.T) {
	// The SERVICE compiler ships writer output to remote endpoints, so the
	// output must itself parse.
	q := query.NewQuery()
	newTriple(q, "s", "p", "o")

	group := &query.GraphPattern{
		Kind: query.PatternGroup,
		SubPatterns: []*query.GraphPattern{
			{Kind: query.PatternBasic, TripleStart: 0, TripleEnd: 1},
		},
	}
	text := query.WritePattern(q, group)
	require.Contains(t, text, "SELECT * WHERE {")
	assert.Contains(t, text, "?s <http://example.org/p> ?o .")
}
