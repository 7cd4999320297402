package algebra_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/quercus/pkg/sparql/algebra"
	"github.com/aleksaelezovic/quercus/pkg/sparql/parser"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

func compile(t *testing.T, text string) algebra.Node {
	t.Helper()
	q, err := parser.NewParser(text).Parse()
	require.NoError(t, err)
	node, err := algebra.Compile(q)
	require.NoError(t, err)
	return node
}

func TestCompileBasicPattern(t *testing.T) {
	node := compile(t, `SELECT ?s WHERE { ?s <http://example.org/p> ?o }`)

	project, ok := node.(*algebra.Project)
	require.True(t, ok, "expected Project at the root, got %s", node)
	require.Len(t, project.Vars, 1)
	assert.Equal(t, "s", project.Vars[0].Name)

	bgp, ok := project.Input.(*algebra.BGP)
	require.True(t, ok, "expected BGP under Project, got %s", project.Input)
	assert.False(t, bgp.IsEmpty())
	assert.Equal(t, 0, bgp.Start)
	assert.Equal(t, 1, bgp.End)
}

func TestCompileSelectStarHasNoProject(t *testing.T) {
	node := compile(t, `SELECT * WHERE { ?s ?p ?o }`)
	_, ok := node.(*algebra.Project)
	assert.False(t, ok, "SELECT * must not project, got %s", node)
}

func TestCompileGroupFoldsFiltersToTheEnd(t *testing.T) {
	node := compile(t, `
		SELECT * WHERE {
			?s <http://example.org/a> ?a .
			FILTER(?a > 1)
			?s <http://example.org/b> ?b .
			FILTER(?b > 2)
		}`)

	// Both filters conjoin into one Filter wrapping the joined triples.
	filter, ok := node.(*algebra.Filter)
	require.True(t, ok, "expected Filter at the root, got %s", node)
	bin, ok := filter.Expr.(*query.BinaryExpression)
	require.True(t, ok)
	assert.Equal(t, query.OpAnd, bin.Operator)
}

func TestCompileOptionalBecomesLeftJoin(t *testing.T) {
	node := compile(t, `
		SELECT * WHERE {
			?s <http://example.org/a> ?a .
			OPTIONAL { ?s <http://example.org/b> ?b . FILTER(?b > 1) }
		}`)

	lj, ok := node.(*algebra.LeftJoin)
	require.True(t, ok, "expected LeftJoin at the root, got %s", node)
	// The optional group's filter is lifted into the join condition.
	require.NotNil(t, lj.Expr)
	_, ok = lj.Right.(*algebra.BGP)
	assert.True(t, ok, "expected BGP on the right, got %s", lj.Right)
}

func TestCompileUnionFoldsLeftAssociative(t *testing.T) {
	node := compile(t, `
		SELECT * WHERE {
			{ ?s <http://example.org/a> ?o }
			UNION { ?s <http://example.org/b> ?o }
			UNION { ?s <http://example.org/c> ?o }
		}`)

	outer, ok := node.(*algebra.Union)
	require.True(t, ok, "expected Union at the root, got %s", node)
	_, ok = outer.Left.(*algebra.Union)
	assert.True(t, ok, "expected nested Union on the left, got %s", outer.Left)
}

func TestCompileGraphWrapsInner(t *testing.T) {
	node := compile(t, `
		SELECT * WHERE {
			GRAPH <http://example.org/g> { ?s ?p ?o }
		}`)

	g, ok := node.(*algebra.Graph)
	require.True(t, ok, "expected Graph at the root, got %s", node)
	require.NotNil(t, g.Origin)
	assert.False(t, g.Origin.IsVariable())
}

func TestCompileServiceSerializesSubQuery(t *testing.T) {
	node := compile(t, `
		PREFIX ex: <http://example.org/>
		SELECT * WHERE {
			SERVICE SILENT <http://example.org/sparql> { ?s ex:p ?o }
		}`)

	svc, ok := node.(*algebra.Service)
	require.True(t, ok, "expected Service at the root, got %s", node)
	assert.Equal(t, "http://example.org/sparql", svc.Endpoint)
	assert.True(t, svc.Silent)
	assert.Contains(t, svc.Query, "?s")
	assert.Contains(t, svc.Query, "<http://example.org/p>")
}

func TestCompileSolutionModifierOrder(t *testing.T) {
	node := compile(t, `
		SELECT DISTINCT ?s WHERE { ?s ?p ?o }
		ORDER BY ?s
		LIMIT 10 OFFSET 5`)

	slice, ok := node.(*algebra.Slice)
	require.True(t, ok, "expected Slice outermost, got %s", node)
	require.NotNil(t, slice.Limit)
	require.NotNil(t, slice.Offset)
	assert.Equal(t, 10, *slice.Limit)
	assert.Equal(t, 5, *slice.Offset)

	distinct, ok := slice.Input.(*algebra.Distinct)
	require.True(t, ok, "expected Distinct under Slice, got %s", slice.Input)
	assert.False(t, distinct.Reduced)

	order, ok := distinct.Input.(*algebra.OrderBy)
	require.True(t, ok, "expected OrderBy under Distinct, got %s", distinct.Input)
	_, ok = order.Input.(*algebra.Project)
	assert.True(t, ok, "expected Project under OrderBy, got %s", order.Input)
}

func TestCompileReducedSetsFlag(t *testing.T) {
	node := compile(t, `SELECT REDUCED ?s WHERE { ?s ?p ?o }`)
	distinct, ok := node.(*algebra.Distinct)
	require.True(t, ok, "expected Distinct at the root, got %s", node)
	assert.True(t, distinct.Reduced)
}

func TestCompileExtractsAggregates(t *testing.T) {
	node := compile(t, `
		PREFIX ex: <http://example.org/>
		SELECT ?s (COUNT(?o) AS ?n) WHERE { ?s ex:p ?o }
		GROUP BY ?s`)

	project, ok := node.(*algebra.Project)
	require.True(t, ok, "expected Project at the root, got %s", node)

	agg, ok := project.Input.(*algebra.Aggregation)
	require.True(t, ok, "expected Aggregation under Project, got %s", project.Input)
	require.Len(t, agg.Exprs, 1)
	assert.Equal(t, query.AggCount, agg.Exprs[0].Function)
	require.Len(t, agg.Vars, 1)
	assert.True(t, agg.Vars[0].Internal)

	// The projection's second column now references the aggregate variable.
	ve, ok := project.Exprs[1].(*query.VariableExpression)
	require.True(t, ok)
	assert.Same(t, agg.Vars[0], ve.Variable)

	_, ok = agg.Input.(*algebra.Group)
	assert.True(t, ok, "expected Group under Aggregation, got %s", agg.Input)
}

func TestCompileSharedAggregateIsExtractedOnce(t *testing.T) {
	node := compile(t, `
		PREFIX ex: <http://example.org/>
		SELECT ?s (COUNT(?o) AS ?n) WHERE { ?s ex:p ?o }
		GROUP BY ?s
		HAVING(COUNT(?o) > 1)`)

	having := findNode[*algebra.Having](node)
	require.NotNil(t, having, "expected a Having node in %s", node)

	agg := findNode[*algebra.Aggregation](node)
	require.NotNil(t, agg)
	// HAVING reuses the projection's COUNT rather than minting a second one.
	assert.Len(t, agg.Exprs, 1)
}

func TestCompileTwiceYieldsEqualTrees(t *testing.T) {
	q, err := parser.NewParser(`
		PREFIX ex: <http://example.org/>
		SELECT ?s (COUNT(?o) AS ?n) (SUM(?o) AS ?total) WHERE { ?s ex:p ?o }
		GROUP BY ?s
		HAVING(COUNT(?o) > 1)`).Parse()
	require.NoError(t, err)

	first, err := algebra.Compile(q)
	require.NoError(t, err)
	second, err := algebra.Compile(q)
	require.NoError(t, err)

	assert.True(t, algebra.Equal(first, second), "recompilation diverged:\n%s\nvs\n%s", first, second)

	aggA := findNode[*algebra.Aggregation](first)
	aggB := findNode[*algebra.Aggregation](second)
	require.NotNil(t, aggA)
	require.NotNil(t, aggB)
	require.Len(t, aggA.Vars, 2)
	require.Len(t, aggB.Vars, 2)
	assert.Equal(t, "agg0", aggA.Vars[0].Name)
	assert.Equal(t, "agg1", aggA.Vars[1].Name)
	// Interning makes the second compilation land on the same variables.
	assert.Same(t, aggA.Vars[0], aggB.Vars[0])
	assert.Same(t, aggA.Vars[1], aggB.Vars[1])
}

func TestCompileExtractionAvoidsQueryVariableNames(t *testing.T) {
	node := compile(t, `
		PREFIX ex: <http://example.org/>
		SELECT ?agg0 (COUNT(?o) AS ?n) WHERE { ?agg0 ex:p ?o }
		GROUP BY ?agg0`)

	agg := findNode[*algebra.Aggregation](node)
	require.NotNil(t, agg)
	require.Len(t, agg.Vars, 1)
	assert.Equal(t, "agg1", agg.Vars[0].Name)
	assert.True(t, agg.Vars[0].Internal)
}

func TestCompileHavingCannotIntroduceAggregates(t *testing.T) {
	q, err := parser.NewParser(`
		PREFIX ex: <http://example.org/>
		SELECT ?s WHERE { ?s ex:p ?o }
		GROUP BY ?s
		HAVING(COUNT(?o) > 1)`).Parse()
	require.NoError(t, err)

	_, err = algebra.Compile(q)
	require.ErrorIs(t, err, algebra.ErrAggregateInHaving)
}

func TestCompileMinusIsNotImplemented(t *testing.T) {
	q, err := parser.NewParser(`
		PREFIX ex: <http://example.org/>
		SELECT ?s WHERE {
			?s ex:p ?o .
			MINUS { ?s ex:q ?o }
		}`).Parse()
	require.NoError(t, err)

	_, err = algebra.Compile(q)
	require.ErrorIs(t, err, algebra.ErrNotImplemented)
}

func TestCompileTrailingValuesJoinsRoot(t *testing.T) {
	node := compile(t, `
		SELECT * WHERE { ?s ?p ?o }
		VALUES ?s { <http://example.org/a> }`)

	join, ok := node.(*algebra.Join)
	require.True(t, ok, "expected Join at the root, got %s", node)
	_, ok = join.Right.(*algebra.Values)
	assert.True(t, ok, "expected Values on the right, got %s", join.Right)
}

func TestSimplifyMergesEmptyJoinChild(t *testing.T) {
	full := &algebra.BGP{Start: 0, End: 2}

	got := algebra.Simplify(&algebra.Join{Left: &algebra.BGP{}, Right: full})
	assert.True(t, algebra.Equal(got, full))

	got = algebra.Simplify(&algebra.Join{Left: full, Right: &algebra.BGP{}})
	assert.True(t, algebra.Equal(got, full))
}

func TestSimplifyKeepsJoinOfTwoNonEmptyChildren(t *testing.T) {
	left := &algebra.BGP{Start: 0, End: 1}
	right := &algebra.BGP{Start: 1, End: 2}

	got := algebra.Simplify(&algebra.Join{Left: left, Right: right})
	_, ok := got.(*algebra.Join)
	assert.True(t, ok, "expected the Join to survive, got %s", got)
}

func TestSimplifyDropsConstantTrueCondition(t *testing.T) {
	join := &algebra.Join{
		Left:  &algebra.BGP{Start: 0, End: 1},
		Right: &algebra.BGP{Start: 1, End: 2},
		Expr:  query.ConstantTrue,
	}
	got := algebra.Simplify(join)
	kept, ok := got.(*algebra.Join)
	require.True(t, ok)
	assert.Nil(t, kept.Expr)
}

func TestSimplifyLeavesConstantFalseCondition(t *testing.T) {
	join := &algebra.Join{
		Left:  &algebra.BGP{},
		Right: &algebra.BGP{Start: 0, End: 1},
		Expr:  query.ConstantFalse,
	}
	got := algebra.Simplify(join)
	kept, ok := got.(*algebra.Join)
	require.True(t, ok, "constant-false joins must not be merged away, got %s", got)
	assert.NotNil(t, kept.Expr)
}

func TestSimplifyRecursesThroughModifiers(t *testing.T) {
	limit := 5
	tree := &algebra.Slice{
		Input: &algebra.Distinct{
			Input: &algebra.Join{Left: &algebra.BGP{}, Right: &algebra.BGP{Start: 0, End: 1}},
		},
		Limit: &limit,
	}
	got := algebra.Simplify(tree)
	slice, ok := got.(*algebra.Slice)
	require.True(t, ok)
	distinct, ok := slice.Input.(*algebra.Distinct)
	require.True(t, ok)
	_, ok = distinct.Input.(*algebra.BGP)
	assert.True(t, ok, "the empty join child should be gone, got %s", distinct.Input)
}

func TestEqualTreatsAllEmptyBGPsAlike(t *testing.T) {
	assert.True(t, algebra.Equal(&algebra.BGP{}, &algebra.BGP{Start: 3, End: 3}))
	assert.False(t, algebra.Equal(&algebra.BGP{Start: 0, End: 1}, &algebra.BGP{Start: 1, End: 2}))
}

// findNode walks the tree depth-first and returns the first node of type T.
func findNode[T algebra.Node](n algebra.Node) T {
	var zero T
	if n == nil {
		return zero
	}
	if t, ok := n.(T); ok {
		return t
	}
	for _, child := range children(n) {
		if found := findNode[T](child); any(found) != any(zero) {
			return found
		}
	}
	return zero
}

func children(n algebra.Node) []algebra.Node {
	switch t := n.(type) {
	case *algebra.Filter:
		return []algebra.Node{t.Input}
	case *algebra.Join:
		return []algebra.Node{t.Left, t.Right}
	case *algebra.LeftJoin:
		return []algebra.Node{t.Left, t.Right}
	case *algebra.Union:
		return []algebra.Node{t.Left, t.Right}
	case *algebra.OrderBy:
		return []algebra.Node{t.Input}
	case *algebra.Project:
		return []algebra.Node{t.Input}
	case *algebra.Distinct:
		return []algebra.Node{t.Input}
	case *algebra.Slice:
		return []algebra.Node{t.Input}
	case *algebra.Graph:
		return []algebra.Node{t.Input}
	case *algebra.Group:
		return []algebra.Node{t.Input}
	case *algebra.Aggregation:
		return []algebra.Node{t.Input}
	case *algebra.Having:
		return []algebra.Node{t.Input}
	default:
		return nil
	}
}
