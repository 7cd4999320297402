package engine

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/quercus/internal/storage"
	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/algebra"
	"github.com/aleksaelezovic/quercus/pkg/store"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testStore(t *testing.T, quads []*rdf.Quad) *store.TripleStore {
	t.Helper()
	backing, err := storage.NewInMemoryStorage()
	require.NoError(t, err)
	ts := store.NewTripleStore(backing, testLogger())
	t.Cleanup(func() { _ = ts.Close() })
	require.NoError(t, ts.InsertQuads(quads))
	return ts
}

func ex(local string) *rdf.NamedNode {
	return rdf.NewNamedNode("http://example.org/" + local)
}

func peopleQuads() []*rdf.Quad {
	name := ex("name")
	age := ex("age")
	knows := ex("knows")
	integer := func(v string) *rdf.Literal {
		return rdf.NewLiteralWithDatatype(v, rdf.XSDInteger)
	}
	dg := rdf.NewDefaultGraph()
	return []*rdf.Quad{
		rdf.NewQuad(ex("alice"), name, rdf.NewLiteral("Alice"), dg),
		rdf.NewQuad(ex("alice"), age, integer("30"), dg),
		rdf.NewQuad(ex("alice"), knows, ex("bob"), dg),
		rdf.NewQuad(ex("bob"), name, rdf.NewLiteral("Bob"), dg),
		rdf.NewQuad(ex("bob"), age, integer("25"), dg),
		rdf.NewQuad(ex("carol"), name, rdf.NewLiteral("Carol"), dg),
		rdf.NewQuad(ex("carol"), age, integer("30"), dg),
		rdf.NewQuad(ex("dave"), name, rdf.NewLiteral("Dave"), rdf.NewNamedNode("http://example.org/graphs/extra")),
	}
}

func runQuery(t *testing.T, ts *store.TripleStore, text string) *Result {
	t.Helper()
	result, err := Run(text, ts, nil, testLogger())
	require.NoError(t, err)
	return result
}

// column finds the offset of a named variable in the result schema.
func column(t *testing.T, result *Result, name string) int {
	t.Helper()
	for i, v := range result.Vars {
		if v.Name == name {
			return i
		}
	}
	t.Fatalf("no variable %q in result schema", name)
	return -1
}

// stringsAt collects the literal values of one column across all rows.
func stringsAt(result *Result, col int) []string {
	out := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		if row.Values[col] == nil {
			out = append(out, "")
			continue
		}
		if lit, ok := row.Values[col].(*rdf.Literal); ok {
			out = append(out, lit.Value)
			continue
		}
		out = append(out, row.Values[col].String())
	}
	return out
}

func TestRunBasicPattern(t *testing.T) {
	ts := testStore(t, peopleQuads())

	result := runQuery(t, ts, `
		PREFIX ex: <http://example.org/>
		SELECT ?name WHERE { ?p ex:name ?name }
		ORDER BY ?name`)

	names := stringsAt(result, column(t, result, "name"))
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, names)
}

func TestRunJoinAcrossTriples(t *testing.T) {
	ts := testStore(t, peopleQuads())

	result := runQuery(t, ts, `
		PREFIX ex: <http://example.org/>
		SELECT ?name ?age WHERE {
			?p ex:name ?name .
			?p ex:age ?age .
		}
		ORDER BY ?name`)

	require.Len(t, result.Rows, 3)
	ages := stringsAt(result, column(t, result, "age"))
	assert.Equal(t, []string{"30", "25", "30"}, ages)
}

func TestRunFilter(t *testing.T) {
	ts := testStore(t, peopleQuads())

	result := runQuery(t, ts, `
		PREFIX ex: <http://example.org/>
		SELECT ?name WHERE {
			?p ex:name ?name .
			?p ex:age ?age .
			FILTER(?age > 27)
		}
		ORDER BY ?name`)

	names := stringsAt(result, column(t, result, "name"))
	assert.Equal(t, []string{"Alice", "Carol"}, names)
}

func TestRunOptionalLeavesUnmatchedUnbound(t *testing.T) {
	ts := testStore(t, peopleQuads())

	result := runQuery(t, ts, `
		PREFIX ex: <http://example.org/>
		SELECT ?name ?friend WHERE {
			?p ex:name ?name .
			OPTIONAL { ?p ex:knows ?friend }
		}
		ORDER BY ?name`)

	require.Len(t, result.Rows, 3)
	friendCol := column(t, result, "friend")
	// Alice knows Bob; the others have no ex:knows triple.
	assert.NotNil(t, result.Rows[0].Values[friendCol])
	assert.Nil(t, result.Rows[1].Values[friendCol])
	assert.Nil(t, result.Rows[2].Values[friendCol])
}

func TestRunUnion(t *testing.T) {
	ts := testStore(t, peopleQuads())

	result := runQuery(t, ts, `
		PREFIX ex: <http://example.org/>
		SELECT ?v WHERE {
			{ ex:alice ex:name ?v } UNION { ex:alice ex:age ?v }
		}`)

	values := stringsAt(result, column(t, result, "v"))
	assert.ElementsMatch(t, []string{"Alice", "30"}, values)
}

func TestRunBind(t *testing.T) {
	ts := testStore(t, peopleQuads())

	result := runQuery(t, ts, `
		PREFIX ex: <http://example.org/>
		SELECT ?name ?next WHERE {
			?p ex:name ?name .
			?p ex:age ?age .
			BIND(?age + 1 AS ?next)
		}
		ORDER BY ?name`)

	next := stringsAt(result, column(t, result, "next"))
	assert.Equal(t, []string{"31", "26", "31"}, next)
}

func TestRunGroupByWithAggregates(t *testing.T) {
	ts := testStore(t, peopleQuads())

	result := runQuery(t, ts, `
		PREFIX ex: <http://example.org/>
		SELECT ?age (COUNT(*) AS ?n) WHERE {
			?p ex:age ?age .
		}
		GROUP BY ?age
		ORDER BY ?age`)

	require.Len(t, result.Rows, 2)
	ages := stringsAt(result, column(t, result, "age"))
	counts := stringsAt(result, column(t, result, "n"))
	assert.Equal(t, []string{"25", "30"}, ages)
	assert.Equal(t, []string{"1", "2"}, counts)
}

func TestRunAggregateOverEmptyMatch(t *testing.T) {
	ts := testStore(t, peopleQuads())

	result := runQuery(t, ts, `
		PREFIX ex: <http://example.org/>
		SELECT (COUNT(*) AS ?n) WHERE { ?p ex:missing ?o }`)

	require.Len(t, result.Rows, 1)
	n := stringsAt(result, column(t, result, "n"))
	assert.Equal(t, []string{"0"}, n)
}

func TestRunHaving(t *testing.T) {
	ts := testStore(t, peopleQuads())

	result := runQuery(t, ts, `
		PREFIX ex: <http://example.org/>
		SELECT ?age (COUNT(*) AS ?n) WHERE {
			?p ex:age ?age .
		}
		GROUP BY ?age
		HAVING(COUNT(*) > 1)`)

	require.Len(t, result.Rows, 1)
	assert.Equal(t, []string{"30"}, stringsAt(result, column(t, result, "age")))
}

func TestRunValues(t *testing.T) {
	ts := testStore(t, peopleQuads())

	result := runQuery(t, ts, `
		PREFIX ex: <http://example.org/>
		SELECT ?name WHERE {
			VALUES ?p { ex:alice ex:carol }
			?p ex:name ?name .
		}
		ORDER BY ?name`)

	names := stringsAt(result, column(t, result, "name"))
	assert.Equal(t, []string{"Alice", "Carol"}, names)
}

func TestRunLimitOffset(t *testing.T) {
	ts := testStore(t, peopleQuads())

	result := runQuery(t, ts, `
		PREFIX ex: <http://example.org/>
		SELECT ?name WHERE { ?p ex:name ?name }
		ORDER BY ?name
		LIMIT 1 OFFSET 1`)

	names := stringsAt(result, column(t, result, "name"))
	assert.Equal(t, []string{"Bob"}, names)
}

func TestRunDistinct(t *testing.T) {
	ts := testStore(t, peopleQuads())

	result := runQuery(t, ts, `
		PREFIX ex: <http://example.org/>
		SELECT DISTINCT ?age WHERE { ?p ex:age ?age }
		ORDER BY ?age`)

	ages := stringsAt(result, column(t, result, "age"))
	assert.Equal(t, []string{"25", "30"}, ages)
}

func TestRunGraphScopesMatching(t *testing.T) {
	ts := testStore(t, peopleQuads())

	// Dave's name lives only in the named graph, so the default-graph
	// pattern misses it and the GRAPH pattern finds exactly it.
	result := runQuery(t, ts, `
		PREFIX ex: <http://example.org/>
		SELECT ?name WHERE {
			GRAPH <http://example.org/graphs/extra> { ?p ex:name ?name }
		}`)

	assert.Equal(t, []string{"Dave"}, stringsAt(result, column(t, result, "name")))

	result = runQuery(t, ts, `
		PREFIX ex: <http://example.org/>
		SELECT ?name WHERE { ex:dave ex:name ?name }`)
	assert.Empty(t, result.Rows)
}

func TestRunGraphVariableIsUnsupported(t *testing.T) {
	ts := testStore(t, peopleQuads())

	_, err := Run(`
		PREFIX ex: <http://example.org/>
		SELECT ?g ?name WHERE {
			GRAPH ?g { ?p ex:name ?name }
		}`, ts, nil, testLogger())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph variable")
}

func TestRunMinusIsNotImplemented(t *testing.T) {
	ts := testStore(t, peopleQuads())

	_, err := Run(`
		PREFIX ex: <http://example.org/>
		SELECT ?p WHERE {
			?p ex:name ?name .
			MINUS { ?p ex:knows ?o }
		}`, ts, nil, testLogger())

	require.ErrorIs(t, err, algebra.ErrNotImplemented)
}

func TestRunSubSelect(t *testing.T) {
	ts := testStore(t, peopleQuads())

	result := runQuery(t, ts, `
		PREFIX ex: <http://example.org/>
		SELECT ?name WHERE {
			?p ex:name ?name .
			{
				SELECT ?p ?age WHERE { ?p ex:age ?age } ORDER BY ?age LIMIT 1
			}
		}`)

	assert.Equal(t, []string{"Bob"}, stringsAt(result, column(t, result, "name")))
}

func TestRunProjectionExpression(t *testing.T) {
	ts := testStore(t, peopleQuads())

	result := runQuery(t, ts, `
		PREFIX ex: <http://example.org/>
		SELECT (?age * 2 AS ?doubled) WHERE { ex:bob ex:age ?age }`)

	require.Len(t, result.Rows, 1)
	assert.Equal(t, []string{"50"}, stringsAt(result, column(t, result, "doubled")))
}

func TestRunParseErrorSurfaces(t *testing.T) {
	ts := testStore(t, nil)

	_, err := Run("SELECT WHERE", ts, nil, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestRunServiceSilentWithoutClient(t *testing.T) {
	ts := testStore(t, peopleQuads())

	result := runQuery(t, ts, `
		PREFIX ex: <http://example.org/>
		SELECT ?name WHERE {
			?p ex:name ?name .
			SERVICE SILENT <http://unreachable.example.org/sparql> { ?p ex:extra ?x }
		}
		ORDER BY ?name`)

	// Without a client the silent service block yields no rows, and joining
	// against an empty side eliminates everything.
	assert.Empty(t, result.Rows)
}
