package store_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/quercus/internal/storage"
	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/store"
)

func newStore(t *testing.T) *store.TripleStore {
	t.Helper()
	backing, err := storage.NewInMemoryStorage()
	require.NoError(t, err)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	ts := store.NewTripleStore(backing, log)
	t.Cleanup(func() { _ = ts.Close() })
	return ts
}

func quad(s, p, o string) *rdf.Quad {
	return rdf.NewQuad(
		rdf.NewNamedNode("http://example.org/"+s),
		rdf.NewNamedNode("http://example.org/"+p),
		rdf.NewNamedNode("http://example.org/"+o),
		rdf.NewDefaultGraph(),
	)
}

func namedQuad(s, p, o, g string) *rdf.Quad {
	q := quad(s, p, o)
	q.Graph = rdf.NewNamedNode("http://example.org/graphs/" + g)
	return q
}

func collect(t *testing.T, ts *store.TripleStore, pattern *store.Pattern) []*rdf.Quad {
	t.Helper()
	it, err := ts.Query(pattern)
	require.NoError(t, err)
	defer it.Close()

	var quads []*rdf.Quad
	for it.Next() {
		q, err := it.Quad()
		require.NoError(t, err)
		quads = append(quads, q)
	}
	return quads
}

func TestInsertAndCount(t *testing.T) {
	ts := newStore(t)

	require.NoError(t, ts.InsertQuads([]*rdf.Quad{
		quad("a", "p", "x"),
		quad("b", "p", "y"),
		namedQuad("c", "p", "z", "g1"),
	}))

	count, err := ts.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestInsertIsIdempotent(t *testing.T) {
	ts := newStore(t)

	q := quad("a", "p", "x")
	require.NoError(t, ts.InsertQuad(q))
	require.NoError(t, ts.InsertQuad(q))

	count, err := ts.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestQueryBySubject(t *testing.T) {
	ts := newStore(t)
	require.NoError(t, ts.InsertQuads([]*rdf.Quad{
		quad("a", "p", "x"),
		quad("a", "q", "y"),
		quad("b", "p", "z"),
	}))

	got := collect(t, ts, &store.Pattern{
		Subject:   rdf.NewNamedNode("http://example.org/a"),
		Predicate: store.NewVariable("p"),
		Object:    store.NewVariable("o"),
	})
	require.Len(t, got, 2)
	for _, q := range got {
		assert.True(t, q.Subject.Equals(rdf.NewNamedNode("http://example.org/a")))
	}
}

func TestQueryByObjectUsesOSPIndex(t *testing.T) {
	ts := newStore(t)
	require.NoError(t, ts.InsertQuads([]*rdf.Quad{
		quad("a", "p", "shared"),
		quad("b", "q", "shared"),
		quad("c", "p", "other"),
	}))

	got := collect(t, ts, &store.Pattern{
		Subject:   store.NewVariable("s"),
		Predicate: store.NewVariable("p"),
		Object:    rdf.NewNamedNode("http://example.org/shared"),
	})
	assert.Len(t, got, 2)
}

func TestQueryDefaultGraphExcludesNamedGraphs(t *testing.T) {
	ts := newStore(t)
	require.NoError(t, ts.InsertQuads([]*rdf.Quad{
		quad("a", "p", "x"),
		namedQuad("b", "p", "y", "g1"),
	}))

	// A nil graph matches the default graph only.
	got := collect(t, ts, &store.Pattern{
		Subject:   store.NewVariable("s"),
		Predicate: store.NewVariable("p"),
		Object:    store.NewVariable("o"),
	})
	require.Len(t, got, 1)
	assert.True(t, got[0].Subject.Equals(rdf.NewNamedNode("http://example.org/a")))
}

func TestQueryNamedGraph(t *testing.T) {
	ts := newStore(t)
	require.NoError(t, ts.InsertQuads([]*rdf.Quad{
		quad("a", "p", "x"),
		namedQuad("b", "p", "y", "g1"),
		namedQuad("c", "p", "z", "g2"),
	}))

	got := collect(t, ts, &store.Pattern{
		Subject:   store.NewVariable("s"),
		Predicate: store.NewVariable("p"),
		Object:    store.NewVariable("o"),
		Graph:     rdf.NewNamedNode("http://example.org/graphs/g1"),
	})
	require.Len(t, got, 1)
	assert.True(t, got[0].Subject.Equals(rdf.NewNamedNode("http://example.org/b")))
}

func TestQueryRoundTripsLiterals(t *testing.T) {
	ts := newStore(t)

	q := quad("a", "p", "x")
	q.Object = rdf.NewLiteralWithLanguage("château", "fr")
	require.NoError(t, ts.InsertQuad(q))

	got := collect(t, ts, &store.Pattern{
		Subject:   q.Subject,
		Predicate: store.NewVariable("p"),
		Object:    store.NewVariable("o"),
	})
	require.Len(t, got, 1)
	lit, ok := got[0].Object.(*rdf.Literal)
	require.True(t, ok)
	assert.Equal(t, "château", lit.Value)
	assert.Equal(t, "fr", lit.Language)
}

func TestContainsQuad(t *testing.T) {
	ts := newStore(t)
	q := quad("a", "p", "x")
	require.NoError(t, ts.InsertQuad(q))

	ok, err := ts.ContainsQuad(q)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ts.ContainsQuad(quad("a", "p", "missing"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteQuadRemovesFromAllIndexes(t *testing.T) {
	ts := newStore(t)
	q := quad("a", "p", "x")
	require.NoError(t, ts.InsertQuad(q))
	require.NoError(t, ts.DeleteQuad(q))

	ok, err := ts.ContainsQuad(q)
	require.NoError(t, err)
	assert.False(t, ok)

	got := collect(t, ts, &store.Pattern{
		Subject:   store.NewVariable("s"),
		Predicate: store.NewVariable("p"),
		Object:    rdf.NewNamedNode("http://example.org/x"),
	})
	assert.Empty(t, got)
}
