package turtle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
)

func TestReadSimpleTriples(t *testing.T) {
	triples, err := NewReader(`<http://example.org/s> <http://example.org/p> <http://example.org/o> .
<http://example.org/s2> <http://example.org/p2> "value" .`).ReadAll()
	require.NoError(t, err)
	require.Len(t, triples, 2)
	assert.Equal(t, "http://example.org/s", triples[0].Subject.(*rdf.NamedNode).IRI)
	assert.Equal(t, "value", triples[1].Object.(*rdf.Literal).Value)
}

func TestReadPropertyLists(t *testing.T) {
	triples, err := NewReader(`
		@prefix ex: <http://example.org/> .
		ex:alice a ex:Person ;
			ex:name "Alice" ;
			ex:knows ex:bob, ex:charlie .`).ReadAll()
	require.NoError(t, err)
	require.Len(t, triples, 4)

	// 'a' expands to rdf:type.
	assert.Equal(t, "http://www.w3.org/1999/02/22-rdf-syntax-ns#type",
		triples[0].Predicate.(*rdf.NamedNode).IRI)

	// ';' keeps the subject, ',' keeps subject and predicate.
	for _, tr := range triples {
		assert.Equal(t, "http://example.org/alice", tr.Subject.(*rdf.NamedNode).IRI)
	}
	assert.Equal(t, "http://example.org/bob", triples[2].Object.(*rdf.NamedNode).IRI)
	assert.Equal(t, "http://example.org/charlie", triples[3].Object.(*rdf.NamedNode).IRI)
	assert.True(t, triples[2].Predicate.Equals(triples[3].Predicate))
}

func TestReadLiteralForms(t *testing.T) {
	triples, err := NewReader(`
		@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
		<http://example.org/s> <http://example.org/p> "café"@fr .
		<http://example.org/s> <http://example.org/q> "5"^^xsd:integer .
		<http://example.org/s> <http://example.org/r> 3.5 .
		<http://example.org/s> <http://example.org/t> 12 .`).ReadAll()
	require.NoError(t, err)
	require.Len(t, triples, 4)

	assert.Equal(t, "fr", triples[0].Object.(*rdf.Literal).Language)
	assert.Equal(t, rdf.XSDInteger.IRI, triples[1].Object.(*rdf.Literal).Datatype.IRI)
	assert.Equal(t, rdf.XSDDouble.IRI, triples[2].Object.(*rdf.Literal).Datatype.IRI)
	assert.Equal(t, "12", triples[3].Object.(*rdf.Literal).Value)
}

func TestReadBaseResolution(t *testing.T) {
	triples, err := NewReader(`
		@base <http://example.org/> .
		<s> <p> <o> .`).ReadAll()
	require.NoError(t, err)
	require.Len(t, triples, 1)
	assert.Equal(t, "http://example.org/s", triples[0].Subject.(*rdf.NamedNode).IRI)
}

func TestReadErrors(t *testing.T) {
	cases := map[string]string{
		"missing dot":      `<http://example.org/s> <http://example.org/p> <http://example.org/o>`,
		"undefined prefix": `ex:s ex:p ex:o .`,
		"unclosed IRI":     `<http://example.org/s`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewReader(input).ReadAll()
			assert.Error(t, err)
		})
	}
}
