// Package rdf defines the term model shared by the parser, the query engine,
// and the store: IRIs, blank nodes, literals, the default graph marker, and
// the triple/quad aggregates, plus SPARQL ORDER BY comparison.
package rdf

import (
	"fmt"
	"time"
)

// TermType tags a term's kind. The literal subtypes beyond TermTypeLiteral
// never appear on in-memory terms; the store encoding uses them as key tags
// so that typed literals round-trip without a string lookup.
type TermType byte

const (
	TermTypeNamedNode TermType = iota + 1
	TermTypeBlankNode
	TermTypeLiteral
	TermTypeDefaultGraph

	// Store-encoding literal subtypes.
	TermTypeStringLiteral
	TermTypeLangStringLiteral
	TermTypeIntegerLiteral
	TermTypeDecimalLiteral
	TermTypeDoubleLiteral
	TermTypeBooleanLiteral
	TermTypeDateTimeLiteral
	TermTypeDateLiteral
)

// Term is an RDF term. Implementations are immutable; equality is term
// equality per RDF concepts, not SPARQL value equality.
type Term interface {
	Type() TermType
	String() string
	Equals(other Term) bool
}

// NamedNode is an IRI term.
type NamedNode struct {
	IRI string
}

func NewNamedNode(iri string) *NamedNode {
	return &NamedNode{IRI: iri}
}

func (n *NamedNode) Type() TermType { return TermTypeNamedNode }

func (n *NamedNode) String() string { return "<" + n.IRI + ">" }

func (n *NamedNode) Equals(other Term) bool {
	on, ok := other.(*NamedNode)
	return ok && n.IRI == on.IRI
}

// BlankNode is a blank node with a document-scoped label.
type BlankNode struct {
	ID string
}

func NewBlankNode(id string) *BlankNode {
	return &BlankNode{ID: id}
}

func (b *BlankNode) Type() TermType { return TermTypeBlankNode }

func (b *BlankNode) String() string { return "_:" + b.ID }

func (b *BlankNode) Equals(other Term) bool {
	ob, ok := other.(*BlankNode)
	return ok && b.ID == ob.ID
}

// Literal is an RDF literal. Language and Datatype are mutually exclusive; a
// plain literal leaves both zero.
type Literal struct {
	Value    string
	Language string
	Datatype *NamedNode
}

func NewLiteral(value string) *Literal {
	return &Literal{Value: value}
}

func NewLiteralWithLanguage(value, language string) *Literal {
	return &Literal{Value: value, Language: language}
}

func NewLiteralWithDatatype(value string, datatype *NamedNode) *Literal {
	return &Literal{Value: value, Datatype: datatype}
}

func (l *Literal) Type() TermType { return TermTypeLiteral }

func (l *Literal) String() string {
	s := fmt.Sprintf("%q", l.Value)
	switch {
	case l.Language != "":
		return s + "@" + l.Language
	case l.Datatype != nil:
		return s + "^^" + l.Datatype.String()
	default:
		return s
	}
}

func (l *Literal) Equals(other Term) bool {
	ol, ok := other.(*Literal)
	if !ok || l.Value != ol.Value || l.Language != ol.Language {
		return false
	}
	if l.Datatype == nil || ol.Datatype == nil {
		return l.Datatype == ol.Datatype
	}
	return l.Datatype.Equals(ol.Datatype)
}

// DefaultGraph marks the default graph in a quad's graph position.
type DefaultGraph struct{}

func NewDefaultGraph() *DefaultGraph { return &DefaultGraph{} }

func (d *DefaultGraph) Type() TermType { return TermTypeDefaultGraph }

func (d *DefaultGraph) String() string { return "DEFAULT" }

func (d *DefaultGraph) Equals(other Term) bool {
	_, ok := other.(*DefaultGraph)
	return ok
}

// Triple is a subject-predicate-object statement.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

func NewTriple(subject, predicate, object Term) *Triple {
	return &Triple{Subject: subject, Predicate: predicate, Object: object}
}

func (t *Triple) String() string {
	return fmt.Sprintf("%s %s %s .", t.Subject, t.Predicate, t.Object)
}

// Quad is a triple plus its graph. Graph is never nil; use DefaultGraph for
// the default graph.
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     Term
}

func NewQuad(subject, predicate, object, graph Term) *Quad {
	return &Quad{Subject: subject, Predicate: predicate, Object: object, Graph: graph}
}

func (q *Quad) String() string {
	return fmt.Sprintf("%s %s %s %s .", q.Subject, q.Predicate, q.Object, q.Graph)
}

// Common XSD datatype IRIs.
var (
	XSDString   = NewNamedNode("http://www.w3.org/2001/XMLSchema#string")
	XSDInteger  = NewNamedNode("http://www.w3.org/2001/XMLSchema#integer")
	XSDDecimal  = NewNamedNode("http://www.w3.org/2001/XMLSchema#decimal")
	XSDDouble   = NewNamedNode("http://www.w3.org/2001/XMLSchema#double")
	XSDBoolean  = NewNamedNode("http://www.w3.org/2001/XMLSchema#boolean")
	XSDDateTime = NewNamedNode("http://www.w3.org/2001/XMLSchema#dateTime")
	XSDDate     = NewNamedNode("http://www.w3.org/2001/XMLSchema#date")
)

func NewIntegerLiteral(value int64) *Literal {
	return NewLiteralWithDatatype(fmt.Sprintf("%d", value), XSDInteger)
}

func NewDoubleLiteral(value float64) *Literal {
	return NewLiteralWithDatatype(fmt.Sprintf("%g", value), XSDDouble)
}

func NewBooleanLiteral(value bool) *Literal {
	return NewLiteralWithDatatype(fmt.Sprintf("%t", value), XSDBoolean)
}

func NewDateTimeLiteral(value time.Time) *Literal {
	return NewLiteralWithDatatype(value.Format(time.RFC3339), XSDDateTime)
}
