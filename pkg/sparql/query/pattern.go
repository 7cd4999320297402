package query

import (
	"github.com/aleksaelezovic/quercus/pkg/rdf"
)

// TermOrVariable can be either an RDF term or a variable
type TermOrVariable struct {
	Term     rdf.Term
	Variable *Variable
}

// IsVariable returns true if this is a variable
func (t *TermOrVariable) IsVariable() bool {
	return t.Variable != nil
}

func (t *TermOrVariable) String() string {
	if t.Variable != nil {
		return t.Variable.String()
	}
	return t.Term.String()
}

// TriplePattern represents a triple pattern with possible variables
type TriplePattern struct {
	Subject   TermOrVariable
	Predicate TermOrVariable
	Object    TermOrVariable
}

func (tp *TriplePattern) String() string {
	return tp.Subject.String() + " " + tp.Predicate.String() + " " + tp.Object.String() + " ."
}

// PatternKind represents the kind of a graph pattern node
type PatternKind int

const (
	PatternBasic PatternKind = iota
	PatternGroup
	PatternOptional
	PatternUnion
	PatternGraph
	PatternFilter
	PatternLet
	PatternValues
	PatternService
	PatternSelect
	PatternMinus
)

var patternKindNames = map[PatternKind]string{
	PatternBasic:    "basic",
	PatternGroup:    "group",
	PatternOptional: "optional",
	PatternUnion:    "union",
	PatternGraph:    "graph",
	PatternFilter:   "filter",
	PatternLet:      "let",
	PatternValues:   "values",
	PatternService:  "service",
	PatternSelect:   "select",
	PatternMinus:    "minus",
}

func (k PatternKind) String() string {
	if s, ok := patternKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// GraphPattern is one node of the parsed graph-pattern tree. A basic pattern
// references a contiguous range of the owning Query's triple list by index;
// it never owns the triples themselves.
type GraphPattern struct {
	Kind PatternKind

	// Basic: [TripleStart, TripleEnd) into Query.Triples. Start == End
	// denotes the empty pattern.
	TripleStart int
	TripleEnd   int

	// Filter expression: the FILTER of a filter pattern, the expression of
	// a LET, or a constraint attached to a basic pattern.
	Filter Expression

	// Sub-patterns of group/union/optional/graph/service nodes.
	SubPatterns []*GraphPattern

	// Graph or service origin (IRI literal or variable).
	Origin *TermOrVariable

	// Let target variable.
	Var *Variable

	// Values bindings, shared with the owning query.
	Bindings *Bindings

	// Nested sub-select.
	Select *SelectQuery

	// Service data graphs and SILENT flag.
	DataGraphs []rdf.Term
	Silent     bool
}

// IsEmpty reports whether a basic pattern covers no triples.
func (p *GraphPattern) IsEmpty() bool {
	return p.Kind == PatternBasic && p.TripleStart >= p.TripleEnd
}
