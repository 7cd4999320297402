package rdf

import (
	"strconv"
	"strings"
)

// orderRank returns the SPARQL order-by rank of a term class.
// Per SPARQL 1.1 §15.1: unbound < blank nodes < IRIs < literals.
// Unbound is handled by callers (nil term); ranks start at blank nodes.
func orderRank(t Term) int {
	switch t.(type) {
	case *BlankNode:
		return 0
	case *NamedNode:
		return 1
	case *Literal:
		return 2
	default:
		return 3
	}
}

// Compare orders two terms according to SPARQL ORDER BY semantics.
// Returns -1 if a sorts before b, 1 if after, 0 if they rank equal.
// Either argument may be nil, meaning unbound; unbound sorts first.
func Compare(a, b Term) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	ra, rb := orderRank(a), orderRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch ta := a.(type) {
	case *BlankNode:
		return strings.Compare(ta.ID, b.(*BlankNode).ID)
	case *NamedNode:
		return strings.Compare(ta.IRI, b.(*NamedNode).IRI)
	case *Literal:
		return compareLiterals(ta, b.(*Literal))
	}
	return 0
}

// compareLiterals orders two literals: numerics by value, everything else
// by lexical form, with language tag and datatype as tie-breakers.
func compareLiterals(a, b *Literal) int {
	av, aok := a.NumericValue()
	bv, bok := b.NumericValue()
	if aok && bok {
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	}
	// A numeric sorts before a non-numeric of the same rank so that
	// mixed-type columns order deterministically.
	if aok != bok {
		if aok {
			return -1
		}
		return 1
	}
	if c := strings.Compare(a.Value, b.Value); c != 0 {
		return c
	}
	if c := strings.Compare(a.Language, b.Language); c != 0 {
		return c
	}
	return strings.Compare(datatypeIRI(a), datatypeIRI(b))
}

func datatypeIRI(l *Literal) string {
	if l.Datatype == nil {
		return ""
	}
	return l.Datatype.IRI
}

// IsNumeric reports whether the literal carries a numeric XSD datatype.
func (l *Literal) IsNumeric() bool {
	if l.Datatype == nil {
		return false
	}
	switch l.Datatype.IRI {
	case XSDInteger.IRI, XSDDecimal.IRI, XSDDouble.IRI,
		"http://www.w3.org/2001/XMLSchema#float",
		"http://www.w3.org/2001/XMLSchema#int",
		"http://www.w3.org/2001/XMLSchema#long",
		"http://www.w3.org/2001/XMLSchema#nonNegativeInteger":
		return true
	}
	return false
}

// NumericValue parses the literal's lexical form as a float64. The second
// result is false when the literal is not numeric or fails to parse.
func (l *Literal) NumericValue() (float64, bool) {
	if !l.IsNumeric() {
		return 0, false
	}
	v, err := strconv.ParseFloat(l.Value, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// BooleanValue parses the literal as an xsd:boolean. The second result is
// false when the literal is not a boolean.
func (l *Literal) BooleanValue() (bool, bool) {
	if l.Datatype == nil || l.Datatype.IRI != XSDBoolean.IRI {
		return false, false
	}
	switch l.Value {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return false, false
}
