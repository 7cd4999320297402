// Package turtle reads Turtle documents: prefixed names, the 'a' shorthand,
// and the ';' / ',' property-list abbreviations. Collections and anonymous
// blank-node brackets are not supported.
package turtle

import (
	"fmt"
	"strings"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
)

const rdfType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// Reader parses one Turtle document into triples.
type Reader struct {
	input    string
	pos      int
	length   int
	prefixes map[string]string
	base     string
}

func NewReader(input string) *Reader {
	return &Reader{
		input:    input,
		length:   len(input),
		prefixes: make(map[string]string),
	}
}

// ReadAll parses the whole document.
func (r *Reader) ReadAll() ([]*rdf.Triple, error) {
	var triples []*rdf.Triple

	for {
		r.skipSpace()
		if r.pos >= r.length {
			return triples, nil
		}

		if r.matchDirective("@prefix") || r.matchDirective("PREFIX") {
			if err := r.readPrefix(); err != nil {
				return nil, err
			}
			continue
		}
		if r.matchDirective("@base") || r.matchDirective("BASE") {
			if err := r.readBase(); err != nil {
				return nil, err
			}
			continue
		}

		stmt, err := r.readStatement()
		if err != nil {
			return nil, err
		}
		triples = append(triples, stmt...)
	}
}

// readStatement parses one subject with its full property list:
//
//	subject pred1 obj1, obj2 ; pred2 obj3 .
func (r *Reader) readStatement() ([]*rdf.Triple, error) {
	subject, err := r.readTerm()
	if err != nil {
		return nil, fmt.Errorf("bad subject: %w", err)
	}

	var triples []*rdf.Triple
	for {
		predicate, err := r.readVerb()
		if err != nil {
			return nil, fmt.Errorf("bad predicate: %w", err)
		}

		for {
			object, err := r.readTerm()
			if err != nil {
				return nil, fmt.Errorf("bad object: %w", err)
			}
			triples = append(triples, rdf.NewTriple(subject, predicate, object))

			r.skipSpace()
			if r.pos < r.length && r.input[r.pos] == ',' {
				r.pos++
				r.skipSpace()
				continue
			}
			break
		}

		r.skipSpace()
		if r.pos < r.length && r.input[r.pos] == ';' {
			r.pos++
			r.skipSpace()
			// A dangling ';' before '.' is allowed.
			if r.pos < r.length && r.input[r.pos] == '.' {
				break
			}
			continue
		}
		break
	}

	if r.pos >= r.length || r.input[r.pos] != '.' {
		return nil, fmt.Errorf("expected '.' at end of statement near position %d", r.pos)
	}
	r.pos++
	return triples, nil
}

// readVerb parses a predicate, accepting 'a' for rdf:type.
func (r *Reader) readVerb() (rdf.Term, error) {
	r.skipSpace()
	if r.pos < r.length && r.input[r.pos] == 'a' && (r.pos+1 >= r.length || isDelim(r.input[r.pos+1])) {
		r.pos++
		return rdf.NewNamedNode(rdfType), nil
	}
	return r.readTerm()
}

func (r *Reader) readTerm() (rdf.Term, error) {
	r.skipSpace()
	if r.pos >= r.length {
		return nil, fmt.Errorf("unexpected end of input")
	}

	switch ch := r.input[r.pos]; {
	case ch == '<':
		iri, err := r.readIRI()
		if err != nil {
			return nil, err
		}
		return rdf.NewNamedNode(iri), nil
	case ch == '_' && r.pos+1 < r.length && r.input[r.pos+1] == ':':
		return r.readBlankNode()
	case ch == '"':
		return r.readLiteral()
	case (ch >= '0' && ch <= '9') || ch == '-' || ch == '+':
		return r.readNumber()
	case isNameChar(ch) || ch == ':':
		return r.readPrefixedName()
	default:
		return nil, fmt.Errorf("unexpected character %q at position %d", ch, r.pos)
	}
}

func (r *Reader) readIRI() (string, error) {
	r.pos++ // '<'
	start := r.pos
	for r.pos < r.length && r.input[r.pos] != '>' {
		r.pos++
	}
	if r.pos >= r.length {
		return "", fmt.Errorf("unclosed IRI")
	}
	iri := r.input[start:r.pos]
	r.pos++
	if r.base != "" && !strings.Contains(iri, "://") && !strings.HasPrefix(iri, "urn:") {
		iri = r.base + iri
	}
	return iri, nil
}

func (r *Reader) readBlankNode() (rdf.Term, error) {
	r.pos += 2 // '_:'
	start := r.pos
	for r.pos < r.length && isNameChar(r.input[r.pos]) {
		r.pos++
	}
	return rdf.NewBlankNode(r.input[start:r.pos]), nil
}

func (r *Reader) readLiteral() (rdf.Term, error) {
	r.pos++ // opening quote
	var value strings.Builder
	for r.pos < r.length && r.input[r.pos] != '"' {
		ch := r.input[r.pos]
		if ch == '\\' && r.pos+1 < r.length {
			r.pos++
			switch r.input[r.pos] {
			case 'n':
				value.WriteByte('\n')
			case 't':
				value.WriteByte('\t')
			case 'r':
				value.WriteByte('\r')
			default:
				value.WriteByte(r.input[r.pos])
			}
			r.pos++
			continue
		}
		value.WriteByte(ch)
		r.pos++
	}
	if r.pos >= r.length {
		return nil, fmt.Errorf("unclosed string literal")
	}
	r.pos++ // closing quote

	if r.pos < r.length && r.input[r.pos] == '@' {
		r.pos++
		start := r.pos
		for r.pos < r.length && (isNameChar(r.input[r.pos]) || r.input[r.pos] == '-') {
			r.pos++
		}
		return rdf.NewLiteralWithLanguage(value.String(), r.input[start:r.pos]), nil
	}
	if r.pos+1 < r.length && r.input[r.pos] == '^' && r.input[r.pos+1] == '^' {
		r.pos += 2
		var dt string
		var err error
		if r.pos < r.length && r.input[r.pos] == '<' {
			dt, err = r.readIRI()
		} else {
			dt, err = r.readPrefixedIRI()
		}
		if err != nil {
			return nil, fmt.Errorf("bad datatype: %w", err)
		}
		return rdf.NewLiteralWithDatatype(value.String(), rdf.NewNamedNode(dt)), nil
	}
	return rdf.NewLiteral(value.String()), nil
}

func (r *Reader) readNumber() (rdf.Term, error) {
	start := r.pos
	if r.input[r.pos] == '+' || r.input[r.pos] == '-' {
		r.pos++
	}
	digits := 0
	for r.pos < r.length && r.input[r.pos] >= '0' && r.input[r.pos] <= '9' {
		r.pos++
		digits++
	}
	if digits == 0 {
		return nil, fmt.Errorf("expected digits in number at position %d", start)
	}
	// A '.' only continues the number when followed by a digit; otherwise it
	// terminates the statement.
	if r.pos+1 < r.length && r.input[r.pos] == '.' && r.input[r.pos+1] >= '0' && r.input[r.pos+1] <= '9' {
		r.pos++
		for r.pos < r.length && r.input[r.pos] >= '0' && r.input[r.pos] <= '9' {
			r.pos++
		}
		return rdf.NewLiteralWithDatatype(r.input[start:r.pos], rdf.XSDDouble), nil
	}
	return rdf.NewLiteralWithDatatype(r.input[start:r.pos], rdf.XSDInteger), nil
}

func (r *Reader) readPrefixedName() (rdf.Term, error) {
	iri, err := r.readPrefixedIRI()
	if err != nil {
		return nil, err
	}
	return rdf.NewNamedNode(iri), nil
}

func (r *Reader) readPrefixedIRI() (string, error) {
	start := r.pos
	for r.pos < r.length && r.input[r.pos] != ':' {
		if !isNameChar(r.input[r.pos]) && r.input[r.pos] != '-' {
			break
		}
		r.pos++
	}
	if r.pos >= r.length || r.input[r.pos] != ':' {
		return "", fmt.Errorf("expected ':' in prefixed name")
	}
	prefix := r.input[start:r.pos]
	r.pos++

	localStart := r.pos
	for r.pos < r.length && (isNameChar(r.input[r.pos]) || r.input[r.pos] == '-') {
		r.pos++
	}
	local := r.input[localStart:r.pos]

	ns, ok := r.prefixes[prefix]
	if !ok {
		return "", fmt.Errorf("undefined prefix %q", prefix)
	}
	return ns + local, nil
}

func (r *Reader) readPrefix() error {
	r.skipSpace()

	start := r.pos
	for r.pos < r.length && r.input[r.pos] != ':' {
		r.pos++
	}
	if r.pos >= r.length {
		return fmt.Errorf("expected ':' after prefix name")
	}
	name := strings.TrimSpace(r.input[start:r.pos])
	r.pos++
	r.skipSpace()

	if r.pos >= r.length || r.input[r.pos] != '<' {
		return fmt.Errorf("expected IRI in prefix declaration")
	}
	iri, err := r.readIRI()
	if err != nil {
		return fmt.Errorf("bad prefix IRI: %w", err)
	}
	r.prefixes[name] = iri
	r.skipDot()
	return nil
}

func (r *Reader) readBase() error {
	r.skipSpace()
	if r.pos >= r.length || r.input[r.pos] != '<' {
		return fmt.Errorf("expected IRI in base declaration")
	}
	iri, err := r.readIRI()
	if err != nil {
		return fmt.Errorf("bad base IRI: %w", err)
	}
	r.base = iri
	r.skipDot()
	return nil
}

func (r *Reader) skipSpace() {
	for r.pos < r.length {
		ch := r.input[r.pos]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			r.pos++
			continue
		}
		if ch == '#' {
			for r.pos < r.length && r.input[r.pos] != '\n' {
				r.pos++
			}
			continue
		}
		break
	}
}

func (r *Reader) skipDot() {
	r.skipSpace()
	if r.pos < r.length && (r.input[r.pos] == '.' || r.input[r.pos] == ';') {
		r.pos++
	}
}

// matchDirective consumes a directive keyword when the cursor sits on it.
func (r *Reader) matchDirective(keyword string) bool {
	if r.pos+len(keyword) > r.length {
		return false
	}
	if !strings.EqualFold(r.input[r.pos:r.pos+len(keyword)], keyword) {
		return false
	}
	if r.pos+len(keyword) < r.length && isNameChar(r.input[r.pos+len(keyword)]) {
		return false
	}
	r.pos += len(keyword)
	return true
}

func isNameChar(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_'
}

func isDelim(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '<' || ch == '"' || ch == '_' || ch == ':'
}
