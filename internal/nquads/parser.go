// Package nquads reads N-Quads documents. The format extends N-Triples with
// an optional fourth position naming the graph; three-position statements
// land in the default graph. PREFIX/@prefix and BASE/@base directives are
// accepted as a convenience for hand-written files.
package nquads

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
)

// Reader parses one N-Quads document, one statement at a time.
type Reader struct {
	input    string
	pos      int
	length   int
	prefixes map[string]string
	base     string

	// When relabeling, document blank-node labels map to fresh uuid-based
	// labels so quads from separate documents never share a blank node.
	relabel bool
	blanks  map[string]*rdf.BlankNode
}

func NewReader(input string) *Reader {
	return &Reader{
		input:    input,
		length:   len(input),
		prefixes: make(map[string]string),
	}
}

// RelabelBlankNodes makes the reader replace every document blank-node label
// with a fresh unique one, keeping identity within the document.
func (r *Reader) RelabelBlankNodes() *Reader {
	r.relabel = true
	r.blanks = make(map[string]*rdf.BlankNode)
	return r
}

// ReadAll parses the remaining statements.
func (r *Reader) ReadAll() ([]*rdf.Quad, error) {
	var quads []*rdf.Quad
	for {
		quad, err := r.Read()
		if err == io.EOF {
			return quads, nil
		}
		if err != nil {
			return nil, err
		}
		quads = append(quads, quad)
	}
}

// Read parses the next statement, skipping directives. It returns io.EOF at
// the end of the document.
func (r *Reader) Read() (*rdf.Quad, error) {
	for {
		r.skipSpace()
		if r.pos >= r.length {
			return nil, io.EOF
		}

		if r.atKeyword("@prefix") || r.atKeyword("PREFIX") {
			if err := r.readPrefix(); err != nil {
				return nil, err
			}
			continue
		}
		if r.atKeyword("@base") || r.atKeyword("BASE") {
			if err := r.readBase(); err != nil {
				return nil, err
			}
			continue
		}
		return r.readStatement()
	}
}

func (r *Reader) readStatement() (*rdf.Quad, error) {
	subject, err := r.readTerm()
	if err != nil {
		return nil, fmt.Errorf("bad subject: %w", err)
	}
	r.skipSpace()

	predicate, err := r.readTerm()
	if err != nil {
		return nil, fmt.Errorf("bad predicate: %w", err)
	}
	r.skipSpace()

	object, err := r.readTerm()
	if err != nil {
		return nil, fmt.Errorf("bad object: %w", err)
	}
	r.skipSpace()

	graph := rdf.Term(rdf.NewDefaultGraph())
	if r.pos < r.length && (r.input[r.pos] == '<' || r.input[r.pos] == '_') {
		graph, err = r.readTerm()
		if err != nil {
			return nil, fmt.Errorf("bad graph: %w", err)
		}
		r.skipSpace()
	}

	if r.pos >= r.length || r.input[r.pos] != '.' {
		return nil, fmt.Errorf("expected '.' at end of statement near position %d", r.pos)
	}
	r.pos++

	return rdf.NewQuad(subject, predicate, object, graph), nil
}

func (r *Reader) readTerm() (rdf.Term, error) {
	switch ch := r.input[r.pos]; {
	case ch == '<':
		iri, err := r.readIRI()
		if err != nil {
			return nil, err
		}
		return rdf.NewNamedNode(iri), nil
	case ch == '_':
		return r.readBlankNode()
	case ch == '"':
		return r.readLiteral()
	case ch == '-' || ch == '+' || (ch >= '0' && ch <= '9'):
		return r.readNumber()
	case (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z'):
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
	r.pos++ // '_'
	if r.pos >= r.length || r.input[r.pos] != ':' {
		return nil, fmt.Errorf("expected ':' after '_' in blank node")
	}
	r.pos++
	start := r.pos
	for r.pos < r.length && !isTermEnd(r.input[r.pos]) {
		r.pos++
	}
	label := r.input[start:r.pos]

	if !r.relabel {
		return rdf.NewBlankNode(label), nil
	}
	if bn, ok := r.blanks[label]; ok {
		return bn, nil
	}
	bn := rdf.NewBlankNode("b" + uuid.NewString())
	r.blanks[label] = bn
	return bn, nil
}

func (r *Reader) readLiteral() (rdf.Term, error) {
	r.pos++ // opening quote
	var value strings.Builder
	for r.pos < r.length && r.input[r.pos] != '"' {
		ch := r.input[r.pos]
		if ch == '\\' {
			r.pos++
			if r.pos >= r.length {
				return nil, fmt.Errorf("truncated escape sequence")
			}
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
		for r.pos < r.length && !isTermEnd(r.input[r.pos]) {
			r.pos++
		}
		return rdf.NewLiteralWithLanguage(value.String(), r.input[start:r.pos]), nil
	}
	if r.pos+1 < r.length && r.input[r.pos] == '^' && r.input[r.pos+1] == '^' {
		r.pos += 2
		if r.pos >= r.length || r.input[r.pos] != '<' {
			return nil, fmt.Errorf("expected IRI after '^^'")
		}
		dt, err := r.readIRI()
		if err != nil {
			return nil, fmt.Errorf("bad datatype: %w", err)
		}
		return rdf.NewLiteralWithDatatype(value.String(), rdf.NewNamedNode(dt)), nil
	}
	return rdf.NewLiteral(value.String()), nil
}

func (r *Reader) readNumber() (rdf.Term, error) {
	start := r.pos
	if r.input[r.pos] == '-' || r.input[r.pos] == '+' {
		r.pos++
	}
	digits := 0
	for r.pos < r.length && r.input[r.pos] >= '0' && r.input[r.pos] <= '9' {
		r.pos++
		digits++
	}
	decimal := false
	if r.pos < r.length && r.input[r.pos] == '.' && r.pos+1 < r.length &&
		r.input[r.pos+1] >= '0' && r.input[r.pos+1] <= '9' {
		decimal = true
		r.pos++
		for r.pos < r.length && r.input[r.pos] >= '0' && r.input[r.pos] <= '9' {
			r.pos++
			digits++
		}
	}
	if r.pos < r.length && (r.input[r.pos] == 'e' || r.input[r.pos] == 'E') {
		decimal = true
		r.pos++
		if r.pos < r.length && (r.input[r.pos] == '-' || r.input[r.pos] == '+') {
			r.pos++
		}
		for r.pos < r.length && r.input[r.pos] >= '0' && r.input[r.pos] <= '9' {
			r.pos++
		}
	}
	if digits == 0 {
		return nil, fmt.Errorf("invalid number at position %d", start)
	}
	text := r.input[start:r.pos]
	if decimal {
		return rdf.NewLiteralWithDatatype(text, rdf.XSDDouble), nil
	}
	return rdf.NewLiteralWithDatatype(text, rdf.XSDInteger), nil
}

func (r *Reader) readPrefixedName() (rdf.Term, error) {
	start := r.pos
	for r.pos < r.length && r.input[r.pos] != ':' {
		if isTermEnd(r.input[r.pos]) {
			return nil, fmt.Errorf("invalid character in prefixed name")
		}
		r.pos++
	}
	if r.pos >= r.length {
		return nil, fmt.Errorf("expected ':' in prefixed name")
	}
	prefix := r.input[start:r.pos]
	r.pos++

	localStart := r.pos
	for r.pos < r.length && !isTermEnd(r.input[r.pos]) {
		r.pos++
	}
	local := r.input[localStart:r.pos]

	ns, ok := r.prefixes[prefix]
	if !ok {
		return nil, fmt.Errorf("undefined prefix %q", prefix)
	}
	return rdf.NewNamedNode(ns + local), nil
}

func (r *Reader) readPrefix() error {
	r.skipToken()
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
	r.skipToken()
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

// skipToken consumes the directive keyword the cursor sits on.
func (r *Reader) skipToken() {
	for r.pos < r.length && r.input[r.pos] != ' ' && r.input[r.pos] != '\t' {
		r.pos++
	}
}

func (r *Reader) skipDot() {
	r.skipSpace()
	if r.pos < r.length && r.input[r.pos] == '.' {
		r.pos++
	}
}

func (r *Reader) atKeyword(keyword string) bool {
	if r.pos+len(keyword) > r.length {
		return false
	}
	if !strings.EqualFold(r.input[r.pos:r.pos+len(keyword)], keyword) {
		return false
	}
	if r.pos+len(keyword) < r.length {
		next := r.input[r.pos+len(keyword)]
		if next != ' ' && next != '\t' && next != '\n' && next != '\r' {
			return false
		}
	}
	return true
}

func isTermEnd(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '.' || ch == '<' || ch == '>'
}
