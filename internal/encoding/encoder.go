package encoding

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
)

const (
	// Strings up to this many bytes are stored inline instead of hashed.
	MaxInlineStringSize = 16

	// Type byte plus 16 bytes of hash or inline data.
	EncodedTermSize = 17
)

// EncodedTerm is the fixed-width on-disk form of an RDF term: one type byte
// followed by a 128-bit hash, an inline value, or a binary scalar. Index keys
// are concatenations of encoded terms, so lexicographic key order follows
// term order within each index permutation.
type EncodedTerm [EncodedTermSize]byte

// TermEncoder turns RDF terms into their encoded form. Terms whose identity
// lives behind a hash also return the string that belongs in the id2str
// table.
type TermEncoder struct{}

func NewTermEncoder() *TermEncoder {
	return &TermEncoder{}
}

// Hash128 computes the 128-bit xxh3 hash of s, big-endian.
func (e *TermEncoder) Hash128(s string) [16]byte {
	h := xxh3.Hash128([]byte(s))
	var out [16]byte
	binary.BigEndian.PutUint64(out[0:8], h.Hi)
	binary.BigEndian.PutUint64(out[8:16], h.Lo)
	return out
}

// EncodeTerm encodes term. The second return value is non-nil when the
// original string must be kept in the id2str table to reverse the hash.
func (e *TermEncoder) EncodeTerm(term rdf.Term) (EncodedTerm, *string, error) {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return e.hashed(rdf.TermTypeNamedNode, t.IRI), &t.IRI, nil
	case *rdf.BlankNode:
		return e.encodeBlankNode(t)
	case *rdf.Literal:
		return e.encodeLiteral(t)
	case *rdf.DefaultGraph:
		var enc EncodedTerm
		enc[0] = byte(rdf.TermTypeDefaultGraph)
		return enc, nil, nil
	default:
		var enc EncodedTerm
		return enc, nil, fmt.Errorf("unknown term type: %T", term)
	}
}

func (e *TermEncoder) hashed(tt rdf.TermType, s string) EncodedTerm {
	var enc EncodedTerm
	enc[0] = byte(tt)
	h := e.Hash128(s)
	copy(enc[1:], h[:])
	return enc
}

func (e *TermEncoder) encodeBlankNode(node *rdf.BlankNode) (EncodedTerm, *string, error) {
	// Numeric labels fit inline, everything else goes through the hash.
	if num, err := strconv.ParseUint(node.ID, 10, 64); err == nil {
		var enc EncodedTerm
		enc[0] = byte(rdf.TermTypeBlankNode)
		binary.BigEndian.PutUint64(enc[1:9], num)
		return enc, nil, nil
	}
	return e.hashed(rdf.TermTypeBlankNode, node.ID), &node.ID, nil
}

func (e *TermEncoder) encodeLiteral(lit *rdf.Literal) (EncodedTerm, *string, error) {
	if lit.Datatype != nil {
		switch lit.Datatype.IRI {
		case rdf.XSDInteger.IRI:
			return e.encodeIntScalar(rdf.TermTypeIntegerLiteral, lit.Value)
		case rdf.XSDDecimal.IRI:
			return e.encodeFloatScalar(rdf.TermTypeDecimalLiteral, lit.Value)
		case rdf.XSDDouble.IRI:
			return e.encodeFloatScalar(rdf.TermTypeDoubleLiteral, lit.Value)
		case rdf.XSDBoolean.IRI:
			return e.encodeBoolean(lit.Value)
		case rdf.XSDDateTime.IRI:
			return e.encodeDateTime(lit.Value)
		case rdf.XSDDate.IRI:
			return e.encodeDate(lit.Value)
		}
	}

	if lit.Language != "" {
		combined := lit.Value + "@" + lit.Language
		return e.hashed(rdf.TermTypeLangStringLiteral, combined), &combined, nil
	}

	if len(lit.Value) <= MaxInlineStringSize {
		var enc EncodedTerm
		enc[0] = byte(rdf.TermTypeStringLiteral)
		copy(enc[1:], lit.Value)
		return enc, nil, nil
	}
	return e.hashed(rdf.TermTypeStringLiteral, lit.Value), &lit.Value, nil
}

func (e *TermEncoder) encodeIntScalar(tt rdf.TermType, s string) (EncodedTerm, *string, error) {
	var enc EncodedTerm
	enc[0] = byte(tt)
	value, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return enc, nil, fmt.Errorf("invalid integer literal: %w", err)
	}
	binary.BigEndian.PutUint64(enc[1:9], uint64(value)) // #nosec G115 - bit-pattern conversion
	return enc, nil, nil
}

func (e *TermEncoder) encodeFloatScalar(tt rdf.TermType, s string) (EncodedTerm, *string, error) {
	var enc EncodedTerm
	enc[0] = byte(tt)
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return enc, nil, fmt.Errorf("invalid numeric literal: %w", err)
	}
	binary.BigEndian.PutUint64(enc[1:9], math.Float64bits(value))
	return enc, nil, nil
}

func (e *TermEncoder) encodeBoolean(s string) (EncodedTerm, *string, error) {
	var enc EncodedTerm
	enc[0] = byte(rdf.TermTypeBooleanLiteral)
	value, err := strconv.ParseBool(s)
	if err != nil {
		return enc, nil, fmt.Errorf("invalid boolean literal: %w", err)
	}
	if value {
		enc[1] = 1
	}
	return enc, nil, nil
}

func (e *TermEncoder) encodeDateTime(s string) (EncodedTerm, *string, error) {
	var enc EncodedTerm
	enc[0] = byte(rdf.TermTypeDateTimeLiteral)
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return enc, nil, fmt.Errorf("invalid datetime literal: %w", err)
	}
	binary.BigEndian.PutUint64(enc[1:9], uint64(t.UnixNano())) // #nosec G115 - bit-pattern conversion
	return enc, nil, nil
}

func (e *TermEncoder) encodeDate(s string) (EncodedTerm, *string, error) {
	var enc EncodedTerm
	enc[0] = byte(rdf.TermTypeDateLiteral)
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return enc, nil, fmt.Errorf("invalid date literal: %w", err)
	}
	days := t.Unix() / 86400
	binary.BigEndian.PutUint64(enc[1:9], uint64(days)) // #nosec G115 - bit-pattern conversion
	return enc, nil, nil
}

// EncodeQuadKey concatenates encoded terms into an index key.
func (e *TermEncoder) EncodeQuadKey(terms ...EncodedTerm) []byte {
	key := make([]byte, 0, len(terms)*EncodedTermSize)
	for _, term := range terms {
		key = append(key, term[:]...)
	}
	return key
}

// GetTermType extracts the type byte from an encoded term.
func GetTermType(encoded EncodedTerm) rdf.TermType {
	return rdf.TermType(encoded[0])
}
