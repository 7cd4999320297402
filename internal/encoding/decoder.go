package encoding

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
)

// TermDecoder reverses TermEncoder. Hashed terms need the original string
// from the id2str table; inline and scalar terms decode from the encoded
// bytes alone.
type TermDecoder struct{}

func NewTermDecoder() *TermDecoder {
	return &TermDecoder{}
}

// scalar reads the 8-byte big-endian payload that scalar encodings carry
// after the type tag.
func scalar(encoded EncodedTerm) uint64 {
	return binary.BigEndian.Uint64(encoded[1:9])
}

func (d *TermDecoder) DecodeTerm(encoded EncodedTerm, stringValue *string) (rdf.Term, error) {
	switch GetTermType(encoded) {
	case rdf.TermTypeNamedNode:
		if stringValue == nil {
			return nil, fmt.Errorf("string value required for named node")
		}
		return rdf.NewNamedNode(*stringValue), nil

	case rdf.TermTypeBlankNode:
		if stringValue != nil {
			return rdf.NewBlankNode(*stringValue), nil
		}
		return rdf.NewBlankNode(strconv.FormatUint(scalar(encoded), 10)), nil

	case rdf.TermTypeStringLiteral:
		if stringValue != nil {
			return rdf.NewLiteral(*stringValue), nil
		}
		// Inline string, terminated by the first zero byte.
		end := 1
		for end < EncodedTermSize && encoded[end] != 0 {
			end++
		}
		return rdf.NewLiteral(string(encoded[1:end])), nil

	case rdf.TermTypeLangStringLiteral:
		if stringValue == nil {
			return nil, fmt.Errorf("string value required for language-tagged literal")
		}
		// Stored as value@language; the tag follows the last '@'.
		if at := strings.LastIndexByte(*stringValue, '@'); at >= 0 {
			return rdf.NewLiteralWithLanguage((*stringValue)[:at], (*stringValue)[at+1:]), nil
		}
		return rdf.NewLiteral(*stringValue), nil

	case rdf.TermTypeIntegerLiteral:
		return rdf.NewIntegerLiteral(int64(scalar(encoded))), nil // #nosec G115 - bit-pattern conversion

	case rdf.TermTypeDecimalLiteral:
		value := math.Float64frombits(scalar(encoded))
		return rdf.NewLiteralWithDatatype(fmt.Sprintf("%g", value), rdf.XSDDecimal), nil

	case rdf.TermTypeDoubleLiteral:
		return rdf.NewDoubleLiteral(math.Float64frombits(scalar(encoded))), nil

	case rdf.TermTypeBooleanLiteral:
		return rdf.NewBooleanLiteral(encoded[1] != 0), nil

	case rdf.TermTypeDateTimeLiteral:
		nanos := int64(scalar(encoded)) // #nosec G115 - bit-pattern conversion
		return rdf.NewDateTimeLiteral(time.Unix(0, nanos)), nil

	case rdf.TermTypeDateLiteral:
		days := int64(scalar(encoded)) // #nosec G115 - bit-pattern conversion
		t := time.Unix(days*86400, 0)
		return rdf.NewLiteralWithDatatype(t.Format("2006-01-02"), rdf.XSDDate), nil

	case rdf.TermTypeDefaultGraph:
		return rdf.NewDefaultGraph(), nil

	default:
		return nil, fmt.Errorf("unknown term type: %d", encoded[0])
	}
}
