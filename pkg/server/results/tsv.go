package results

import (
	"strings"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
)

// TSV renders the SPARQL 1.1 TSV results format: IRIs in angle brackets,
// quoted literals with escapes, numeric literals bare. Header names carry
// the '?' prefix.
// https://www.w3.org/TR/sparql11-results-csv-tsv/
type TSV struct{}

func (TSV) ContentType() string { return "text/tab-separated-values; charset=utf-8" }

func (TSV) Format(s *Solutions) ([]byte, error) {
	var sb strings.Builder

	for i, name := range s.Vars {
		if i > 0 {
			sb.WriteByte('\t')
		}
		sb.WriteByte('?')
		sb.WriteString(name)
	}
	sb.WriteByte('\n')

	for _, row := range s.Rows {
		for i := range s.Vars {
			if i > 0 {
				sb.WriteByte('\t')
			}
			if i < len(row) && row[i] != nil {
				sb.WriteString(tsvValue(row[i]))
			}
		}
		sb.WriteByte('\n')
	}

	return []byte(sb.String()), nil
}

func tsvValue(term rdf.Term) string {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return "<" + t.IRI + ">"
	case *rdf.BlankNode:
		return "_:" + t.ID
	case *rdf.Literal:
		if t.Language != "" {
			return "\"" + escapeTSV(t.Value) + "\"@" + t.Language
		}
		if t.Datatype != nil {
			switch t.Datatype.IRI {
			case rdf.XSDInteger.IRI, rdf.XSDDecimal.IRI, rdf.XSDDouble.IRI:
				// Numeric literals appear bare.
				return t.Value
			}
			return "\"" + escapeTSV(t.Value) + "\"^^<" + t.Datatype.IRI + ">"
		}
		return "\"" + escapeTSV(t.Value) + "\""
	default:
		return term.String()
	}
}

func escapeTSV(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\t", "\\t")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return s
}
