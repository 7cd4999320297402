// Package results serializes SELECT query solutions into the SPARQL 1.1
// result formats: JSON, XML, CSV, and TSV.
package results

import (
	"strings"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
)

// Solutions is a drained SELECT result: the projected variable names and one
// term slice per row, aligned with the names. A nil slot means the variable
// is unbound in that row.
type Solutions struct {
	Vars []string
	Rows [][]rdf.Term
}

// Formatter renders solutions into one serialization format.
type Formatter interface {
	Format(s *Solutions) ([]byte, error)
	ContentType() string
}

// Negotiate picks a formatter for an Accept header. JSON is the fallback.
func Negotiate(acceptHeader string) Formatter {
	accept := strings.ToLower(acceptHeader)
	switch {
	case strings.Contains(accept, "application/sparql-results+xml"):
		return XML{}
	case strings.Contains(accept, "application/sparql-results+json"):
		return JSON{}
	case strings.Contains(accept, "text/csv"):
		return CSV{}
	case strings.Contains(accept, "text/tab-separated-values"):
		return TSV{}
	case strings.Contains(accept, "application/json"):
		return JSON{}
	case strings.Contains(accept, "text/xml"), strings.Contains(accept, "application/xml"):
		return XML{}
	default:
		return JSON{}
	}
}
