package results

import (
	"encoding/csv"
	"strings"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
)

// CSV renders the SPARQL 1.1 CSV results format: IRIs without angle
// brackets, literal values without quoting or datatype, blank nodes as
// _:label. Unbound slots are empty fields.
// https://www.w3.org/TR/sparql11-results-csv-tsv/
type CSV struct{}

func (CSV) ContentType() string { return "text/csv; charset=utf-8" }

func (CSV) Format(s *Solutions) ([]byte, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	w.UseCRLF = true

	if err := w.Write(s.Vars); err != nil {
		return nil, err
	}
	for _, row := range s.Rows {
		record := make([]string, len(s.Vars))
		for i := range s.Vars {
			if i < len(row) && row[i] != nil {
				record[i] = csvValue(row[i])
			}
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func csvValue(term rdf.Term) string {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return t.IRI
	case *rdf.BlankNode:
		return "_:" + t.ID
	case *rdf.Literal:
		if t.Language != "" {
			return t.Value + "@" + t.Language
		}
		return t.Value
	default:
		return term.String()
	}
}
