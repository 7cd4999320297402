package results

import (
	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/engine"
)

// FromResult flattens a drained engine result into the formatter shape,
// dropping compiler-internal variables from the visible schema.
func FromResult(result *engine.Result) *Solutions {
	keep := make([]int, 0, len(result.Vars))
	names := make([]string, 0, len(result.Vars))
	for i, v := range result.Vars {
		if v.Internal {
			continue
		}
		keep = append(keep, i)
		names = append(names, v.Name)
	}

	rows := make([][]rdf.Term, 0, len(result.Rows))
	for _, row := range result.Rows {
		values := make([]rdf.Term, len(keep))
		for out, in := range keep {
			if in < len(row.Values) {
				values[out] = row.Values[in]
			}
		}
		rows = append(rows, values)
	}
	return &Solutions{Vars: names, Rows: rows}
}
