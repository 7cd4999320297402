package engine

import (
	"fmt"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// ServiceClient executes a serialized query against a remote SPARQL endpoint
// and returns the result variable names with one term slice per solution.
// Unbound slots are nil. The HTTP implementation lives in internal/service.
type ServiceClient interface {
	Query(endpoint, queryText string) ([]string, [][]rdf.Term, error)
}

// newService fetches the remote results eagerly and serves them from memory.
// The result variables are interned into vars so that joins against local
// rows see them as shared. A failing endpoint is an error unless silent is
// set, in which case the block contributes no rows.
func newService(client ServiceClient, vars *query.VarTable, endpoint, queryText string, silent bool) (Rowsource, error) {
	if client == nil {
		if silent {
			return newEmpty(), nil
		}
		return nil, fmt.Errorf("no service client configured for %s", endpoint)
	}

	names, rows, err := client.Query(endpoint, queryText)
	if err != nil {
		if silent {
			return newEmpty(), nil
		}
		return nil, fmt.Errorf("service %s: %w", endpoint, err)
	}

	schema := make([]*query.Variable, len(names))
	for i, name := range names {
		schema[i] = vars.Declare(name)
	}

	out := make([]*Row, len(rows))
	for i, values := range rows {
		row := NewRow(len(schema))
		copy(row.Values, values)
		out[i] = row
	}
	return newSliceRowsource("service", schema, out), nil
}
