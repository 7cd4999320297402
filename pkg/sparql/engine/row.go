// Package engine executes compiled algebra trees as pull-based rowsource
// pipelines producing variable-binding rows.
package engine

import (
	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// NoGroup marks a row that carries no group identifier.
const NoGroup = -1

// Row is one result row: a fixed-width value array with one slot per variable
// in the producing rowsource's schema, an optional parallel array of order
// keys computed for ORDER BY comparison, and a group identifier. A nil value
// slot means the variable is unbound in this row.
type Row struct {
	Values    []rdf.Term
	OrderKeys []rdf.Term
	Group     int

	// Source names the rowsource that produced the row. Informational
	// only, used by the tree printer.
	Source string
}

// NewRow creates a row of the given width with all slots unbound.
func NewRow(width int) *Row {
	return &Row{Values: make([]rdf.Term, width), Group: NoGroup}
}

// Clone copies the row's value and order-key slots. The terms themselves are
// shared immutable values.
func (r *Row) Clone() *Row {
	out := &Row{Group: r.Group, Source: r.Source}
	out.Values = make([]rdf.Term, len(r.Values))
	copy(out.Values, r.Values)
	if r.OrderKeys != nil {
		out.OrderKeys = make([]rdf.Term, len(r.OrderKeys))
		copy(out.OrderKeys, r.OrderKeys)
	}
	return out
}

// signature renders the row's values into a key for duplicate suppression.
func (r *Row) signature() string {
	sig := ""
	for _, v := range r.Values {
		if v == nil {
			sig += "~;"
		} else {
			sig += v.String() + ";"
		}
	}
	return sig
}

// rowBinding adapts a row plus its schema to the evaluator's Context.
type rowBinding struct {
	vars []*query.Variable
	row  *Row
}

func (b rowBinding) Value(v *query.Variable) rdf.Term {
	for i, sv := range b.vars {
		if sv == v {
			return b.row.Values[i]
		}
	}
	return nil
}

// varIndex returns v's offset in the schema, or -1 when absent. Variables are
// interned per query, so identity comparison is sufficient.
func varIndex(vars []*query.Variable, v *query.Variable) int {
	for i, sv := range vars {
		if sv == v {
			return i
		}
	}
	return -1
}
