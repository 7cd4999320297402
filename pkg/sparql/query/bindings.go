package query

import (
	"github.com/aleksaelezovic/quercus/pkg/rdf"
)

// Bindings is a stored VALUES table: an ordered variable list and an ordered
// list of value rows. A row slot may be nil, meaning UNDEF. The same table
// may be shared by several pattern and algebra nodes; rows are never mutated
// after construction, only read and cloned.
type Bindings struct {
	Vars []*Variable
	Rows [][]rdf.Term
}

// NewBindings creates a bindings table over the given variables.
func NewBindings(vars []*Variable) *Bindings {
	return &Bindings{Vars: vars}
}

// AddRow appends one value tuple. The tuple length must match the variable
// list; nil entries denote UNDEF.
func (b *Bindings) AddRow(values []rdf.Term) {
	b.Rows = append(b.Rows, values)
}

// RowCopy returns a copy of row i's value slice. Values themselves are shared
// immutable terms.
func (b *Bindings) RowCopy(i int) []rdf.Term {
	row := make([]rdf.Term, len(b.Rows[i]))
	copy(row, b.Rows[i])
	return row
}

// Size returns the number of stored rows.
func (b *Bindings) Size() int {
	return len(b.Rows)
}
