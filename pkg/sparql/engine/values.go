package engine

import (
	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// valuesRowsource serves one row per tuple of a shared bindings table,
// cloning values out on each read so the table stays reusable across
// repeated reads and resets.
type valuesRowsource struct {
	base
	bindings *query.Bindings
	pos      int
}

func newValues(bindings *query.Bindings) Rowsource {
	return &valuesRowsource{bindings: bindings}
}

func (v *valuesRowsource) Name() string { return "values" }

func (v *valuesRowsource) Vars() []*query.Variable {
	return v.ensureVars(func() []*query.Variable { return v.bindings.Vars })
}

func (v *valuesRowsource) ReadRow() (*Row, error) {
	if v.finished || v.pos >= v.bindings.Size() {
		v.finished = true
		return nil, nil
	}
	row := &Row{Values: v.bindings.RowCopy(v.pos), Group: NoGroup}
	v.pos++
	return v.emit(row, v.Name()), nil
}

func (v *valuesRowsource) Reset() error {
	v.restart()
	v.pos = 0
	return nil
}

func (v *valuesRowsource) Inners() []Rowsource { return nil }

func (v *valuesRowsource) SetOrigin(rdf.Term) {}
