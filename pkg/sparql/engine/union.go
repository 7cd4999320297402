package engine

import (
	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// unionRowsource concatenates left rows then right rows under the merged
// schema, re-laying rows out via offset maps built once when the schema is
// finalized.
type unionRowsource struct {
	base
	left, right Rowsource
	leftMap     []int
	rightMap    []int
	leftDone    bool
}

func newUnion(left, right Rowsource) Rowsource {
	return &unionRowsource{left: left, right: right}
}

func (u *unionRowsource) Name() string { return "union" }

func (u *unionRowsource) Vars() []*query.Variable {
	return u.ensureVars(func() []*query.Variable {
		merged, leftMap, rightMap := mergeVars(u.left.Vars(), u.right.Vars())
		u.leftMap = leftMap
		u.rightMap = rightMap
		return merged
	})
}

func (u *unionRowsource) ReadRow() (*Row, error) {
	if u.finished {
		return nil, nil
	}
	vars := u.Vars()

	if !u.leftDone {
		row, err := u.left.ReadRow()
		if err != nil {
			u.failed = true
			u.finished = true
			return nil, err
		}
		if row != nil {
			return u.emit(relayout(row, vars, u.leftMap), u.Name()), nil
		}
		u.leftDone = true
	}

	row, err := u.right.ReadRow()
	if err != nil {
		u.failed = true
		u.finished = true
		return nil, err
	}
	if row == nil {
		u.finished = true
		return nil, nil
	}
	return u.emit(relayout(row, vars, u.rightMap), u.Name()), nil
}

// relayout copies a side's row into the merged schema via its offset map.
func relayout(row *Row, merged []*query.Variable, offsets []int) *Row {
	out := NewRow(len(merged))
	out.Group = row.Group
	for i, v := range row.Values {
		out.Values[offsets[i]] = v
	}
	return out
}

func (u *unionRowsource) Reset() error {
	if err := u.left.Reset(); err != nil {
		return err
	}
	if err := u.right.Reset(); err != nil {
		return err
	}
	u.restart()
	u.leftDone = false
	return nil
}

func (u *unionRowsource) Inners() []Rowsource { return []Rowsource{u.left, u.right} }

func (u *unionRowsource) SetOrigin(origin rdf.Term) {
	u.left.SetOrigin(origin)
	u.right.SetOrigin(origin)
}
