package engine

import (
	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/eval"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// assignRowsource extends each input row with the result of evaluating an
// expression bound to a variable (LET / BIND). Evaluation failure leaves the
// variable unbound in that row.
type assignRowsource struct {
	base
	inner  Rowsource
	v      *query.Variable
	expr   query.Expression
	ev     *eval.Evaluator
	target int
}

func newAssign(inner Rowsource, v *query.Variable, expr query.Expression) Rowsource {
	return &assignRowsource{inner: inner, v: v, expr: expr, ev: eval.NewEvaluator(), target: -1}
}

func (a *assignRowsource) Name() string { return "assign" }

func (a *assignRowsource) Vars() []*query.Variable {
	return a.ensureVars(func() []*query.Variable {
		inner := a.inner.Vars()
		if j := varIndex(inner, a.v); j >= 0 {
			a.target = j
			return inner
		}
		a.target = len(inner)
		out := make([]*query.Variable, len(inner), len(inner)+1)
		copy(out, inner)
		return append(out, a.v)
	})
}

func (a *assignRowsource) ReadRow() (*Row, error) {
	if a.finished {
		return nil, nil
	}
	vars := a.Vars()
	row, err := a.inner.ReadRow()
	if err != nil {
		a.failed = true
		a.finished = true
		return nil, err
	}
	if row == nil {
		a.finished = true
		return nil, nil
	}

	out := NewRow(len(vars))
	out.Group = row.Group
	copy(out.Values, row.Values)
	if value, err := a.ev.Evaluate(a.expr, rowBinding{vars: a.inner.Vars(), row: row}); err == nil {
		out.Values[a.target] = value
	}
	return a.emit(out, a.Name()), nil
}

func (a *assignRowsource) Reset() error {
	if err := a.inner.Reset(); err != nil {
		return err
	}
	a.restart()
	return nil
}

func (a *assignRowsource) Inners() []Rowsource { return []Rowsource{a.inner} }

func (a *assignRowsource) SetOrigin(origin rdf.Term) { a.inner.SetOrigin(origin) }
