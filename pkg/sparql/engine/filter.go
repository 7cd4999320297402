package engine

import (
	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/eval"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// filterRowsource passes through rows whose condition evaluates to true.
// Evaluation failure or a non-true result rejects the row.
type filterRowsource struct {
	base
	inner Rowsource
	expr  query.Expression
	ev    *eval.Evaluator
}

func newFilter(inner Rowsource, expr query.Expression) Rowsource {
	return &filterRowsource{inner: inner, expr: expr, ev: eval.NewEvaluator()}
}

func (f *filterRowsource) Name() string { return "filter" }

func (f *filterRowsource) Vars() []*query.Variable {
	return f.ensureVars(f.inner.Vars)
}

func (f *filterRowsource) ReadRow() (*Row, error) {
	if f.finished {
		return nil, nil
	}
	vars := f.Vars()
	for {
		row, err := f.inner.ReadRow()
		if err != nil {
			f.failed = true
			f.finished = true
			return nil, err
		}
		if row == nil {
			f.finished = true
			return nil, nil
		}
		ok, err := f.ev.EvaluateBool(f.expr, rowBinding{vars: vars, row: row})
		if err != nil || !ok {
			continue
		}
		return f.emit(row, f.Name()), nil
	}
}

func (f *filterRowsource) Reset() error {
	if err := f.inner.Reset(); err != nil {
		return err
	}
	f.restart()
	return nil
}

func (f *filterRowsource) Inners() []Rowsource { return []Rowsource{f.inner} }

func (f *filterRowsource) SetOrigin(origin rdf.Term) { f.inner.SetOrigin(origin) }
