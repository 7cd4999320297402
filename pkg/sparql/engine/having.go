package engine

import (
	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/eval"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// havingRowsource filters group rows after aggregation. Every HAVING
// expression must evaluate to true for the row to pass; evaluation failure
// rejects the row.
type havingRowsource struct {
	base
	inner Rowsource
	exprs []query.Expression
	ev    *eval.Evaluator
}

func newHaving(inner Rowsource, exprs []query.Expression) Rowsource {
	return &havingRowsource{inner: inner, exprs: exprs, ev: eval.NewEvaluator()}
}

func (h *havingRowsource) Name() string { return "having" }

func (h *havingRowsource) Vars() []*query.Variable {
	return h.ensureVars(h.inner.Vars)
}

func (h *havingRowsource) ReadRow() (*Row, error) {
	if h.finished {
		return nil, nil
	}
	vars := h.Vars()
	for {
		row, err := h.inner.ReadRow()
		if err != nil {
			h.failed = true
			h.finished = true
			return nil, err
		}
		if row == nil {
			h.finished = true
			return nil, nil
		}
		if h.accepts(row, vars) {
			return h.emit(row, h.Name()), nil
		}
	}
}

func (h *havingRowsource) accepts(row *Row, vars []*query.Variable) bool {
	binding := rowBinding{vars: vars, row: row}
	for _, expr := range h.exprs {
		ok, err := h.ev.EvaluateBool(expr, binding)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

func (h *havingRowsource) Reset() error {
	if err := h.inner.Reset(); err != nil {
		return err
	}
	h.restart()
	return nil
}

func (h *havingRowsource) Inners() []Rowsource { return []Rowsource{h.inner} }

func (h *havingRowsource) SetOrigin(origin rdf.Term) { h.inner.SetOrigin(origin) }
