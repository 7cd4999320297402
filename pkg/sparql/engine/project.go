package engine

import (
	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/eval"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// projectRowsource narrows rows to an ordered variable list. Expression
// columns are evaluated against the input row and bound to their target
// variable; evaluation failure leaves the slot unbound.
type projectRowsource struct {
	base
	inner Rowsource
	exprs []query.Expression // parallel to the projection, nil for plain columns
	ev    *eval.Evaluator
}

func newProject(inner Rowsource, vars []*query.Variable, exprs []query.Expression) Rowsource {
	p := &projectRowsource{inner: inner, exprs: exprs, ev: eval.NewEvaluator()}
	p.vars = vars
	p.varsSet = true
	return p
}

func (p *projectRowsource) Name() string { return "project" }

func (p *projectRowsource) Vars() []*query.Variable { return p.vars }

func (p *projectRowsource) ReadRow() (*Row, error) {
	if p.finished {
		return nil, nil
	}
	row, err := p.inner.ReadRow()
	if err != nil {
		p.failed = true
		p.finished = true
		return nil, err
	}
	if row == nil {
		p.finished = true
		return nil, nil
	}

	innerVars := p.inner.Vars()
	binding := rowBinding{vars: innerVars, row: row}
	out := NewRow(len(p.vars))
	out.Group = row.Group
	for i, v := range p.vars {
		if p.exprs != nil && p.exprs[i] != nil {
			if value, err := p.ev.Evaluate(p.exprs[i], binding); err == nil {
				out.Values[i] = value
			}
			continue
		}
		if j := varIndex(innerVars, v); j >= 0 {
			out.Values[i] = row.Values[j]
		}
	}
	return p.emit(out, p.Name()), nil
}

func (p *projectRowsource) Reset() error {
	if err := p.inner.Reset(); err != nil {
		return err
	}
	p.restart()
	return nil
}

func (p *projectRowsource) Inners() []Rowsource { return []Rowsource{p.inner} }

func (p *projectRowsource) SetOrigin(origin rdf.Term) { p.inner.SetOrigin(origin) }
