package engine

import (
	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/eval"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// aggregationRowsource computes the extracted aggregate expressions per group
// and emits one row per group. The output schema is the inner schema extended
// with one internal variable per aggregate; the non-aggregate slots of the
// output row are copied from the group's first row.
//
// Rows arriving without a group id (no preceding GROUP BY) are all treated as
// one implicit group, and an empty input still produces a single output group
// so that e.g. COUNT over no rows yields zero.
type aggregationRowsource struct {
	base
	inner Rowsource
	exprs []*query.AggregateExpression
	avars []*query.Variable
	ev    *eval.Evaluator

	groups []*Row
	pos    int
	done   bool
}

func newAggregation(inner Rowsource, exprs []*query.AggregateExpression, avars []*query.Variable) Rowsource {
	return &aggregationRowsource{inner: inner, exprs: exprs, avars: avars, ev: eval.NewEvaluator()}
}

func (a *aggregationRowsource) Name() string { return "aggregation" }

func (a *aggregationRowsource) Vars() []*query.Variable {
	return a.ensureVars(func() []*query.Variable {
		inner := a.inner.Vars()
		vars := make([]*query.Variable, 0, len(inner)+len(a.avars))
		vars = append(vars, inner...)
		vars = append(vars, a.avars...)
		return vars
	})
}

func (a *aggregationRowsource) ReadRow() (*Row, error) {
	if a.finished {
		return nil, nil
	}
	if !a.done {
		if err := a.aggregate(); err != nil {
			a.failed = true
			a.finished = true
			return nil, err
		}
	}
	if a.pos >= len(a.groups) {
		a.finished = true
		return nil, nil
	}
	row := a.groups[a.pos]
	a.pos++
	return a.emit(row, a.Name()), nil
}

// groupState holds the per-group accumulators and the representative first
// row of the group.
type groupState struct {
	rep  *Row
	accs []*eval.Accumulator
}

func (a *aggregationRowsource) aggregate() error {
	innerVars := a.inner.Vars()
	vars := a.Vars()

	var order []int
	states := make(map[int]*groupState)

	for {
		row, err := a.inner.ReadRow()
		if err != nil {
			return err
		}
		if row == nil {
			break
		}
		group := row.Group
		if group < 0 {
			group = 0
		}
		state, ok := states[group]
		if !ok {
			state = &groupState{rep: row, accs: a.newAccumulators()}
			states[group] = state
			order = append(order, group)
		}
		binding := rowBinding{vars: innerVars, row: row}
		for i, agg := range a.exprs {
			if agg.Argument == nil {
				// COUNT(*) counts rows, bound or not.
				state.accs[i].StepRow()
				continue
			}
			value, err := a.ev.Evaluate(agg.Argument, binding)
			if err != nil {
				state.accs[i].Step(nil)
				continue
			}
			state.accs[i].Step(value)
		}
	}

	if len(order) == 0 {
		// Aggregates over no rows still produce one group.
		states[0] = &groupState{accs: a.newAccumulators()}
		order = append(order, 0)
	}

	a.groups = make([]*Row, 0, len(order))
	for _, group := range order {
		state := states[group]
		out := NewRow(len(vars))
		if state.rep != nil {
			copy(out.Values, state.rep.Values)
		}
		for i, acc := range state.accs {
			if value, err := acc.Result(); err == nil {
				out.Values[len(innerVars)+i] = value
			}
		}
		out.Group = group
		a.groups = append(a.groups, out)
	}
	a.done = true
	return nil
}

func (a *aggregationRowsource) newAccumulators() []*eval.Accumulator {
	accs := make([]*eval.Accumulator, len(a.exprs))
	for i, agg := range a.exprs {
		accs[i] = eval.NewAccumulator(agg)
	}
	return accs
}

func (a *aggregationRowsource) Reset() error {
	a.restart()
	a.pos = 0
	return nil
}

func (a *aggregationRowsource) Inners() []Rowsource { return []Rowsource{a.inner} }

func (a *aggregationRowsource) SetOrigin(origin rdf.Term) { a.inner.SetOrigin(origin) }
