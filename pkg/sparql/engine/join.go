package engine

import (
	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/eval"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// joinRowsource implements natural join and left join under compatible-
// mapping semantics. For each left row the right side is replayed and probed;
// compatible pairs are merged into the union schema. A left join additionally
// emits unmatched left rows with the right-only columns unbound, and an
// optional condition expression filters candidate merges (evaluation failure
// rejects the merge).
type joinRowsource struct {
	base
	left, right Rowsource
	leftOuter   bool
	expr        query.Expression
	ev          *eval.Evaluator

	compat   *compatMap
	leftMap  []int
	rightMap []int

	cur     *Row
	matched bool
}

func newJoin(left, right Rowsource, expr query.Expression) Rowsource {
	return &joinRowsource{left: left, right: newReplay(right), expr: expr, ev: eval.NewEvaluator()}
}

func newLeftJoin(left, right Rowsource, expr query.Expression) Rowsource {
	return &joinRowsource{
		left: left, right: newReplay(right), expr: expr,
		leftOuter: true, ev: eval.NewEvaluator(),
	}
}

func (j *joinRowsource) Name() string {
	if j.leftOuter {
		return "leftjoin"
	}
	return "join"
}

func (j *joinRowsource) Vars() []*query.Variable {
	return j.ensureVars(func() []*query.Variable {
		leftVars, rightVars := j.left.Vars(), j.right.Vars()
		j.compat = newCompatMap(leftVars, rightVars)
		merged, leftMap, rightMap := mergeVars(leftVars, rightVars)
		j.leftMap = leftMap
		j.rightMap = rightMap
		return merged
	})
}

func (j *joinRowsource) ReadRow() (*Row, error) {
	if j.finished {
		return nil, nil
	}
	vars := j.Vars()

	for {
		if j.cur == nil {
			row, err := j.left.ReadRow()
			if err != nil {
				j.failed = true
				j.finished = true
				return nil, err
			}
			if row == nil {
				j.finished = true
				return nil, nil
			}
			j.cur = row
			j.matched = false
			if err := j.right.Reset(); err != nil {
				j.failed = true
				j.finished = true
				return nil, err
			}
		}

		right, err := j.right.ReadRow()
		if err != nil {
			j.failed = true
			j.finished = true
			return nil, err
		}
		if right == nil {
			left := j.cur
			j.cur = nil
			if j.leftOuter && !j.matched {
				return j.emit(j.mergeLeftOnly(left, vars), j.Name()), nil
			}
			continue
		}

		if !j.compat.compatible(j.cur, right) {
			continue
		}
		merged := j.merge(j.cur, right, vars)
		if j.expr != nil {
			ok, err := j.ev.EvaluateBool(j.expr, rowBinding{vars: vars, row: merged})
			if err != nil || !ok {
				continue
			}
		}
		j.matched = true
		return j.emit(merged, j.Name()), nil
	}
}

func (j *joinRowsource) merge(l, r *Row, vars []*query.Variable) *Row {
	out := NewRow(len(vars))
	for i, v := range l.Values {
		out.Values[j.leftMap[i]] = v
	}
	for i, v := range r.Values {
		if v != nil {
			out.Values[j.rightMap[i]] = v
		}
	}
	return out
}

func (j *joinRowsource) mergeLeftOnly(l *Row, vars []*query.Variable) *Row {
	out := NewRow(len(vars))
	for i, v := range l.Values {
		out.Values[j.leftMap[i]] = v
	}
	return out
}

func (j *joinRowsource) Reset() error {
	if err := j.left.Reset(); err != nil {
		return err
	}
	if err := j.right.Reset(); err != nil {
		return err
	}
	j.restart()
	j.cur = nil
	j.matched = false
	return nil
}

func (j *joinRowsource) Inners() []Rowsource { return []Rowsource{j.left, j.right} }

func (j *joinRowsource) SetOrigin(origin rdf.Term) {
	j.left.SetOrigin(origin)
	j.right.SetOrigin(origin)
}
