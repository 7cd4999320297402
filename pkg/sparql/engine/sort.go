package engine

import (
	"sort"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/eval"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// sortRowsource implements ORDER BY. With no order conditions rows pass
// through untouched. Otherwise the whole input is read, an order-key array is
// computed per row from the order expressions, and rows are served in
// lexicographic order of their keys. With distinct set, rows whose key arrays
// compare equal collapse to the first one.
type sortRowsource struct {
	base
	inner    Rowsource
	conds    []*query.OrderCondition
	distinct bool
	ev       *eval.Evaluator

	rows   []*Row
	pos    int
	sorted bool
}

func newSort(inner Rowsource, conds []*query.OrderCondition, distinct bool) Rowsource {
	return &sortRowsource{inner: inner, conds: conds, distinct: distinct, ev: eval.NewEvaluator()}
}

func (s *sortRowsource) Name() string { return "sort" }

func (s *sortRowsource) Vars() []*query.Variable {
	return s.ensureVars(s.inner.Vars)
}

func (s *sortRowsource) ReadRow() (*Row, error) {
	if s.finished {
		return nil, nil
	}
	if len(s.conds) == 0 {
		// Pass-through: nothing to order by.
		row, err := s.inner.ReadRow()
		if err != nil {
			s.failed = true
			s.finished = true
			return nil, err
		}
		if row == nil {
			s.finished = true
			return nil, nil
		}
		return s.emit(row, s.Name()), nil
	}

	if !s.sorted {
		if err := s.materialize(); err != nil {
			s.failed = true
			s.finished = true
			return nil, err
		}
	}
	if s.pos >= len(s.rows) {
		s.finished = true
		return nil, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return s.emit(row, s.Name()), nil
}

func (s *sortRowsource) materialize() error {
	rows, err := ReadAll(s.inner)
	if err != nil {
		return err
	}
	vars := s.Vars()
	for _, row := range rows {
		row.OrderKeys = s.orderKeys(row, vars)
	}
	sort.SliceStable(rows, func(i, k int) bool {
		return s.compareKeys(rows[i].OrderKeys, rows[k].OrderKeys) < 0
	})
	if s.distinct {
		rows = collapseEqualKeys(rows, s.compareKeys)
	}
	s.rows = rows
	s.sorted = true
	return nil
}

// orderKeys evaluates each order expression against the row. Evaluation
// failure yields a nil key, which sorts like an unbound value.
func (s *sortRowsource) orderKeys(row *Row, vars []*query.Variable) []rdf.Term {
	keys := make([]rdf.Term, len(s.conds))
	binding := rowBinding{vars: vars, row: row}
	for i, c := range s.conds {
		if value, err := s.ev.Evaluate(c.Expression, binding); err == nil {
			keys[i] = value
		}
	}
	return keys
}

// compareKeys is the lexicographic comparison over order-key arrays, with
// per-condition direction.
func (s *sortRowsource) compareKeys(a, b []rdf.Term) int {
	for i, c := range s.conds {
		cmp := rdf.Compare(a[i], b[i])
		if cmp == 0 {
			continue
		}
		if !c.Ascending {
			cmp = -cmp
		}
		return cmp
	}
	return 0
}

func collapseEqualKeys(rows []*Row, cmp func(a, b []rdf.Term) int) []*Row {
	out := rows[:0]
	for i, row := range rows {
		if i > 0 && cmp(rows[i-1].OrderKeys, row.OrderKeys) == 0 {
			continue
		}
		out = append(out, row)
	}
	return out
}

func (s *sortRowsource) Reset() error {
	if len(s.conds) == 0 {
		if err := s.inner.Reset(); err != nil {
			return err
		}
	}
	// A materialized sort replays its buffer.
	s.restart()
	s.pos = 0
	return nil
}

func (s *sortRowsource) Inners() []Rowsource { return []Rowsource{s.inner} }

func (s *sortRowsource) SetOrigin(origin rdf.Term) { s.inner.SetOrigin(origin) }
