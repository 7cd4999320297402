package engine

import (
	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// emptyRowsource yields no rows. It stands in for a silently failed SERVICE
// call and for provably empty sub-trees.
type emptyRowsource struct {
	base
}

func newEmpty() Rowsource {
	return &emptyRowsource{}
}

func (e *emptyRowsource) Name() string { return "empty" }

func (e *emptyRowsource) Vars() []*query.Variable {
	return e.ensureVars(func() []*query.Variable { return nil })
}

func (e *emptyRowsource) ReadRow() (*Row, error) {
	e.finished = true
	return nil, nil
}

func (e *emptyRowsource) Reset() error {
	e.restart()
	return nil
}

func (e *emptyRowsource) Inners() []Rowsource { return nil }

func (e *emptyRowsource) SetOrigin(rdf.Term) {}

// singletonRowsource yields exactly one zero-column row: the join identity,
// produced for the empty basic graph pattern.
type singletonRowsource struct {
	base
}

func newSingleton() Rowsource {
	return &singletonRowsource{}
}

func (s *singletonRowsource) Name() string { return "singleton" }

func (s *singletonRowsource) Vars() []*query.Variable {
	return s.ensureVars(func() []*query.Variable { return nil })
}

func (s *singletonRowsource) ReadRow() (*Row, error) {
	if s.finished {
		return nil, nil
	}
	s.finished = true
	return s.emit(NewRow(0), s.Name()), nil
}

func (s *singletonRowsource) Reset() error {
	s.restart()
	return nil
}

func (s *singletonRowsource) Inners() []Rowsource { return nil }

func (s *singletonRowsource) SetOrigin(rdf.Term) {}

// sliceRowsource serves a fixed in-memory row list under a fixed schema.
// The service client and tests use it.
type sliceRowsource struct {
	base
	name string
	rows []*Row
	pos  int
}

func newSliceRowsource(name string, vars []*query.Variable, rows []*Row) Rowsource {
	rs := &sliceRowsource{name: name, rows: rows}
	rs.vars = vars
	rs.varsSet = true
	return rs
}

func (s *sliceRowsource) Name() string { return s.name }

func (s *sliceRowsource) Vars() []*query.Variable { return s.vars }

func (s *sliceRowsource) ReadRow() (*Row, error) {
	if s.pos >= len(s.rows) {
		s.finished = true
		return nil, nil
	}
	row := s.rows[s.pos].Clone()
	s.pos++
	return s.emit(row, s.name), nil
}

func (s *sliceRowsource) Reset() error {
	s.restart()
	s.pos = 0
	return nil
}

func (s *sliceRowsource) Inners() []Rowsource { return nil }

func (s *sliceRowsource) SetOrigin(rdf.Term) {}
