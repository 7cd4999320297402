package engine

import (
	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// sliceRowsourceOp applies LIMIT and OFFSET to the fully modified solution
// sequence. Either bound may be unset.
type sliceRowsourceOp struct {
	base
	inner   Rowsource
	limit   *int
	offset  *int
	skipped int
}

func newSlice(inner Rowsource, limit, offset *int) Rowsource {
	return &sliceRowsourceOp{inner: inner, limit: limit, offset: offset}
}

func (s *sliceRowsourceOp) Name() string { return "slice" }

func (s *sliceRowsourceOp) Vars() []*query.Variable {
	return s.ensureVars(s.inner.Vars)
}

func (s *sliceRowsourceOp) ReadRow() (*Row, error) {
	if s.finished {
		return nil, nil
	}
	if s.limit != nil && s.emitted >= *s.limit {
		s.finished = true
		return nil, nil
	}
	for s.offset != nil && s.skipped < *s.offset {
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
		s.skipped++
	}
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

func (s *sliceRowsourceOp) Reset() error {
	if err := s.inner.Reset(); err != nil {
		return err
	}
	s.restart()
	s.skipped = 0
	return nil
}

func (s *sliceRowsourceOp) Inners() []Rowsource { return []Rowsource{s.inner} }

func (s *sliceRowsourceOp) SetOrigin(origin rdf.Term) { s.inner.SetOrigin(origin) }
