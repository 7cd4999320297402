package engine

import (
	"errors"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// ErrNoReset is returned by rowsources that neither recompute
// deterministically nor buffer their input. Callers that need replay wrap
// such sources with newReplay.
var ErrNoReset = errors.New("rowsource does not support reset")

// Rowsource is a pull-based iterator over result rows. ReadRow returns
// (nil, nil) once the source is exhausted; after a non-nil error every
// subsequent read reports exhaustion. The variable schema is determined
// lazily on first use because some operators only know it after consulting
// an inner rowsource.
type Rowsource interface {
	// Name returns the operator name for diagnostics.
	Name() string

	// Vars returns the ordered list of variables this source projects.
	Vars() []*query.Variable

	// ReadRow returns the next row, or (nil, nil) when exhausted.
	ReadRow() (*Row, error)

	// Reset returns the source to its start for replay. Sources that
	// cannot replay return ErrNoReset.
	Reset() error

	// Inners returns the child rowsources, outermost first.
	Inners() []Rowsource

	// SetOrigin propagates a GRAPH-clause context down through all
	// descendants.
	SetOrigin(origin rdf.Term)
}

// base carries the state every rowsource shares: the memoized schema, the
// count of rows emitted, and the sticky finished flag.
type base struct {
	vars     []*query.Variable
	varsSet  bool
	emitted  int
	finished bool
	failed   bool
}

// ensureVars memoizes the schema computed by f.
func (b *base) ensureVars(f func() []*query.Variable) []*query.Variable {
	if !b.varsSet {
		b.vars = f()
		b.varsSet = true
	}
	return b.vars
}

// restart clears the iteration state for operators with a native reset. The
// memoized schema survives a restart.
func (b *base) restart() {
	b.emitted = 0
	b.finished = false
}

// emit stamps bookkeeping on an outgoing row.
func (b *base) emit(row *Row, source string) *Row {
	b.emitted++
	row.Source = source
	return row
}

// ReadAll drains a rowsource into a slice. Operators that need their whole
// input before producing output (sort, group) use this instead of
// implementing their own drain loop.
func ReadAll(rs Rowsource) ([]*Row, error) {
	var rows []*Row
	for {
		row, err := rs.ReadRow()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

// replayRowsource buffers every row of a non-resettable inner source the
// first time through and replays from the buffer thereafter. Join-family
// operators wrap their right side with it.
type replayRowsource struct {
	base
	inner    Rowsource
	buf      []*Row
	pos      int
	buffered bool
}

func newReplay(inner Rowsource) Rowsource {
	return &replayRowsource{inner: inner}
}

func (r *replayRowsource) Name() string { return "replay" }

func (r *replayRowsource) Vars() []*query.Variable {
	return r.ensureVars(r.inner.Vars)
}

func (r *replayRowsource) ReadRow() (*Row, error) {
	if !r.buffered {
		row, err := r.inner.ReadRow()
		if err != nil {
			r.failed = true
			return nil, err
		}
		if row == nil {
			r.buffered = true
			r.finished = true
			return nil, nil
		}
		r.buf = append(r.buf, row)
		r.pos = len(r.buf)
		return r.emit(row, r.Name()), nil
	}
	if r.pos >= len(r.buf) {
		r.finished = true
		return nil, nil
	}
	row := r.buf[r.pos]
	r.pos++
	return r.emit(row.Clone(), r.Name()), nil
}

func (r *replayRowsource) Reset() error {
	if !r.buffered {
		// Finish buffering so replay starts from a complete picture.
		if _, err := ReadAll(r); err != nil {
			return err
		}
	}
	r.restart()
	r.pos = 0
	return nil
}

func (r *replayRowsource) Inners() []Rowsource { return []Rowsource{r.inner} }

func (r *replayRowsource) SetOrigin(origin rdf.Term) { r.inner.SetOrigin(origin) }
