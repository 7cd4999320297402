package engine

import (
	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// distinctRowsource suppresses duplicate rows keyed by full value equality,
// preserving first-seen order. With reduced set, duplicate removal is
// permitted but not required, and rows pass through untouched.
type distinctRowsource struct {
	base
	inner   Rowsource
	reduced bool
	seen    map[string]bool
}

func newDistinct(inner Rowsource, reduced bool) Rowsource {
	return &distinctRowsource{inner: inner, reduced: reduced, seen: make(map[string]bool)}
}

func (d *distinctRowsource) Name() string {
	if d.reduced {
		return "reduced"
	}
	return "distinct"
}

func (d *distinctRowsource) Vars() []*query.Variable {
	return d.ensureVars(d.inner.Vars)
}

func (d *distinctRowsource) ReadRow() (*Row, error) {
	if d.finished {
		return nil, nil
	}
	for {
		row, err := d.inner.ReadRow()
		if err != nil {
			d.failed = true
			d.finished = true
			return nil, err
		}
		if row == nil {
			d.finished = true
			return nil, nil
		}
		if !d.reduced {
			sig := row.signature()
			if d.seen[sig] {
				continue
			}
			d.seen[sig] = true
		}
		return d.emit(row, d.Name()), nil
	}
}

func (d *distinctRowsource) Reset() error {
	if err := d.inner.Reset(); err != nil {
		return err
	}
	d.restart()
	d.seen = make(map[string]bool)
	return nil
}

func (d *distinctRowsource) Inners() []Rowsource { return []Rowsource{d.inner} }

func (d *distinctRowsource) SetOrigin(origin rdf.Term) { d.inner.SetOrigin(origin) }
