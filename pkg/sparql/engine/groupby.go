package engine

import (
	"sort"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/eval"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// groupRowsource implements GROUP BY. The whole input is materialized, a key
// term is computed per row for every grouping expression, rows are stably
// sorted by their keys, and consecutive runs of equal keys receive ascending
// group ids starting at zero. Key evaluation failure yields an unbound key
// slot, so all rows for which an expression errors land in the same group.
type groupRowsource struct {
	base
	inner Rowsource
	by    []query.Expression
	ev    *eval.Evaluator

	rows    []*Row
	pos     int
	grouped bool
}

func newGroup(inner Rowsource, by []query.Expression) Rowsource {
	return &groupRowsource{inner: inner, by: by, ev: eval.NewEvaluator()}
}

func (g *groupRowsource) Name() string { return "group" }

func (g *groupRowsource) Vars() []*query.Variable {
	return g.ensureVars(g.inner.Vars)
}

func (g *groupRowsource) ReadRow() (*Row, error) {
	if g.finished {
		return nil, nil
	}
	if !g.grouped {
		if err := g.materialize(); err != nil {
			g.failed = true
			g.finished = true
			return nil, err
		}
	}
	if g.pos >= len(g.rows) {
		g.finished = true
		return nil, nil
	}
	row := g.rows[g.pos]
	g.pos++
	return g.emit(row, g.Name()), nil
}

func (g *groupRowsource) materialize() error {
	rows, err := ReadAll(g.inner)
	if err != nil {
		return err
	}
	vars := g.Vars()
	keys := make([][]rdf.Term, len(rows))
	for i, row := range rows {
		keys[i] = g.keyTerms(row, vars)
	}
	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, k int) bool {
		return compareKeyTerms(keys[order[i]], keys[order[k]]) < 0
	})

	sorted := make([]*Row, len(rows))
	group := -1
	for i, idx := range order {
		if i == 0 || compareKeyTerms(keys[order[i-1]], keys[idx]) != 0 {
			group++
		}
		rows[idx].Group = group
		sorted[i] = rows[idx]
	}
	g.rows = sorted
	g.grouped = true
	return nil
}

func (g *groupRowsource) keyTerms(row *Row, vars []*query.Variable) []rdf.Term {
	key := make([]rdf.Term, len(g.by))
	binding := rowBinding{vars: vars, row: row}
	for i, expr := range g.by {
		if value, err := g.ev.Evaluate(expr, binding); err == nil {
			key[i] = value
		}
	}
	return key
}

func compareKeyTerms(a, b []rdf.Term) int {
	for i := range a {
		if cmp := rdf.Compare(a[i], b[i]); cmp != 0 {
			return cmp
		}
	}
	return 0
}

func (g *groupRowsource) Reset() error {
	g.restart()
	g.pos = 0
	return nil
}

func (g *groupRowsource) Inners() []Rowsource { return []Rowsource{g.inner} }

func (g *groupRowsource) SetOrigin(origin rdf.Term) { g.inner.SetOrigin(origin) }
