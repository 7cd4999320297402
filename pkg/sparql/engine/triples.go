package engine

import (
	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
	"github.com/aleksaelezovic/quercus/pkg/store"
)

// Matcher yields quads matching a pattern. *store.TripleStore implements it.
type Matcher interface {
	Query(pattern *store.Pattern) (store.QuadIterator, error)
}

// triplesRowsource scans a basic graph pattern by backtracking: each triple
// pattern opens an index scan with the variables already bound at that level
// substituted, and every solved level extends the working row one pattern
// deeper. Repeated variables unify, both within one pattern and across
// patterns.
//
// With no origin, patterns match the default graph. A GRAPH clause pushes its
// origin down via SetOrigin, constraining every pattern of the block.
type triplesRowsource struct {
	base
	source   Matcher
	patterns []*query.TriplePattern
	origin   rdf.Term

	// positions[i] holds the schema slot of each variable of pattern i in
	// S, P, O order, or -1 for constant positions.
	positions [][3]int

	row     []rdf.Term
	levels  []*scanLevel
	started bool
}

// scanLevel is the backtracking state for one triple pattern.
type scanLevel struct {
	iter  store.QuadIterator
	bound []int // schema slots this level bound, to clear on backtrack
}

func newTriples(source Matcher, patterns []*query.TriplePattern) Rowsource {
	t := &triplesRowsource{source: source, patterns: patterns}
	t.ensureVars(t.computeVars)
	return t
}

func (t *triplesRowsource) Name() string { return "triples" }

func (t *triplesRowsource) Vars() []*query.Variable {
	return t.ensureVars(t.computeVars)
}

// computeVars assigns schema slots to variables in order of first occurrence
// and records each pattern's slot layout.
func (t *triplesRowsource) computeVars() []*query.Variable {
	var vars []*query.Variable
	slot := func(v *query.Variable) int {
		for i, existing := range vars {
			if existing == v {
				return i
			}
		}
		vars = append(vars, v)
		return len(vars) - 1
	}

	t.positions = make([][3]int, len(t.patterns))
	for i, p := range t.patterns {
		pos := [3]int{-1, -1, -1}
		terms := [3]*query.TermOrVariable{&p.Subject, &p.Predicate, &p.Object}
		for k, tv := range terms {
			if tv.IsVariable() {
				pos[k] = slot(tv.Variable)
			}
		}
		t.positions[i] = pos
	}
	return vars
}

func (t *triplesRowsource) ReadRow() (*Row, error) {
	if t.finished {
		return nil, nil
	}
	vars := t.Vars()

	if !t.started {
		t.row = make([]rdf.Term, len(vars))
		t.started = true
		if len(t.patterns) == 0 {
			// An empty block contributes a single empty solution.
			t.finished = true
			return t.emit(NewRow(0), t.Name()), nil
		}
		if err := t.push(0); err != nil {
			t.failed = true
			t.finished = true
			return nil, err
		}
	}

	for len(t.levels) > 0 {
		depth := len(t.levels) - 1
		level := t.levels[depth]

		advanced, err := t.advance(depth, level)
		if err != nil {
			t.closeAll()
			t.failed = true
			t.finished = true
			return nil, err
		}
		if !advanced {
			t.pop()
			continue
		}

		if depth == len(t.patterns)-1 {
			out := NewRow(len(vars))
			copy(out.Values, t.row)
			return t.emit(out, t.Name()), nil
		}
		if err := t.push(depth + 1); err != nil {
			t.closeAll()
			t.failed = true
			t.finished = true
			return nil, err
		}
	}

	t.finished = true
	return nil, nil
}

// push opens the index scan for the pattern at the given depth, substituting
// variables already bound by shallower levels.
func (t *triplesRowsource) push(depth int) error {
	p := t.patterns[depth]
	pos := t.positions[depth]

	pattern := &store.Pattern{
		Subject:   t.instantiate(&p.Subject, pos[0]),
		Predicate: t.instantiate(&p.Predicate, pos[1]),
		Object:    t.instantiate(&p.Object, pos[2]),
	}
	if t.origin != nil {
		pattern.Graph = t.origin
	}

	iter, err := t.source.Query(pattern)
	if err != nil {
		return err
	}
	t.levels = append(t.levels, &scanLevel{iter: iter})
	return nil
}

func (t *triplesRowsource) instantiate(tv *query.TermOrVariable, slot int) any {
	if !tv.IsVariable() {
		return tv.Term
	}
	if bound := t.row[slot]; bound != nil {
		return bound
	}
	return store.NewVariable(tv.Variable.Name)
}

// advance steps the level's iterator to the next quad consistent with the
// working row, binding this level's fresh variables.
func (t *triplesRowsource) advance(depth int, level *scanLevel) (bool, error) {
	p := t.patterns[depth]
	pos := t.positions[depth]
	terms := [3]*query.TermOrVariable{&p.Subject, &p.Predicate, &p.Object}

	for level.iter.Next() {
		quad, err := level.iter.Quad()
		if err != nil {
			return false, err
		}
		got := [3]rdf.Term{quad.Subject, quad.Predicate, quad.Object}

		// Undo bindings of the previous candidate at this level.
		t.unbind(level)

		ok := true
		for k := 0; k < 3; k++ {
			if !terms[k].IsVariable() {
				// The scan prefix only covers leading bound positions,
				// trailing constants still need checking.
				if !terms[k].Term.Equals(got[k]) {
					ok = false
					break
				}
				continue
			}
			slot := pos[k]
			if bound := t.row[slot]; bound != nil {
				if !bound.Equals(got[k]) {
					ok = false
					break
				}
				continue
			}
			t.row[slot] = got[k]
			level.bound = append(level.bound, slot)
		}
		if ok {
			return true, nil
		}
		t.unbind(level)
	}
	return false, nil
}

func (t *triplesRowsource) unbind(level *scanLevel) {
	for _, slot := range level.bound {
		t.row[slot] = nil
	}
	level.bound = level.bound[:0]
}

func (t *triplesRowsource) pop() {
	depth := len(t.levels) - 1
	level := t.levels[depth]
	t.unbind(level)
	_ = level.iter.Close()
	t.levels = t.levels[:depth]
}

func (t *triplesRowsource) closeAll() {
	for len(t.levels) > 0 {
		t.pop()
	}
}

func (t *triplesRowsource) Reset() error {
	t.closeAll()
	t.started = false
	t.restart()
	return nil
}

func (t *triplesRowsource) Inners() []Rowsource { return nil }

func (t *triplesRowsource) SetOrigin(origin rdf.Term) { t.origin = origin }
