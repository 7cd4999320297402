package engine

import (
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// compatMap precomputes, for two rowsources sharing a variable table, the
// column offset of every shared variable on each side. Join-family operators
// use it to test SPARQL compatible mappings without per-row schema lookups.
type compatMap struct {
	// pairs holds (left offset, right offset) for each variable present in
	// both schemas.
	pairs [][2]int
}

// newCompatMap builds the offset map for the two schemas.
func newCompatMap(left, right []*query.Variable) *compatMap {
	c := &compatMap{}
	for li, v := range left {
		if ri := varIndex(right, v); ri >= 0 {
			c.pairs = append(c.pairs, [2]int{li, ri})
		}
	}
	return c
}

// sharedCount returns the number of variables present in both sides.
func (c *compatMap) sharedCount() int {
	return len(c.pairs)
}

// compatible reports whether two rows agree on every shared variable: both
// unbound, or both bound to equal terms. With no shared variables every row
// pair is trivially compatible; cross-joins of disjoint schemas depend on
// that short-circuit.
func (c *compatMap) compatible(l, r *Row) bool {
	for _, p := range c.pairs {
		lv, rv := l.Values[p[0]], r.Values[p[1]]
		if lv == nil && rv == nil {
			continue
		}
		if lv == nil || rv == nil {
			return false
		}
		if !lv.Equals(rv) {
			return false
		}
	}
	return true
}

// mergeVars builds the union schema of two sides with duplicates collapsed,
// plus offset maps from each side's schema into the merged schema.
func mergeVars(left, right []*query.Variable) (merged []*query.Variable, leftMap, rightMap []int) {
	merged = make([]*query.Variable, 0, len(left)+len(right))
	leftMap = make([]int, len(left))
	rightMap = make([]int, len(right))
	for i, v := range left {
		leftMap[i] = len(merged)
		merged = append(merged, v)
	}
	for i, v := range right {
		if j := varIndex(merged, v); j >= 0 {
			rightMap[i] = j
			continue
		}
		rightMap[i] = len(merged)
		merged = append(merged, v)
	}
	return merged, leftMap, rightMap
}
