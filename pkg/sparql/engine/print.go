package engine

import (
	"fmt"
	"strings"

	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// Print renders a rowsource pipeline with indented children, one operator per
// line, each with its variable schema. Diagnostics only.
func Print(rs Rowsource) string {
	var sb strings.Builder
	printSource(&sb, rs, 0)
	return sb.String()
}

func printSource(sb *strings.Builder, rs Rowsource, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(sb, "%s%s [%s]\n", indent, rs.Name(), varNames(rs.Vars()))
	for _, inner := range rs.Inners() {
		printSource(sb, inner, depth+1)
	}
}

func varNames(vars []*query.Variable) string {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.String()
	}
	return strings.Join(names, ", ")
}
