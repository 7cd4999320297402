package query

import (
	"fmt"
	"strings"
)

// WritePattern serializes a graph pattern back into SPARQL query text,
// wrapped in a SELECT * so the result is a complete query. The SERVICE
// compiler uses this to build the text shipped to a remote endpoint.
func WritePattern(q *Query, p *GraphPattern) string {
	var sb strings.Builder
	sb.WriteString("SELECT * WHERE ")
	writeGroup(&sb, q, p)
	return sb.String()
}

func writeGroup(sb *strings.Builder, q *Query, p *GraphPattern) {
	sb.WriteString("{ ")
	writePattern(sb, q, p)
	sb.WriteString("}")
}

func writePattern(sb *strings.Builder, q *Query, p *GraphPattern) {
	if p == nil {
		return
	}
	switch p.Kind {
	case PatternBasic:
		for _, tp := range q.Triples[p.TripleStart:p.TripleEnd] {
			sb.WriteString(tp.String())
			sb.WriteString(" ")
		}
		if p.Filter != nil {
			fmt.Fprintf(sb, "FILTER(%s) ", p.Filter)
		}
	case PatternFilter:
		fmt.Fprintf(sb, "FILTER(%s) ", p.Filter)
	case PatternGroup:
		for _, sub := range p.SubPatterns {
			writePattern(sb, q, sub)
		}
	case PatternOptional:
		sb.WriteString("OPTIONAL ")
		writeSubGroup(sb, q, p)
	case PatternUnion:
		for i, sub := range p.SubPatterns {
			if i > 0 {
				sb.WriteString("UNION ")
			}
			writeGroup(sb, q, sub)
			sb.WriteString(" ")
		}
	case PatternGraph:
		fmt.Fprintf(sb, "GRAPH %s ", p.Origin)
		writeSubGroup(sb, q, p)
	case PatternLet:
		fmt.Fprintf(sb, "BIND(%s AS %s) ", p.Filter, p.Var)
	case PatternValues:
		writeValues(sb, p.Bindings)
	case PatternService:
		sb.WriteString("SERVICE ")
		if p.Silent {
			sb.WriteString("SILENT ")
		}
		fmt.Fprintf(sb, "%s ", p.Origin)
		writeSubGroup(sb, q, p)
	case PatternMinus:
		sb.WriteString("MINUS ")
		writeSubGroup(sb, q, p)
	case PatternSelect:
		writeSelect(sb, q, p.Select)
	}
}

func writeSubGroup(sb *strings.Builder, q *Query, p *GraphPattern) {
	if len(p.SubPatterns) == 1 {
		writeGroup(sb, q, p.SubPatterns[0])
	} else {
		sb.WriteString("{ ")
		for _, sub := range p.SubPatterns {
			writePattern(sb, q, sub)
		}
		sb.WriteString("}")
	}
	sb.WriteString(" ")
}

func writeValues(sb *strings.Builder, b *Bindings) {
	sb.WriteString("VALUES (")
	for i, v := range b.Vars {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(v.String())
	}
	sb.WriteString(") { ")
	for _, row := range b.Rows {
		sb.WriteString("(")
		for i, val := range row {
			if i > 0 {
				sb.WriteString(" ")
			}
			if val == nil {
				sb.WriteString("UNDEF")
			} else {
				sb.WriteString(val.String())
			}
		}
		sb.WriteString(") ")
	}
	sb.WriteString("} ")
}

func writeSelect(sb *strings.Builder, q *Query, s *SelectQuery) {
	sb.WriteString("{ SELECT ")
	if s.Distinct {
		sb.WriteString("DISTINCT ")
	} else if s.Reduced {
		sb.WriteString("REDUCED ")
	}
	if s.Columns == nil {
		sb.WriteString("* ")
	} else {
		for _, c := range s.Columns {
			if c.Expr != nil {
				fmt.Fprintf(sb, "(%s AS %s) ", c.Expr, c.Var)
			} else {
				fmt.Fprintf(sb, "%s ", c.Var)
			}
		}
	}
	sb.WriteString("WHERE ")
	writeGroup(sb, q, s.Where)
	if len(s.GroupBy) > 0 {
		sb.WriteString(" GROUP BY")
		for _, g := range s.GroupBy {
			fmt.Fprintf(sb, " %s", g)
		}
	}
	for _, h := range s.Having {
		fmt.Fprintf(sb, " HAVING(%s)", h)
	}
	if len(s.OrderBy) > 0 {
		sb.WriteString(" ORDER BY")
		for _, oc := range s.OrderBy {
			if oc.Ascending {
				fmt.Fprintf(sb, " %s", oc.Expression)
			} else {
				fmt.Fprintf(sb, " DESC(%s)", oc.Expression)
			}
		}
	}
	if s.Limit != nil {
		fmt.Fprintf(sb, " LIMIT %d", *s.Limit)
	}
	if s.Offset != nil {
		fmt.Fprintf(sb, " OFFSET %d", *s.Offset)
	}
	sb.WriteString(" }")
}
