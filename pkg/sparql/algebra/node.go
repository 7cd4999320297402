// Package algebra translates parsed graph-pattern trees into SPARQL algebra
// trees and simplifies them. The algebra tree is the input to the engine's
// rowsource builder.
package algebra

import (
	"fmt"
	"strings"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// Node is one operator instance in the compiled algebra tree. Nodes own their
// children and expressions; a BGP's triple range is a borrowed view into the
// owning query's shared triple list.
type Node interface {
	algebraNode()
	String() string
}

// BGP is the basic-graph-pattern leaf: a [Start, End) range over the query's
// triple list. Start == End denotes the empty BGP, the identity element of
// join simplification.
type BGP struct {
	Start int
	End   int
}

func (n *BGP) algebraNode() {}

// IsEmpty reports whether the BGP covers no triples.
func (n *BGP) IsEmpty() bool {
	return n.Start >= n.End
}

func (n *BGP) String() string {
	if n.IsEmpty() {
		return "BGP()"
	}
	return fmt.Sprintf("BGP(%d..%d)", n.Start, n.End)
}

// Filter applies a boolean expression to its input's rows.
type Filter struct {
	Expr  query.Expression
	Input Node // may be nil for a bare filter
}

func (n *Filter) algebraNode() {}

func (n *Filter) String() string {
	return fmt.Sprintf("Filter(%s, %s)", n.Expr, nodeString(n.Input))
}

// Join is the natural join of two inputs under compatible-mapping semantics.
// Expr is an optional join condition; nil and constant-true are equivalent.
type Join struct {
	Left  Node
	Right Node
	Expr  query.Expression
}

func (n *Join) algebraNode() {}

func (n *Join) String() string {
	if n.Expr != nil {
		return fmt.Sprintf("Join(%s, %s, %s)", n.Left, n.Right, n.Expr)
	}
	return fmt.Sprintf("Join(%s, %s)", n.Left, n.Right)
}

// LeftJoin is the OPTIONAL operator: all left rows, extended by compatible
// right rows where they exist, filtered by Expr.
type LeftJoin struct {
	Left  Node
	Right Node
	Expr  query.Expression
}

func (n *LeftJoin) algebraNode() {}

func (n *LeftJoin) String() string {
	return fmt.Sprintf("LeftJoin(%s, %s, %s)", n.Left, n.Right, exprString(n.Expr))
}

// Union concatenates the rows of both inputs under a merged schema.
type Union struct {
	Left  Node
	Right Node
}

func (n *Union) algebraNode() {}

func (n *Union) String() string {
	return fmt.Sprintf("Union(%s, %s)", n.Left, n.Right)
}

// OrderBy sorts its input by the given conditions.
type OrderBy struct {
	Input      Node
	Conditions []*query.OrderCondition
	Distinct   bool
}

func (n *OrderBy) algebraNode() {}

func (n *OrderBy) String() string {
	return fmt.Sprintf("OrderBy(%s, [%s])", n.Input, joinConditions(n.Conditions))
}

// Project narrows its input to an ordered variable list. Exprs is parallel to
// Vars; a non-nil entry is evaluated and bound to the variable before
// projection (SELECT (expr AS ?v) columns).
type Project struct {
	Input Node
	Vars  []*query.Variable
	Exprs []query.Expression
}

func (n *Project) algebraNode() {}

func (n *Project) String() string {
	vars := make([]string, len(n.Vars))
	for i, v := range n.Vars {
		vars[i] = v.String()
	}
	return fmt.Sprintf("Project(%s, [%s])", n.Input, strings.Join(vars, ", "))
}

// Distinct removes duplicate rows. With Reduced set, duplicate removal is
// permitted but not required and the engine passes rows through.
type Distinct struct {
	Input   Node
	Reduced bool
}

func (n *Distinct) algebraNode() {}

func (n *Distinct) String() string {
	if n.Reduced {
		return fmt.Sprintf("Reduced(%s)", n.Input)
	}
	return fmt.Sprintf("Distinct(%s)", n.Input)
}

// Slice applies LIMIT and OFFSET. Either may be nil, meaning unset.
type Slice struct {
	Input  Node
	Limit  *int
	Offset *int
}

func (n *Slice) algebraNode() {}

func (n *Slice) String() string {
	limit, offset := "-", "-"
	if n.Limit != nil {
		limit = fmt.Sprintf("%d", *n.Limit)
	}
	if n.Offset != nil {
		offset = fmt.Sprintf("%d", *n.Offset)
	}
	return fmt.Sprintf("Slice(%s, limit=%s, offset=%s)", n.Input, limit, offset)
}

// Graph constrains its input to a named graph. Origin may be an IRI or a
// variable.
type Graph struct {
	Input  Node
	Origin *query.TermOrVariable
}

func (n *Graph) algebraNode() {}

func (n *Graph) String() string {
	return fmt.Sprintf("Graph(%s, %s)", n.Origin, n.Input)
}

// Assign binds an expression result to a variable (LET / BIND). It has no
// input of its own; joined against the surrounding group it extends each row.
type Assign struct {
	Var  *query.Variable
	Expr query.Expression
}

func (n *Assign) algebraNode() {}

func (n *Assign) String() string {
	return fmt.Sprintf("Assign(%s := %s)", n.Var, n.Expr)
}

// Group partitions its input's rows into runs with equal grouping-expression
// values.
type Group struct {
	Input Node
	By    []query.Expression
}

func (n *Group) algebraNode() {}

func (n *Group) String() string {
	by := make([]string, len(n.By))
	for i, e := range n.By {
		by[i] = e.String()
	}
	return fmt.Sprintf("Group(%s, [%s])", n.Input, strings.Join(by, ", "))
}

// Aggregation computes one row per group, binding each aggregate expression's
// result to its parallel target variable.
type Aggregation struct {
	Input Node
	Exprs []*query.AggregateExpression
	Vars  []*query.Variable
}

func (n *Aggregation) algebraNode() {}

func (n *Aggregation) String() string {
	parts := make([]string, len(n.Exprs))
	for i, e := range n.Exprs {
		parts[i] = fmt.Sprintf("%s := %s", n.Vars[i], e)
	}
	return fmt.Sprintf("Aggregation(%s, [%s])", n.Input, strings.Join(parts, ", "))
}

// Having filters post-aggregation rows by boolean expressions.
type Having struct {
	Input Node
	Exprs []query.Expression
}

func (n *Having) algebraNode() {}

func (n *Having) String() string {
	exprs := make([]string, len(n.Exprs))
	for i, e := range n.Exprs {
		exprs[i] = e.String()
	}
	return fmt.Sprintf("Having(%s, [%s])", n.Input, strings.Join(exprs, ", "))
}

// Values serves the rows of a shared bindings table.
type Values struct {
	Bindings *query.Bindings
}

func (n *Values) algebraNode() {}

func (n *Values) String() string {
	vars := make([]string, len(n.Bindings.Vars))
	for i, v := range n.Bindings.Vars {
		vars[i] = v.String()
	}
	return fmt.Sprintf("Values([%s], %d rows)", strings.Join(vars, ", "), n.Bindings.Size())
}

// Service is a remote sub-query: the endpoint URI, the serialized query text,
// optional named data graphs, and the SILENT flag.
type Service struct {
	Endpoint   string
	Query      string
	DataGraphs []rdf.Term
	Silent     bool
}

func (n *Service) algebraNode() {}

func (n *Service) String() string {
	silent := ""
	if n.Silent {
		silent = " SILENT"
	}
	return fmt.Sprintf("Service(<%s>%s, %q)", n.Endpoint, silent, n.Query)
}

func nodeString(n Node) string {
	if n == nil {
		return "nil"
	}
	return n.String()
}

func exprString(e query.Expression) string {
	if e == nil {
		return "true"
	}
	return e.String()
}

// Print renders the tree with indented children, one operator per line. Used
// for diagnostics only.
func Print(n Node) string {
	var sb strings.Builder
	printNode(&sb, n, 0)
	return sb.String()
}

func printNode(sb *strings.Builder, n Node, depth int) {
	indent := strings.Repeat("  ", depth)
	if n == nil {
		sb.WriteString(indent + "nil\n")
		return
	}
	switch t := n.(type) {
	case *Filter:
		fmt.Fprintf(sb, "%sFilter %s\n", indent, t.Expr)
		printNode(sb, t.Input, depth+1)
	case *Join:
		fmt.Fprintf(sb, "%sJoin %s\n", indent, exprString(t.Expr))
		printNode(sb, t.Left, depth+1)
		printNode(sb, t.Right, depth+1)
	case *LeftJoin:
		fmt.Fprintf(sb, "%sLeftJoin %s\n", indent, exprString(t.Expr))
		printNode(sb, t.Left, depth+1)
		printNode(sb, t.Right, depth+1)
	case *Union:
		fmt.Fprintf(sb, "%sUnion\n", indent)
		printNode(sb, t.Left, depth+1)
		printNode(sb, t.Right, depth+1)
	case *OrderBy:
		fmt.Fprintf(sb, "%sOrderBy [%s]\n", indent, joinConditions(t.Conditions))
		printNode(sb, t.Input, depth+1)
	case *Project:
		vars := make([]string, len(t.Vars))
		for i, v := range t.Vars {
			vars[i] = v.String()
		}
		fmt.Fprintf(sb, "%sProject [%s]\n", indent, strings.Join(vars, ", "))
		printNode(sb, t.Input, depth+1)
	case *Distinct:
		if t.Reduced {
			fmt.Fprintf(sb, "%sReduced\n", indent)
		} else {
			fmt.Fprintf(sb, "%sDistinct\n", indent)
		}
		printNode(sb, t.Input, depth+1)
	case *Slice:
		limit, offset := "-", "-"
		if t.Limit != nil {
			limit = fmt.Sprintf("%d", *t.Limit)
		}
		if t.Offset != nil {
			offset = fmt.Sprintf("%d", *t.Offset)
		}
		fmt.Fprintf(sb, "%sSlice limit=%s offset=%s\n", indent, limit, offset)
		printNode(sb, t.Input, depth+1)
	case *Graph:
		fmt.Fprintf(sb, "%sGraph %s\n", indent, t.Origin)
		printNode(sb, t.Input, depth+1)
	case *Group:
		by := make([]string, len(t.By))
		for i, e := range t.By {
			by[i] = e.String()
		}
		fmt.Fprintf(sb, "%sGroup [%s]\n", indent, strings.Join(by, ", "))
		printNode(sb, t.Input, depth+1)
	case *Aggregation:
		parts := make([]string, len(t.Exprs))
		for i, e := range t.Exprs {
			parts[i] = fmt.Sprintf("%s := %s", t.Vars[i], e)
		}
		fmt.Fprintf(sb, "%sAggregation [%s]\n", indent, strings.Join(parts, ", "))
		printNode(sb, t.Input, depth+1)
	case *Having:
		exprs := make([]string, len(t.Exprs))
		for i, e := range t.Exprs {
			exprs[i] = e.String()
		}
		fmt.Fprintf(sb, "%sHaving [%s]\n", indent, strings.Join(exprs, ", "))
		printNode(sb, t.Input, depth+1)
	default:
		fmt.Fprintf(sb, "%s%s\n", indent, n)
	}
}

func joinConditions(conds []*query.OrderCondition) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		if c.Ascending {
			parts[i] = c.Expression.String()
		} else {
			parts[i] = "DESC(" + c.Expression.String() + ")"
		}
	}
	return strings.Join(parts, ", ")
}
