package algebra

import (
	"errors"
	"fmt"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

var (
	// ErrNotImplemented is returned for pattern kinds the compiler does not
	// support (MINUS). Callers treat it as a query-preparation failure.
	ErrNotImplemented = errors.New("pattern kind not implemented")
)

// compiler carries per-compilation state: the query being translated, the
// variable table internal variables are minted into, and the aggregate
// extraction map.
type compiler struct {
	q *query.Query
}

// Compile translates a parsed query into an algebra tree, joins it with any
// query-level VALUES bindings, and simplifies the result.
func Compile(q *query.Query) (Node, error) {
	c := &compiler{q: q}
	node, err := c.compileSelect(q.Select)
	if err != nil {
		return nil, err
	}
	return Simplify(node), nil
}

// CompilePattern translates a single graph pattern without applying the
// top-level VALUES join or simplification.
func CompilePattern(q *query.Query, p *query.GraphPattern) (Node, error) {
	c := &compiler{q: q}
	return c.translate(p)
}

func (c *compiler) translate(p *query.GraphPattern) (Node, error) {
	switch p.Kind {
	case query.PatternBasic:
		return c.translateBasic(p), nil
	case query.PatternFilter:
		return &Filter{Expr: p.Filter, Input: nil}, nil
	case query.PatternUnion:
		return c.translateUnion(p)
	case query.PatternGroup, query.PatternOptional:
		return c.translateGroup(p)
	case query.PatternGraph:
		return c.translateGraph(p)
	case query.PatternLet:
		return &Assign{Var: p.Var, Expr: p.Filter}, nil
	case query.PatternValues:
		return &Values{Bindings: p.Bindings}, nil
	case query.PatternService:
		return c.translateService(p)
	case query.PatternSelect:
		return c.compileSelect(p.Select)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotImplemented, p.Kind)
	}
}

func (c *compiler) translateBasic(p *query.GraphPattern) Node {
	var node Node = &BGP{Start: p.TripleStart, End: p.TripleEnd}
	if p.Filter != nil {
		node = &Filter{Expr: p.Filter, Input: node}
	}
	return node
}

// translateUnion left-folds all sub-patterns with a binary Union.
func (c *compiler) translateUnion(p *query.GraphPattern) (Node, error) {
	var node Node
	for _, sub := range p.SubPatterns {
		subNode, err := c.translate(sub)
		if err != nil {
			return nil, err
		}
		if node == nil {
			node = subNode
		} else {
			node = &Union{Left: node, Right: subNode}
		}
	}
	if node == nil {
		node = &BGP{}
	}
	return node, nil
}

// translateGroup implements the GroupGraphPattern transform: sub-patterns are
// folded into a running join G, FILTERs are collected into a conjunction FS
// applied at the end, and OPTIONAL sub-patterns become left joins whose
// condition is lifted out of a translated Filter when present.
func (c *compiler) translateGroup(p *query.GraphPattern) (Node, error) {
	var g Node = &BGP{}
	var fs query.Expression

	for _, sub := range p.SubPatterns {
		switch sub.Kind {
		case query.PatternFilter:
			fs = conjoin(fs, sub.Filter)
		case query.PatternOptional:
			translated, err := c.translateGroup(sub)
			if err != nil {
				return nil, err
			}
			if f, ok := translated.(*Filter); ok && f.Input != nil {
				g = &LeftJoin{Left: g, Right: f.Input, Expr: f.Expr}
			} else {
				g = &LeftJoin{Left: g, Right: translated, Expr: query.ConstantTrue}
			}
		default:
			translated, err := c.translate(sub)
			if err != nil {
				return nil, err
			}
			g = &Join{Left: g, Right: translated}
		}
	}

	if fs != nil {
		g = &Filter{Expr: fs, Input: g}
	}
	return g, nil
}

func conjoin(a, b query.Expression) query.Expression {
	if a == nil {
		return b
	}
	return &query.BinaryExpression{Left: a, Operator: query.OpAnd, Right: b}
}

func (c *compiler) translateGraph(p *query.GraphPattern) (Node, error) {
	inner, err := c.translateChildren(p)
	if err != nil {
		return nil, err
	}
	return &Graph{Input: inner, Origin: p.Origin}, nil
}

func (c *compiler) translateService(p *query.GraphPattern) (Node, error) {
	if p.Origin == nil || p.Origin.IsVariable() {
		return nil, fmt.Errorf("service endpoint must be an IRI")
	}
	nn, ok := p.Origin.Term.(*rdf.NamedNode)
	if !ok {
		return nil, fmt.Errorf("service endpoint is not an IRI: %s", p.Origin)
	}
	text := query.WritePattern(c.q, &query.GraphPattern{
		Kind:        query.PatternGroup,
		SubPatterns: p.SubPatterns,
	})
	return &Service{
		Endpoint:   nn.IRI,
		Query:      text,
		DataGraphs: p.DataGraphs,
		Silent:     p.Silent,
	}, nil
}

// translateChildren translates a node's sub-patterns as an implicit group.
func (c *compiler) translateChildren(p *query.GraphPattern) (Node, error) {
	if len(p.SubPatterns) == 1 {
		return c.translate(p.SubPatterns[0])
	}
	return c.translateGroup(p)
}

// compileSelect applies the fixed solution-modifier order: group-by, aggregate
// extraction + aggregation, having, project, order-by, distinct, slice, and
// finally a join with the select's own VALUES bindings. The order is
// load-bearing: aggregation must see post-group rows, having must see
// post-aggregation variables, ordering must see projected values, and slicing
// applies to the fully modified sequence.
func (c *compiler) compileSelect(s *query.SelectQuery) (Node, error) {
	node, err := c.translate(s.Where)
	if err != nil {
		return nil, err
	}

	if len(s.GroupBy) > 0 {
		node = &Group{Input: node, By: s.GroupBy}
	}

	ext := newExtractor(c.q.Vars)
	var projectVars []*query.Variable
	var projectExprs []query.Expression
	if s.Columns != nil {
		for _, col := range s.Columns {
			projectVars = append(projectVars, col.Var)
			if col.Expr == nil {
				projectExprs = append(projectExprs, nil)
				continue
			}
			rewritten, err := ext.rewrite(col.Expr)
			if err != nil {
				return nil, err
			}
			projectExprs = append(projectExprs, rewritten)
		}
	}

	havingExprs := make([]query.Expression, 0, len(s.Having))
	if len(s.Having) > 0 {
		// HAVING may reference aggregates already extracted from the
		// projection but must not introduce new ones.
		ext.freeze()
		for _, h := range s.Having {
			rewritten, err := ext.rewrite(h)
			if err != nil {
				return nil, err
			}
			havingExprs = append(havingExprs, rewritten)
		}
	}

	if len(ext.exprs) > 0 || len(s.GroupBy) > 0 {
		node = &Aggregation{Input: node, Exprs: ext.exprs, Vars: ext.vars}
	}

	if len(havingExprs) > 0 {
		node = &Having{Input: node, Exprs: havingExprs}
	}

	if projectVars != nil {
		node = &Project{Input: node, Vars: projectVars, Exprs: projectExprs}
	}

	if len(s.OrderBy) > 0 {
		node = &OrderBy{Input: node, Conditions: s.OrderBy}
	}

	if s.Distinct || s.Reduced {
		node = &Distinct{Input: node, Reduced: s.Reduced}
	}

	if s.Limit != nil || s.Offset != nil {
		node = &Slice{Input: node, Limit: s.Limit, Offset: s.Offset}
	}

	if s.Values != nil {
		node = &Join{Left: node, Right: &Values{Bindings: s.Values}}
	}

	return node, nil
}
