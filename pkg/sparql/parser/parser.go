// Package parser parses SPARQL SELECT queries into the query package's
// graph-pattern tree. The parser is a plain byte cursor with one token of
// lookahead; variables are interned into the query's variable table as they
// are read.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// Parser parses one SPARQL query string.
type Parser struct {
	input    string
	pos      int
	length   int
	prefixes map[string]string
	baseURI  string
	q        *query.Query
}

func NewParser(input string) *Parser {
	return &Parser{
		input:    input,
		length:   len(input),
		prefixes: make(map[string]string),
	}
}

// Parse parses a complete SELECT query.
func (p *Parser) Parse() (*query.Query, error) {
	p.q = query.NewQuery()

	for {
		p.skipWhitespace()
		if p.matchKeyword("PREFIX") {
			if err := p.parsePrefix(); err != nil {
				return nil, err
			}
		} else if p.matchKeyword("BASE") {
			if err := p.parseBase(); err != nil {
				return nil, err
			}
		} else {
			break
		}
	}

	if !p.matchKeyword("SELECT") {
		return nil, fmt.Errorf("expected SELECT query")
	}

	sel, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	p.q.Select = sel

	p.skipWhitespace()
	if p.pos < p.length {
		return nil, fmt.Errorf("unexpected input after query: %q", p.rest(20))
	}
	return p.q, nil
}

// parseSelect parses the body of a SELECT, the SELECT keyword itself already
// consumed. Shared between the top-level query and sub-selects.
func (p *Parser) parseSelect() (*query.SelectQuery, error) {
	sel := &query.SelectQuery{}

	if p.matchKeyword("DISTINCT") {
		sel.Distinct = true
	} else if p.matchKeyword("REDUCED") {
		sel.Reduced = true
	}

	columns, err := p.parseProjection()
	if err != nil {
		return nil, err
	}
	sel.Columns = columns

	p.matchKeyword("WHERE") // optional

	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	sel.Where = where

	if p.matchKeyword("GROUP") {
		if !p.matchKeyword("BY") {
			return nil, fmt.Errorf("expected BY after GROUP")
		}
		groupBy, err := p.parseGroupBy()
		if err != nil {
			return nil, err
		}
		sel.GroupBy = groupBy
	}

	if p.matchKeyword("HAVING") {
		having, err := p.parseHaving()
		if err != nil {
			return nil, err
		}
		sel.Having = having
	}

	if p.matchKeyword("ORDER") {
		if !p.matchKeyword("BY") {
			return nil, fmt.Errorf("expected BY after ORDER")
		}
		orderBy, err := p.parseOrderBy()
		if err != nil {
			return nil, err
		}
		sel.OrderBy = orderBy
	}

	if p.matchKeyword("LIMIT") {
		limit, err := p.parseInteger()
		if err != nil {
			return nil, err
		}
		sel.Limit = &limit
	}

	if p.matchKeyword("OFFSET") {
		offset, err := p.parseInteger()
		if err != nil {
			return nil, err
		}
		sel.Offset = &offset
	}

	if p.matchKeyword("VALUES") {
		values, err := p.parseValuesBlock()
		if err != nil {
			return nil, err
		}
		sel.Values = values
	}

	return sel, nil
}

// parseProjection parses the select clause: * or a list of variables and
// (expr AS ?var) columns. A nil column list means SELECT *.
func (p *Parser) parseProjection() ([]*query.SelectColumn, error) {
	p.skipWhitespace()

	if p.peek() == '*' {
		p.advance()
		return nil, nil
	}

	var columns []*query.SelectColumn
	for {
		p.skipWhitespace()
		ch := p.peek()

		if ch == '(' {
			p.advance()
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if !p.matchKeyword("AS") {
				return nil, fmt.Errorf("expected AS in select expression")
			}
			v, err := p.parseVariable()
			if err != nil {
				return nil, err
			}
			if err := p.expect(')'); err != nil {
				return nil, err
			}
			columns = append(columns, &query.SelectColumn{Var: v, Expr: expr})
			continue
		}

		if ch != '?' && ch != '$' {
			break
		}
		v, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		columns = append(columns, &query.SelectColumn{Var: v})
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("expected at least one variable or * in projection")
	}
	return columns, nil
}

// parseGroupGraphPattern parses { ... } into a group pattern. Contiguous
// triple runs become basic sub-patterns referencing the query's shared
// triple list by index.
func (p *Parser) parseGroupGraphPattern() (*query.GraphPattern, error) {
	if err := p.expect('{'); err != nil {
		return nil, fmt.Errorf("expected '{' to start graph pattern: %w", err)
	}

	group := &query.GraphPattern{Kind: query.PatternGroup}
	basicStart := len(p.q.Triples)

	flushBasic := func() {
		if end := len(p.q.Triples); end > basicStart {
			group.SubPatterns = append(group.SubPatterns, &query.GraphPattern{
				Kind:        query.PatternBasic,
				TripleStart: basicStart,
				TripleEnd:   end,
			})
			basicStart = end
		}
	}

	for {
		p.skipWhitespace()

		if p.peek() == '}' {
			p.advance()
			flushBasic()
			return group, nil
		}
		if p.pos >= p.length {
			return nil, fmt.Errorf("unterminated graph pattern")
		}

		if p.matchKeyword("FILTER") {
			flushBasic()
			expr, err := p.parseConstraint()
			if err != nil {
				return nil, err
			}
			group.SubPatterns = append(group.SubPatterns, &query.GraphPattern{
				Kind:   query.PatternFilter,
				Filter: expr,
			})
			continue
		}

		if p.matchKeyword("BIND") {
			flushBasic()
			v, expr, err := p.parseBind()
			if err != nil {
				return nil, err
			}
			group.SubPatterns = append(group.SubPatterns, &query.GraphPattern{
				Kind:   query.PatternLet,
				Var:    v,
				Filter: expr,
			})
			continue
		}

		if p.matchKeyword("VALUES") {
			flushBasic()
			bindings, err := p.parseValuesBlock()
			if err != nil {
				return nil, err
			}
			group.SubPatterns = append(group.SubPatterns, &query.GraphPattern{
				Kind:     query.PatternValues,
				Bindings: bindings,
			})
			continue
		}

		if p.matchKeyword("OPTIONAL") {
			flushBasic()
			sub, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			group.SubPatterns = append(group.SubPatterns, &query.GraphPattern{
				Kind:        query.PatternOptional,
				SubPatterns: []*query.GraphPattern{sub},
			})
			continue
		}

		if p.matchKeyword("MINUS") {
			flushBasic()
			sub, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			group.SubPatterns = append(group.SubPatterns, &query.GraphPattern{
				Kind:        query.PatternMinus,
				SubPatterns: []*query.GraphPattern{sub},
			})
			continue
		}

		if p.matchKeyword("GRAPH") {
			flushBasic()
			origin, err := p.parseOrigin()
			if err != nil {
				return nil, err
			}
			sub, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			group.SubPatterns = append(group.SubPatterns, &query.GraphPattern{
				Kind:        query.PatternGraph,
				Origin:      origin,
				SubPatterns: []*query.GraphPattern{sub},
			})
			continue
		}

		if p.matchKeyword("SERVICE") {
			flushBasic()
			service, err := p.parseService()
			if err != nil {
				return nil, err
			}
			group.SubPatterns = append(group.SubPatterns, service)
			continue
		}

		if p.peek() == '{' {
			flushBasic()
			sub, err := p.parseGroupOrSelect()
			if err != nil {
				return nil, err
			}
			// UNION chains are left-associative.
			for p.matchKeyword("UNION") {
				right, err := p.parseGroupOrSelect()
				if err != nil {
					return nil, err
				}
				sub = &query.GraphPattern{
					Kind:        query.PatternUnion,
					SubPatterns: []*query.GraphPattern{sub, right},
				}
			}
			group.SubPatterns = append(group.SubPatterns, sub)
			continue
		}

		// Anything else must be a triple block.
		if err := p.parseTriplesBlock(); err != nil {
			return nil, err
		}
		p.skipWhitespace()
		if p.peek() == '.' {
			p.advance()
		}
	}
}

// parseGroupOrSelect parses either a nested group pattern or a braced
// sub-select.
func (p *Parser) parseGroupOrSelect() (*query.GraphPattern, error) {
	saved := p.pos
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	if p.matchKeyword("SELECT") {
		sel, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		if err := p.expect('}'); err != nil {
			return nil, fmt.Errorf("expected '}' after sub-select: %w", err)
		}
		return &query.GraphPattern{Kind: query.PatternSelect, Select: sel}, nil
	}
	p.pos = saved
	return p.parseGroupGraphPattern()
}

// parseService parses SERVICE [SILENT] <iri-or-var> { ... }.
func (p *Parser) parseService() (*query.GraphPattern, error) {
	silent := p.matchKeyword("SILENT")

	origin, err := p.parseOrigin()
	if err != nil {
		return nil, err
	}
	sub, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	return &query.GraphPattern{
		Kind:        query.PatternService,
		Origin:      origin,
		Silent:      silent,
		SubPatterns: []*query.GraphPattern{sub},
	}, nil
}

// parseOrigin parses the IRI or variable after GRAPH / SERVICE.
func (p *Parser) parseOrigin() (*query.TermOrVariable, error) {
	p.skipWhitespace()
	ch := p.peek()

	if ch == '?' || ch == '$' {
		v, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		return &query.TermOrVariable{Variable: v}, nil
	}
	if ch == '<' {
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return &query.TermOrVariable{Term: rdf.NewNamedNode(iri)}, nil
	}
	if isNameStart(ch) || ch == ':' {
		iri, err := p.parsePrefixedName()
		if err != nil {
			return nil, err
		}
		return &query.TermOrVariable{Term: rdf.NewNamedNode(iri)}, nil
	}
	return nil, fmt.Errorf("expected IRI or variable, got %q", p.rest(10))
}

// parseTriplesBlock parses one subject's triples including the ';' and ','
// property-list shorthand, appending them to the query's triple list.
func (p *Parser) parseTriplesBlock() error {
	subject, err := p.parseTermOrVariable()
	if err != nil {
		return fmt.Errorf("failed to parse subject: %w", err)
	}
	predicate, err := p.parseTermOrVariable()
	if err != nil {
		return fmt.Errorf("failed to parse predicate: %w", err)
	}
	object, err := p.parseTermOrVariable()
	if err != nil {
		return fmt.Errorf("failed to parse object: %w", err)
	}

	p.q.AddTriple(&query.TriplePattern{Subject: *subject, Predicate: *predicate, Object: *object})

	for {
		p.skipWhitespace()
		switch p.peek() {
		case ',':
			p.advance()
			object, err := p.parseTermOrVariable()
			if err != nil {
				return fmt.Errorf("failed to parse object after ',': %w", err)
			}
			p.q.AddTriple(&query.TriplePattern{Subject: *subject, Predicate: *predicate, Object: *object})

		case ';':
			p.advance()
			p.skipWhitespace()
			if p.peek() == '.' || p.peek() == '}' {
				return nil
			}
			predicate, err = p.parseTermOrVariable()
			if err != nil {
				return fmt.Errorf("failed to parse predicate after ';': %w", err)
			}
			object, err := p.parseTermOrVariable()
			if err != nil {
				return fmt.Errorf("failed to parse object after ';': %w", err)
			}
			p.q.AddTriple(&query.TriplePattern{Subject: *subject, Predicate: *predicate, Object: *object})

		default:
			return nil
		}
	}
}

// parseTermOrVariable parses one position of a triple pattern.
func (p *Parser) parseTermOrVariable() (*query.TermOrVariable, error) {
	p.skipWhitespace()
	ch := p.peek()

	if ch == '?' || ch == '$' {
		v, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		return &query.TermOrVariable{Variable: v}, nil
	}

	if ch == '<' {
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return &query.TermOrVariable{Term: rdf.NewNamedNode(iri)}, nil
	}

	if ch == '"' || ch == '\'' {
		lit, err := p.parseStringLiteral()
		if err != nil {
			return nil, err
		}
		return &query.TermOrVariable{Term: lit}, nil
	}

	if ch == '_' {
		bn, err := p.parseBlankNode()
		if err != nil {
			return nil, err
		}
		return &query.TermOrVariable{Term: bn}, nil
	}

	if ch >= '0' && ch <= '9' || ch == '-' || ch == '+' {
		lit, err := p.parseNumericLiteral()
		if err != nil {
			return nil, err
		}
		return &query.TermOrVariable{Term: lit}, nil
	}

	// 'a' is shorthand for rdf:type when it stands alone.
	if ch == 'a' && !isNameChar(p.peekAt(1)) && p.peekAt(1) != ':' {
		p.advance()
		return &query.TermOrVariable{Term: rdf.NewNamedNode("http://www.w3.org/1999/02/22-rdf-syntax-ns#type")}, nil
	}

	if ch == ':' || isNameStart(ch) {
		iri, err := p.parsePrefixedName()
		if err != nil {
			return nil, err
		}
		return &query.TermOrVariable{Term: rdf.NewNamedNode(iri)}, nil
	}

	return nil, fmt.Errorf("unexpected character %q", ch)
}

// parseVariable parses ?name or $name, interning it in the query's variable
// table so that repeated occurrences share one instance.
func (p *Parser) parseVariable() (*query.Variable, error) {
	p.skipWhitespace()
	if p.peek() != '?' && p.peek() != '$' {
		return nil, fmt.Errorf("expected variable starting with ? or $")
	}
	p.advance()

	name := p.readWhile(isNameChar)
	if name == "" {
		return nil, fmt.Errorf("invalid variable name")
	}
	return p.q.Vars.Declare(name), nil
}

func (p *Parser) parseIRI() (string, error) {
	if err := p.expect('<'); err != nil {
		return "", fmt.Errorf("expected '<' to start IRI: %w", err)
	}
	iri := p.readWhile(func(ch byte) bool { return ch != '>' })
	if err := p.expect('>'); err != nil {
		return "", fmt.Errorf("unterminated IRI")
	}
	return p.resolveIRI(iri), nil
}

// parseStringLiteral parses a quoted string with its optional language tag or
// datatype suffix.
func (p *Parser) parseStringLiteral() (*rdf.Literal, error) {
	quote := p.peek()
	if quote != '"' && quote != '\'' {
		return nil, fmt.Errorf("expected quote to start string literal")
	}
	p.advance()

	var value strings.Builder
	for p.pos < p.length && p.input[p.pos] != quote {
		ch := p.input[p.pos]
		if ch == '\\' && p.pos+1 < p.length {
			p.advance()
			switch p.input[p.pos] {
			case 'n':
				value.WriteByte('\n')
			case 't':
				value.WriteByte('\t')
			case 'r':
				value.WriteByte('\r')
			default:
				value.WriteByte(p.input[p.pos])
			}
			p.advance()
			continue
		}
		value.WriteByte(ch)
		p.advance()
	}
	if err := p.expect(quote); err != nil {
		return nil, fmt.Errorf("unterminated string literal")
	}

	if p.peek() == '@' {
		p.advance()
		lang := p.readWhile(func(ch byte) bool {
			return isNameStart(ch) || (ch >= '0' && ch <= '9') || ch == '-'
		})
		return rdf.NewLiteralWithLanguage(value.String(), lang), nil
	}

	if p.peek() == '^' && p.peekAt(1) == '^' {
		p.advance()
		p.advance()
		var dt string
		var err error
		if p.peek() == '<' {
			dt, err = p.parseIRI()
		} else {
			dt, err = p.parsePrefixedName()
		}
		if err != nil {
			return nil, fmt.Errorf("invalid datatype: %w", err)
		}
		return rdf.NewLiteralWithDatatype(value.String(), rdf.NewNamedNode(dt)), nil
	}

	return rdf.NewLiteral(value.String()), nil
}

func (p *Parser) parseBlankNode() (*rdf.BlankNode, error) {
	if err := p.expect('_'); err != nil {
		return nil, err
	}
	if err := p.expect(':'); err != nil {
		return nil, fmt.Errorf("expected ':' after '_' in blank node")
	}
	id := p.readWhile(isNameChar)
	return rdf.NewBlankNode(id), nil
}

func (p *Parser) parseNumericLiteral() (*rdf.Literal, error) {
	numStr := p.readWhile(func(ch byte) bool {
		return (ch >= '0' && ch <= '9') || ch == '.' || ch == '-' || ch == '+' || ch == 'e' || ch == 'E'
	})
	if !strings.ContainsAny(numStr, ".eE") {
		if _, err := strconv.ParseInt(numStr, 10, 64); err == nil {
			return rdf.NewLiteralWithDatatype(numStr, rdf.XSDInteger), nil
		}
	}
	if _, err := strconv.ParseFloat(numStr, 64); err != nil {
		return nil, fmt.Errorf("invalid numeric literal %q", numStr)
	}
	return rdf.NewLiteralWithDatatype(numStr, rdf.XSDDouble), nil
}

// parseConstraint parses a FILTER or HAVING condition: a parenthesized
// expression or a bare function call.
func (p *Parser) parseConstraint() (query.Expression, error) {
	p.skipWhitespace()

	if p.peek() == '(' {
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, fmt.Errorf("expected ')' after constraint")
		}
		return expr, nil
	}
	return p.parseFunctionCall()
}

// parseBind parses (expr AS ?var) after the BIND keyword.
func (p *Parser) parseBind() (*query.Variable, query.Expression, error) {
	if err := p.expect('('); err != nil {
		return nil, nil, fmt.Errorf("expected '(' after BIND")
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, nil, err
	}
	if !p.matchKeyword("AS") {
		return nil, nil, fmt.Errorf("expected AS in BIND")
	}
	v, err := p.parseVariable()
	if err != nil {
		return nil, nil, err
	}
	if err := p.expect(')'); err != nil {
		return nil, nil, fmt.Errorf("expected ')' to close BIND")
	}
	return v, expr, nil
}

// parseValuesBlock parses the two VALUES forms:
//
//	VALUES ?x { v1 v2 ... }
//	VALUES (?x ?y) { (v1 v2) (UNDEF v3) ... }
func (p *Parser) parseValuesBlock() (*query.Bindings, error) {
	p.skipWhitespace()

	var vars []*query.Variable
	single := false

	if p.peek() == '(' {
		p.advance()
		for {
			p.skipWhitespace()
			if p.peek() == ')' {
				p.advance()
				break
			}
			v, err := p.parseVariable()
			if err != nil {
				return nil, err
			}
			vars = append(vars, v)
		}
	} else {
		v, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		vars = append(vars, v)
		single = true
	}

	bindings := query.NewBindings(vars)

	if err := p.expect('{'); err != nil {
		return nil, fmt.Errorf("expected '{' to start VALUES data")
	}
	for {
		p.skipWhitespace()
		if p.peek() == '}' {
			p.advance()
			return bindings, nil
		}
		if p.pos >= p.length {
			return nil, fmt.Errorf("unterminated VALUES block")
		}

		if single {
			value, err := p.parseDataValue()
			if err != nil {
				return nil, err
			}
			bindings.AddRow([]rdf.Term{value})
			continue
		}

		if err := p.expect('('); err != nil {
			return nil, fmt.Errorf("expected '(' to start VALUES row")
		}
		row := make([]rdf.Term, 0, len(vars))
		for {
			p.skipWhitespace()
			if p.peek() == ')' {
				p.advance()
				break
			}
			value, err := p.parseDataValue()
			if err != nil {
				return nil, err
			}
			row = append(row, value)
		}
		if len(row) != len(vars) {
			return nil, fmt.Errorf("VALUES row has %d values, expected %d", len(row), len(vars))
		}
		bindings.AddRow(row)
	}
}

// parseDataValue parses one VALUES entry: a term or UNDEF (returned as nil).
func (p *Parser) parseDataValue() (rdf.Term, error) {
	if p.matchKeyword("UNDEF") {
		return nil, nil
	}
	tv, err := p.parseTermOrVariable()
	if err != nil {
		return nil, err
	}
	if tv.IsVariable() {
		return nil, fmt.Errorf("variables are not allowed in VALUES data")
	}
	return tv.Term, nil
}

// parseGroupBy parses the GROUP BY condition list: variables or
// parenthesized expressions.
func (p *Parser) parseGroupBy() ([]query.Expression, error) {
	var conditions []query.Expression
	for {
		p.skipWhitespace()
		ch := p.peek()

		if ch == '?' || ch == '$' {
			v, err := p.parseVariable()
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, &query.VariableExpression{Variable: v})
			continue
		}
		if ch == '(' {
			p.advance()
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expect(')'); err != nil {
				return nil, fmt.Errorf("expected ')' in GROUP BY")
			}
			conditions = append(conditions, expr)
			continue
		}
		if isNameStart(ch) && !p.atClauseKeyword() {
			expr, err := p.parseFunctionCall()
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, expr)
			continue
		}
		break
	}
	if len(conditions) == 0 {
		return nil, fmt.Errorf("expected at least one GROUP BY condition")
	}
	return conditions, nil
}

// parseHaving parses one or more HAVING constraints.
func (p *Parser) parseHaving() ([]query.Expression, error) {
	var exprs []query.Expression
	for {
		p.skipWhitespace()
		ch := p.peek()
		if ch != '(' && !(isNameStart(ch) && !p.atClauseKeyword()) {
			break
		}
		expr, err := p.parseConstraint()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
	}
	if len(exprs) == 0 {
		return nil, fmt.Errorf("expected at least one HAVING condition")
	}
	return exprs, nil
}

// parseOrderBy parses ORDER BY conditions: ASC(expr), DESC(expr), variables,
// or bare function calls.
func (p *Parser) parseOrderBy() ([]*query.OrderCondition, error) {
	var conditions []*query.OrderCondition
	for {
		p.skipWhitespace()

		ascending := true
		directed := false
		if p.matchKeyword("DESC") {
			ascending = false
			directed = true
		} else if p.matchKeyword("ASC") {
			directed = true
		}

		p.skipWhitespace()
		ch := p.peek()

		var expr query.Expression
		var err error
		switch {
		case ch == '(':
			p.advance()
			expr, err = p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expect(')'); err != nil {
				return nil, fmt.Errorf("expected ')' in ORDER BY")
			}
		case ch == '?' || ch == '$':
			v, verr := p.parseVariable()
			if verr != nil {
				return nil, verr
			}
			expr = &query.VariableExpression{Variable: v}
		case isNameStart(ch) && !p.atClauseKeyword():
			expr, err = p.parseFunctionCall()
			if err != nil {
				return nil, err
			}
		default:
			if directed {
				return nil, fmt.Errorf("expected expression after ASC/DESC")
			}
			if len(conditions) == 0 {
				return nil, fmt.Errorf("expected at least one ORDER BY condition")
			}
			return conditions, nil
		}

		conditions = append(conditions, &query.OrderCondition{Expression: expr, Ascending: ascending})
	}
}

// atClauseKeyword reports whether the cursor sits on a keyword that ends the
// current condition list, without consuming it.
func (p *Parser) atClauseKeyword() bool {
	saved := p.pos
	defer func() { p.pos = saved }()
	for _, kw := range []string{"GROUP", "HAVING", "ORDER", "LIMIT", "OFFSET", "VALUES"} {
		if p.matchKeyword(kw) {
			return true
		}
	}
	return false
}

func (p *Parser) parseInteger() (int, error) {
	p.skipWhitespace()
	numStr := p.readWhile(func(ch byte) bool { return ch >= '0' && ch <= '9' })
	if numStr == "" {
		return 0, fmt.Errorf("expected integer")
	}
	return strconv.Atoi(numStr)
}

// Expression parsing, by descending precedence:
//
//	Expression   → Or
//	Or           → And ( '||' And )*
//	And          → Comparison ( '&&' Comparison )*
//	Comparison   → Additive ( cmp-op Additive | [NOT] IN value-list )?
//	Additive     → Multiplicative ( ('+' | '-') Multiplicative )*
//	Multiplicative → Unary ( ('*' | '/') Unary )*
//	Unary        → ('!' | '-' | '+')? Primary
//	Primary      → Variable | Literal | FunctionCall | '(' Expression ')'
func (p *Parser) parseExpression() (query.Expression, error) {
	return p.parseOrExpression()
}

func (p *Parser) parseOrExpression() (query.Expression, error) {
	left, err := p.parseAndExpression()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if !p.match("||") {
			return left, nil
		}
		right, err := p.parseAndExpression()
		if err != nil {
			return nil, err
		}
		left = &query.BinaryExpression{Left: left, Operator: query.OpOr, Right: right}
	}
}

func (p *Parser) parseAndExpression() (query.Expression, error) {
	left, err := p.parseComparisonExpression()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if !p.match("&&") {
			return left, nil
		}
		right, err := p.parseComparisonExpression()
		if err != nil {
			return nil, err
		}
		left = &query.BinaryExpression{Left: left, Operator: query.OpAnd, Right: right}
	}
}

func (p *Parser) parseComparisonExpression() (query.Expression, error) {
	left, err := p.parseAdditiveExpression()
	if err != nil {
		return nil, err
	}
	p.skipWhitespace()

	// IN and NOT IN desugar into equality chains.
	saved := p.pos
	notIn := false
	if p.matchKeyword("NOT") {
		if p.matchKeyword("IN") {
			notIn = true
		} else {
			p.pos = saved
		}
	}
	if notIn || p.matchKeyword("IN") {
		return p.parseInList(left, notIn)
	}

	var op query.Operator
	switch {
	case p.match("<="):
		op = query.OpLessThanOrEqual
	case p.match(">="):
		op = query.OpGreaterThanOrEqual
	case p.match("!="):
		op = query.OpNotEqual
	case p.match("="):
		op = query.OpEqual
	case p.match("<"):
		op = query.OpLessThan
	case p.match(">"):
		op = query.OpGreaterThan
	default:
		return left, nil
	}

	right, err := p.parseAdditiveExpression()
	if err != nil {
		return nil, err
	}
	return &query.BinaryExpression{Left: left, Operator: op, Right: right}, nil
}

// parseInList finishes [NOT] IN ( e1, e2, ... ) as a chain of equality
// comparisons. An empty IN list is constant false, an empty NOT IN constant
// true.
func (p *Parser) parseInList(left query.Expression, negated bool) (query.Expression, error) {
	if err := p.expect('('); err != nil {
		return nil, fmt.Errorf("expected '(' after IN")
	}

	var result query.Expression
	p.skipWhitespace()
	if p.peek() != ')' {
		for {
			value, err := p.parseAdditiveExpression()
			if err != nil {
				return nil, fmt.Errorf("failed to parse IN value: %w", err)
			}
			eq := &query.BinaryExpression{Left: left, Operator: query.OpEqual, Right: value}
			if result == nil {
				result = eq
			} else {
				result = &query.BinaryExpression{Left: result, Operator: query.OpOr, Right: eq}
			}

			p.skipWhitespace()
			if p.peek() != ',' {
				break
			}
			p.advance()
		}
	}
	if err := p.expect(')'); err != nil {
		return nil, fmt.Errorf("expected ')' after IN list")
	}

	if result == nil {
		if negated {
			return query.ConstantTrue, nil
		}
		return query.ConstantFalse, nil
	}
	if negated {
		return &query.UnaryExpression{Operator: query.OpNot, Operand: result}, nil
	}
	return result, nil
}

func (p *Parser) parseAdditiveExpression() (query.Expression, error) {
	left, err := p.parseMultiplicativeExpression()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		var op query.Operator
		switch {
		case p.match("+"):
			op = query.OpAdd
		case p.match("-"):
			op = query.OpSubtract
		default:
			return left, nil
		}
		right, err := p.parseMultiplicativeExpression()
		if err != nil {
			return nil, err
		}
		left = &query.BinaryExpression{Left: left, Operator: op, Right: right}
	}
}

func (p *Parser) parseMultiplicativeExpression() (query.Expression, error) {
	left, err := p.parseUnaryExpression()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		var op query.Operator
		switch {
		case p.match("*"):
			op = query.OpMultiply
		case p.match("/"):
			op = query.OpDivide
		default:
			return left, nil
		}
		right, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		left = &query.BinaryExpression{Left: left, Operator: op, Right: right}
	}
}

func (p *Parser) parseUnaryExpression() (query.Expression, error) {
	p.skipWhitespace()

	if p.match("!") {
		operand, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &query.UnaryExpression{Operator: query.OpNot, Operand: operand}, nil
	}
	if p.match("+") {
		return p.parseUnaryExpression()
	}
	if p.match("-") {
		operand, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &query.UnaryExpression{Operator: query.OpSubtract, Operand: operand}, nil
	}
	return p.parsePrimaryExpression()
}

func (p *Parser) parsePrimaryExpression() (query.Expression, error) {
	p.skipWhitespace()

	saved := p.pos
	if p.matchKeyword("TRUE") {
		return &query.LiteralExpression{Literal: rdf.NewBooleanLiteral(true)}, nil
	}
	p.pos = saved
	if p.matchKeyword("FALSE") {
		return &query.LiteralExpression{Literal: rdf.NewBooleanLiteral(false)}, nil
	}
	p.pos = saved

	if p.peek() == '(' {
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, fmt.Errorf("expected ')' after expression")
		}
		return expr, nil
	}

	if p.peek() == '?' || p.peek() == '$' {
		v, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		return &query.VariableExpression{Variable: v}, nil
	}

	ch := p.peek()
	if isNameStart(ch) {
		// A name followed by '(' is a function call, otherwise a term.
		saved := p.pos
		_ = p.readWhile(func(c byte) bool { return isNameChar(c) || c == ':' })
		p.skipWhitespace()
		isCall := p.peek() == '('
		p.pos = saved
		if isCall {
			return p.parseFunctionCall()
		}
	}

	tv, err := p.parseTermOrVariable()
	if err != nil {
		return nil, fmt.Errorf("expected expression: %w", err)
	}
	if tv.IsVariable() {
		return &query.VariableExpression{Variable: tv.Variable}, nil
	}
	return &query.LiteralExpression{Literal: tv.Term}, nil
}

var aggregateFuncs = map[string]query.AggregateFunc{
	"COUNT":        query.AggCount,
	"SUM":          query.AggSum,
	"AVG":          query.AggAvg,
	"MIN":          query.AggMin,
	"MAX":          query.AggMax,
	"SAMPLE":       query.AggSample,
	"GROUP_CONCAT": query.AggGroupConcat,
}

// parseFunctionCall parses name(args...). Aggregate names produce aggregate
// expressions with their DISTINCT flag and GROUP_CONCAT separator.
func (p *Parser) parseFunctionCall() (query.Expression, error) {
	p.skipWhitespace()

	name := p.readWhile(func(c byte) bool { return isNameChar(c) || c == ':' })
	if name == "" {
		return nil, fmt.Errorf("expected function name")
	}

	if strings.Contains(name, ":") {
		parts := strings.SplitN(name, ":", 2)
		if ns, ok := p.prefixes[parts[0]]; ok {
			name = ns + parts[1]
		}
	}

	if agg, ok := aggregateFuncs[strings.ToUpper(name)]; ok {
		return p.parseAggregate(agg)
	}

	if err := p.expect('('); err != nil {
		return nil, fmt.Errorf("expected '(' after function name %q", name)
	}

	var args []query.Expression
	p.skipWhitespace()
	if p.peek() != ')' {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, fmt.Errorf("error parsing argument of %s: %w", name, err)
			}
			args = append(args, arg)

			p.skipWhitespace()
			if p.peek() != ',' {
				break
			}
			p.advance()
		}
	}
	if err := p.expect(')'); err != nil {
		return nil, fmt.Errorf("expected ')' after arguments of %s", name)
	}

	return &query.FunctionCallExpression{Function: strings.ToUpper(name), Arguments: args}, nil
}

// parseAggregate parses the argument list of an aggregate call, the function
// name already consumed.
func (p *Parser) parseAggregate(fn query.AggregateFunc) (query.Expression, error) {
	if err := p.expect('('); err != nil {
		return nil, fmt.Errorf("expected '(' after aggregate name")
	}

	agg := &query.AggregateExpression{Function: fn}

	if p.matchKeyword("DISTINCT") {
		agg.Distinct = true
	}

	p.skipWhitespace()
	if p.peek() == '*' {
		if fn != query.AggCount {
			return nil, fmt.Errorf("only COUNT accepts *")
		}
		p.advance()
	} else {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, fmt.Errorf("error parsing aggregate argument: %w", err)
		}
		agg.Argument = arg
	}

	p.skipWhitespace()
	if p.peek() == ';' {
		p.advance()
		if !p.matchKeyword("SEPARATOR") {
			return nil, fmt.Errorf("expected SEPARATOR after ';' in aggregate")
		}
		p.skipWhitespace()
		if err := p.expect('='); err != nil {
			return nil, fmt.Errorf("expected '=' after SEPARATOR")
		}
		p.skipWhitespace()
		sep, err := p.parseStringLiteral()
		if err != nil {
			return nil, err
		}
		agg.Separator = sep.Value
	}

	if err := p.expect(')'); err != nil {
		return nil, fmt.Errorf("expected ')' to close aggregate")
	}
	return agg, nil
}

// Cursor helpers.

func (p *Parser) peek() byte {
	if p.pos >= p.length {
		return 0
	}
	return p.input[p.pos]
}

func (p *Parser) peekAt(offset int) byte {
	if p.pos+offset >= p.length {
		return 0
	}
	return p.input[p.pos+offset]
}

func (p *Parser) advance() {
	if p.pos < p.length {
		p.pos++
	}
}

func (p *Parser) expect(ch byte) error {
	p.skipWhitespace()
	if p.peek() != ch {
		return fmt.Errorf("expected %q, got %q", ch, p.rest(10))
	}
	p.advance()
	return nil
}

func (p *Parser) rest(n int) string {
	end := p.pos + n
	if end > p.length {
		end = p.length
	}
	if p.pos >= p.length {
		return "<end of input>"
	}
	return p.input[p.pos:end]
}

func (p *Parser) skipWhitespace() {
	for p.pos < p.length {
		ch := p.input[p.pos]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			p.pos++
			continue
		}
		if ch == '#' {
			for p.pos < p.length && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		break
	}
}

func (p *Parser) readWhile(predicate func(byte) bool) string {
	start := p.pos
	for p.pos < p.length && predicate(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *Parser) match(s string) bool {
	if p.pos+len(s) > p.length || p.input[p.pos:p.pos+len(s)] != s {
		return false
	}
	p.pos += len(s)
	return true
}

var keywordPatterns = map[string]*regexp.Regexp{}

func (p *Parser) matchKeyword(keyword string) bool {
	p.skipWhitespace()

	re, ok := keywordPatterns[keyword]
	if !ok {
		re = regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(keyword) + `\b`)
		keywordPatterns[keyword] = re
	}
	if re.MatchString(p.input[p.pos:]) {
		p.pos += len(keyword)
		return true
	}
	return false
}

func isNameStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isNameChar(ch byte) bool {
	return isNameStart(ch) || (ch >= '0' && ch <= '9') || ch == '_'
}

func (p *Parser) parsePrefix() error {
	p.skipWhitespace()
	prefix := p.readWhile(func(ch byte) bool { return ch != ':' && ch != ' ' && ch != '<' })
	if err := p.expect(':'); err != nil {
		return fmt.Errorf("expected ':' in PREFIX declaration")
	}
	iri, err := p.parseIRI()
	if err != nil {
		return err
	}
	p.prefixes[prefix] = iri
	return nil
}

func (p *Parser) parseBase() error {
	p.skipWhitespace()
	if p.peek() != '<' {
		return fmt.Errorf("expected '<' in BASE declaration")
	}
	p.advance()
	iri := p.readWhile(func(ch byte) bool { return ch != '>' })
	if err := p.expect('>'); err != nil {
		return fmt.Errorf("unterminated BASE IRI")
	}
	p.baseURI = iri
	return nil
}

// parsePrefixedName expands prefix:local to a full IRI.
func (p *Parser) parsePrefixedName() (string, error) {
	prefix := p.readWhile(func(ch byte) bool {
		return isNameChar(ch) || ch == '-'
	})
	if err := p.expect(':'); err != nil {
		return "", fmt.Errorf("expected ':' in prefixed name")
	}
	local := p.readWhile(func(ch byte) bool {
		return isNameChar(ch) || ch == '-' || ch == '.'
	})

	base, ok := p.prefixes[prefix]
	if !ok {
		return "", fmt.Errorf("undefined prefix %q", prefix)
	}
	return base + local, nil
}

// resolveIRI resolves a relative IRI against the BASE declaration.
func (p *Parser) resolveIRI(iri string) string {
	if p.baseURI == "" || strings.Contains(iri, "://") || strings.HasPrefix(iri, "urn:") {
		return iri
	}
	return p.baseURI + iri
}
