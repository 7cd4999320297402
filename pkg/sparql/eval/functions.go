package eval

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

func (e *Evaluator) evaluateFunction(expr *query.FunctionCallExpression, ctx Context) (rdf.Term, error) {
	name := strings.ToUpper(expr.Function)

	// BOUND takes an unevaluated variable argument.
	if name == "BOUND" {
		if len(expr.Arguments) != 1 {
			return nil, fmt.Errorf("BOUND expects 1 argument")
		}
		ve, ok := expr.Arguments[0].(*query.VariableExpression)
		if !ok {
			return nil, fmt.Errorf("BOUND expects a variable argument")
		}
		return rdf.NewBooleanLiteral(ctx.Value(ve.Variable) != nil), nil
	}

	args := make([]rdf.Term, len(expr.Arguments))
	for i, a := range expr.Arguments {
		v, err := e.Evaluate(a, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch name {
	case "STR":
		return fnStr(args)
	case "LANG":
		return fnLang(args)
	case "DATATYPE":
		return fnDatatype(args)
	case "ISIRI", "ISURI":
		return fnTypeCheck(args, rdf.TermTypeNamedNode)
	case "ISBLANK":
		return fnTypeCheck(args, rdf.TermTypeBlankNode)
	case "ISLITERAL":
		return fnTypeCheck(args, rdf.TermTypeLiteral)
	case "ISNUMERIC":
		return fnIsNumeric(args)
	case "STRLEN":
		return fnStrlen(args)
	case "UCASE":
		return fnCase(args, strings.ToUpper)
	case "LCASE":
		return fnCase(args, strings.ToLower)
	case "CONTAINS":
		return fnContains(args)
	case "STRSTARTS":
		return fnStringPair(args, strings.HasPrefix)
	case "STRENDS":
		return fnStringPair(args, strings.HasSuffix)
	case "CONCAT":
		return fnConcat(args)
	case "ABS":
		return fnNumeric1(args, math.Abs)
	case "CEIL":
		return fnNumeric1(args, math.Ceil)
	case "FLOOR":
		return fnNumeric1(args, math.Floor)
	case "ROUND":
		return fnNumeric1(args, math.Round)
	case "REGEX":
		return fnRegex(args)
	default:
		return nil, fmt.Errorf("unsupported function: %s", expr.Function)
	}
}

func oneLiteral(args []rdf.Term, fn string) (*rdf.Literal, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%s expects 1 argument", fn)
	}
	lit, ok := args[0].(*rdf.Literal)
	if !ok {
		return nil, fmt.Errorf("%s expects a literal", fn)
	}
	return lit, nil
}

func fnStr(args []rdf.Term) (rdf.Term, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("STR expects 1 argument")
	}
	switch t := args[0].(type) {
	case *rdf.NamedNode:
		return rdf.NewLiteral(t.IRI), nil
	case *rdf.Literal:
		return rdf.NewLiteral(t.Value), nil
	default:
		return nil, fmt.Errorf("STR of %s", args[0])
	}
}

func fnLang(args []rdf.Term) (rdf.Term, error) {
	lit, err := oneLiteral(args, "LANG")
	if err != nil {
		return nil, err
	}
	return rdf.NewLiteral(lit.Language), nil
}

func fnDatatype(args []rdf.Term) (rdf.Term, error) {
	lit, err := oneLiteral(args, "DATATYPE")
	if err != nil {
		return nil, err
	}
	switch {
	case lit.Language != "":
		return rdf.NewNamedNode("http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"), nil
	case lit.Datatype != nil:
		return lit.Datatype, nil
	default:
		return rdf.XSDString, nil
	}
}

func fnTypeCheck(args []rdf.Term, want rdf.TermType) (rdf.Term, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("type check expects 1 argument")
	}
	return rdf.NewBooleanLiteral(args[0].Type() == want), nil
}

func fnIsNumeric(args []rdf.Term) (rdf.Term, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("ISNUMERIC expects 1 argument")
	}
	lit, ok := args[0].(*rdf.Literal)
	return rdf.NewBooleanLiteral(ok && lit.IsNumeric()), nil
}

func fnStrlen(args []rdf.Term) (rdf.Term, error) {
	lit, err := oneLiteral(args, "STRLEN")
	if err != nil {
		return nil, err
	}
	return rdf.NewIntegerLiteral(int64(len([]rune(lit.Value)))), nil
}

func fnCase(args []rdf.Term, transform func(string) string) (rdf.Term, error) {
	lit, err := oneLiteral(args, "UCASE/LCASE")
	if err != nil {
		return nil, err
	}
	out := *lit
	out.Value = transform(lit.Value)
	return &out, nil
}

func fnContains(args []rdf.Term) (rdf.Term, error) {
	return fnStringPair(args, strings.Contains)
}

func fnStringPair(args []rdf.Term, pred func(string, string) bool) (rdf.Term, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("string function expects 2 arguments")
	}
	a, aok := args[0].(*rdf.Literal)
	b, bok := args[1].(*rdf.Literal)
	if !aok || !bok {
		return nil, fmt.Errorf("string function expects literal arguments")
	}
	return rdf.NewBooleanLiteral(pred(a.Value, b.Value)), nil
}

func fnConcat(args []rdf.Term) (rdf.Term, error) {
	var sb strings.Builder
	for _, a := range args {
		lit, ok := a.(*rdf.Literal)
		if !ok {
			return nil, fmt.Errorf("CONCAT expects literal arguments")
		}
		sb.WriteString(lit.Value)
	}
	return rdf.NewLiteral(sb.String()), nil
}

func fnNumeric1(args []rdf.Term, fn func(float64) float64) (rdf.Term, error) {
	lit, err := oneLiteral(args, "numeric function")
	if err != nil {
		return nil, err
	}
	v, ok := lit.NumericValue()
	if !ok {
		return nil, fmt.Errorf("numeric function on non-numeric %s", lit)
	}
	result := fn(v)
	if lit.Datatype != nil && lit.Datatype.IRI == rdf.XSDInteger.IRI {
		return rdf.NewIntegerLiteral(int64(result)), nil
	}
	return rdf.NewDoubleLiteral(result), nil
}

func fnRegex(args []rdf.Term) (rdf.Term, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, fmt.Errorf("REGEX expects 2 or 3 arguments")
	}
	text, tok := args[0].(*rdf.Literal)
	pattern, pok := args[1].(*rdf.Literal)
	if !tok || !pok {
		return nil, fmt.Errorf("REGEX expects literal arguments")
	}
	expr := pattern.Value
	if len(args) == 3 {
		flags, ok := args[2].(*rdf.Literal)
		if !ok {
			return nil, fmt.Errorf("REGEX flags must be a literal")
		}
		if strings.Contains(flags.Value, "i") {
			expr = "(?i)" + expr
		}
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid REGEX pattern: %w", err)
	}
	return rdf.NewBooleanLiteral(re.MatchString(text.Value)), nil
}
