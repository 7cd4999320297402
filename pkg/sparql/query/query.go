package query

// Query represents one parsed SPARQL query: the variable catalog, the shared
// triple-pattern list that basic patterns index into, and the top-level
// SELECT. The triple list is append-only during parsing and never mutated
// afterwards.
type Query struct {
	Vars    *VarTable
	Triples []*TriplePattern
	Select  *SelectQuery
}

// NewQuery creates an empty query with a fresh variable table.
func NewQuery() *Query {
	return &Query{Vars: NewVarTable()}
}

// AddTriple appends a triple pattern to the shared list and returns its index.
func (q *Query) AddTriple(tp *TriplePattern) int {
	q.Triples = append(q.Triples, tp)
	return len(q.Triples) - 1
}

// SelectColumn is one projected column: either a plain variable or an
// expression bound to a variable (SELECT (expr AS ?v)).
type SelectColumn struct {
	Var  *Variable
	Expr Expression // nil for a plain variable column
}

// OrderCondition represents an ORDER BY condition
type OrderCondition struct {
	Expression Expression
	Ascending  bool
}

// SelectQuery carries a SELECT's projection, WHERE pattern, and solution
// modifiers. It serves both top-level queries and nested sub-selects.
type SelectQuery struct {
	Columns  []*SelectColumn // nil means SELECT *
	Distinct bool
	Reduced  bool
	Where    *GraphPattern
	GroupBy  []Expression
	Having   []Expression
	OrderBy  []*OrderCondition
	Limit    *int
	Offset   *int
	Values   *Bindings // inline VALUES attached to this SELECT
}

// ProjectedVars returns the variables of the projection in column order.
// Expression columns contribute their target variable.
func (s *SelectQuery) ProjectedVars() []*Variable {
	vars := make([]*Variable, 0, len(s.Columns))
	for _, c := range s.Columns {
		vars = append(vars, c.Var)
	}
	return vars
}
