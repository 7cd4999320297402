package query

// Variable represents a SPARQL variable declared in a query
type Variable struct {
	Name string
	// Internal marks compiler-minted variables (aggregate targets) that
	// never appear in query text.
	Internal bool
}

func (v *Variable) String() string {
	return "?" + v.Name
}

// VarTable is the query-wide catalog of declared variables. It is append-only
// during parsing and compilation and read-only during execution. Variables are
// interned: the same name always yields the same *Variable.
type VarTable struct {
	vars   []*Variable
	byName map[string]*Variable
}

// NewVarTable creates an empty variable table
func NewVarTable() *VarTable {
	return &VarTable{byName: make(map[string]*Variable)}
}

// Declare returns the variable with the given name, adding it to the table if
// it is not yet known.
func (t *VarTable) Declare(name string) *Variable {
	if v, ok := t.byName[name]; ok {
		return v
	}
	v := &Variable{Name: name}
	t.byName[name] = v
	t.vars = append(t.vars, v)
	return v
}

// DeclareInternal returns the internal variable with the given name, adding
// it to the table on first use. Interning by name keeps repeated compilation
// of the same query on the same variables. The name must not be held by a
// query-text variable; callers check with Lookup first.
func (t *VarTable) DeclareInternal(name string) *Variable {
	if v, ok := t.byName[name]; ok {
		return v
	}
	v := &Variable{Name: name, Internal: true}
	t.byName[name] = v
	t.vars = append(t.vars, v)
	return v
}

// Lookup returns the variable with the given name, or nil if undeclared.
func (t *VarTable) Lookup(name string) *Variable {
	return t.byName[name]
}

// Len returns the number of declared variables.
func (t *VarTable) Len() int {
	return len(t.vars)
}

// At returns the variable at the given declaration offset.
func (t *VarTable) At(i int) *Variable {
	return t.vars[i]
}
