package engine

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/aleksaelezovic/quercus/pkg/sparql/algebra"
	"github.com/aleksaelezovic/quercus/pkg/sparql/parser"
	"github.com/aleksaelezovic/quercus/pkg/sparql/query"
)

// Result is a fully drained query: the output schema and the rows in
// pipeline order.
type Result struct {
	Vars []*query.Variable
	Rows []*Row
}

// Run parses, compiles, and executes one SELECT query against the given
// store. client may be nil when the query uses no SERVICE clause.
func Run(queryText string, store Matcher, client ServiceClient, log *logrus.Logger) (*Result, error) {
	q, err := parser.NewParser(queryText).Parse()
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	node, err := algebra.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	rt := &Runtime{Store: store, Service: client, Query: q, Log: log}
	rs, err := Build(node, rt)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	rows, err := ReadAll(rs)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	return &Result{Vars: rs.Vars(), Rows: rows}, nil
}
