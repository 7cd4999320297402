package store

import (
	"fmt"

	"github.com/aleksaelezovic/quercus/pkg/rdf"
)

// Pattern is a quad pattern with optional variables. A nil Graph matches the
// default graph only.
type Pattern struct {
	Subject   any // rdf.Term or *Variable
	Predicate any // rdf.Term or *Variable
	Object    any // rdf.Term or *Variable
	Graph     any // rdf.Term or *Variable, nil for the default graph
}

// Variable marks an unbound position in a Pattern.
type Variable struct {
	Name string
}

func NewVariable(name string) *Variable {
	return &Variable{Name: name}
}

func (v *Variable) String() string {
	return "?" + v.Name
}

// QuadIterator iterates over quads matching a pattern. The caller must Close
// it to release the underlying transaction.
type QuadIterator interface {
	Next() bool
	Quad() (*rdf.Quad, error)
	Close() error
}

// Query scans the best-fitting index for quads matching pattern.
func (s *TripleStore) Query(pattern *Pattern) (QuadIterator, error) {
	txn, err := s.storage.Begin(false)
	if err != nil {
		return nil, err
	}

	idx := selectIndex(pattern)

	prefix, err := s.buildScanPrefix(pattern, idx)
	if err != nil {
		_ = txn.Rollback()
		return nil, err
	}

	it, err := txn.Scan(idx.table, prefix, nil)
	if err != nil {
		_ = txn.Rollback()
		return nil, err
	}

	s.log.WithFields(logFields(idx, prefix)).Trace("pattern scan")

	return &quadIterator{
		store: s,
		txn:   txn,
		it:    it,
		idx:   idx,
	}, nil
}

func logFields(idx indexSpec, prefix []byte) map[string]any {
	return map[string]any{"index": idx.table.String(), "prefix_len": len(prefix)}
}

// selectIndex picks the index whose key order puts the pattern's bound
// positions first, so that they become a contiguous scan prefix.
func selectIndex(pattern *Pattern) indexSpec {
	sBound := !isVariable(pattern.Subject)
	pBound := !isVariable(pattern.Predicate)
	oBound := !isVariable(pattern.Object)
	gBound := pattern.Graph != nil && !isVariable(pattern.Graph)

	if !gBound {
		switch {
		case sBound:
			return defaultGraphIndexes[0] // spo
		case pBound:
			return defaultGraphIndexes[1] // pos
		case oBound:
			return defaultGraphIndexes[2] // osp
		default:
			return defaultGraphIndexes[0]
		}
	}

	switch {
	case sBound:
		return indexSpec{TableGSPO, []int{3, 0, 1, 2}}
	case pBound:
		return indexSpec{TableGPOS, []int{3, 1, 2, 0}}
	case oBound:
		return indexSpec{TableGOSP, []int{3, 2, 0, 1}}
	default:
		return indexSpec{TableGSPO, []int{3, 0, 1, 2}}
	}
}

// buildScanPrefix encodes the leading bound positions of the pattern in the
// index's key order. The prefix ends at the first unbound position.
func (s *TripleStore) buildScanPrefix(pattern *Pattern, idx indexSpec) ([]byte, error) {
	positions := [4]any{pattern.Subject, pattern.Predicate, pattern.Object, pattern.Graph}
	if positions[3] == nil {
		positions[3] = rdf.NewDefaultGraph()
	}

	var prefix []byte
	for _, pos := range idx.order {
		value := positions[pos]
		if isVariable(value) {
			break
		}
		encoded, _, err := s.encoder.EncodeTerm(value.(rdf.Term))
		if err != nil {
			return nil, err
		}
		prefix = append(prefix, encoded[:]...)
	}
	return prefix, nil
}

func isVariable(v any) bool {
	_, ok := v.(*Variable)
	return ok
}

type quadIterator struct {
	store  *TripleStore
	txn    Transaction
	it     Iterator
	idx    indexSpec
	closed bool
}

func (qi *quadIterator) Next() bool {
	if qi.closed {
		return false
	}
	return qi.it.Next()
}

func (qi *quadIterator) Quad() (*rdf.Quad, error) {
	if qi.closed {
		return nil, fmt.Errorf("iterator closed")
	}

	key := qi.it.Key()
	if key == nil {
		return nil, fmt.Errorf("no current key")
	}
	const size = 17
	if len(key) < len(qi.idx.order)*size {
		return nil, fmt.Errorf("invalid key length: %d", len(key))
	}

	// Map the key columns back to S, P, O, G positions.
	var positions [4]EncodedTerm
	for i, pos := range qi.idx.order {
		copy(positions[pos][:], key[i*size:(i+1)*size])
	}

	subject, err := qi.store.decodeTerm(qi.txn, positions[0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode subject: %w", err)
	}
	predicate, err := qi.store.decodeTerm(qi.txn, positions[1])
	if err != nil {
		return nil, fmt.Errorf("failed to decode predicate: %w", err)
	}
	object, err := qi.store.decodeTerm(qi.txn, positions[2])
	if err != nil {
		return nil, fmt.Errorf("failed to decode object: %w", err)
	}

	var graph rdf.Term
	if len(qi.idx.order) > 3 {
		graph, err = qi.store.decodeTerm(qi.txn, positions[3])
		if err != nil {
			return nil, fmt.Errorf("failed to decode graph: %w", err)
		}
	} else {
		graph = rdf.NewDefaultGraph()
	}

	return &rdf.Quad{
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
		Graph:     graph,
	}, nil
}

func (qi *quadIterator) Close() error {
	if qi.closed {
		return nil
	}
	qi.closed = true
	_ = qi.it.Close()
	return qi.txn.Rollback()
}

// decodeTerm resolves an encoded term back to an rdf.Term, consulting the
// id2str table for hashed term types.
func (s *TripleStore) decodeTerm(txn Transaction, encoded EncodedTerm) (rdf.Term, error) {
	tt := rdf.TermType(encoded[0])

	var stringValue *string
	switch tt {
	case rdf.TermTypeNamedNode, rdf.TermTypeBlankNode,
		rdf.TermTypeStringLiteral, rdf.TermTypeLangStringLiteral:
		if raw, err := txn.Get(TableID2Str, encoded[1:]); err == nil {
			str := string(raw)
			stringValue = &str
		}
	}

	return s.decoder.DecodeTerm(encoded, stringValue)
}
