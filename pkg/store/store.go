package store

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/aleksaelezovic/quercus/internal/encoding"
	"github.com/aleksaelezovic/quercus/pkg/rdf"
)

// EncodedTerm is re-exported so that callers of the store API do not need to
// import internal/encoding themselves.
type EncodedTerm = encoding.EncodedTerm

// indexSpec names one quad index and the order in which the quad's positions
// (0=S, 1=P, 2=O, 3=G) appear in its key.
type indexSpec struct {
	table Table
	order []int
}

var defaultGraphIndexes = []indexSpec{
	{TableSPO, []int{0, 1, 2}},
	{TablePOS, []int{1, 2, 0}},
	{TableOSP, []int{2, 0, 1}},
}

var namedGraphIndexes = []indexSpec{
	{TableSPOG, []int{0, 1, 2, 3}},
	{TablePOSG, []int{1, 2, 0, 3}},
	{TableOSPG, []int{2, 0, 1, 3}},
	{TableGSPO, []int{3, 0, 1, 2}},
	{TableGPOS, []int{3, 1, 2, 0}},
	{TableGOSP, []int{3, 2, 0, 1}},
}

// TripleStore keeps RDF quads in a set of key-only indexes over a Storage
// backend. Triples in the default graph are mirrored into three dedicated
// indexes so that default-graph scans never pay for the graph column.
type TripleStore struct {
	storage Storage
	encoder *encoding.TermEncoder
	decoder *encoding.TermDecoder
	log     *logrus.Logger
}

func NewTripleStore(storage Storage, log *logrus.Logger) *TripleStore {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.WarnLevel)
	}
	return &TripleStore{
		storage: storage,
		encoder: encoding.NewTermEncoder(),
		decoder: encoding.NewTermDecoder(),
		log:     log,
	}
}

func (s *TripleStore) Close() error {
	return s.storage.Close()
}

// InsertQuad inserts a quad into every applicable index.
func (s *TripleStore) InsertQuad(quad *rdf.Quad) error {
	txn, err := s.storage.Begin(true)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	if err := s.insertQuadInTxn(txn, quad); err != nil {
		return err
	}
	return txn.Commit()
}

// InsertTriple inserts a triple into the default graph.
func (s *TripleStore) InsertTriple(triple *rdf.Triple) error {
	return s.InsertQuad(&rdf.Quad{
		Subject:   triple.Subject,
		Predicate: triple.Predicate,
		Object:    triple.Object,
		Graph:     rdf.NewDefaultGraph(),
	})
}

// InsertQuads inserts a batch of quads in a single transaction.
func (s *TripleStore) InsertQuads(quads []*rdf.Quad) error {
	txn, err := s.storage.Begin(true)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	for _, quad := range quads {
		if err := s.insertQuadInTxn(txn, quad); err != nil {
			return err
		}
	}
	if err := txn.Commit(); err != nil {
		return err
	}
	s.log.WithField("count", len(quads)).Debug("inserted quads")
	return nil
}

func (s *TripleStore) encodeQuad(quad *rdf.Quad) ([4]EncodedTerm, [4]*string, error) {
	var enc [4]EncodedTerm
	var strs [4]*string
	terms := [4]rdf.Term{quad.Subject, quad.Predicate, quad.Object, quad.Graph}
	names := [4]string{"subject", "predicate", "object", "graph"}
	for i, term := range terms {
		e, str, err := s.encoder.EncodeTerm(term)
		if err != nil {
			return enc, strs, fmt.Errorf("failed to encode %s: %w", names[i], err)
		}
		enc[i] = e
		strs[i] = str
	}
	return enc, strs, nil
}

func (s *TripleStore) insertQuadInTxn(txn Transaction, quad *rdf.Quad) error {
	enc, strs, err := s.encodeQuad(quad)
	if err != nil {
		return err
	}

	for i := range enc {
		if err := s.storeString(txn, enc[i], strs[i]); err != nil {
			return err
		}
	}

	empty := []byte{}
	isDefault := quad.Graph.Type() == rdf.TermTypeDefaultGraph

	if isDefault {
		for _, idx := range defaultGraphIndexes {
			if err := txn.Set(idx.table, s.indexKey(idx, enc), empty); err != nil {
				return err
			}
		}
	}
	for _, idx := range namedGraphIndexes {
		if err := txn.Set(idx.table, s.indexKey(idx, enc), empty); err != nil {
			return err
		}
	}
	if !isDefault {
		if err := txn.Set(TableGraphs, enc[3][:], empty); err != nil {
			return err
		}
	}
	return nil
}

func (s *TripleStore) indexKey(idx indexSpec, enc [4]EncodedTerm) []byte {
	ordered := make([]EncodedTerm, len(idx.order))
	for i, pos := range idx.order {
		ordered[i] = enc[pos]
	}
	return s.encoder.EncodeQuadKey(ordered...)
}

// storeString records the original string behind a hashed term. Already
// present entries are left alone.
func (s *TripleStore) storeString(txn Transaction, encoded EncodedTerm, str *string) error {
	if str == nil {
		return nil
	}
	key := encoded[1:]
	if _, err := txn.Get(TableID2Str, key); err == nil {
		return nil
	} else if err != ErrNotFound {
		return err
	}
	return txn.Set(TableID2Str, key, []byte(*str))
}

// DeleteQuad removes a quad from every applicable index. The id2str and
// graphs tables are left untouched; their entries may be shared.
func (s *TripleStore) DeleteQuad(quad *rdf.Quad) error {
	txn, err := s.storage.Begin(true)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	enc, _, err := s.encodeQuad(quad)
	if err != nil {
		return err
	}

	if quad.Graph.Type() == rdf.TermTypeDefaultGraph {
		for _, idx := range defaultGraphIndexes {
			if err := txn.Delete(idx.table, s.indexKey(idx, enc)); err != nil {
				return err
			}
		}
	}
	for _, idx := range namedGraphIndexes {
		if err := txn.Delete(idx.table, s.indexKey(idx, enc)); err != nil {
			return err
		}
	}
	return txn.Commit()
}

// DeleteTriple removes a triple from the default graph.
func (s *TripleStore) DeleteTriple(triple *rdf.Triple) error {
	return s.DeleteQuad(&rdf.Quad{
		Subject:   triple.Subject,
		Predicate: triple.Predicate,
		Object:    triple.Object,
		Graph:     rdf.NewDefaultGraph(),
	})
}

// ContainsQuad reports whether the quad exists.
func (s *TripleStore) ContainsQuad(quad *rdf.Quad) (bool, error) {
	txn, err := s.storage.Begin(false)
	if err != nil {
		return false, err
	}
	defer txn.Rollback()

	enc, _, err := s.encodeQuad(quad)
	if err != nil {
		return false, err
	}

	key := s.encoder.EncodeQuadKey(enc[0], enc[1], enc[2], enc[3])
	_, err = txn.Get(TableSPOG, key)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Count returns the number of quads in the store.
func (s *TripleStore) Count() (int64, error) {
	txn, err := s.storage.Begin(false)
	if err != nil {
		return 0, err
	}
	defer txn.Rollback()

	it, err := txn.Scan(TableSPOG, nil, nil)
	if err != nil {
		return 0, err
	}
	defer it.Close()

	count := int64(0)
	for it.Next() {
		count++
	}
	return count, nil
}
