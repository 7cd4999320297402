package storage

import (
	"bytes"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/aleksaelezovic/quercus/pkg/store"
)

// BadgerStorage implements store.Storage on BadgerDB. Tables become one-byte
// key prefixes inside a single badger keyspace.
type BadgerStorage struct {
	db *badger.DB
}

func NewBadgerStorage(path string) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &BadgerStorage{db: db}, nil
}

// NewInMemoryStorage opens a badger instance that never touches disk. Used by
// tests and the REPL.
func NewInMemoryStorage() (*BadgerStorage, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory badger db: %w", err)
	}
	return &BadgerStorage{db: db}, nil
}

func (s *BadgerStorage) Begin(writable bool) (store.Transaction, error) {
	return &badgerTxn{txn: s.db.NewTransaction(writable), writable: writable}, nil
}

func (s *BadgerStorage) Close() error {
	return s.db.Close()
}

func (s *BadgerStorage) Sync() error {
	return s.db.Sync()
}

type badgerTxn struct {
	txn      *badger.Txn
	writable bool
}

func (t *badgerTxn) Get(table store.Table, key []byte) ([]byte, error) {
	item, err := t.txn.Get(store.PrefixKey(table, key))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t *badgerTxn) Set(table store.Table, key, value []byte) error {
	if !t.writable {
		return store.ErrTransactionRO
	}
	return t.txn.Set(store.PrefixKey(table, key), value)
}

func (t *badgerTxn) Delete(table store.Table, key []byte) error {
	if !t.writable {
		return store.ErrTransactionRO
	}
	return t.txn.Delete(store.PrefixKey(table, key))
}

func (t *badgerTxn) Scan(table store.Table, start, end []byte) (store.Iterator, error) {
	tablePrefix := store.TablePrefix(table)

	seekKey := tablePrefix
	if start != nil {
		seekKey = store.PrefixKey(table, start)
	}

	opts := badger.DefaultIteratorOptions
	opts.Prefix = seekKey
	it := t.txn.NewIterator(opts)

	var endKey []byte
	if end != nil {
		endKey = store.PrefixKey(table, end)
	}

	return &badgerIterator{
		it:      it,
		prefix:  tablePrefix,
		seekKey: seekKey,
		endKey:  endKey,
	}, nil
}

func (t *badgerTxn) Commit() error {
	return t.txn.Commit()
}

func (t *badgerTxn) Rollback() error {
	t.txn.Discard()
	return nil
}

type badgerIterator struct {
	it       *badger.Iterator
	prefix   []byte // table prefix, stripped from returned keys
	seekKey  []byte
	endKey   []byte
	started  bool
	hasValue bool
}

func (i *badgerIterator) Next() bool {
	if !i.started {
		i.it.Seek(i.seekKey)
		i.started = true
	} else {
		i.it.Next()
	}

	if !i.it.Valid() {
		i.hasValue = false
		return false
	}
	if i.endKey != nil && bytes.Compare(i.it.Item().Key(), i.endKey) >= 0 {
		i.hasValue = false
		return false
	}
	i.hasValue = true
	return true
}

func (i *badgerIterator) Key() []byte {
	if !i.hasValue {
		return nil
	}
	key := i.it.Item().Key()
	if len(key) > len(i.prefix) {
		return key[len(i.prefix):]
	}
	return nil
}

func (i *badgerIterator) Value() ([]byte, error) {
	if !i.hasValue {
		return nil, store.ErrNotFound
	}
	return i.it.Item().ValueCopy(nil)
}

func (i *badgerIterator) Close() error {
	i.it.Close()
	return nil
}
