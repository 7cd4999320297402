package store

import (
	"errors"
)

var (
	ErrNotFound      = errors.New("key not found")
	ErrTransactionRO = errors.New("transaction is read-only")
)

// Storage is the key-value backend under the triple store. The badger
// implementation lives in internal/storage.
type Storage interface {
	// Begin starts a new transaction.
	Begin(writable bool) (Transaction, error)

	// Close closes the storage.
	Close() error

	// Sync flushes writes to disk.
	Sync() error
}

// Transaction is a snapshot-isolated database transaction.
type Transaction interface {
	// Get retrieves a value by key.
	Get(table Table, key []byte) ([]byte, error)

	// Set stores a key-value pair.
	Set(table Table, key, value []byte) error

	// Delete removes a key.
	Delete(table Table, key []byte) error

	// Scan iterates over the key range [start, end). A nil start begins at
	// the first key; a nil end runs to the last.
	Scan(table Table, start, end []byte) (Iterator, error)

	Commit() error
	Rollback() error
}

// Iterator walks key-value pairs in key order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() ([]byte, error)
	Close() error
}

// Table is a logical column family, realized as a one-byte key prefix.
type Table byte

const (
	// hash -> original string
	TableID2Str Table = iota

	// Default graph indexes (3 permutations).
	TableSPO
	TablePOS
	TableOSP

	// Named graph indexes (6 permutations).
	TableSPOG
	TablePOSG
	TableOSPG
	TableGSPO
	TableGPOS
	TableGOSP

	// Named graph registry.
	TableGraphs

	TableCount
)

var tableNames = [TableCount]string{
	"id2str", "spo", "pos", "osp",
	"spog", "posg", "ospg", "gspo", "gpos", "gosp",
	"graphs",
}

func (t Table) String() string {
	if t < TableCount {
		return tableNames[t]
	}
	return "unknown"
}

// TablePrefix returns the byte prefix namespacing a table's keys.
func TablePrefix(table Table) []byte {
	return []byte{byte(table)}
}

// PrefixKey prepends the table prefix to key.
func PrefixKey(table Table, key []byte) []byte {
	out := make([]byte, 0, 1+len(key))
	out = append(out, byte(table))
	return append(out, key...)
}
