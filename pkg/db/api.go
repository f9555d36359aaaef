package db

import "errors"

var (
	ErrClosed   = errors.New("kv-store: database is closed")
	ErrNotFound = errors.New("kv-store: key not found")
)

// KVStore represents a key-value storage interface providing basic operations
// for data manipulation.
type KVStore interface {
	Writer
	// Get returns a copy of the value for key, or ErrNotFound.
	Get(key []byte) ([]byte, error)
	Close() error
}

type Writer interface {
	Put(key []byte, value []byte) error
}
