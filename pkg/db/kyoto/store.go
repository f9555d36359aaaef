// Package kyoto adapts a Kyoto Cabinet database to db.KVStore. The store
// serializes every call on its mutex, which makes the single-caller
// kyoto.DB safe to share between goroutines.
package kyoto

import (
	"sync"

	"github.com/eigerco/kyotocabinet/pkg/db"
	"github.com/eigerco/kyotocabinet/pkg/kyoto"
)

var _ db.KVStore = (*KVStore)(nil)

type KVStore struct {
	db     *kyoto.DB
	closed bool
	mu     sync.Mutex
}

// NewKVStore takes ownership of d; closing the store closes d.
func NewKVStore(d *kyoto.DB) *KVStore {
	return &KVStore{db: d}
}

// Open opens path with opts and wraps the result.
func Open(opts *kyoto.OpenOptions, path string) (*KVStore, error) {
	d, err := opts.Open(path)
	if err != nil {
		return nil, err
	}
	return NewKVStore(d), nil
}

// Get takes the exclusive lock as well: a read also records the error slot
// that Err reports.
func (s *KVStore) Get(key []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, db.ErrClosed
	}

	value, found, err := s.db.Get(key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, db.ErrNotFound
	}
	return value, nil
}

func (s *KVStore) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return db.ErrClosed
	}

	return s.db.Set(key, value)
}

// Close closes the underlying database. If that fails the store stays open
// so Close can be retried.
func (s *KVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	s.closed = true
	return nil
}
