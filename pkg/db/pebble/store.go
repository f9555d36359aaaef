// Package pebble is the pure-Go db.KVStore. The CLI uses it as an
// alternative backend and the kyoto adapter tests use it as the reference
// store.
package pebble

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/rs/zerolog"

	"github.com/eigerco/kyotocabinet/pkg/db"
	"github.com/eigerco/kyotocabinet/pkg/log"
)

var _ db.KVStore = (*KVStore)(nil)

// memDir names the store inside an in-memory filesystem.
const memDir = "mem"

type KVStore struct {
	db     *pebble.DB
	logger zerolog.Logger
	closed bool
	mu     sync.RWMutex
}

// NewKVStore opens or creates a store in the directory path. An empty path
// keeps the store in memory.
func NewKVStore(path string) (*KVStore, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(64 << 20),
		MemTableSize: 32 << 20,
	}
	defer opts.Cache.Unref()

	dir := path
	if dir == "" {
		dir = memDir
		opts.FS = vfs.NewMem()
	}

	pdb, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("pebble: open %q: %w", path, err)
	}

	logger := log.Store.With().Str("backend", "pebble").Str("path", path).Logger()
	logger.Debug().Msg("store opened")
	return &KVStore{db: pdb, logger: logger}, nil
}

// Get returns a copy of the value; Pebble's own buffer is only valid until
// the closer is released.
func (p *KVStore) Get(key []byte) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, db.ErrClosed
	}

	value, closer, err := p.db.Get(key)
	switch {
	case errors.Is(err, pebble.ErrNotFound):
		return nil, db.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("pebble: get: %w", err)
	}
	defer closer.Close()

	// Clone of an empty slice may be nil; a stored empty value is non-nil.
	if len(value) == 0 {
		return []byte{}, nil
	}
	return slices.Clone(value), nil
}

// Put writes synchronously, matching a kyoto store opened with auto sync.
func (p *KVStore) Put(key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return db.ErrClosed
	}

	if err := p.db.Set(key, value, pebble.Sync); err != nil {
		return fmt.Errorf("pebble: put: %w", err)
	}
	return nil
}

func (p *KVStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("pebble: close: %w", err)
	}
	p.logger.Debug().Msg("store closed")
	return nil
}
