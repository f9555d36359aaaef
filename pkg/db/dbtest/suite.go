// Package dbtest holds the behaviour every db.KVStore implementation is
// expected to share.
package dbtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/kyotocabinet/pkg/db"
)

// TestKVStore runs the common cases against fresh stores from newStore.
func TestKVStore(t *testing.T, newStore func(t *testing.T) db.KVStore) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store db.KVStore)
	}{
		{
			name: "basic_put_get",
			fn:   testBasicPutGet,
		},
		{
			name: "overwrite",
			fn:   testOverwrite,
		},
		{
			name: "empty_key_and_value",
			fn:   testEmpty,
		},
		{
			name: "returned_value_is_a_copy",
			fn:   testCopy,
		},
		{
			name: "store_closure",
			fn:   testStoreClosure,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close() //nolint:errcheck // some cases close the store themselves

			tc.fn(t, store)
		})
	}
}

func testBasicPutGet(t *testing.T, store db.KVStore) {
	key := []byte("test-key")
	value := []byte("test-value")

	err := store.Put(key, value)
	require.NoError(t, err)

	retrieved, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, retrieved)

	// Test non-existent key
	_, err = store.Get([]byte("non-existent"))
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func testOverwrite(t *testing.T, store db.KVStore) {
	key := []byte("key")
	require.NoError(t, store.Put(key, []byte("v1")))
	require.NoError(t, store.Put(key, []byte("v2")))

	retrieved, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), retrieved)
}

func testEmpty(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Put([]byte{}, []byte("for-empty-key")))
	require.NoError(t, store.Put([]byte("empty-value"), []byte{}))

	retrieved, err := store.Get([]byte{})
	require.NoError(t, err)
	assert.Equal(t, []byte("for-empty-key"), retrieved)

	retrieved, err = store.Get([]byte("empty-value"))
	require.NoError(t, err)
	assert.Empty(t, retrieved)
}

func testCopy(t *testing.T, store db.KVStore) {
	key := []byte("key")
	value := []byte("value")
	require.NoError(t, store.Put(key, value))

	// Mutating caller buffers after the fact changes nothing stored.
	value[0] = 'X'
	retrieved, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), retrieved)

	retrieved[0] = 'Y'
	again, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), again)
}

func testStoreClosure(t *testing.T, store db.KVStore) {
	err := store.Close()
	require.NoError(t, err)

	// Test operations after close
	_, err = store.Get([]byte("key"))
	assert.ErrorIs(t, err, db.ErrClosed)

	err = store.Put([]byte("key"), []byte("value"))
	assert.ErrorIs(t, err, db.ErrClosed)

	// Double close should not error
	err = store.Close()
	assert.NoError(t, err)
}
