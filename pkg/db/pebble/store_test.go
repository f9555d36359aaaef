package pebble

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/kyotocabinet/pkg/db"
	"github.com/eigerco/kyotocabinet/pkg/db/dbtest"
	"github.com/eigerco/kyotocabinet/pkg/log"
)

func TestKVStore(t *testing.T) {
	dbtest.TestKVStore(t, func(t *testing.T) db.KVStore {
		store, err := NewKVStore("")
		require.NoError(t, err)
		return store
	})
}

func TestKVStoreOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store")

	store, err := NewKVStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Put([]byte("key"), []byte("value")))
	require.NoError(t, store.Close())

	store, err = NewKVStore(path)
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck

	value, err := store.Get([]byte("key"))
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), value)
}

func TestKVStoreLifecycleLogs(t *testing.T) {
	var out bytes.Buffer
	log.Init(log.Options{LogLevel: zerolog.DebugLevel, Type: log.JSONLogger, Output: &out})
	t.Cleanup(func() {
		log.Root, log.Native, log.Store = zerolog.Nop(), zerolog.Nop(), zerolog.Nop()
	})

	store, err := NewKVStore("")
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	logs := out.String()
	assert.Contains(t, logs, `"backend":"pebble"`)
	assert.Contains(t, logs, `"component":"store"`)
	assert.Contains(t, logs, "store opened")
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("store closed")))
}
