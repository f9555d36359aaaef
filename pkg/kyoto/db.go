// Package kyoto is a safe Go handle over the Kyoto Cabinet polymorphic
// database. A *DB owns exactly one native handle and releases it on Close,
// or from a finalizer when the DB becomes unreachable without being closed.
//
// A DB is not safe for concurrent use: the native error slot is shared by
// every call on the handle. Use pkg/db/kyoto for a synchronized store.
package kyoto

import (
	"runtime"
	"unsafe"

	"github.com/rs/zerolog"

	"github.com/eigerco/kyotocabinet/internal/kcffi"
)

type DB struct {
	lib    kcffi.Library
	db     kcffi.DB // zero once closed
	path   string
	logger zerolog.Logger

	// last is the error slot as read right after the most recent native
	// call, on the thread that made it.
	last nativeState
}

// Open opens an existing database for reading.
func Open(path string) (*DB, error) {
	return NewOpenOptions().Read(true).Open(path)
}

// Create creates a database, or empties an existing one, and opens it for
// writing.
func Create(path string) (*DB, error) {
	return NewOpenOptions().Write(true).Create(true).Truncate(true).Open(path)
}

// Path returns the path the database was opened with.
func (d *DB) Path() string { return d.path }

// call runs fn, a native call reporting success, with the goroutine locked
// to its OS thread. The library keeps the error slot per thread and only
// writes it on failure, so the slot is read on the same thread before and
// after fn: a failure belongs to this call when fn reports it or the slot
// changed.
func (d *DB) call(op string, fn func() bool) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	before := readState(d.lib, d.db)
	ok := fn()
	after := readState(d.lib, d.db)
	d.last = after

	if !ok {
		return after.failure(op)
	}
	if after != before {
		return after.err()
	}
	return nil
}

// Close closes the database and deletes the native handle. Closing a closed
// DB is a no-op. If the library reports an error the handle is kept, the
// error is returned and the DB should not be used any more.
func (d *DB) Close() error {
	if d.db == 0 {
		return nil
	}

	err := d.call("close", func() bool { return d.lib.DBClose(d.db) != 0 })
	if err != nil {
		runtime.KeepAlive(d)
		return err
	}

	d.lib.DBDel(d.db)
	d.db = 0
	runtime.SetFinalizer(d, nil)
	d.logger.Debug().Msg("database closed")
	return nil
}

func (d *DB) finalize() {
	if err := d.Close(); err != nil {
		d.logger.Error().Err(err).Msg("implicit close failed, native handle leaked")
	}
}

// Set stores value under key, replacing any previous value.
func (d *DB) Set(key, value []byte) error {
	if d.db == 0 {
		return ErrClosed
	}

	err := d.call("set", func() bool {
		return d.lib.DBSet(d.db, bufPtr(key), uintptr(len(key)), bufPtr(value), uintptr(len(value))) != 0
	})
	runtime.KeepAlive(key)
	runtime.KeepAlive(value)
	runtime.KeepAlive(d)
	return err
}

// Get returns a copy of the value stored under key. A missing key is
// reported through found, not as an error.
func (d *DB) Get(key []byte) (value []byte, found bool, err error) {
	if d.db == 0 {
		return nil, false, ErrClosed
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var size uintptr
	ptr := d.lib.DBGet(d.db, bufPtr(key), uintptr(len(key)), unsafe.Pointer(&size))
	runtime.KeepAlive(key)

	if ptr == nil {
		// Absence is decided by the pointer alone. The slot, normally "no
		// record", is only recorded for Err.
		d.last = readState(d.lib, d.db)
		if d.last.code != kcffi.ENoRec && d.last.code != kcffi.ESuccess {
			d.logger.Debug().Int32("code", d.last.code).Str("message", d.last.msg).
				Msg("get returned no record with an error set")
		}
		runtime.KeepAlive(d)
		return nil, false, nil
	}

	value = make([]byte, size)
	copy(value, unsafe.Slice((*byte)(ptr), size))
	d.lib.Free(ptr)
	d.last = readState(d.lib, d.db)
	runtime.KeepAlive(d)
	return value, true, nil
}

// Err returns the error slot as it read after the most recent native call on
// this database, or nil if it held no error. Reading the slot afresh would
// report whatever thread the caller happens to run on.
func (d *DB) Err() error {
	if d.db == 0 {
		return ErrClosed
	}
	return d.last.err()
}

// bufPtr returns the address of the first byte of b. Empty buffers get a
// non-NULL address, as the library asserts on NULL even with a zero size.
func bufPtr(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return unsafe.Pointer(&struct{}{})
	}
	return unsafe.Pointer(&b[0])
}
