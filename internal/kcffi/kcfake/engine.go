// Package kcfake is an in-process stand-in for the Kyoto Cabinet shared
// library. Records live in Pebble, while handles, the per-thread error slot
// and kcdbget's malloc'd regions follow the C library's contracts. The engine
// keeps count of leaked handles, leaked regions and bad frees so tests can
// assert on them.
package kcfake

import (
	"errors"
	"io/fs"
	"os"
	"sync"
	"unsafe"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/eigerco/kyotocabinet/internal/kcffi"
)

var _ kcffi.Library = (*Engine)(nil)

// memDir is the Pebble directory used inside a per-open in-memory filesystem.
const memDir = "kcfake"

// Paths that name Kyoto Cabinet's in-memory databases.
var memoryPaths = map[string]bool{
	"-": true, // prototype hash
	"+": true, // prototype tree
	":": true, // stash
	"*": true, // cache hash
	"%": true, // cache tree
}

type fault struct {
	code int32
	msg  string
}

type database struct {
	store *pebble.DB
	mode  kcffi.Mode
	path  string

	// slots holds the last error per OS thread, like the TSD<Error> member
	// of the library's database classes. Threads without an entry read
	// success.
	slots map[int]fault
}

// fail records the error in the calling thread's slot.
func (d *database) fail(code int32, msg string) int32 {
	d.slots[threadID()] = fault{code: code, msg: msg}
	return 0
}

func (d *database) slot() fault {
	if f, ok := d.slots[threadID()]; ok {
		return f
	}
	return fault{code: kcffi.ESuccess, msg: "no error"}
}

// Engine implements kcffi.Library. It is safe for concurrent use. Like the
// real library it keeps the error slot per handle and per OS thread, so a
// caller must stay on one thread between a call and the slot read that
// follows it. ThreadScoped reports whether threads can be told apart on this
// platform; when they cannot, the slot is per handle only.
type Engine struct {
	mu      sync.Mutex
	next    kcffi.DB
	dbs     map[kcffi.DB]*database
	buffers map[unsafe.Pointer][]byte

	invalidFrees   int
	invalidHandles int
	closeFault     *fault
}

func New() *Engine {
	return &Engine{
		next:    0x1000,
		dbs:     make(map[kcffi.DB]*database),
		buffers: make(map[unsafe.Pointer][]byte),
	}
}

// LiveHandles reports handles created by DBNew and not yet deleted.
func (e *Engine) LiveHandles() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.dbs)
}

// OutstandingBuffers reports regions returned by DBGet and not yet freed.
func (e *Engine) OutstandingBuffers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.buffers)
}

// InvalidFrees reports Free calls on regions the engine did not hand out,
// including second frees of the same region.
func (e *Engine) InvalidFrees() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.invalidFrees
}

// InvalidHandles reports calls made with a handle that is not live, which
// includes deleting a handle twice.
func (e *Engine) InvalidHandles() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.invalidHandles
}

// FailNextClose makes the next DBClose fail with the given error while
// leaving the database open.
func (e *Engine) FailNextClose(code int32, msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeFault = &fault{code: code, msg: msg}
}

func (e *Engine) lookup(h kcffi.DB) (*database, bool) {
	d, ok := e.dbs[h]
	if !ok {
		e.invalidHandles++
	}
	return d, ok
}

func (e *Engine) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.buffers[ptr]; !ok {
		e.invalidFrees++
		return
	}
	delete(e.buffers, ptr)
}

func (e *Engine) DBNew() kcffi.DB {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.next
	e.next += 0x10
	e.dbs[h] = &database{slots: make(map[int]fault)}
	return h
}

func (e *Engine) DBDel(h kcffi.DB) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.lookup(h)
	if !ok {
		return
	}
	// kcdbdel closes a database that is still open.
	if d.store != nil {
		_ = d.store.Close()
	}
	delete(e.dbs, h)
}

func (e *Engine) DBOpen(h kcffi.DB, path string, mode kcffi.Mode) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.lookup(h)
	if !ok {
		return 0
	}
	if d.store != nil {
		return d.fail(kcffi.EInvalid, "already opened")
	}

	writer := mode&kcffi.OWriter != 0
	dir := path
	opts := &pebble.Options{}
	if memoryPaths[path] {
		dir = memDir
		opts.FS = vfs.NewMem()
	} else {
		exists := true
		if _, err := os.Stat(path); err != nil {
			if !os.IsNotExist(err) {
				return d.fail(errorCode(err), "open failed: "+err.Error())
			}
			exists = false
		}
		if exists && writer && mode&kcffi.OTruncate != 0 {
			if err := os.RemoveAll(path); err != nil {
				return d.fail(errorCode(err), "truncate failed: "+err.Error())
			}
			exists = false
		}
		if !exists && !(writer && mode&kcffi.OCreate != 0) {
			return d.fail(kcffi.ENoRepos, "open failed: no such file or directory")
		}
		opts.ReadOnly = !writer
	}

	store, err := pebble.Open(dir, opts)
	if err != nil {
		return d.fail(errorCode(err), "open failed: "+err.Error())
	}
	d.store, d.mode, d.path = store, mode, path
	return 1
}

func (e *Engine) DBClose(h kcffi.DB) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.lookup(h)
	if !ok {
		return 0
	}
	if d.store == nil {
		return d.fail(kcffi.EInvalid, "not opened")
	}
	if f := e.closeFault; f != nil {
		e.closeFault = nil
		return d.fail(f.code, f.msg)
	}

	err := d.store.Close()
	d.store = nil
	if err != nil {
		return d.fail(kcffi.ESystem, "close failed: "+err.Error())
	}
	return 1
}

func (e *Engine) DBEMsg(h kcffi.DB) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.lookup(h)
	if !ok {
		return "invalid handle"
	}
	return d.slot().msg
}

func (e *Engine) DBECode(h kcffi.DB) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.lookup(h)
	if !ok {
		return kcffi.EInvalid
	}
	return d.slot().code
}

func (e *Engine) DBSet(h kcffi.DB, kbuf unsafe.Pointer, ksiz uintptr, vbuf unsafe.Pointer, vsiz uintptr) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.lookup(h)
	if !ok {
		return 0
	}
	if d.store == nil {
		return d.fail(kcffi.EInvalid, "not opened")
	}
	if d.mode&kcffi.OWriter == 0 {
		return d.fail(kcffi.ENoPerm, "permission denied")
	}

	wo := pebble.NoSync
	if d.mode&kcffi.OAutoSync != 0 {
		wo = pebble.Sync
	}
	if err := d.store.Set(bytesAt(kbuf, ksiz), bytesAt(vbuf, vsiz), wo); err != nil {
		return d.fail(errorCode(err), "set failed: "+err.Error())
	}
	return 1
}

func (e *Engine) DBGet(h kcffi.DB, kbuf unsafe.Pointer, ksiz uintptr, sp unsafe.Pointer) unsafe.Pointer {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.lookup(h)
	if !ok {
		return nil
	}
	if d.store == nil {
		d.fail(kcffi.EInvalid, "not opened")
		return nil
	}

	value, closer, err := d.store.Get(bytesAt(kbuf, ksiz))
	if errors.Is(err, pebble.ErrNotFound) {
		d.fail(kcffi.ENoRec, "no record")
		return nil
	}
	if err != nil {
		d.fail(errorCode(err), "get failed: "+err.Error())
		return nil
	}

	// The library terminates every region with a zero byte.
	region := make([]byte, len(value)+1)
	copy(region, value)
	_ = closer.Close()

	ptr := unsafe.Pointer(&region[0])
	e.buffers[ptr] = region
	*(*uintptr)(sp) = uintptr(len(region) - 1)
	return ptr
}

func bytesAt(ptr unsafe.Pointer, size uintptr) []byte {
	if size == 0 {
		return []byte{}
	}
	return unsafe.Slice((*byte)(ptr), size)
}

func errorCode(err error) int32 {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return kcffi.ENoPerm
	case errors.Is(err, fs.ErrNotExist):
		return kcffi.ENoRepos
	default:
		return kcffi.ESystem
	}
}
