package kcfake

import (
	"path/filepath"
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/kyotocabinet/internal/kcffi"
)

func ptr(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return unsafe.Pointer(&struct{}{})
	}
	return unsafe.Pointer(&b[0])
}

func TestEngineErrorSlot(t *testing.T) {
	// Slot reads must happen on the thread that made the call.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e := New()
	h := e.DBNew()
	defer e.DBDel(h)

	assert.Equal(t, kcffi.ESuccess, e.DBECode(h))
	assert.Equal(t, "no error", e.DBEMsg(h))

	path := filepath.Join(t.TempDir(), "slot.kch")
	assert.Zero(t, e.DBOpen(h, path, kcffi.OReader))
	assert.Equal(t, kcffi.ENoRepos, e.DBECode(h))

	require.NotZero(t, e.DBOpen(h, path, kcffi.OWriter|kcffi.OCreate))
	// Success does not reset the slot.
	assert.Equal(t, kcffi.ENoRepos, e.DBECode(h))

	assert.Zero(t, e.DBOpen(h, path, kcffi.OWriter))
	assert.Equal(t, kcffi.EInvalid, e.DBECode(h))
	assert.Equal(t, "already opened", e.DBEMsg(h))

	require.NotZero(t, e.DBClose(h))
	assert.Zero(t, e.DBClose(h))
	assert.Equal(t, "not opened", e.DBEMsg(h))
}

func TestEngineBuffers(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e := New()
	h := e.DBNew()
	require.NotZero(t, e.DBOpen(h, "+", kcffi.OWriter|kcffi.OCreate))

	key, value := []byte("key"), []byte("value")
	require.NotZero(t, e.DBSet(h, ptr(key), uintptr(len(key)), ptr(value), uintptr(len(value))))

	var size uintptr
	region := e.DBGet(h, ptr(key), uintptr(len(key)), unsafe.Pointer(&size))
	require.NotNil(t, region)
	assert.Equal(t, uintptr(len(value)), size)
	got := unsafe.Slice((*byte)(region), size+1)
	assert.Equal(t, append([]byte("value"), 0), got)
	assert.Equal(t, 1, e.OutstandingBuffers())

	e.Free(region)
	assert.Zero(t, e.OutstandingBuffers())
	e.Free(region)
	assert.Equal(t, 1, e.InvalidFrees())
	e.Free(nil)
	assert.Equal(t, 1, e.InvalidFrees())

	missing := []byte("missing")
	assert.Nil(t, e.DBGet(h, ptr(missing), uintptr(len(missing)), unsafe.Pointer(&size)))
	assert.Equal(t, kcffi.ENoRec, e.DBECode(h))

	e.DBDel(h)
	assert.Zero(t, e.LiveHandles())
	e.DBDel(h)
	assert.Equal(t, 1, e.InvalidHandles())
}

func TestEngineReaderCannotWrite(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e := New()
	path := filepath.Join(t.TempDir(), "ro.kch")

	h := e.DBNew()
	require.NotZero(t, e.DBOpen(h, path, kcffi.OWriter|kcffi.OCreate))
	require.NotZero(t, e.DBClose(h))
	require.NotZero(t, e.DBOpen(h, path, kcffi.OReader))

	key := []byte("k")
	assert.Zero(t, e.DBSet(h, ptr(key), 1, ptr(key), 1))
	assert.Equal(t, kcffi.ENoPerm, e.DBECode(h))

	e.DBDel(h)
	assert.Zero(t, e.LiveHandles())
}

func TestEngineFailNextClose(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e := New()
	h := e.DBNew()
	require.NotZero(t, e.DBOpen(h, "-", kcffi.OWriter|kcffi.OCreate))

	e.FailNextClose(kcffi.EBroken, "checksum mismatch")
	assert.Zero(t, e.DBClose(h))
	assert.Equal(t, kcffi.EBroken, e.DBECode(h))
	assert.Equal(t, "checksum mismatch", e.DBEMsg(h))

	require.NotZero(t, e.DBClose(h))
	e.DBDel(h)
}

func TestEngineSlotPerThread(t *testing.T) {
	if !ThreadScoped {
		t.Skip("error slots are per handle on this platform")
	}
	e := New()
	h := e.DBNew()
	defer e.DBDel(h)

	t1, t2 := StartThread(), StartThread()
	defer t1.Stop()
	defer t2.Stop()

	var code1, code2 int32
	var msg2 string
	t1.Run(func() {
		assert.NotZero(t, e.DBOpen(h, "-", kcffi.OWriter|kcffi.OCreate))
		missing := []byte("missing")
		var size uintptr
		e.DBGet(h, ptr(missing), uintptr(len(missing)), unsafe.Pointer(&size))
		code1 = e.DBECode(h)
	})
	t2.Run(func() {
		code2, msg2 = e.DBECode(h), e.DBEMsg(h)
	})
	assert.Equal(t, kcffi.ENoRec, code1)
	assert.Equal(t, kcffi.ESuccess, code2)
	assert.Equal(t, "no error", msg2)

	// A failure on the second thread leaves the first thread's slot alone.
	t2.Run(func() {
		assert.Zero(t, e.DBOpen(h, "-", kcffi.OWriter))
		code2 = e.DBECode(h)
	})
	t1.Run(func() {
		code1 = e.DBECode(h)
		assert.NotZero(t, e.DBClose(h))
	})
	assert.Equal(t, kcffi.EInvalid, code2)
	assert.Equal(t, kcffi.ENoRec, code1)
}
