// Package kcffi declares the Kyoto Cabinet polymorphic database C API
// (kclangc.h) as seen from Go. Nothing in here interprets results: the
// values and signatures must match the shared library bit for bit.
package kcffi

import "unsafe"

// DB is an opaque KCDB* returned by kcdbnew. It is only meaningful to the
// library that produced it. Zero is NULL.
type DB uintptr

// Mode is the open mode bitmask accepted by kcdbopen.
type Mode uint32

// Open modes (KCO*).
const (
	OReader   Mode = 1 << 0 // open as a reader
	OWriter   Mode = 1 << 1 // open as a writer
	OCreate   Mode = 1 << 2 // writer creating
	OTruncate Mode = 1 << 3 // writer truncating
	OAutoTran Mode = 1 << 4 // auto transaction
	OAutoSync Mode = 1 << 5 // auto synchronization
	ONoLock   Mode = 1 << 6 // open without locking
	OTryLock  Mode = 1 << 7 // lock without blocking
	ONoRepair Mode = 1 << 8 // open without auto repair
)

// Error codes (KCE*).
const (
	ESuccess int32 = 0  // success
	ENoImpl  int32 = 1  // not implemented
	EInvalid int32 = 2  // invalid operation
	ENoRepos int32 = 3  // file not found
	ENoPerm  int32 = 4  // no permission
	EBroken  int32 = 5  // broken file
	EDupRec  int32 = 6  // record duplication
	ENoRec   int32 = 7  // no record
	ELogic   int32 = 8  // logical inconsistency
	ESystem  int32 = 9  // system error
	EMisc    int32 = 15 // miscellaneous error
)

// Library is the subset of the C API this module binds. Byte buffers and
// out-parameters are passed as raw pointers with size_t lengths, exactly as
// the C functions take them.
type Library interface {
	// Free releases a region allocated by the library (kcfree).
	Free(ptr unsafe.Pointer)
	// DBNew creates a database object (kcdbnew).
	DBNew() DB
	// DBDel destroys a database object (kcdbdel).
	DBDel(db DB)
	// DBOpen opens a database file (kcdbopen). Non-zero means success.
	DBOpen(db DB, path string, mode Mode) int32
	// DBClose closes the database file (kcdbclose). Non-zero means success.
	DBClose(db DB) int32
	// DBEMsg returns the supplement message of the last error (kcdbemsg).
	// The last error is kept per database and per OS thread, and is only
	// written when a call fails.
	DBEMsg(db DB) string
	// DBECode returns the code of the last error (kcdbecode).
	DBECode(db DB) int32
	// DBSet stores a record (kcdbset). Non-zero means success.
	DBSet(db DB, kbuf unsafe.Pointer, ksiz uintptr, vbuf unsafe.Pointer, vsiz uintptr) int32
	// DBGet retrieves a record (kcdbget). The size of the returned region is
	// written to sp. NULL means no record; the region must be released with
	// Free otherwise.
	DBGet(db DB, kbuf unsafe.Pointer, ksiz uintptr, sp unsafe.Pointer) unsafe.Pointer
}
