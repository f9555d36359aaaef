//go:build darwin || linux

package kcffi

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/eigerco/kyotocabinet/pkg/log"
)

// Native is a Library backed by the Kyoto Cabinet shared library, bound at
// runtime with purego so no C toolchain is needed.
type Native struct {
	path string
	lib  uintptr

	kcfree    func(ptr unsafe.Pointer)
	kcdbnew   func() uintptr
	kcdbdel   func(db uintptr)
	kcdbopen  func(db uintptr, path string, mode uint32) int32
	kcdbclose func(db uintptr) int32
	kcdbemsg  func(db uintptr) string
	kcdbecode func(db uintptr) int32
	kcdbset   func(db uintptr, kbuf unsafe.Pointer, ksiz uintptr, vbuf unsafe.Pointer, vsiz uintptr) int32
	kcdbget   func(db uintptr, kbuf unsafe.Pointer, ksiz uintptr, sp unsafe.Pointer) unsafe.Pointer
}

// Load opens the shared library at path and resolves every symbol the
// binding needs. A missing symbol fails the load instead of panicking later.
func Load(path string) (*Native, error) {
	lib, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("dlopen %s: %w", path, err)
	}

	n := &Native{path: path, lib: lib}
	symbols := []struct {
		fptr any
		name string
	}{
		{&n.kcfree, "kcfree"},
		{&n.kcdbnew, "kcdbnew"},
		{&n.kcdbdel, "kcdbdel"},
		{&n.kcdbopen, "kcdbopen"},
		{&n.kcdbclose, "kcdbclose"},
		{&n.kcdbemsg, "kcdbemsg"},
		{&n.kcdbecode, "kcdbecode"},
		{&n.kcdbset, "kcdbset"},
		{&n.kcdbget, "kcdbget"},
	}
	for _, s := range symbols {
		sym, err := purego.Dlsym(lib, s.name)
		if err != nil {
			purego.Dlclose(lib) //nolint:errcheck // the symbol error is the one worth reporting
			return nil, fmt.Errorf("resolve %s in %s: %w", s.name, path, err)
		}
		purego.RegisterFunc(s.fptr, sym)
	}

	log.Native.Debug().Str("library", path).Msg("kyoto cabinet library loaded")
	return n, nil
}

// Path returns the file the library was loaded from.
func (n *Native) Path() string { return n.path }

func (n *Native) Free(ptr unsafe.Pointer) { n.kcfree(ptr) }

func (n *Native) DBNew() DB { return DB(n.kcdbnew()) }

func (n *Native) DBDel(db DB) { n.kcdbdel(uintptr(db)) }

func (n *Native) DBOpen(db DB, path string, mode Mode) int32 {
	return n.kcdbopen(uintptr(db), path, uint32(mode))
}

func (n *Native) DBClose(db DB) int32 { return n.kcdbclose(uintptr(db)) }

func (n *Native) DBEMsg(db DB) string { return n.kcdbemsg(uintptr(db)) }

func (n *Native) DBECode(db DB) int32 { return n.kcdbecode(uintptr(db)) }

func (n *Native) DBSet(db DB, kbuf unsafe.Pointer, ksiz uintptr, vbuf unsafe.Pointer, vsiz uintptr) int32 {
	return n.kcdbset(uintptr(db), kbuf, ksiz, vbuf, vsiz)
}

func (n *Native) DBGet(db DB, kbuf unsafe.Pointer, ksiz uintptr, sp unsafe.Pointer) unsafe.Pointer {
	return n.kcdbget(uintptr(db), kbuf, ksiz, sp)
}
