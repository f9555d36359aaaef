//go:build !darwin && !linux

package kcffi

import (
	"fmt"
	"unsafe"
)

var libraryNames []string

// Native is unavailable on this platform; Load always fails.
type Native struct{}

func Load(path string) (*Native, error) {
	return nil, fmt.Errorf("load %s: %w", path, ErrUnsupportedPlatform)
}

func (n *Native) Path() string { return "" }

func (n *Native) Free(unsafe.Pointer) {}

func (n *Native) DBNew() DB { return 0 }

func (n *Native) DBDel(DB) {}

func (n *Native) DBOpen(DB, string, Mode) int32 { return 0 }

func (n *Native) DBClose(DB) int32 { return 0 }

func (n *Native) DBEMsg(DB) string { return "" }

func (n *Native) DBECode(DB) int32 { return ESystem }

func (n *Native) DBSet(DB, unsafe.Pointer, uintptr, unsafe.Pointer, uintptr) int32 { return 0 }

func (n *Native) DBGet(DB, unsafe.Pointer, uintptr, unsafe.Pointer) unsafe.Pointer { return nil }
