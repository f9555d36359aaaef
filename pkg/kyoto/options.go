package kyoto

import (
	"fmt"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/eigerco/kyotocabinet/internal/kcffi"
	"github.com/eigerco/kyotocabinet/pkg/log"
)

var modeNames = []struct {
	mode kcffi.Mode
	name string
}{
	{kcffi.OReader, "read"},
	{kcffi.OWriter, "write"},
	{kcffi.OCreate, "create"},
	{kcffi.OTruncate, "truncate"},
	{kcffi.OAutoTran, "autotran"},
	{kcffi.OAutoSync, "autosync"},
	{kcffi.ONoLock, "nolock"},
	{kcffi.OTryLock, "trylock"},
	{kcffi.ONoRepair, "norepair"},
}

// OpenOptions accumulates the open mode for a database. Every toggle sets or
// clears a single flag, so calls can be repeated and given in any order.
type OpenOptions struct {
	mode   kcffi.Mode
	lib    kcffi.Library
	logger *zerolog.Logger
}

func NewOpenOptions() *OpenOptions {
	return &OpenOptions{}
}

func (o *OpenOptions) flag(m kcffi.Mode, on bool) *OpenOptions {
	if on {
		o.mode |= m
	} else {
		o.mode &^= m
	}
	return o
}

func (o *OpenOptions) Read(read bool) *OpenOptions { return o.flag(kcffi.OReader, read) }

func (o *OpenOptions) Write(write bool) *OpenOptions { return o.flag(kcffi.OWriter, write) }

// Create makes a writer create the database when it does not exist.
func (o *OpenOptions) Create(create bool) *OpenOptions { return o.flag(kcffi.OCreate, create) }

// Truncate makes a writer start from an empty database.
func (o *OpenOptions) Truncate(truncate bool) *OpenOptions { return o.flag(kcffi.OTruncate, truncate) }

// AutoTransaction wraps every update in an implicit transaction.
func (o *OpenOptions) AutoTransaction(on bool) *OpenOptions { return o.flag(kcffi.OAutoTran, on) }

// AutoSync synchronizes the file with the device after every update.
func (o *OpenOptions) AutoSync(on bool) *OpenOptions { return o.flag(kcffi.OAutoSync, on) }

// NoLock opens the file without taking the file lock.
func (o *OpenOptions) NoLock(on bool) *OpenOptions { return o.flag(kcffi.ONoLock, on) }

// TryLock fails instead of blocking when the file lock is held elsewhere.
func (o *OpenOptions) TryLock(on bool) *OpenOptions { return o.flag(kcffi.OTryLock, on) }

// NoRepair disables the automatic repair of a file that was not closed cleanly.
func (o *OpenOptions) NoRepair(on bool) *OpenOptions { return o.flag(kcffi.ONoRepair, on) }

// Library selects the binding used by Open. Unset, the shared library is
// loaded with kcffi.Default.
func (o *OpenOptions) Library(lib kcffi.Library) *OpenOptions {
	o.lib = lib
	return o
}

// Logger sets the logger for lifecycle events of the opened database,
// including failures of the implicit close. Defaults to log.Store.
func (o *OpenOptions) Logger(l zerolog.Logger) *OpenOptions {
	o.logger = &l
	return o
}

// String lists the flags that are set, e.g. "write|create|truncate".
func (o *OpenOptions) String() string {
	var names []string
	for _, m := range modeNames {
		if o.mode&m.mode != 0 {
			names = append(names, m.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Open opens the database at path with the accumulated mode. The database
// type follows Kyoto Cabinet's naming rules: ".kch" is a file hash database,
// ".kct" a file tree database, "-" an in-memory hash database and so on.
func (o *OpenOptions) Open(path string) (*DB, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}

	lib := o.lib
	if lib == nil {
		native, err := kcffi.Default()
		if err != nil {
			return nil, fmt.Errorf("load native library: %w", err)
		}
		lib = native
	}

	logger := log.Store
	if o.logger != nil {
		logger = *o.logger
	}
	logger = logger.With().Str("path", path).Logger()

	// The error slot is per thread: read it on the thread that opened.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	h := lib.DBNew()
	if h == 0 {
		return nil, &Error{Code: CodeSystem, Message: "kcdbnew returned NULL"}
	}
	if lib.DBOpen(h, path, o.mode) == 0 {
		err := readState(lib, h).failure("open")
		// Every object from kcdbnew must be deleted, opened or not.
		lib.DBDel(h)
		logger.Debug().Err(err).Str("mode", o.String()).Msg("open failed")
		return nil, err
	}

	d := &DB{
		lib:    lib,
		db:     h,
		path:   path,
		logger: logger,
		last:   readState(lib, h),
	}
	runtime.SetFinalizer(d, (*DB).finalize)
	logger.Debug().Str("mode", o.String()).Msg("database opened")
	return d, nil
}

// validatePath rejects paths the library cannot receive as a NUL-terminated
// string.
func validatePath(path string) error {
	if strings.IndexByte(path, 0) >= 0 {
		return fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidPath, path)
	}
	if !utf8.ValidString(path) {
		return fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidPath, path)
	}
	return nil
}
