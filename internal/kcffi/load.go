package kcffi

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// LibraryEnv names the environment variable that overrides the shared
// library location.
const LibraryEnv = "KYOTOCABINET_LIBRARY"

var (
	ErrUnsupportedPlatform = errors.New("kcffi: no dynamic loader on this platform")
	ErrLibraryNotFound     = errors.New("kcffi: kyoto cabinet library not found")
)

var (
	defaultOnce sync.Once
	defaultLib  *Native
	defaultErr  error
)

// Default loads the shared library once per process, from $KYOTOCABINET_LIBRARY
// when set and from the platform's usual names otherwise. The outcome,
// including a failure, is cached.
func Default() (*Native, error) {
	defaultOnce.Do(func() {
		defaultLib, defaultErr = loadDefault()
	})
	return defaultLib, defaultErr
}

func loadDefault() (*Native, error) {
	if path := os.Getenv(LibraryEnv); path != "" {
		return Load(path)
	}
	if len(libraryNames) == 0 {
		return nil, ErrUnsupportedPlatform
	}

	var errs []error
	for _, name := range libraryNames {
		lib, err := Load(name)
		if err == nil {
			return lib, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: %w", ErrLibraryNotFound, errors.Join(errs...))
}
