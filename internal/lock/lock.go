// Package lock provides an advisory lock over a working copy so that two
// runs never synchronize the same target at the same time.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Suffix is appended to the target path to form the lock file path. The lock
// file lives next to the target, not inside it, so it never shows up as an
// untracked file in the working copy.
const Suffix = ".lock"

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("target is locked by another process")

// FileLocker takes a non-blocking flock on "<target>.lock".
type FileLocker struct{}

// NewFileLocker creates a new FileLocker.
func NewFileLocker() *FileLocker {
	return &FileLocker{}
}

// Path returns the lock file used for target.
func Path(target string) string {
	return filepath.Clean(target) + Suffix
}

// Lock acquires the lock for target and returns the function that releases
// it. It fails with ErrLocked instead of waiting.
func (l *FileLocker) Lock(target string) (func() error, error) {
	path := Path(target)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	return fl.Unlock, nil
}
