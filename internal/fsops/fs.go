// Package fsops provides the filesystem operations used while synchronizing a
// working copy.
//
// All filesystem access in deploysync goes through the FS interface, so the
// synchronizer can be exercised against an in-memory filesystem in tests.
// The implementation is backed by afero: NewRealFS uses the OS filesystem,
// NewMemFS an in-memory one.
package fsops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// GitMarker is the entry whose presence marks a directory as a working copy.
// It is a directory in a normal clone and a file in worktrees and submodules.
const GitMarker = ".git"

// FS provides an abstraction for filesystem operations.
type FS interface {
	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string, perm os.FileMode) error

	// Exists checks if a path exists.
	Exists(path string) (bool, error)

	// IsDir reports whether path exists and is a directory.
	IsDir(path string) (bool, error)

	// CheckReadable verifies that path is a regular file that can be opened
	// for reading.
	CheckReadable(path string) error

	// IsEmptyDir reports whether path is a directory with no entries.
	IsEmptyDir(path string) (bool, error)

	// ReadFile reads the entire contents of a file.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to path, creating parent directories.
	WriteFile(path string, data []byte, perm os.FileMode) error
}

// AferoFS implements FS on top of an afero filesystem.
type AferoFS struct {
	fs afero.Fs
}

// NewRealFS creates an FS backed by the operating system.
func NewRealFS() *AferoFS {
	return &AferoFS{fs: afero.NewOsFs()}
}

// NewMemFS creates an FS backed by memory.
func NewMemFS() *AferoFS {
	return &AferoFS{fs: afero.NewMemMapFs()}
}

// MkdirAll creates a directory and all parent directories.
func (a *AferoFS) MkdirAll(path string, perm os.FileMode) error {
	return a.fs.MkdirAll(path, perm)
}

// Exists checks if a path exists.
func (a *AferoFS) Exists(path string) (bool, error) {
	return afero.Exists(a.fs, path)
}

// IsDir reports whether path exists and is a directory.
func (a *AferoFS) IsDir(path string) (bool, error) {
	info, err := a.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// CheckReadable verifies that path is a regular file that can be opened for
// reading.
func (a *AferoFS) CheckReadable(path string) error {
	info, err := a.fs.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	f, err := a.fs.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

// IsEmptyDir reports whether path is a directory with no entries.
func (a *AferoFS) IsEmptyDir(path string) (bool, error) {
	return afero.IsEmpty(a.fs, path)
}

// ReadFile reads the entire contents of a file.
func (a *AferoFS) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(a.fs, path)
}

// WriteFile writes data to path, creating parent directories.
func (a *AferoFS) WriteFile(path string, data []byte, perm os.FileMode) error {
	if err := a.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	return afero.WriteFile(a.fs, path, data, perm)
}

// ExpandHome replaces a leading "~" in path with home.
func ExpandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		return filepath.Join(home, path[2:])
	}
	return path
}

// Normalize resolves path to an absolute, cleaned path.
func Normalize(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("invalid path: empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	return filepath.Clean(abs), nil
}
