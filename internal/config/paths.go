// Package config resolves deploysync's configuration.
//
// Values come from four layers, highest priority first: command-line flags
// (applied by the cli package), DEPLOYSYNC_* environment variables, an
// optional YAML config file, and the built-in defaults defined here. The
// default config root is ~/.deploysync/ and the default working copy lives
// under the invoking user's home, so users sharing one installation and one
// deploy key never collide.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// RootEnv overrides the config root directory.
const RootEnv = "DEPLOYSYNC_ROOT"

// Paths contains the filesystem locations derived from the user's home.
type Paths struct {
	// Home is the invoking user's home directory
	Home string

	// Root is the base directory for deploysync config (default: ~/.deploysync)
	Root string

	// Config is the path to the default config file
	Config string

	// Target is the default working-copy directory
	Target string

	// Credential is the default private key file
	Credential string
}

// DefaultPaths returns the default paths for the invoking user.
// The root can be overridden with DEPLOYSYNC_ROOT.
func DefaultPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	return PathsFor(home, os.Getenv(RootEnv)), nil
}

// PathsFor returns the default paths under home. An empty root means
// home/.deploysync.
func PathsFor(home, root string) *Paths {
	if root == "" {
		root = filepath.Join(home, ".deploysync")
	}
	return &Paths{
		Home:       home,
		Root:       root,
		Config:     filepath.Join(root, "config.yaml"),
		Target:     filepath.Join(home, "deploysync", "repo"),
		Credential: filepath.Join(home, ".ssh", "deploysync_ed25519"),
	}
}
