package sync

import (
	"fmt"
	"time"

	"github.com/danieljhkim/deploysync/internal/fsops"
	"github.com/danieljhkim/deploysync/internal/gitx"
)

// Request contains the parameters of one synchronization run.
//
// A Request holds no defaults: every field is supplied by the caller.
type Request struct {
	// RemoteURL is the transport-qualified location of the remote repository
	RemoteURL string `json:"remoteUrl"`

	// Branch is the branch to track
	Branch string `json:"branch"`

	// TargetPath is the local working-copy directory
	TargetPath string `json:"targetPath"`

	// CredentialPath is the private key file used for every remote operation
	CredentialPath string `json:"credentialPath"`

	// KnownHostsPath replaces the user's known_hosts file when set
	KnownHostsPath string `json:"knownHostsPath,omitempty"`

	// RemoteName is the name of the remote inside the working copy
	RemoteName string `json:"remoteName"`

	// Force discards local commits and modifications to match the remote
	Force bool `json:"force"`
}

// Validate checks the shape of the request. It does not touch the filesystem.
func (r *Request) Validate() error {
	if r.RemoteURL == "" {
		return fmt.Errorf("remote URL is empty")
	}
	if err := gitx.ValidateRef(r.Branch, "branch"); err != nil {
		return err
	}
	if err := gitx.ValidateRef(r.RemoteName, "remote"); err != nil {
		return err
	}
	if r.TargetPath == "" {
		return fmt.Errorf("target path is empty")
	}
	if r.CredentialPath == "" {
		return fmt.Errorf("credential path is empty")
	}
	return nil
}

// Normalize resolves the target and credential paths to absolute, cleaned
// paths.
func (r *Request) Normalize() error {
	target, err := fsops.Normalize(r.TargetPath)
	if err != nil {
		return fmt.Errorf("target path: %w", err)
	}
	credential, err := fsops.Normalize(r.CredentialPath)
	if err != nil {
		return fmt.Errorf("credential path: %w", err)
	}
	r.TargetPath = target
	r.CredentialPath = credential
	if r.KnownHostsPath != "" {
		knownHosts, err := fsops.Normalize(r.KnownHostsPath)
		if err != nil {
			return fmt.Errorf("known hosts path: %w", err)
		}
		r.KnownHostsPath = knownHosts
	}
	return nil
}

// Transport returns the override that pins the request's credential.
func (r *Request) Transport() gitx.TransportOverride {
	return gitx.TransportOverride{
		KeyPath:        r.CredentialPath,
		KnownHostsPath: r.KnownHostsPath,
	}
}

// RemoteRef is the remote-tracking ref of the requested branch.
func (r *Request) RemoteRef() string {
	return r.RemoteName + "/" + r.Branch
}

// State classifies a target directory.
type State string

const (
	// StateAbsent means the target does not exist.
	StateAbsent State = "absent"

	// StateUninitialized means the target exists but is not a working copy.
	StateUninitialized State = "uninitialized"

	// StatePresent means the target contains git metadata.
	StatePresent State = "present"
)

// IsRepo reports whether the state is a working copy.
func (s State) IsRepo() bool {
	return s == StatePresent
}

// Action is what a successful run did to the working copy.
type Action string

const (
	ActionCloned        Action = "cloned"
	ActionFastForwarded Action = "fast-forwarded"
	ActionHardReset     Action = "hard-reset"
)

// Result contains the outcome of a synchronization run.
type Result struct {
	// Succeeded is true when the run completed every step
	Succeeded bool `json:"succeeded"`

	// Action is the terminal step taken
	Action Action `json:"action"`

	// Diagnostic is the raw output of the last git step
	Diagnostic string `json:"diagnostic,omitempty"`

	// Branch is the branch that was synchronized
	Branch string `json:"branch"`

	// TargetPath is the working copy that was synchronized
	TargetPath string `json:"targetPath"`

	// Before is the local tip before the run, empty after a clone
	Before string `json:"before,omitempty"`

	// After is the local tip after the run
	After string `json:"after,omitempty"`

	// Duration is the wall time of the run
	Duration time.Duration `json:"duration"`
}

// Changed reports whether the run moved the local tip.
func (r *Result) Changed() bool {
	return r.Before != r.After
}
