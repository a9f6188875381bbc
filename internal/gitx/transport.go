package gitx

import (
	"fmt"
	"strings"
)

// SSHCommandEnv is the environment variable git consults for the ssh program.
const SSHCommandEnv = "GIT_SSH_COMMAND"

// TransportOverride pins the SSH identity used by a git invocation.
//
// When KeyPath is set, ssh offers that key with IdentitiesOnly=yes, so keys
// held by an ssh-agent and the default ~/.ssh/id_* files are never tried.
type TransportOverride struct {
	// KeyPath is the private key file.
	KeyPath string

	// KnownHostsPath replaces the user's known_hosts file when set.
	KnownHostsPath string
}

// IsZero reports whether the override pins nothing.
func (t TransportOverride) IsZero() bool {
	return t.KeyPath == "" && t.KnownHostsPath == ""
}

// SSHCommand renders the override as a GIT_SSH_COMMAND value. git runs the
// value through the shell, so paths are single-quoted.
func (t TransportOverride) SSHCommand() string {
	if t.IsZero() {
		return ""
	}
	parts := []string{"ssh"}
	if t.KeyPath != "" {
		parts = append(parts, "-i", shellQuote(t.KeyPath), "-o", "IdentitiesOnly=yes")
	}
	if t.KnownHostsPath != "" {
		parts = append(parts, "-o", shellQuote("UserKnownHostsFile="+t.KnownHostsPath))
	}
	return strings.Join(parts, " ")
}

// Env returns the environment entries that apply the override.
func (t TransportOverride) Env() []string {
	cmd := t.SSHCommand()
	if cmd == "" {
		return nil
	}
	return []string{fmt.Sprintf("%s=%s", SSHCommandEnv, cmd)}
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
