package gitx

import (
	"errors"
	"regexp"
	"strings"
)

// ExecErrorType classifies a failed git invocation by its stderr.
type ExecErrorType int

const (
	Unknown ExecErrorType = iota
	UnknownReference
	AuthFailed
	RepositoryNotFound
	RepositoryUnavailable
	NotFastForward
	DestinationNotEmpty
)

func (t ExecErrorType) String() string {
	switch t {
	case UnknownReference:
		return "unknown reference"
	case AuthFailed:
		return "authentication failed"
	case RepositoryNotFound:
		return "repository not found"
	case RepositoryUnavailable:
		return "repository unavailable"
	case NotFastForward:
		return "not fast-forward"
	case DestinationNotEmpty:
		return "destination not empty"
	}
	return "unknown"
}

// ExecError is returned when git exits with a non-zero status.
type ExecError struct {
	Type   ExecErrorType
	Args   []string
	Err    error
	Stdout string
	Stderr string
}

func (e *ExecError) Error() string {
	b := new(strings.Builder)
	b.WriteString("git ")
	if len(e.Args) > 0 {
		b.WriteString(e.Args[0])
		b.WriteString(" ")
	}
	b.WriteString("failed: ")
	b.WriteString(e.Err.Error())
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		b.WriteString(": ")
		b.WriteString(stderr)
	}
	return b.String()
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Diagnostic returns the raw text git printed, preferring stderr.
func (e *ExecError) Diagnostic() string {
	if s := strings.TrimSpace(e.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(e.Stdout)
}

// ErrorType returns the classification of err if it is, or wraps, an
// *ExecError, and Unknown otherwise.
func ErrorType(err error) ExecErrorType {
	var execErr *ExecError
	if errors.As(err, &execErr) {
		return execErr.Type
	}
	return Unknown
}

// Diagnostic returns the raw git output carried by err, or err's message when
// it carries none.
func Diagnostic(err error) string {
	if err == nil {
		return ""
	}
	var execErr *ExecError
	if errors.As(err, &execErr) {
		if d := execErr.Diagnostic(); d != "" {
			return d
		}
	}
	return err.Error()
}

func determineErrorType(stdErr string) ExecErrorType {
	switch {
	case strings.Contains(stdErr, "did not match any file(s) known to git"),
		strings.Contains(stdErr, "unknown revision or path not in the working tree"),
		strings.Contains(stdErr, "couldn't find remote ref"),
		matches(`Remote branch .* not found in upstream`, stdErr),
		matches(`invalid reference: `, stdErr),
		matches(`'.*' is not a commit and a branch '.*' cannot be created from it`, stdErr):
		return UnknownReference
	case strings.Contains(stdErr, "Permission denied (publickey"),
		strings.Contains(stdErr, "Host key verification failed"),
		strings.Contains(stdErr, "could not read Username"),
		strings.Contains(stdErr, "Authentication failed"):
		return AuthFailed
	case strings.Contains(stdErr, "Could not resolve host"),
		strings.Contains(stdErr, "Connection refused"),
		strings.Contains(stdErr, "Connection timed out"),
		strings.Contains(stdErr, "Network is unreachable"):
		return RepositoryUnavailable
	case matches(`fatal: repository '.*' not found`, stdErr),
		matches(`fatal: repository '.*' does not exist`, stdErr),
		matches(`fatal: '.*' does not appear to be a git repository`, stdErr):
		return RepositoryNotFound
	case strings.Contains(stdErr, "Not possible to fast-forward"),
		strings.Contains(stdErr, "not possible to fast-forward"):
		return NotFastForward
	case matches(`destination path '.*' already exists and is not an empty directory`, stdErr):
		return DestinationNotEmpty
	}
	return Unknown
}

func matches(pattern, s string) bool {
	matched, err := regexp.MatchString(pattern, s)
	if err != nil {
		// Only an invalid pattern returns an error.
		panic(err)
	}
	return matched
}
