package sync

import (
	"errors"
	"fmt"

	"github.com/danieljhkim/deploysync/internal/gitx"
)

var (
	// ErrPrecondition matches every *PreconditionError.
	ErrPrecondition = errors.New("precondition failed")

	// ErrTransport matches every *TransportError.
	ErrTransport = errors.New("transport failed")

	// ErrDivergence matches every *DivergenceError.
	ErrDivergence = errors.New("local and remote histories diverged")
)

// PreconditionError is returned when a check that runs before any mutation
// fails: a bad request, a missing git executable, an unreadable credential or
// an unusable target path.
type PreconditionError struct {
	Reason string
	Err    error
}

func (e *PreconditionError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}

// Diagnostic returns the full error text; a precondition has no git output
// worth isolating.
func (e *PreconditionError) Diagnostic() string {
	return e.Error()
}

// TransportError is returned when clone or fetch could not reach or
// authenticate to the remote.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// Diagnostic returns git's raw output.
func (e *TransportError) Diagnostic() string {
	return gitx.Diagnostic(e.Err)
}

// DivergenceError is returned when the requested branch cannot be resolved
// locally, or when the local branch cannot be fast-forwarded to the remote
// tip and force was not requested.
type DivergenceError struct {
	Op     string
	Branch string
	Err    error
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Branch, e.Err)
}

func (e *DivergenceError) Unwrap() error {
	return e.Err
}

func (e *DivergenceError) Is(target error) bool {
	return target == ErrDivergence
}

// Diagnostic returns git's raw output.
func (e *DivergenceError) Diagnostic() string {
	return gitx.Diagnostic(e.Err)
}

// Diagnostic returns the raw collaborator output carried by err.
func Diagnostic(err error) string {
	var d interface{ Diagnostic() string }
	if errors.As(err, &d) {
		return d.Diagnostic()
	}
	return gitx.Diagnostic(err)
}

// StepError is returned when a local git step fails for a reason outside the
// three sync error kinds.
type StepError struct {
	Op  string
	Err error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Diagnostic returns git's raw output.
func (e *StepError) Diagnostic() string {
	return gitx.Diagnostic(e.Err)
}
