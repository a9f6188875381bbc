package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/danieljhkim/deploysync/internal/sync"
)

// Exit statuses.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitPrecondition = 2
	ExitTransport    = 3
	ExitDivergence   = 4
)

// Pause modes for --pause.
const (
	PauseAuto   = "auto"
	PauseAlways = "always"
	PauseNever  = "never"
)

// ExitCode maps an error returned by Execute to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, sync.ErrPrecondition):
		return ExitPrecondition
	case errors.Is(err, sync.ErrTransport):
		return ExitTransport
	case errors.Is(err, sync.ErrDivergence):
		return ExitDivergence
	}
	return ExitFailure
}

// errorKind names the class of err for the ERROR line.
func errorKind(err error) string {
	switch {
	case errors.Is(err, sync.ErrPrecondition):
		return "precondition failed"
	case errors.Is(err, sync.ErrTransport):
		return "transport failed"
	case errors.Is(err, sync.ErrDivergence):
		return "histories diverged"
	}
	return "sync failed"
}

// ReportError writes the ERROR block for err. The first line names the
// failure; git's raw output follows verbatim.
func ReportError(w io.Writer, err error) {
	summary := errorKind(err)
	if step := failedStep(err); step != "" {
		summary += " (" + step + ")"
	}
	_, _ = errorColor.Fprintf(w, "ERROR: %s\n", summary)

	diagnostic := sync.Diagnostic(err)
	if diagnostic == "" {
		diagnostic = err.Error()
	}
	for _, line := range strings.Split(diagnostic, "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}

	var divErr *sync.DivergenceError
	if errors.As(err, &divErr) && divErr.Op == "merge" {
		_, _ = dimColor.Fprintln(w, "  Re-run with --hard-reset to discard local changes and match the remote.")
	}
}

func failedStep(err error) string {
	var trErr *sync.TransportError
	var divErr *sync.DivergenceError
	var stepErr *sync.StepError
	switch {
	case errors.As(err, &trErr):
		return trErr.Op
	case errors.As(err, &divErr):
		return divErr.Op
	case errors.As(err, &stepErr):
		return stepErr.Op
	}
	return ""
}

// HandleError reports err, pauses when the --pause mode asks for it, and
// returns the exit status.
func HandleError(err error) int {
	if err == nil {
		return ExitOK
	}
	ReportError(os.Stderr, err)
	if shouldPause(flags.pause, runtime.GOOS, isatty.IsTerminal(os.Stdin.Fd())) {
		pause(os.Stdin, os.Stderr)
	}
	return ExitCode(err)
}

// shouldPause reports whether to wait for Enter before exiting. In auto mode
// it pauses only for interactive use on Windows, where the console window
// closes as soon as the process exits.
func shouldPause(mode, goos string, interactive bool) bool {
	switch mode {
	case PauseAlways:
		return true
	case PauseNever:
		return false
	}
	return goos == "windows" && interactive
}

func pause(in io.Reader, out io.Writer) {
	fmt.Fprint(out, "Press Enter to exit...")
	_, _ = bufio.NewReader(in).ReadString('\n')
}
