package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/danieljhkim/deploysync/internal/sync"
)

var (
	// fatih/color disables these automatically when output is not a TTY
	successColor = color.New(color.FgGreen, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	labelColor   = color.New(color.FgWhite, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
)

// PrintSuccess prints a success message with a checkmark
func PrintSuccess(w io.Writer, msg string) {
	_, _ = successColor.Fprintf(w, "✓ %s\n", msg)
}

// PrintWarning prints a warning message with a warning symbol
func PrintWarning(w io.Writer, msg string) {
	_, _ = warningColor.Fprintf(w, "⚠ %s\n", msg)
}

// PrintField prints an aligned "label: value" line
func PrintField(w io.Writer, label, value string) {
	_, _ = labelColor.Fprintf(w, "  %-12s", label+":")
	fmt.Fprintf(w, " %s\n", value)
}

// shortCommit abbreviates a commit ID for display.
func shortCommit(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	if id == "" {
		return "(none)"
	}
	return id
}

// completionLine is the final line printed after a successful run.
func completionLine(r *sync.Result) string {
	d := r.Duration.Round(10 * time.Millisecond)
	switch r.Action {
	case sync.ActionCloned:
		return fmt.Sprintf("Cloned %s into %s at %s in %s", r.Branch, r.TargetPath, shortCommit(r.After), d)
	case sync.ActionHardReset:
		return fmt.Sprintf("Reset %s in %s to %s in %s", r.Branch, r.TargetPath, shortCommit(r.After), d)
	}
	if !r.Changed() {
		return fmt.Sprintf("%s in %s is already up to date at %s", r.Branch, r.TargetPath, shortCommit(r.After))
	}
	return fmt.Sprintf("Fast-forwarded %s in %s from %s to %s in %s",
		r.Branch, r.TargetPath, shortCommit(r.Before), shortCommit(r.After), d)
}
