// Package gitx wraps the git binary behind a narrow interface.
//
// The Engine interface covers exactly what repository synchronization needs:
// a presence probe, the clone/checkout/fetch/merge/reset primitives, and the
// read-only rev-parse and current-branch queries. RealEngine shells out to git; FakeEngine records calls
// for tests.
package gitx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ResetMode selects the kind of reset performed by Engine.Reset.
type ResetMode string

const (
	// ResetHard discards the index and working tree changes.
	ResetHard ResetMode = "hard"
)

// Output is the raw text produced by a git invocation.
type Output struct {
	Stdout string
	Stderr string
}

// Text returns the combined output, trimmed.
func (o Output) Text() string {
	return strings.TrimSpace(strings.TrimSpace(o.Stdout) + "\n" + strings.TrimSpace(o.Stderr))
}

// CloneOptions holds the parameters of Engine.Clone.
type CloneOptions struct {
	URL          string
	Branch       string
	SingleBranch bool
	Destination  string
	Transport    TransportOverride

	// Origin names the remote in the new clone. Empty means git's default.
	Origin string
}

// CheckoutOptions holds the parameters of Engine.Checkout.
type CheckoutOptions struct {
	Branch    string
	Transport TransportOverride

	// StartPoint, when set, creates Branch at this ref instead of switching
	// to an existing local branch.
	StartPoint string

	// Force discards local modifications and an unfinished merge that would
	// otherwise block the switch.
	Force bool
}

// Engine provides the git primitives used to synchronize a working copy.
type Engine interface {
	// Version probes that git is invocable and returns its version string.
	Version(ctx context.Context) (string, error)

	// Clone clones opts.URL into opts.Destination.
	Clone(ctx context.Context, opts CloneOptions) (Output, error)

	// Checkout switches the working copy in dir to opts.Branch, creating it
	// from opts.StartPoint when one is given.
	Checkout(ctx context.Context, dir string, opts CheckoutOptions) (Output, error)

	// CurrentBranch returns the short name of the branch HEAD points to.
	CurrentBranch(ctx context.Context, dir string) (string, error)

	// Fetch fetches branch from remote into its remote-tracking ref.
	Fetch(ctx context.Context, dir, remote, branch string, t TransportOverride) (Output, error)

	// Merge merges ref into the current branch.
	Merge(ctx context.Context, dir, ref string, ffOnly bool, t TransportOverride) (Output, error)

	// Reset moves the current branch to ref.
	Reset(ctx context.Context, dir string, mode ResetMode, ref string, t TransportOverride) (Output, error)

	// RevParse resolves ref to a commit ID.
	RevParse(ctx context.Context, dir, ref string) (string, error)
}

// ErrGitNotFound is returned when no git executable can be located.
var ErrGitNotFound = errors.New("git executable not found")

// RealEngine implements Engine by running the git binary.
type RealEngine struct {
	// Path to the git executable. Resolved lazily when empty.
	gitPath string
}

// NewRealEngine creates a new RealEngine. The git executable is looked up on
// PATH the first time it is needed.
func NewRealEngine() *RealEngine {
	return &RealEngine{}
}

// NewRealEngineWithPath creates a RealEngine that runs the git executable at
// path.
func NewRealEngineWithPath(path string) *RealEngine {
	return &RealEngine{gitPath: path}
}

func (g *RealEngine) lookPath() (string, error) {
	if g.gitPath != "" {
		return g.gitPath, nil
	}
	p, err := exec.LookPath("git")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGitNotFound, err)
	}
	g.gitPath = p
	return p, nil
}

// run executes git with args in dir. The transport override, when set, is
// applied to this child process only.
func (g *RealEngine) run(ctx context.Context, dir string, t TransportOverride, args ...string) (Output, error) {
	gitPath, err := g.lookPath()
	if err != nil {
		return Output{}, err
	}

	cmd := exec.CommandContext(ctx, gitPath, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	cmd.Env = append(cmd.Env, t.Env()...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return out, fmt.Errorf("%w: %v", ErrGitNotFound, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return out, &ExecError{
			Type:   determineErrorType(out.Stderr),
			Args:   args,
			Err:    err,
			Stdout: out.Stdout,
			Stderr: out.Stderr,
		}
	}
	return out, nil
}

// Version runs "git --version".
func (g *RealEngine) Version(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "", TransportOverride{}, "--version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Stdout), nil
}

// Clone runs "git clone".
func (g *RealEngine) Clone(ctx context.Context, opts CloneOptions) (Output, error) {
	args := []string{"clone", "--branch", opts.Branch}
	if opts.SingleBranch {
		args = append(args, "--single-branch")
	}
	if opts.Origin != "" {
		args = append(args, "--origin", opts.Origin)
	}
	args = append(args, "--", opts.URL, opts.Destination)
	return g.run(ctx, "", opts.Transport, args...)
}

// Checkout runs "git checkout <branch> --" or, with a start point,
// "git checkout -b <branch> <start> --". The trailing "--" keeps git from
// reading the branch as a pathspec when a file has the same name.
//
// Creation is explicit: git only guesses a branch from a remote-tracking ref
// that a configured fetch refspec covers, which a single-branch clone lacks.
func (g *RealEngine) Checkout(ctx context.Context, dir string, opts CheckoutOptions) (Output, error) {
	args := []string{"checkout"}
	if opts.Force {
		args = append(args, "--force")
	}
	if opts.StartPoint != "" {
		args = append(args, "-b", opts.Branch, opts.StartPoint)
	} else {
		args = append(args, opts.Branch)
	}
	args = append(args, "--")
	return g.run(ctx, dir, opts.Transport, args...)
}

// CurrentBranch runs "git symbolic-ref --quiet --short HEAD". It fails when
// HEAD is detached.
func (g *RealEngine) CurrentBranch(ctx context.Context, dir string) (string, error) {
	out, err := g.run(ctx, dir, TransportOverride{}, "symbolic-ref", "--quiet", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Stdout), nil
}

// Fetch runs "git fetch" with an explicit refspec, so the remote-tracking ref
// is updated even in a single-branch clone.
func (g *RealEngine) Fetch(ctx context.Context, dir, remote, branch string, t TransportOverride) (Output, error) {
	refspec := fmt.Sprintf("+refs/heads/%s:refs/remotes/%s/%s", branch, remote, branch)
	return g.run(ctx, dir, t, "fetch", "--prune", remote, refspec)
}

// Merge runs "git merge".
func (g *RealEngine) Merge(ctx context.Context, dir, ref string, ffOnly bool, t TransportOverride) (Output, error) {
	args := []string{"merge"}
	if ffOnly {
		args = append(args, "--ff-only")
	}
	args = append(args, ref)
	return g.run(ctx, dir, t, args...)
}

// Reset runs "git reset --<mode> <ref>".
func (g *RealEngine) Reset(ctx context.Context, dir string, mode ResetMode, ref string, t TransportOverride) (Output, error) {
	return g.run(ctx, dir, t, "reset", "--"+string(mode), ref, "--")
}

// RevParse runs "git rev-parse --verify <ref>^{commit}".
func (g *RealEngine) RevParse(ctx context.Context, dir, ref string) (string, error) {
	out, err := g.run(ctx, dir, TransportOverride{}, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Stdout), nil
}
