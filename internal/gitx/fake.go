package gitx

import (
	"context"
	"fmt"
	"strings"
)

// FakeEngine is a test double that records every call and simulates a
// single remote with branch tips and a commit graph.
//
// Remote maps branch names to commit IDs on the remote. Parents maps a commit
// ID to its parent, which is what Merge consults to decide whether a
// fast-forward is possible. Local holds local branch tips, Tracking holds
// remote-tracking refs keyed as "<remote>/<branch>".
type FakeEngine struct {
	VersionCalls       int
	CloneCalls         []CloneOptions
	CheckoutCalls      []CheckoutCall
	CurrentBranchCalls int
	FetchCalls         []FetchCall
	MergeCalls         []MergeCall
	ResetCalls         []ResetCall
	RevParseCalls      []RevParseCall

	// Configurable failures
	VersionErr  error
	CloneErr    error
	CheckoutErr error
	FetchErr    error
	MergeErr    error
	ResetErr    error

	// OnClone runs after a successful simulated clone, e.g. to create the
	// .git marker in a real temp directory.
	OnClone func(dest string) error

	// OnCheckout runs after a successful simulated checkout.
	OnCheckout func(opts CheckoutOptions)

	// Unmerged simulates an index left conflicted by an unfinished merge.
	// Only a forced checkout or a hard reset clears it.
	Unmerged bool

	Remote   map[string]string
	Parents  map[string]string
	Local    map[string]string
	Tracking map[string]string
	Current  string

	// RemoteName is the remote a clone configures. Defaults to "origin".
	RemoteName string
}

type CheckoutCall struct {
	Dir string
	CheckoutOptions
}

type FetchCall struct {
	Dir       string
	Remote    string
	Branch    string
	Transport TransportOverride
}

type MergeCall struct {
	Dir       string
	Ref       string
	FFOnly    bool
	Transport TransportOverride
}

type ResetCall struct {
	Dir       string
	Mode      ResetMode
	Ref       string
	Transport TransportOverride
}

type RevParseCall struct {
	Dir string
	Ref string
}

// NewFakeEngine creates a FakeEngine whose remote has a single commit on
// branch.
func NewFakeEngine(branch, commit string) *FakeEngine {
	return &FakeEngine{
		Remote:     map[string]string{branch: commit},
		Parents:    map[string]string{},
		Local:      map[string]string{},
		Tracking:   map[string]string{},
		RemoteName: "origin",
	}
}

// Advance adds commit on top of the remote branch tip.
func (f *FakeEngine) Advance(branch, commit string) {
	f.Parents[commit] = f.Remote[branch]
	f.Remote[branch] = commit
}

// CommitLocal adds commit on top of the current local branch.
func (f *FakeEngine) CommitLocal(commit string) {
	f.Parents[commit] = f.Local[f.Current]
	f.Local[f.Current] = commit
}

// TransportCalls returns the number of calls that may contact the remote.
func (f *FakeEngine) TransportCalls() int {
	return len(f.CloneCalls) + len(f.FetchCalls)
}

// TotalCalls returns the number of recorded calls of any kind.
func (f *FakeEngine) TotalCalls() int {
	return f.VersionCalls + len(f.CloneCalls) + len(f.CheckoutCalls) + f.CurrentBranchCalls +
		len(f.FetchCalls) + len(f.MergeCalls) + len(f.ResetCalls) + len(f.RevParseCalls)
}

func (f *FakeEngine) remoteName() string {
	if f.RemoteName == "" {
		return "origin"
	}
	return f.RemoteName
}

func fakeFailure(op string, typ ExecErrorType, stderr string) error {
	return &ExecError{
		Type:   typ,
		Args:   []string{op},
		Err:    fmt.Errorf("exit status 1"),
		Stderr: stderr,
	}
}

func (f *FakeEngine) Version(ctx context.Context) (string, error) {
	f.VersionCalls++
	if f.VersionErr != nil {
		return "", f.VersionErr
	}
	return "git version 2.43.0", nil
}

func (f *FakeEngine) Clone(ctx context.Context, opts CloneOptions) (Output, error) {
	f.CloneCalls = append(f.CloneCalls, opts)
	if f.CloneErr != nil {
		return Output{}, f.CloneErr
	}
	tip, ok := f.Remote[opts.Branch]
	if !ok {
		return Output{}, fakeFailure("clone", UnknownReference,
			fmt.Sprintf("warning: Could not find remote branch %s to clone.\nfatal: Remote branch %s not found in upstream origin", opts.Branch, opts.Branch))
	}
	if opts.Origin != "" {
		f.RemoteName = opts.Origin
	}
	f.Local[opts.Branch] = tip
	f.Tracking[f.remoteName()+"/"+opts.Branch] = tip
	f.Current = opts.Branch
	if f.OnClone != nil {
		if err := f.OnClone(opts.Destination); err != nil {
			return Output{}, err
		}
	}
	return Output{Stderr: fmt.Sprintf("Cloning into '%s'...", opts.Destination)}, nil
}

func (f *FakeEngine) Checkout(ctx context.Context, dir string, opts CheckoutOptions) (Output, error) {
	f.CheckoutCalls = append(f.CheckoutCalls, CheckoutCall{Dir: dir, CheckoutOptions: opts})
	if f.CheckoutErr != nil {
		return Output{}, f.CheckoutErr
	}
	if f.Unmerged && !opts.Force {
		return Output{}, fakeFailure("checkout", Unknown,
			"error: you need to resolve your current index first")
	}

	if opts.StartPoint != "" {
		if _, ok := f.Local[opts.Branch]; ok {
			return Output{}, fakeFailure("checkout", Unknown,
				fmt.Sprintf("fatal: a branch named '%s' already exists", opts.Branch))
		}
		tip, ok := f.Tracking[opts.StartPoint]
		if !ok {
			return Output{}, fakeFailure("checkout", UnknownReference,
				fmt.Sprintf("fatal: '%s' is not a commit and a branch '%s' cannot be created from it", opts.StartPoint, opts.Branch))
		}
		f.Local[opts.Branch] = tip
	} else if _, ok := f.Local[opts.Branch]; !ok {
		return Output{}, fakeFailure("checkout", UnknownReference,
			fmt.Sprintf("fatal: invalid reference: %s", opts.Branch))
	}

	f.Current = opts.Branch
	if opts.Force {
		f.Unmerged = false
	}
	if f.OnCheckout != nil {
		f.OnCheckout(opts)
	}
	return Output{Stderr: fmt.Sprintf("Switched to branch '%s'", opts.Branch)}, nil
}

func (f *FakeEngine) CurrentBranch(ctx context.Context, dir string) (string, error) {
	f.CurrentBranchCalls++
	if f.Current == "" {
		return "", fakeFailure("symbolic-ref", Unknown, "")
	}
	return f.Current, nil
}

func (f *FakeEngine) Fetch(ctx context.Context, dir, remote, branch string, t TransportOverride) (Output, error) {
	f.FetchCalls = append(f.FetchCalls, FetchCall{Dir: dir, Remote: remote, Branch: branch, Transport: t})
	if f.FetchErr != nil {
		return Output{}, f.FetchErr
	}
	tip, ok := f.Remote[branch]
	if !ok {
		return Output{}, fakeFailure("fetch", UnknownReference,
			fmt.Sprintf("fatal: couldn't find remote ref refs/heads/%s", branch))
	}
	f.Tracking[remote+"/"+branch] = tip
	return Output{}, nil
}

func (f *FakeEngine) isAncestor(ancestor, commit string) bool {
	for c := commit; c != ""; c = f.Parents[c] {
		if c == ancestor {
			return true
		}
	}
	return false
}

func (f *FakeEngine) resolve(ref string) (string, bool) {
	if ref == "HEAD" {
		tip, ok := f.Local[f.Current]
		return tip, ok
	}
	if tip, ok := f.Tracking[ref]; ok {
		return tip, true
	}
	tip, ok := f.Local[strings.TrimPrefix(ref, "refs/heads/")]
	return tip, ok
}

func (f *FakeEngine) Merge(ctx context.Context, dir, ref string, ffOnly bool, t TransportOverride) (Output, error) {
	f.MergeCalls = append(f.MergeCalls, MergeCall{Dir: dir, Ref: ref, FFOnly: ffOnly, Transport: t})
	if f.MergeErr != nil {
		return Output{}, f.MergeErr
	}
	target, ok := f.resolve(ref)
	if !ok {
		return Output{}, fakeFailure("merge", UnknownReference,
			fmt.Sprintf("merge: %s - not something we can merge", ref))
	}
	local := f.Local[f.Current]
	switch {
	case f.isAncestor(target, local):
		return Output{Stdout: "Already up to date."}, nil
	case f.isAncestor(local, target):
		f.Local[f.Current] = target
		return Output{Stdout: fmt.Sprintf("Updating %s..%s\nFast-forward", local, target)}, nil
	}
	return Output{}, fakeFailure("merge", NotFastForward, "hint: Diverging branches can't be fast-forwarded.\nfatal: Not possible to fast-forward, aborting.")
}

func (f *FakeEngine) Reset(ctx context.Context, dir string, mode ResetMode, ref string, t TransportOverride) (Output, error) {
	f.ResetCalls = append(f.ResetCalls, ResetCall{Dir: dir, Mode: mode, Ref: ref, Transport: t})
	if f.ResetErr != nil {
		return Output{}, f.ResetErr
	}
	target, ok := f.resolve(ref)
	if !ok {
		return Output{}, fakeFailure("reset", UnknownReference,
			fmt.Sprintf("fatal: ambiguous argument '%s': unknown revision or path not in the working tree.", ref))
	}
	f.Local[f.Current] = target
	if mode == ResetHard {
		f.Unmerged = false
	}
	return Output{Stdout: fmt.Sprintf("HEAD is now at %s", target)}, nil
}

func (f *FakeEngine) RevParse(ctx context.Context, dir, ref string) (string, error) {
	f.RevParseCalls = append(f.RevParseCalls, RevParseCall{Dir: dir, Ref: ref})
	tip, ok := f.resolve(ref)
	if !ok {
		return "", fakeFailure("rev-parse", UnknownReference, "")
	}
	return tip, nil
}
