// Package sync clones or updates a working copy of a remote branch.
//
// A Syncer runs the preconditions (git is invocable, the credential is a
// readable file), makes sure the target directory exists, classifies it, and
// then either clones into it or updates it with checkout, fetch and a
// fast-forward merge (or a hard reset when forced). Every git call carries a
// transport override that pins the request's private key.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/danieljhkim/deploysync/internal/clock"
	"github.com/danieljhkim/deploysync/internal/fsops"
	"github.com/danieljhkim/deploysync/internal/gitx"
)

// Locker serializes runs against one target path.
type Locker interface {
	// Lock acquires the lock for target and returns the function that
	// releases it.
	Lock(target string) (func() error, error)
}

// Syncer synchronizes a local working copy with a remote branch.
type Syncer struct {
	git    gitx.Engine
	fs     fsops.FS
	logger zerolog.Logger
	clock  clock.Clock
	locker Locker
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithClock sets the clock used to time runs.
func WithClock(c clock.Clock) Option {
	return func(s *Syncer) {
		s.clock = c
	}
}

// WithLocker makes every run hold l's lock over the target path.
func WithLocker(l Locker) Option {
	return func(s *Syncer) {
		s.locker = l
	}
}

// New creates a new Syncer with the specified dependencies.
func New(git gitx.Engine, fs fsops.FS, logger zerolog.Logger, opts ...Option) *Syncer {
	s := &Syncer{
		git:    git,
		fs:     fs,
		logger: logger,
		clock:  &clock.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synchronize makes req.TargetPath a working copy of req.Branch at the
// remote tip. It returns a *PreconditionError, *TransportError or
// *DivergenceError on failure; other errors are wrapped git failures of local
// steps.
func (s *Syncer) Synchronize(ctx context.Context, req *Request) (*Result, error) {
	sw := clock.Start(s.clock)

	r, err := s.preflight(ctx, req)
	if err != nil {
		return nil, err
	}

	if s.locker != nil {
		unlock, err := s.locker.Lock(r.TargetPath)
		if err != nil {
			return nil, &PreconditionError{Reason: "failed to lock target path", Err: err}
		}
		defer func() {
			if err := unlock(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to release target lock")
			}
		}()
	}

	if err := s.ensureTarget(r.TargetPath); err != nil {
		return nil, err
	}

	state, err := s.classify(r.TargetPath)
	if err != nil {
		return nil, &PreconditionError{Reason: "failed to inspect target path", Err: err}
	}
	s.logger.Debug().Str("target", r.TargetPath).Str("state", string(state)).Msg("classified target")

	var result *Result
	if state.IsRepo() {
		result, err = s.update(ctx, r)
	} else {
		result, err = s.clone(ctx, r)
	}
	if err != nil {
		return nil, err
	}

	result.Duration = sw.Elapsed()
	s.logger.Info().
		Str("action", string(result.Action)).
		Str("commit", result.After).
		Dur("duration", result.Duration).
		Msg("sync completed")
	return result, nil
}

// Check runs the preconditions and classifies the target without creating
// it or contacting the remote.
func (s *Syncer) Check(ctx context.Context, req *Request) (State, error) {
	r, err := s.preflight(ctx, req)
	if err != nil {
		return "", err
	}
	state, err := s.classify(r.TargetPath)
	if err != nil {
		return "", &PreconditionError{Reason: "failed to inspect target path", Err: err}
	}
	return state, nil
}

// preflight validates and normalizes a copy of req and runs the checks that
// must pass before anything is mutated.
func (s *Syncer) preflight(ctx context.Context, req *Request) (*Request, error) {
	if req == nil {
		return nil, &PreconditionError{Reason: "no sync request"}
	}
	r := *req
	if err := r.Validate(); err != nil {
		return nil, &PreconditionError{Reason: "invalid sync request", Err: err}
	}
	if err := r.Normalize(); err != nil {
		return nil, &PreconditionError{Reason: "invalid sync request", Err: err}
	}

	s.logger.Info().Str("phase", "preflight").Msg("checking git")
	version, err := s.git.Version(ctx)
	if err != nil {
		return nil, &PreconditionError{Reason: "git is not available", Err: err}
	}
	s.logger.Debug().Str("git", version).Msg("git found")

	s.logger.Info().Str("phase", "preflight").Str("credential", r.CredentialPath).Msg("checking credential")
	if err := s.fs.CheckReadable(r.CredentialPath); err != nil {
		return nil, &PreconditionError{Reason: "credential file is not readable", Err: err}
	}
	if r.KnownHostsPath != "" {
		if err := s.fs.CheckReadable(r.KnownHostsPath); err != nil {
			return nil, &PreconditionError{Reason: "known hosts file is not readable", Err: err}
		}
	}
	return &r, nil
}

func (s *Syncer) ensureTarget(target string) error {
	exists, err := s.fs.Exists(target)
	if err != nil {
		return &PreconditionError{Reason: "failed to inspect target path", Err: err}
	}
	if exists {
		isDir, err := s.fs.IsDir(target)
		if err != nil {
			return &PreconditionError{Reason: "failed to inspect target path", Err: err}
		}
		if !isDir {
			return &PreconditionError{Reason: "target path exists and is not a directory: " + target}
		}
		return nil
	}

	s.logger.Info().Str("phase", "prepare").Str("target", target).Msg("creating target directory")
	if err := s.fs.MkdirAll(target, 0755); err != nil {
		return &PreconditionError{Reason: "failed to create target path", Err: err}
	}
	return nil
}

func (s *Syncer) classify(target string) (State, error) {
	exists, err := s.fs.Exists(target)
	if err != nil {
		return "", err
	}
	if !exists {
		return StateAbsent, nil
	}
	marker, err := s.fs.Exists(filepath.Join(target, fsops.GitMarker))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	if marker {
		return StatePresent, nil
	}
	return StateUninitialized, nil
}

func (s *Syncer) clone(ctx context.Context, r *Request) (*Result, error) {
	if empty, err := s.fs.IsEmptyDir(r.TargetPath); err == nil && !empty {
		s.logger.Warn().Str("target", r.TargetPath).Msg("target is not empty and not a working copy, clone will likely fail")
	}

	s.logger.Info().Str("phase", "clone").Str("remote", r.RemoteURL).Str("branch", r.Branch).Msg("cloning repository")
	out, err := s.git.Clone(ctx, gitx.CloneOptions{
		URL:          r.RemoteURL,
		Branch:       r.Branch,
		SingleBranch: true,
		Destination:  r.TargetPath,
		Transport:    r.Transport(),
		Origin:       r.RemoteName,
	})
	if err != nil {
		return nil, &TransportError{Op: "clone", Err: err}
	}

	return &Result{
		Succeeded:  true,
		Action:     ActionCloned,
		Diagnostic: out.Text(),
		Branch:     r.Branch,
		TargetPath: r.TargetPath,
		After:      s.revParse(ctx, r.TargetPath, "HEAD"),
	}, nil
}

func (s *Syncer) update(ctx context.Context, r *Request) (*Result, error) {
	dir := r.TargetPath
	t := r.Transport()
	before := s.revParse(ctx, dir, "refs/heads/"+r.Branch)

	fetched, err := s.checkout(ctx, r)
	if err != nil {
		return nil, err
	}
	if !fetched {
		if err := s.fetch(ctx, r); err != nil {
			return nil, &TransportError{Op: "fetch", Err: err}
		}
	}

	result := &Result{
		Succeeded:  true,
		Branch:     r.Branch,
		TargetPath: dir,
		Before:     before,
	}

	if r.Force {
		s.logger.Info().Str("phase", "reset").Str("ref", r.RemoteRef()).Msg("resetting to remote tip")
		out, err := s.git.Reset(ctx, dir, gitx.ResetHard, r.RemoteRef(), t)
		if err != nil {
			return nil, &StepError{Op: "reset", Err: err}
		}
		result.Action = ActionHardReset
		result.Diagnostic = out.Text()
	} else {
		s.logger.Info().Str("phase", "merge").Str("ref", r.RemoteRef()).Msg("fast-forwarding to remote tip")
		out, err := s.git.Merge(ctx, dir, r.RemoteRef(), true, t)
		if err != nil {
			return nil, &DivergenceError{Op: "merge", Branch: r.Branch, Err: err}
		}
		result.Action = ActionFastForwarded
		result.Diagnostic = out.Text()
	}

	result.After = s.revParse(ctx, dir, "HEAD")
	return result, nil
}

func (s *Syncer) fetch(ctx context.Context, r *Request) error {
	s.logger.Info().Str("phase", "fetch").Str("remote", r.RemoteName).Str("branch", r.Branch).Msg("fetching branch")
	_, err := s.git.Fetch(ctx, r.TargetPath, r.RemoteName, r.Branch, r.Transport())
	return err
}

// checkout switches to the requested branch and reports whether it had to
// fetch it. A branch unknown locally is fetched and then created from its
// remote-tracking ref. A forced checkout discards whatever blocks the switch,
// including an unfinished merge.
func (s *Syncer) checkout(ctx context.Context, r *Request) (bool, error) {
	dir := r.TargetPath
	opts := gitx.CheckoutOptions{
		Branch:    r.Branch,
		Force:     r.Force,
		Transport: r.Transport(),
	}

	s.logger.Info().Str("phase", "checkout").Str("branch", r.Branch).Bool("force", r.Force).Msg("switching branch")
	_, err := s.git.Checkout(ctx, dir, opts)
	fetched := false
	if err != nil {
		if gitx.ErrorType(err) != gitx.UnknownReference {
			return false, &DivergenceError{Op: "checkout", Branch: r.Branch, Err: err}
		}

		s.logger.Info().Str("phase", "checkout").Str("branch", r.Branch).Msg("branch not found locally, fetching it")
		if err := s.fetch(ctx, r); err != nil {
			if gitx.ErrorType(err) == gitx.UnknownReference {
				return false, &DivergenceError{Op: "checkout", Branch: r.Branch, Err: err}
			}
			return false, &TransportError{Op: "fetch", Err: err}
		}
		fetched = true

		opts.StartPoint = r.RemoteRef()
		s.logger.Info().Str("phase", "checkout").Str("branch", r.Branch).Str("from", opts.StartPoint).Msg("creating local branch")
		if _, err := s.git.Checkout(ctx, dir, opts); err != nil {
			return fetched, &DivergenceError{Op: "checkout", Branch: r.Branch, Err: err}
		}
	}

	current, err := s.git.CurrentBranch(ctx, dir)
	if err != nil {
		return fetched, &DivergenceError{Op: "checkout", Branch: r.Branch, Err: err}
	}
	if current != r.Branch {
		return fetched, &DivergenceError{
			Op:     "checkout",
			Branch: r.Branch,
			Err:    fmt.Errorf("HEAD is on %q after switching to %q", current, r.Branch),
		}
	}
	return fetched, nil
}

// revParse returns the commit ref points to, or "" when it cannot be
// resolved. It never fails a run.
func (s *Syncer) revParse(ctx context.Context, dir, ref string) string {
	commit, err := s.git.RevParse(ctx, dir, ref)
	if err != nil {
		s.logger.Debug().Err(err).Str("ref", ref).Msg("failed to resolve ref")
		return ""
	}
	return commit
}
