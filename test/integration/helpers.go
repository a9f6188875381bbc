// Package integration runs the synchronizer end to end against real git
// repositories.
package integration

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/danieljhkim/deploysync/internal/fsops"
	"github.com/danieljhkim/deploysync/internal/gitx"
	"github.com/danieljhkim/deploysync/internal/lock"
	"github.com/danieljhkim/deploysync/internal/sync"
	"github.com/danieljhkim/deploysync/internal/testutil"
)

// harness holds a remote repository, a deploy key and a syncer wired with
// real implementations.
type harness struct {
	remote *testutil.Repo
	first  string
	key    string
	target string
	syncer *sync.Syncer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	testutil.RequireGit(t)

	remote, first := testutil.NewRepo(t, "main")
	dir := t.TempDir()

	return &harness{
		remote: remote,
		first:  first,
		key:    testutil.WriteKey(t, dir),
		target: filepath.Join(dir, "work", "repo"),
		syncer: sync.New(
			gitx.NewRealEngine(),
			fsops.NewRealFS(),
			zerolog.New(zerolog.NewTestWriter(t)),
			sync.WithLocker(lock.NewFileLocker()),
		),
	}
}

func (h *harness) request(force bool) *sync.Request {
	return &sync.Request{
		RemoteURL:      h.remote.Path,
		Branch:         "main",
		TargetPath:     h.target,
		CredentialPath: h.key,
		RemoteName:     "origin",
		Force:          force,
	}
}
