package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/danieljhkim/deploysync/internal/config"
	"github.com/danieljhkim/deploysync/internal/fsops"
	"github.com/danieljhkim/deploysync/internal/gitx"
	"github.com/danieljhkim/deploysync/internal/lock"
	"github.com/danieljhkim/deploysync/internal/logging"
	"github.com/danieljhkim/deploysync/internal/sync"
)

// newGitEngine returns the git engine used by commands. Tests replace it.
var newGitEngine = func() gitx.Engine {
	return gitx.NewRealEngine()
}

// defaultPaths returns the home-relative defaults. Tests replace it.
var defaultPaths = config.DefaultPaths

// loadOptions selects the config file and environment for this invocation.
func loadOptions() (config.LoadOptions, error) {
	paths, err := defaultPaths()
	if err != nil {
		return config.LoadOptions{}, fmt.Errorf("failed to get config paths: %w", err)
	}
	return config.LoadOptions{
		Paths:     paths,
		File:      flags.configFile,
		LookupEnv: os.LookupEnv,
		FS:        fsops.NewRealFS(),
	}, nil
}

// resolveConfig layers defaults, the config file, the environment and the
// flags the user actually set.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	opts, err := loadOptions()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts)
	if err != nil {
		return nil, err
	}

	fl := cmd.Flags()
	if fl.Changed("remote-url") {
		cfg.RemoteURL = flags.remoteURL
	}
	if fl.Changed("branch") {
		cfg.Branch = flags.branch
	}
	if fl.Changed("target-path") {
		cfg.TargetPath = flags.targetPath
	}
	if fl.Changed("credential-path") {
		cfg.CredentialPath = flags.credentialPath
	}
	if fl.Changed("known-hosts") {
		cfg.KnownHosts = flags.knownHosts
	}
	if fl.Changed("remote-name") {
		cfg.RemoteName = flags.remoteName
	}
	if fl.Changed("hard-reset") {
		cfg.HardReset = flags.hardReset
	}
	if fl.Changed("timeout") {
		cfg.Timeout = flags.timeout
	}
	if fl.Changed("lock") {
		cfg.Lock = flags.lock
	}
	cfg.ExpandPaths(opts.Paths.Home)
	return cfg, nil
}

// newRequest builds a sync request from a resolved configuration.
func newRequest(cfg *config.Config) *sync.Request {
	return &sync.Request{
		RemoteURL:      cfg.RemoteURL,
		Branch:         cfg.Branch,
		TargetPath:     cfg.TargetPath,
		CredentialPath: cfg.CredentialPath,
		KnownHostsPath: cfg.KnownHosts,
		RemoteName:     cfg.RemoteName,
		Force:          cfg.HardReset,
	}
}

// newLogger creates the progress logger for a command.
func newLogger(w io.Writer) (zerolog.Logger, error) {
	format, err := logging.ParseFormat(flags.logFormat)
	if err != nil {
		return zerolog.Nop(), err
	}
	return logging.New(w, logging.Options{
		Format:  format,
		Verbose: flags.verbose,
		Quiet:   flags.quiet,
	}), nil
}

// newSyncer creates a Syncer with real implementations of all dependencies.
func newSyncer(cfg *config.Config, logger zerolog.Logger) *sync.Syncer {
	var opts []sync.Option
	if cfg.Lock {
		opts = append(opts, sync.WithLocker(lock.NewFileLocker()))
	}
	return sync.New(newGitEngine(), fsops.NewRealFS(), logger, opts...)
}

// withTimeout derives a deadline from the configured timeout. Zero means no
// timeout.
func withTimeout(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.Timeout)
}

// outputJSON outputs a value as indented JSON.
func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
