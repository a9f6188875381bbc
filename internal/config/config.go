package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danieljhkim/deploysync/internal/fsops"
)

// Built-in defaults.
const (
	DefaultRemoteURL  = "git@github.com:example/private-repo.git"
	DefaultBranch     = "main"
	DefaultRemoteName = "origin"
)

// Environment variables read by ApplyEnv.
const (
	EnvConfig         = "DEPLOYSYNC_CONFIG"
	EnvRemoteURL      = "DEPLOYSYNC_REMOTE_URL"
	EnvBranch         = "DEPLOYSYNC_BRANCH"
	EnvTargetPath     = "DEPLOYSYNC_TARGET_PATH"
	EnvCredentialPath = "DEPLOYSYNC_CREDENTIAL_PATH"
	EnvHardReset      = "DEPLOYSYNC_HARD_RESET"
	EnvKnownHosts     = "DEPLOYSYNC_KNOWN_HOSTS"
	EnvRemoteName     = "DEPLOYSYNC_REMOTE_NAME"
	EnvTimeout        = "DEPLOYSYNC_TIMEOUT"
	EnvLock           = "DEPLOYSYNC_LOCK"
)

// Config is the resolved configuration of one invocation.
type Config struct {
	RemoteURL      string        `yaml:"remote_url" json:"remoteUrl"`
	Branch         string        `yaml:"branch" json:"branch"`
	TargetPath     string        `yaml:"target_path" json:"targetPath"`
	CredentialPath string        `yaml:"credential_path" json:"credentialPath"`
	KnownHosts     string        `yaml:"known_hosts,omitempty" json:"knownHosts,omitempty"`
	RemoteName     string        `yaml:"remote_name" json:"remoteName"`
	HardReset      bool          `yaml:"hard_reset" json:"hardReset"`
	Timeout        time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Lock           bool          `yaml:"lock" json:"lock"`

	// File is the config file that was read, empty when none was.
	File string `yaml:"-" json:"file,omitempty"`
}

// fileConfig mirrors Config with pointers so that a key missing from the
// file leaves the lower layer untouched.
type fileConfig struct {
	RemoteURL      *string        `yaml:"remote_url"`
	Branch         *string        `yaml:"branch"`
	TargetPath     *string        `yaml:"target_path"`
	CredentialPath *string        `yaml:"credential_path"`
	KnownHosts     *string        `yaml:"known_hosts"`
	RemoteName     *string        `yaml:"remote_name"`
	HardReset      *bool          `yaml:"hard_reset"`
	Timeout        *time.Duration `yaml:"timeout"`
	Lock           *bool          `yaml:"lock"`
}

// Defaults returns the built-in configuration for paths.
func Defaults(paths *Paths) *Config {
	return &Config{
		RemoteURL:      DefaultRemoteURL,
		Branch:         DefaultBranch,
		TargetPath:     paths.Target,
		CredentialPath: paths.Credential,
		RemoteName:     DefaultRemoteName,
	}
}

// LoadOptions configures Load.
type LoadOptions struct {
	// Paths supplies the home-relative defaults
	Paths *Paths

	// File is an explicit config file. When set, the file must exist.
	File string

	// LookupEnv reads environment variables, os.LookupEnv in production
	LookupEnv func(string) (string, bool)

	// FS reads the config file
	FS fsops.FS
}

// FilePath returns the config file opts selects: opts.File, then
// DEPLOYSYNC_CONFIG, then the default location. required is false only for
// the default location, which may be missing.
func FilePath(opts LoadOptions) (path string, required bool) {
	path, required = opts.File, opts.File != ""
	if path == "" && opts.LookupEnv != nil {
		if v, ok := opts.LookupEnv(EnvConfig); ok && v != "" {
			path, required = v, true
		}
	}
	if path == "" {
		path = opts.Paths.Config
	}
	return fsops.ExpandHome(path, opts.Paths.Home), required
}

// Load resolves defaults, the config file and the environment, in that order.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Defaults(opts.Paths)

	path, required := FilePath(opts)
	if err := cfg.applyFile(opts.FS, path, required); err != nil {
		return nil, err
	}
	if opts.LookupEnv != nil {
		if err := cfg.ApplyEnv(opts.LookupEnv); err != nil {
			return nil, err
		}
	}
	cfg.ExpandPaths(opts.Paths.Home)
	return cfg, nil
}

func (c *Config) applyFile(fsys fsops.FS, path string, required bool) error {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&c.RemoteURL, fc.RemoteURL)
	setString(&c.Branch, fc.Branch)
	setString(&c.TargetPath, fc.TargetPath)
	setString(&c.CredentialPath, fc.CredentialPath)
	setString(&c.KnownHosts, fc.KnownHosts)
	setString(&c.RemoteName, fc.RemoteName)
	if fc.HardReset != nil {
		c.HardReset = *fc.HardReset
	}
	if fc.Timeout != nil {
		c.Timeout = *fc.Timeout
	}
	if fc.Lock != nil {
		c.Lock = *fc.Lock
	}
	c.File = path
	return nil
}

func setString(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}

// ApplyEnv overrides fields from DEPLOYSYNC_* variables. Empty values are
// ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		EnvRemoteURL:      &c.RemoteURL,
		EnvBranch:         &c.Branch,
		EnvTargetPath:     &c.TargetPath,
		EnvCredentialPath: &c.CredentialPath,
		EnvKnownHosts:     &c.KnownHosts,
		EnvRemoteName:     &c.RemoteName,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		EnvHardReset: &c.HardReset,
		EnvLock:      &c.Lock,
	}
	for key, dst := range bools {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", key, v, err)
		}
		*dst = b
	}

	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", EnvTimeout, v, err)
		}
		c.Timeout = d
	}
	return nil
}

// ExpandPaths replaces a leading "~" in every path field with home.
func (c *Config) ExpandPaths(home string) {
	c.TargetPath = fsops.ExpandHome(c.TargetPath, home)
	c.CredentialPath = fsops.ExpandHome(c.CredentialPath, home)
	c.KnownHosts = fsops.ExpandHome(c.KnownHosts, home)
}

// YAML renders the configuration in config file form.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Save writes the configuration to path in config file form.
func (c *Config) Save(fsys fsops.FS, path string) error {
	data, err := c.YAML()
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	if err := fsys.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
