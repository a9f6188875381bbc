package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/danieljhkim/deploysync/internal/fsops"
)

var testHome = filepath.FromSlash("/home/deploy")

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	paths := PathsFor(testHome, "")
	cfg, err := Load(LoadOptions{Paths: paths, FS: fsops.NewMemFS(), LookupEnv: envMap(nil)})
	require.NoError(t, err)

	assert.Equal(t, DefaultRemoteURL, cfg.RemoteURL)
	assert.Equal(t, "main", cfg.Branch)
	assert.Equal(t, "origin", cfg.RemoteName)
	assert.Equal(t, paths.Target, cfg.TargetPath)
	assert.Equal(t, paths.Credential, cfg.CredentialPath)
	assert.False(t, cfg.HardReset)
	assert.False(t, cfg.Lock)
	assert.Zero(t, cfg.Timeout)
	assert.Empty(t, cfg.File, "missing default config file is not an error")
}

func TestLoad_Layering(t *testing.T) {
	paths := PathsFor(testHome, "")
	fs := fsops.NewMemFS()
	file := `
remote_url: git@example.com:team/site.git
branch: production
target_path: ~/sites/prod
hard_reset: true
timeout: 90s
lock: true
`
	require.NoError(t, fs.WriteFile(paths.Config, []byte(file), 0644))

	t.Run("file overrides defaults", func(t *testing.T) {
		cfg, err := Load(LoadOptions{Paths: paths, FS: fs, LookupEnv: envMap(nil)})
		require.NoError(t, err)

		assert.Equal(t, "git@example.com:team/site.git", cfg.RemoteURL)
		assert.Equal(t, "production", cfg.Branch)
		assert.Equal(t, filepath.Join(testHome, "sites/prod"), cfg.TargetPath)
		assert.Equal(t, paths.Credential, cfg.CredentialPath, "keys missing from the file keep defaults")
		assert.True(t, cfg.HardReset)
		assert.True(t, cfg.Lock)
		assert.Equal(t, 90*time.Second, cfg.Timeout)
		assert.Equal(t, paths.Config, cfg.File)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		cfg, err := Load(LoadOptions{Paths: paths, FS: fs, LookupEnv: envMap(map[string]string{
			EnvBranch:         "staging",
			EnvHardReset:      "false",
			EnvCredentialPath: "~/.ssh/other",
			EnvTimeout:        "5m",
			EnvRemoteURL:      "",
		})})
		require.NoError(t, err)

		assert.Equal(t, "staging", cfg.Branch)
		assert.False(t, cfg.HardReset)
		assert.Equal(t, filepath.Join(testHome, ".ssh/other"), cfg.CredentialPath)
		assert.Equal(t, 5*time.Minute, cfg.Timeout)
		assert.Equal(t, "git@example.com:team/site.git", cfg.RemoteURL, "empty env values are ignored")
	})
}

func TestLoad_ExplicitFile(t *testing.T) {
	paths := PathsFor(testHome, "")
	fs := fsops.NewMemFS()
	require.NoError(t, fs.WriteFile("/etc/deploysync.yaml", []byte("branch: release\n"), 0644))

	t.Run("from option", func(t *testing.T) {
		cfg, err := Load(LoadOptions{Paths: paths, FS: fs, File: "/etc/deploysync.yaml", LookupEnv: envMap(nil)})
		require.NoError(t, err)
		assert.Equal(t, "release", cfg.Branch)
		assert.Equal(t, "/etc/deploysync.yaml", cfg.File)
	})

	t.Run("from environment", func(t *testing.T) {
		cfg, err := Load(LoadOptions{Paths: paths, FS: fs, LookupEnv: envMap(map[string]string{
			EnvConfig: "/etc/deploysync.yaml",
		})})
		require.NoError(t, err)
		assert.Equal(t, "release", cfg.Branch)
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		_, err := Load(LoadOptions{Paths: paths, FS: fs, File: "/etc/missing.yaml", LookupEnv: envMap(nil)})
		assert.Error(t, err)
	})
}

func TestLoad_Errors(t *testing.T) {
	paths := PathsFor(testHome, "")

	t.Run("malformed yaml", func(t *testing.T) {
		fs := fsops.NewMemFS()
		require.NoError(t, fs.WriteFile(paths.Config, []byte("branch: [unterminated"), 0644))
		_, err := Load(LoadOptions{Paths: paths, FS: fs, LookupEnv: envMap(nil)})
		assert.ErrorContains(t, err, "failed to parse config file")
	})

	t.Run("bad boolean in env", func(t *testing.T) {
		_, err := Load(LoadOptions{Paths: paths, FS: fsops.NewMemFS(), LookupEnv: envMap(map[string]string{
			EnvHardReset: "sometimes",
		})})
		assert.ErrorContains(t, err, EnvHardReset)
	})

	t.Run("bad duration in env", func(t *testing.T) {
		_, err := Load(LoadOptions{Paths: paths, FS: fsops.NewMemFS(), LookupEnv: envMap(map[string]string{
			EnvTimeout: "soon",
		})})
		assert.ErrorContains(t, err, EnvTimeout)
	})
}

func TestConfig_YAML(t *testing.T) {
	cfg := Defaults(PathsFor(testHome, ""))
	cfg.Timeout = 30 * time.Second
	cfg.File = "/ignored"

	data, err := cfg.YAML()
	require.NoError(t, err)

	var back map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, "main", back["branch"])
	assert.Equal(t, "30s", back["timeout"])
	assert.NotContains(t, back, "file")
	assert.NotContains(t, back, "known_hosts")
}

func TestConfig_Save(t *testing.T) {
	paths := PathsFor(testHome, "")
	fs := fsops.NewMemFS()

	cfg := Defaults(paths)
	cfg.Branch = "release"
	cfg.Lock = true
	cfg.Timeout = 2 * time.Minute
	require.NoError(t, cfg.Save(fs, paths.Config))

	loaded, err := Load(LoadOptions{Paths: paths, FS: fs, LookupEnv: envMap(nil)})
	require.NoError(t, err)
	assert.Equal(t, "release", loaded.Branch)
	assert.True(t, loaded.Lock)
	assert.Equal(t, 2*time.Minute, loaded.Timeout)
	assert.Equal(t, paths.Config, loaded.File)
}

func TestFilePath(t *testing.T) {
	paths := PathsFor(testHome, "")

	testCases := map[string]struct {
		file         string
		env          map[string]string
		wantPath     string
		wantRequired bool
	}{
		"default location": {
			wantPath: paths.Config,
		},
		"explicit file": {
			file:         "~/deploy.yaml",
			env:          map[string]string{EnvConfig: "/etc/ignored.yaml"},
			wantPath:     filepath.Join(testHome, "deploy.yaml"),
			wantRequired: true,
		},
		"environment": {
			env:          map[string]string{EnvConfig: "/etc/deploysync.yaml"},
			wantPath:     "/etc/deploysync.yaml",
			wantRequired: true,
		},
	}

	for tn, tc := range testCases {
		t.Run(tn, func(t *testing.T) {
			path, required := FilePath(LoadOptions{Paths: paths, File: tc.file, LookupEnv: envMap(tc.env)})
			assert.Equal(t, tc.wantPath, path)
			assert.Equal(t, tc.wantRequired, required)
		})
	}
}
