package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/text/language"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/bmtools/internal/config"
	"github.com/nikbrunner/bmtools/internal/model"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{config.EnvProfile, config.EnvLogLevel} {
		t.Setenv(key, "")
	}
	// LookupEnv distinguishes unset from empty for the journal override.
	t.Setenv(config.EnvJournal, "")
	os.Unsetenv(config.EnvJournal)
}

func TestLoad_MissingFileWritesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bmtools", "config.yaml")

	cfg, err := config.Load(path)
	assert.NilError(t, err)

	defaults := config.DefaultConfig()
	assert.DeepEqual(t, *cfg, defaults)

	_, err = os.Stat(path)
	assert.NilError(t, err, "defaults should be written")

	again, err := config.Load(path)
	assert.NilError(t, err)
	assert.DeepEqual(t, *again, defaults)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
profilePath: /data/Bookmarks
rootLabels:
  Toolbar: bar
collation: en
scan:
  limit: 5
  timeout: 3s
  skipDomains: [corp.example]
journalPath: ""
updateChecksum: false
`
	assert.NilError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := config.Load(path)
	assert.NilError(t, err)
	assert.Equal(t, cfg.ProfilePath, "/data/Bookmarks")
	assert.Equal(t, cfg.Collation, "en")
	assert.Equal(t, cfg.Scan.Limit, 5)
	assert.Equal(t, cfg.Scan.BatchSize, 20)
	assert.Equal(t, cfg.Scan.Timeout, 3*time.Second)
	assert.DeepEqual(t, cfg.Scan.SkipDomains, []string{"corp.example"})
	assert.Equal(t, cfg.JournalPath, "")
	assert.Check(t, !cfg.UpdateChecksum)
	assert.Equal(t, cfg.LogLevel, "info")

	labels := cfg.Labels()
	assert.Equal(t, labels["Toolbar"], model.RootBar)
	assert.Equal(t, labels["書籤列"], model.RootBar)
	assert.Equal(t, cfg.CollationTag(), language.English)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvProfile, "/env/Bookmarks")
	t.Setenv(config.EnvLogLevel, "DEBUG")
	t.Setenv(config.EnvJournal, "/env/journal.db")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "config.yaml"))
	assert.NilError(t, err)
	assert.Equal(t, cfg.ProfilePath, "/env/Bookmarks")
	assert.Equal(t, cfg.LogLevel, "debug")
	assert.Equal(t, cfg.JournalPath, "/env/journal.db")
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		yaml string
	}{
		{name: "bad yaml", yaml: "scan: [1, 2"},
		{name: "bad root label", yaml: "rootLabels:\n  Toolbar: toolbar\n"},
		{name: "batch too large", yaml: "scan:\n  batchSize: 500\n"},
		{name: "zero limit", yaml: "scan:\n  limit: 0\n"},
		{name: "bad log level", yaml: "logLevel: loud\n"},
		{name: "bad collation", yaml: "collation: not_a_tag!\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			assert.NilError(t, os.WriteFile(path, []byte(tt.yaml), 0o600))

			_, err := config.Load(path)
			assert.Check(t, is.ErrorContains(err, "config"))
		})
	}
}

func TestDefaultPath_Env(t *testing.T) {
	t.Setenv(config.EnvConfig, "/elsewhere/config.yaml")

	got, err := config.DefaultPath()
	assert.NilError(t, err)
	assert.Equal(t, got, "/elsewhere/config.yaml")
}
