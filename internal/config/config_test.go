package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/previewd/internal/foundation/errors"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.SessionLifetime)
	assert.Equal(t, WatchPolling, cfg.Watch.Mode)
	assert.Equal(t, "index.md", cfg.MainFile)
	assert.Equal(t, "preview.html", cfg.ArtifactName)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
workspaces_root: /srv/workspaces
session_lifetime: 30m
cleanup_interval: 1m
debounce_interval: 250ms
watch:
  mode: native
  extensions: [".md", ".css"]
main_file: main.md
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/workspaces", cfg.WorkspacesRoot)
	assert.Equal(t, 30*time.Minute, cfg.SessionLifetime)
	assert.Equal(t, 250*time.Millisecond, cfg.DebounceInterval)
	assert.Equal(t, WatchNative, cfg.Watch.Mode)
	assert.Equal(t, []string{".md", ".css"}, cfg.Watch.Extensions)
	assert.Equal(t, "main.md", cfg.MainFile)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PREVIEWD_SESSION_LIFETIME", "2h")
	t.Setenv("PREVIEWD_WATCH_MODE", "native")
	t.Setenv("PREVIEWD_WATCH_EXTENSIONS", "md, html")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.SessionLifetime)
	assert.Equal(t, WatchNative, cfg.Watch.Mode)
	assert.Equal(t, []string{".md", ".html"}, cfg.Watch.Extensions)
}

func TestInvalidDurationEnvIsFatal(t *testing.T) {
	t.Setenv("PREVIEWD_DEBOUNCE_INTERVAL", "not-a-duration")

	_, err := Load("")
	require.Error(t, err)

	classified, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, ferrors.CategoryConfig, classified.Category())
	assert.True(t, classified.IsFatal())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty workspaces root", func(c *Config) { c.WorkspacesRoot = "" }},
		{"zero lifetime", func(c *Config) { c.SessionLifetime = 0 }},
		{"negative debounce", func(c *Config) { c.DebounceInterval = -time.Second }},
		{"unknown watch mode", func(c *Config) { c.Watch.Mode = "inotify" }},
		{"no extensions", func(c *Config) { c.Watch.Extensions = nil }},
		{"main file with path", func(c *Config) { c.MainFile = "sub/index.md" }},
		{"artifact with path", func(c *Config) { c.ArtifactName = "../out.html" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestMalformedYAMLIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("watch: ["), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, ferrors.CategoryConfig, ferrors.CategoryOf(err))
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	assert.Equal(t, "DEBUG", cfg.SlogLevel().String())
	cfg.LogLevel = "bogus"
	assert.Equal(t, "INFO", cfg.SlogLevel().String())
}
