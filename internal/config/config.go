package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/previewd/internal/foundation/errors"
)

// WatchMode selects the change-observation strategy.
type WatchMode string

const (
	// WatchNative uses OS filesystem notifications (fsnotify).
	WatchNative WatchMode = "native"
	// WatchPolling re-scans the tree on a fixed interval. Required for
	// container and network filesystems where native notifications do not
	// propagate reliably.
	WatchPolling WatchMode = "polling"
)

// WatchConfig configures the change watcher.
type WatchConfig struct {
	Mode         WatchMode     `yaml:"mode"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Extensions   []string      `yaml:"extensions"`
}

// Config is the full daemon configuration.
type Config struct {
	WorkspacesRoot string `yaml:"workspaces_root"`
	TemplateRoot   string `yaml:"template_root"`

	SessionLifetime  time.Duration `yaml:"session_lifetime"`
	CleanupInterval  time.Duration `yaml:"cleanup_interval"`
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	Watch WatchConfig `yaml:"watch"`

	// MainFile is the designated entry markup file inside each workspace.
	MainFile string `yaml:"main_file"`
	// ParamsFile holds template variable bindings as JSON.
	ParamsFile string `yaml:"params_file"`
	// ArtifactName is the generated output written inside each workspace.
	ArtifactName string `yaml:"artifact_name"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file or overrides are given.
func Default() *Config {
	return &Config{
		WorkspacesRoot:   "./workspaces",
		TemplateRoot:     "./playground",
		SessionLifetime:  time.Hour,
		CleanupInterval:  5 * time.Minute,
		DebounceInterval: 500 * time.Millisecond,
		Watch: WatchConfig{
			Mode:         WatchPolling,
			PollInterval: time.Second,
			Extensions:   []string{".md", ".html", ".css", ".json"},
		},
		MainFile:     "index.md",
		ParamsFile:   "params.json",
		ArtifactName: "preview.html",
		LogLevel:     "info",
	}
}

// Load reads the configuration file (if present), applies environment
// overrides, and validates. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			slog.Debug("No configuration file found, using defaults", "path", path)
		case err != nil:
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read configuration file").
				WithContext("path", path).
				Build()
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse configuration file").
					WithContext("path", path).
					Build()
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays PREVIEWD_* environment variables on top of file values.
func (c *Config) applyEnv() error {
	for _, s := range []struct {
		key string
		dst *string
	}{
		{"PREVIEWD_WORKSPACES_ROOT", &c.WorkspacesRoot},
		{"PREVIEWD_TEMPLATE_ROOT", &c.TemplateRoot},
		{"PREVIEWD_MAIN_FILE", &c.MainFile},
		{"PREVIEWD_ARTIFACT_NAME", &c.ArtifactName},
		{"PREVIEWD_LOG_LEVEL", &c.LogLevel},
	} {
		if v := os.Getenv(s.key); v != "" {
			*s.dst = v
		}
	}

	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"PREVIEWD_SESSION_LIFETIME", &c.SessionLifetime},
		{"PREVIEWD_CLEANUP_INTERVAL", &c.CleanupInterval},
		{"PREVIEWD_DEBOUNCE_INTERVAL", &c.DebounceInterval},
		{"PREVIEWD_POLL_INTERVAL", &c.Watch.PollInterval},
	} {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return ferrors.ConfigError(fmt.Sprintf("invalid duration in %s", d.key)).
				WithContext("value", v).
				Build()
		}
		*d.dst = parsed
	}

	if v := os.Getenv("PREVIEWD_WATCH_MODE"); v != "" {
		c.Watch.Mode = WatchMode(v)
	}
	if v := os.Getenv("PREVIEWD_WATCH_EXTENSIONS"); v != "" {
		parts := strings.Split(v, ",")
		exts := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if !strings.HasPrefix(p, ".") {
				p = "." + p
			}
			exts = append(exts, p)
		}
		c.Watch.Extensions = exts
	}

	return nil
}

// Validate checks the configuration for startup-fatal problems.
func (c *Config) Validate() error {
	if c.WorkspacesRoot == "" {
		return ferrors.ConfigError("workspaces_root must not be empty").Build()
	}
	if c.SessionLifetime <= 0 {
		return ferrors.ConfigError("session_lifetime must be positive").
			WithContext("value", c.SessionLifetime.String()).
			Build()
	}
	if c.CleanupInterval <= 0 {
		return ferrors.ConfigError("cleanup_interval must be positive").
			WithContext("value", c.CleanupInterval.String()).
			Build()
	}
	if c.DebounceInterval <= 0 {
		return ferrors.ConfigError("debounce_interval must be positive").
			WithContext("value", c.DebounceInterval.String()).
			Build()
	}
	switch c.Watch.Mode {
	case WatchNative, WatchPolling:
	default:
		return ferrors.ConfigError("watch.mode must be 'native' or 'polling'").
			WithContext("value", string(c.Watch.Mode)).
			Build()
	}
	if c.Watch.Mode == WatchPolling {
		if c.Watch.PollInterval <= 0 {
			return ferrors.ConfigError("watch.poll_interval must be positive").
				WithContext("value", c.Watch.PollInterval.String()).
				Build()
		}
		if c.Watch.PollInterval > c.DebounceInterval {
			// Not fatal, but bursts shorter than one poll are invisible.
			slog.Warn("watch.poll_interval exceeds debounce_interval, rapid edit bursts may be missed",
				"poll_interval", c.Watch.PollInterval.String(),
				"debounce_interval", c.DebounceInterval.String())
		}
	}
	if len(c.Watch.Extensions) == 0 {
		return ferrors.ConfigError("watch.extensions must not be empty").Build()
	}
	if c.MainFile == "" || filepath.Base(c.MainFile) != c.MainFile {
		return ferrors.ConfigError("main_file must be a bare file name").
			WithContext("value", c.MainFile).
			Build()
	}
	if c.ArtifactName == "" || filepath.Base(c.ArtifactName) != c.ArtifactName {
		return ferrors.ConfigError("artifact_name must be a bare file name").
			WithContext("value", c.ArtifactName).
			Build()
	}
	return nil
}

// SlogLevel maps the configured log level string onto slog levels.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
