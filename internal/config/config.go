// Package config loads build settings for a statique project.
//
// Settings live in statique.yaml at the project root. The file is optional: a project
// without it builds with Default(). Values may reference environment variables as
// ${VAR}; .env and .env.local in the project root are loaded first without
// overriding the process environment.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/statique/internal/foundation/errors"
)

// FileName is the settings file looked up in the project root.
const FileName = "statique.yaml"

// Config is the full settings document.
type Config struct {
	Build   BuildConfig   `yaml:"build"`
	Watch   WatchConfig   `yaml:"watch"`
	Journal JournalConfig `yaml:"journal"`
	Notify  NotifyConfig  `yaml:"notify"`
	Logging LoggingConfig `yaml:"logging"`
}

// BuildConfig controls how the source tree maps onto the output tree.
type BuildConfig struct {
	OutputDir         string   `yaml:"output_dir"`         // relative to the project root unless absolute
	MarkupExtension   string   `yaml:"markup_extension"`   // documents rendered line by line
	RenderedExtension string   `yaml:"rendered_extension"` // extension of rendered documents
	ExcludeExtensions []string `yaml:"exclude_extensions"` // never copied or rendered
	ExcludeDirs       []string `yaml:"exclude_dirs"`       // directory names never walked
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	Debounce       time.Duration `yaml:"debounce"`
	MaxDelay       time.Duration `yaml:"max_delay"`
	RescanInterval time.Duration `yaml:"rescan_interval"` // 0 disables
}

// JournalConfig enables the SQLite pass journal when Path is set.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// NotifyConfig enables NATS pass events when URL is set.
type NotifyConfig struct {
	URL     string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Default returns the settings used when no file is present.
func Default() *Config {
	return &Config{
		Build: BuildConfig{
			OutputDir:         "build",
			MarkupExtension:   "md",
			RenderedExtension: "html",
			ExcludeExtensions: []string{"yaml"},
			ExcludeDirs:       []string{},
		},
		Watch: WatchConfig{
			Debounce: 100 * time.Millisecond,
			MaxDelay: 2 * time.Second,
		},
		Notify: NotifyConfig{
			Subject: "statique.pass",
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
	}
}

// Load reads statique.yaml from projectDir. A missing file yields Default().
func Load(projectDir string) (*Config, error) {
	loadEnvFiles(projectDir)

	cfg := Default()
	path := filepath.Join(projectDir, FileName)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, ferrors.ConfigError("failed to read settings file").
			WithCause(err).WithContext("path", path).Build()
	default:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, ferrors.ConfigError("failed to parse settings file").
				WithCause(err).WithContext("path", path).Build()
		}
	}

	applyEnvOverrides(cfg)
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.validateOutputFor(projectDir); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OutputPath resolves the output directory against projectDir.
func (c *Config) OutputPath(projectDir string) string {
	if filepath.IsAbs(c.Build.OutputDir) {
		return filepath.Clean(c.Build.OutputDir)
	}
	return filepath.Join(projectDir, c.Build.OutputDir)
}

// JournalPath resolves the journal file against projectDir; empty when disabled.
func (c *Config) JournalPath(projectDir string) string {
	if c.Journal.Path == "" || filepath.IsAbs(c.Journal.Path) {
		return c.Journal.Path
	}
	return filepath.Join(projectDir, c.Journal.Path)
}
