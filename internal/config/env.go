package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	EnvLogLevel  = "STATIQUE_LOG_LEVEL"
	EnvLogFormat = "STATIQUE_LOG_FORMAT"
	EnvOutputDir = "STATIQUE_OUTPUT_DIR"
)

// loadEnvFiles loads the first of .env and .env.local found in dir. Existing process
// environment variables are never overwritten.
func loadEnvFiles(dir string) {
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			slog.Warn("Failed to load environment file", "path", path, "error", err)
			continue
		}
		slog.Debug("Loaded environment variables", "path", path)
		return
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = LogLevel(v)
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Logging.Format = LogFormat(v)
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		cfg.Build.OutputDir = v
	}
}
