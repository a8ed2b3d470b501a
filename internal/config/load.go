package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	serrors "git.home.luguber.info/inful/sitepress/internal/errors"
)

// envFiles are loaded from the configuration directory in order. Values
// already present in the process environment are never overridden.
var envFiles = []string{".env", ".env.local"}

// Load reads, expands, normalizes, defaults and validates a configuration file.
func Load(configPath string) (*Config, error) {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, serrors.Wrap(err, serrors.CategoryConfig, serrors.SeverityFatal, "resolve configuration path")
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, serrors.ConfigNotFound(configPath)
		}
		return nil, serrors.Wrap(err, serrors.CategoryConfig, serrors.SeverityFatal, "read configuration")
	}

	dir := filepath.Dir(abs)
	if err := loadEnvFiles(dir); err != nil {
		return nil, serrors.Wrap(err, serrors.CategoryConfig, serrors.SeverityFatal, "load environment file")
	}

	return Parse(data, dir)
}

// Parse builds a configuration from YAML bytes. baseDir anchors relative paths.
func Parse(data []byte, baseDir string) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, serrors.Wrap(err, serrors.CategoryConfig, serrors.SeverityFatal, "failed to unmarshal config")
	}
	cfg.baseDir = baseDir

	if cfg.Version != CurrentVersion {
		return nil, serrors.ValidationFailed("version", fmt.Sprintf("unsupported configuration version %q (expected %q)", cfg.Version, CurrentVersion))
	}

	// Normalization pass (case-fold enumerations, bounds, early coercions)
	res := NormalizeConfig(&cfg)
	for _, w := range res.Warnings {
		slog.Warn("config normalization", slog.String("detail", w))
	}

	// Apply defaults (after normalization so canonical values drive defaults)
	if err := applyDefaults(&cfg); err != nil {
		return nil, serrors.Wrap(err, serrors.CategoryConfig, serrors.SeverityFatal, "failed to apply defaults")
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFiles(dir string) error {
	for _, name := range envFiles {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		slog.Debug("Loaded environment file", slog.String("path", p))
	}
	return nil
}
