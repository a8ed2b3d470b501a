package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"

	"git.home.luguber.info/inful/sitepress/internal/config"
)

// SetupLogger builds the logger described by cfg: text or JSON on stderr,
// fanned out to a JSON log file when one is configured. The returned
// function closes the file.
func SetupLogger(cfg config.LoggingConfig, verbose bool, stderr io.Writer) (*slog.Logger, func() error, error) {
	level := cfg.Level.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	if cfg.File == "" {
		return slog.New(consoleHandler(cfg.Format, stderr, level)), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o750); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	// #nosec G304 -- the log path comes from the site configuration.
	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return newFanoutLogger(cfg.Format, stderr, file, level), file.Close, nil
}

// newFanoutLogger writes console output to stderr and JSON to file.
func newFanoutLogger(format config.LogFormat, stderr, file io.Writer, level slog.Level) *slog.Logger {
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(consoleHandler(format, stderr, level), fileHandler))
}

func consoleHandler(format config.LogFormat, w io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
