package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitepress/internal/config"
	"git.home.luguber.info/inful/sitepress/internal/history"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/metrics"
	"git.home.luguber.info/inful/sitepress/internal/notify"
	"git.home.luguber.info/inful/sitepress/internal/site"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"sitepress.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Generate the site once"`
	Watch   WatchCmd   `cmd:"" help:"Regenerate whenever content, templates or static files change"`
	Serve   ServeCmd   `cmd:"" help:"Watch and serve the generated site with a preview server"`
	Init    InitCmd    `cmd:"" help:"Initialize a new project with an example configuration"`
	Routes  RoutesCmd  `cmd:"" help:"List every output path and URL without rendering"`
	History HistoryCmd `cmd:"" help:"Show recent generations from the history database"`
}

// AfterApply runs after flag parsing and installs a stderr logger until
// a command loads its configuration.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// env is the loaded configuration plus the resources opened for one command.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// setup loads the configuration and switches logging to its settings.
func setup(root *CLI) (*env, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := SetupLogger(cfg.Logging, root.Verbose, os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	e := &env{cfg: cfg, logger: logger}
	e.closers = append(e.closers, func() { _ = closeLog() })
	return e, nil
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// generator wires history and notifications into a Generator when they
// are configured.
func (e *env) generator(recorder metrics.Recorder) (*site.Generator, error) {
	opts := []site.Option{site.WithLogger(e.logger), site.WithRecorder(recorder)}

	if path := e.cfg.History.Path; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
		store, err := history.Open(path)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, func() { _ = store.Close() })
		opts = append(opts, site.WithHistory(store))
	}

	if n := e.cfg.Notify; n.NATSURL != "" {
		pub, err := notify.NewNATSPublisher(n)
		if err != nil {
			// Generation does not depend on the broker.
			e.logger.Warn("Notifications disabled", slog.String("url", n.NATSURL), logfields.Error(err))
		} else {
			e.closers = append(e.closers, pub.Close)
			opts = append(opts, site.WithPublisher(pub))
		}
	}

	return site.NewGenerator(e.cfg, opts...), nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
