package commands

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/metrics"
	"git.home.luguber.info/inful/sitepress/internal/site"
	"git.home.luguber.info/inful/sitepress/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct{}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	e, err := setup(root)
	if err != nil {
		return err
	}
	defer e.close()

	gen, err := e.generator(metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	svc, err := newWatchService(e, gen, metrics.NoopRecorder{})
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	return svc.Run(ctx)
}

// newWatchService regenerates through gen whenever an input tree changes.
func newWatchService(e *env, gen *site.Generator, recorder metrics.Recorder) (*watch.Service, error) {
	run := func(ctx context.Context, b watch.Batch) error {
		e.logger.Info("Regenerating",
			logfields.Reason(strings.Join(b.Reasons, ",")),
			slog.Int("requests", b.Requests),
			slog.Int("changed_paths", len(b.Paths)))
		_, err := gen.Generate(ctx)
		return err
	}
	return watch.NewService(e.cfg.Watch, watchRoots(e.cfg.Paths.Content, e.cfg.Paths.Templates, e.cfg.Paths.Static, engineDirs(e)), run, recorder, e.logger)
}

func engineDirs(e *env) []string {
	dirs := make([]string, 0, len(e.cfg.Engines))
	for _, eng := range e.cfg.Engines {
		dirs = append(dirs, eng.ContentDir)
	}
	return dirs
}

// watchRoots returns the input directories, dropping any nested inside
// another root.
func watchRoots(content, templates, static string, engines []string) []string {
	candidates := append([]string{content, templates, static}, engines...)
	var roots []string
	for _, c := range candidates {
		c = filepath.Clean(c)
		covered := false
		for _, r := range roots {
			if c == r || strings.HasPrefix(c, r+string(filepath.Separator)) {
				covered = true
				break
			}
		}
		if !covered {
			roots = append(roots, c)
		}
	}
	return roots
}
