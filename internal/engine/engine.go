// Package engine implements named content sources. An engine scans its
// content directory, loads units, enforces slug uniqueness, runs the
// plugin pipeline and returns the units in sort order.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"git.home.luguber.info/inful/sitepress/internal/config"
	"git.home.luguber.info/inful/sitepress/internal/content"
	serrors "git.home.luguber.info/inful/sitepress/internal/errors"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/pack"
	"git.home.luguber.info/inful/sitepress/internal/plugin"
	"git.home.luguber.info/inful/sitepress/internal/slug"
)

// Engine is one configured content source. Its configuration is fixed at
// construction; units are computed once and cached, errors included.
type Engine struct {
	cfg      config.EngineConfig
	loader   *content.Loader
	pipeline plugin.Pipeline
	logger   *slog.Logger

	once  sync.Once
	units []*content.Unit
	err   error
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New builds an engine from its parts.
func New(cfg config.EngineConfig, loader *content.Loader, pipeline plugin.Pipeline, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, loader: loader, pipeline: pipeline, logger: slog.Default()}
	for _, o := range opts {
		o(e)
	}
	e.logger = e.logger.With(logfields.Engine(cfg.Name))
	return e
}

// FromConfig builds the engine described by ec. Plugin names must exist
// in the registry.
func FromConfig(site *config.Config, ec config.EngineConfig, plugins *plugin.Registry, slugs *slug.Slugifier, opts ...Option) (*Engine, error) {
	pipeline, err := plugins.Pipeline(ec.Plugins, site.Plugins.Options)
	if err != nil {
		return nil, serrors.ValidationFailed("engines."+ec.Name+".plugins", err.Error())
	}
	loader := content.NewLoader(content.Options{
		Engine:        ec.Name,
		Delimiter:     site.FrontMatter.Delimiter,
		Defaults:      ec.Defaults,
		Required:      ec.Required,
		Protected:     ec.Protected,
		TimeFields:    ec.TimeFields,
		ListFields:    ec.ListFields,
		ListSeparator: ec.ListSeparator,
		TimeFormat:    ec.TimeFormat,
		Slugs:         slugs,
	})
	return New(ec, loader, pipeline, opts...), nil
}

// Name returns the engine name.
func (e *Engine) Name() string { return e.cfg.Name }

// Config returns the engine configuration.
func (e *Engine) Config() config.EngineConfig { return e.cfg }

// Units returns the engine's units in sort order with Prev/Next linked.
// The first call does the work; later calls return the cached result.
func (e *Engine) Units(ctx context.Context) ([]*content.Unit, error) {
	e.once.Do(func() {
		e.units, e.err = e.load(ctx)
	})
	return e.units, e.err
}

func (e *Engine) load(ctx context.Context) ([]*content.Unit, error) {
	paths, err := e.Scan(ctx)
	if err != nil {
		return nil, err
	}

	units := make([]*content.Unit, 0, len(paths))
	slugs := make(map[string]string, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		u, err := e.loader.Load(p)
		if err != nil {
			return nil, err
		}
		if first, dup := slugs[u.Slug]; dup {
			return nil, &serrors.DuplicateSlugError{Engine: e.cfg.Name, Slug: u.Slug, First: first, Second: p}
		}
		slugs[u.Slug] = p
		units = append(units, u)
	}

	for _, u := range units {
		if err := e.pipeline.Apply(u); err != nil {
			return nil, err
		}
	}

	pack.SortUnits(units, e.cfg.SortKey, e.cfg.Reverse())
	pack.Chain(units)

	e.logger.Debug("Engine units loaded",
		logfields.Units(len(units)),
		slog.Any("plugins", e.pipeline.Names()))
	return units, nil
}

// Scan lists the content files of the engine in lexical order. Hidden
// files and directories are skipped. A missing content directory yields
// no files.
func (e *Engine) Scan(ctx context.Context) ([]string, error) {
	root := e.cfg.ContentDir
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		e.logger.Warn("Content directory does not exist", logfields.Path(root))
		return nil, nil
	}

	pattern := e.cfg.Pattern
	if pattern == "" {
		pattern = "*"
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") || !e.cfg.IsRecursive() {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !d.Type().IsRegular() {
			return nil
		}
		ok, matchErr := filepath.Match(pattern, name)
		if matchErr != nil {
			return fmt.Errorf("engine %s: pattern %q: %w", e.cfg.Name, pattern, matchErr)
		}
		if ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
