package site

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitepress/internal/config"
	"git.home.luguber.info/inful/sitepress/internal/content"
	"git.home.luguber.info/inful/sitepress/internal/engine"
	"git.home.luguber.info/inful/sitepress/internal/feed"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/manifest"
	"git.home.luguber.info/inful/sitepress/internal/pack"
	"git.home.luguber.info/inful/sitepress/internal/permalink"
	"git.home.luguber.info/inful/sitepress/internal/render"
	"git.home.luguber.info/inful/sitepress/internal/slug"
	"git.home.luguber.info/inful/sitepress/internal/vcs"
)

// buildState carries everything one pass produces from stage to stage.
type buildState struct {
	g      *Generator
	report *Report

	slugs     *slug.Slugifier
	resolver  *permalink.Resolver
	layout    permalink.Layout
	templates *render.Engine
	site      *SiteView
	engines   []*engineState

	outputs []*output
	stage   *staging
}

type engineState struct {
	cfg    config.EngineConfig
	engine *engine.Engine
	units  []*content.Unit
	groups []*pack.Group
	view   *EngineView
}

// output is one file of the generated tree.
type output struct {
	link    permalink.Link
	kind    string
	owner   string
	sources []string
	render  func() ([]byte, error)
	data    []byte
}

func newBuildState(g *Generator, r *Report) *buildState {
	cfg := g.cfg
	slugs := slug.New(slug.Options{
		Separator:     cfg.Slug.Separator,
		Substitutions: cfg.Slug.Substitutions,
		DropArticles:  cfg.Slug.DropArticles,
	})
	return &buildState{
		g:        g,
		report:   r,
		slugs:    slugs,
		resolver: permalink.NewResolver(slugs),
		layout:   permalink.Layout{Prefix: cfg.Site.URLPrefix, IndexHTMLOnly: cfg.IndexHTMLOnly()},
		site:     newSiteView(cfg),
	}
}

func stageLoad(ctx context.Context, bs *buildState) error {
	cfg := bs.g.cfg
	bs.report.ConfigHash = cfg.Snapshot()

	info, err := vcs.Revision(cfg.Paths.Content)
	switch {
	case errors.Is(err, vcs.ErrNotRepository):
	case err != nil:
		bs.g.logger.Warn("Could not determine content revision", logfields.Error(err))
	default:
		bs.report.Revision = info.Short()
	}

	templates, err := render.New(cfg.Paths.Templates, render.Funcs(render.FuncOptions{
		SiteURL:           cfg.Site.URL,
		DisplayTimeFormat: cfg.Render.DisplayTimeFormat,
		ExcerptLength:     cfg.Render.ExcerptLength,
		Slugs:             bs.slugs,
	}))
	if err != nil {
		return err
	}
	bs.templates = templates

	for _, ec := range cfg.Engines {
		e, err := engine.FromConfig(cfg, ec, bs.g.plugins, bs.slugs,
			engine.WithLogger(bs.g.logger.With(logfields.Engine(ec.Name))))
		if err != nil {
			return err
		}
		units, err := e.Units(ctx)
		if err != nil {
			return err
		}
		bs.g.recorder.SetEngineUnits(ec.Name, len(units))
		bs.report.Units += len(units)

		es := &engineState{
			cfg:    ec,
			engine: e,
			units:  units,
			view:   &EngineView{Name: ec.Name, Units: units},
		}
		bs.engines = append(bs.engines, es)
		bs.site.Engines[ec.Name] = es.view
	}
	return nil
}

func stageGroup(_ context.Context, bs *buildState) error {
	for _, es := range bs.engines {
		specs := make([]pack.Spec, 0, len(es.cfg.Paginations))
		for _, p := range es.cfg.Paginations {
			specs = append(specs, pack.Spec{Pattern: p, PerPage: es.cfg.UnitsPerPagination})
		}
		groups, err := pack.Build(es.units, specs, pack.Options{
			Engine:    es.cfg.Name,
			SortKey:   es.cfg.SortKey,
			Reverse:   es.cfg.Reverse(),
			Unmatched: es.cfg.Unmatched,
			Slugs:     bs.slugs,
			Logger:    bs.g.logger.With(logfields.Engine(es.cfg.Name)),
		})
		if err != nil {
			return err
		}
		es.groups = groups
		es.view.Groups = groups

		pages := 0
		for _, g := range groups {
			pages += len(g.Pages)
		}
		bs.report.Engines[es.cfg.Name] = EngineCounts{Units: len(es.units), Groups: len(groups), Pages: pages}
		bs.report.Pages += pages
		bs.g.logger.Debug("Engine grouped",
			logfields.Engine(es.cfg.Name),
			logfields.Groups(len(groups)),
			logfields.Pages(pages))
	}
	return nil
}

func stageResolve(_ context.Context, bs *buildState) error {
	cfg := bs.g.cfg
	for _, es := range bs.engines {
		if err := bs.resolveEngine(es); err != nil {
			return err
		}
	}

	if bs.templates.Has(cfg.Render.IndexTemplate) {
		name := cfg.Render.IndexTemplate
		bs.outputs = append(bs.outputs, &output{
			link:  bs.layout.Page(),
			kind:  manifest.KindIndex,
			owner: "site index",
			render: func() ([]byte, error) {
				s, err := bs.templates.Render(name, indexData(bs.site))
				return []byte(s), err
			},
		})
	}
	return bs.planStatic(cfg.Paths.Static)
}

func (bs *buildState) resolveEngine(es *engineState) error {
	ec := es.cfg
	pattern, err := permalink.Parse(ec.Permalink)
	if err != nil {
		return err
	}

	for _, u := range es.units {
		segs, err := bs.resolver.Segments(pattern, u.Values(), u.SourcePath)
		if err != nil {
			return err
		}
		link := bs.layout.Page(append([]string{ec.URLPrefix}, segs...)...)
		u.Permalink = link.URL
		u.OutputPath = link.Path

		bs.outputs = append(bs.outputs, &output{
			link:    link,
			kind:    manifest.KindUnit,
			owner:   u.SourcePath,
			sources: []string{u.SourcePath},
			render: func() ([]byte, error) {
				s, err := bs.templates.Render(ec.UnitTemplate, unitData(bs.site, es.view, u))
				return []byte(s), err
			},
		})
	}

	es.view.URL = bs.layout.Page(ec.URLPrefix).URL
	homeSet := false
	for _, g := range es.groups {
		owner := groupOwner(ec.Name, g)
		base, err := bs.resolver.Segments(g.Pattern, g.Fields, owner)
		if err != nil {
			return err
		}
		base = append([]string{ec.URLPrefix}, base...)
		for _, p := range g.Pages {
			link := bs.layout.Page(pack.PageSegments(base, bs.g.cfg.Site.PaginationSegment, p.Number)...)
			p.Permalink = link.URL
			p.OutputPath = link.Path

			bs.outputs = append(bs.outputs, &output{
				link:    link,
				kind:    manifest.KindPage,
				owner:   fmt.Sprintf("%s page %d", owner, p.Number),
				sources: unitSources(p.Units),
				render: func() ([]byte, error) {
					s, err := bs.templates.Render(ec.PaginationTemplate, pageData(bs.site, es.view, p))
					return []byte(s), err
				},
			})
		}
		if !homeSet && g.Pattern.Static() && len(g.Pages) > 0 {
			es.view.URL = g.Pages[0].Permalink
			homeSet = true
		}
	}

	if ec.Feed != nil {
		link := bs.layout.File(ec.URLPrefix, ec.Feed.Path)
		es.view.FeedURL = link.URL
		title := ec.Feed.Title
		if title == "" {
			title = bs.site.Title
		}
		opts := feed.Options{
			Title:     title,
			Author:    bs.site.Author,
			SiteURL:   bs.site.URL,
			HomeURL:   es.view.URL,
			SelfURL:   link.URL,
			TimeField: ec.Feed.TimeField,
			Limit:     ec.Feed.Limit,
		}
		bs.outputs = append(bs.outputs, &output{
			link:    link,
			kind:    manifest.KindFeed,
			owner:   ec.Name + " feed",
			sources: unitSources(es.units),
			render: func() ([]byte, error) {
				return feed.Build(es.units, opts)
			},
		})
	}
	return nil
}

// planStatic adds every file below dir as a verbatim copy. Hidden entries
// are skipped. A missing dir contributes nothing.
func (bs *buildState) planStatic(dir string) error {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		bs.outputs = append(bs.outputs, &output{
			link:    bs.layout.File(rel),
			kind:    manifest.KindStatic,
			owner:   "static " + rel,
			sources: []string{path},
			render: func() ([]byte, error) {
				// #nosec G304 -- path is below the configured static directory.
				return os.ReadFile(path)
			},
		})
		bs.report.StaticFiles++
		return nil
	})
}

func stageCollisions(_ context.Context, bs *buildState) error {
	idx := permalink.NewIndex()
	for _, o := range bs.outputs {
		if err := idx.Claim(o.link.Path, o.owner); err != nil {
			return err
		}
	}
	return nil
}

func stageRender(ctx context.Context, bs *buildState) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(bs.g.cfg.Render.Workers, 1))
	for _, o := range bs.outputs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := o.render()
			if err != nil {
				return fmt.Errorf("render %s: %w", o.owner, err)
			}
			o.data = data
			return nil
		})
	}
	return eg.Wait()
}

func stageWrite(ctx context.Context, bs *buildState) error {
	cfg := bs.g.cfg
	prev, err := bs.g.PreviousManifest()
	if err != nil {
		bs.g.logger.Warn("Ignoring unreadable previous manifest", logfields.Error(err))
		prev = nil
	}

	if err := bs.beginStaging(); err != nil {
		return err
	}

	m := manifest.New(bs.report.BuildID, bs.report.Start)
	m.Inputs = bs.manifestInputs()

	sort.Slice(bs.outputs, func(i, j int) bool { return bs.outputs[i].link.Path < bs.outputs[j].link.Path })
	for _, o := range bs.outputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := bs.stage.writeFile(o.link.Path, o.data); err != nil {
			return err
		}
		m.Add(permalink.Clean(o.link.Path), o.kind, o.sources, o.data)
	}
	bs.report.Outputs = len(bs.outputs)
	bs.report.Diff = manifest.Compare(prev, m)
	if h, err := m.Hash(); err == nil {
		bs.report.ManifestHash = h
	}

	if err := bs.finalizeStaging(); err != nil {
		return err
	}
	// The manifest describes the live tree, so it is only saved once promoted.
	if err := os.MkdirAll(cfg.Paths.State, 0o750); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	return m.Save(filepath.Join(cfg.Paths.State, ManifestFileName))
}

func (bs *buildState) manifestInputs() manifest.Inputs {
	in := manifest.Inputs{ConfigHash: bs.report.ConfigHash, Revision: bs.report.Revision}
	for _, es := range bs.engines {
		fps := make(map[string]string, len(es.units))
		for _, u := range es.units {
			rel, err := filepath.Rel(es.cfg.ContentDir, u.SourcePath)
			if err != nil {
				rel = u.SourcePath
			}
			fps[filepath.ToSlash(rel)] = u.Fingerprint
		}
		in.Engines = append(in.Engines, manifest.EngineInput{
			Name:         es.cfg.Name,
			Units:        len(es.units),
			Plugins:      es.cfg.Plugins,
			Fingerprints: fps,
		})
	}
	return in
}

func groupOwner(engineName string, g *pack.Group) string {
	if g.Key == "" {
		return fmt.Sprintf("%s pagination %q", engineName, g.Pattern.String())
	}
	return fmt.Sprintf("%s pagination %q [%s]", engineName, g.Pattern.String(), g.Value)
}

func unitSources(units []*content.Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.SourcePath
	}
	return out
}
