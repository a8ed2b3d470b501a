// Package site orchestrates a generation pass: it loads every engine,
// groups and resolves permalinks, checks for collisions, renders and
// finally swaps a freshly written output tree into place.
package site

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitepress/internal/config"
	"git.home.luguber.info/inful/sitepress/internal/history"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/manifest"
	"git.home.luguber.info/inful/sitepress/internal/metrics"
	"git.home.luguber.info/inful/sitepress/internal/notify"
	"git.home.luguber.info/inful/sitepress/internal/plugin"
)

// ManifestFileName is the manifest of the last successful pass, kept in the
// state directory.
const ManifestFileName = "manifest.json"

// Generator runs generation passes for one configuration. Passes are
// serialized; Generate may be called from several goroutines.
type Generator struct {
	cfg       *config.Config
	plugins   *plugin.Registry
	recorder  metrics.Recorder
	logger    *slog.Logger
	publisher notify.Publisher
	history   *history.Store
	now       func() time.Time
	newID     func() string

	mu   sync.Mutex
	last *Report
}

// Option configures a Generator.
type Option func(*Generator)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(g *Generator) {
		if r != nil {
			g.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithPublisher publishes an event after every pass.
func WithPublisher(p notify.Publisher) Option {
	return func(g *Generator) {
		if p != nil {
			g.publisher = p
		}
	}
}

// WithHistory records every pass in s.
func WithHistory(s *history.Store) Option {
	return func(g *Generator) { g.history = s }
}

// WithPlugins replaces the builtin plugin registry.
func WithPlugins(r *plugin.Registry) Option {
	return func(g *Generator) {
		if r != nil {
			g.plugins = r
		}
	}
}

// NewGenerator returns a Generator for cfg, which must come from config.Load
// or config.Parse.
func NewGenerator(cfg *config.Config, opts ...Option) *Generator {
	g := &Generator{
		cfg:       cfg,
		plugins:   plugin.Builtins(nil),
		recorder:  metrics.NoopRecorder{},
		logger:    slog.Default(),
		publisher: notify.NoopPublisher{},
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Config returns the configuration the generator was built with.
func (g *Generator) Config() *config.Config { return g.cfg }

// LastReport returns the report of the most recent pass, or nil.
func (g *Generator) LastReport() *Report {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// Generate runs one full pass. On success the output directory holds
// exactly the rendered tree; on failure it is left as it was and the
// returned error is a *errors.GenerationError naming the failed stage.
// The report is returned in both cases.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	start := g.now()
	bs := newBuildState(g, newReport(g.newID(), start))
	logger := g.logger.With(logfields.BuildID(bs.report.BuildID))
	logger.Info("Generation started")

	err := runStages(ctx, bs, generationStages())
	if err != nil {
		bs.abortStaging()
	}
	bs.report.finish(g.now(), err)
	g.last = bs.report

	g.recorder.ObserveGenerationDuration(bs.report.Duration())
	g.recorder.IncGenerationOutcome(string(bs.report.Outcome))
	if err == nil {
		g.recorder.SetOutputs(bs.report.Outputs)
	}

	if g.cfg.Report.Enabled() {
		if perr := bs.report.Persist(g.cfg.Paths.State); perr != nil {
			logger.Warn("Failed to persist build report", logfields.Error(perr))
		}
	}
	g.recordHistory(logger, bs.report)
	g.publish(ctx, logger, bs.report)

	if err != nil {
		logger.Error("Generation failed",
			logfields.Stage(bs.report.FailedStage),
			logfields.Error(err))
		return bs.report, err
	}
	logger.Info("Generation complete",
		logfields.Units(bs.report.Units),
		logfields.Pages(bs.report.Pages),
		logfields.Outputs(bs.report.Outputs),
		logfields.DurationMS(float64(bs.report.Duration().Microseconds())/1000))
	return bs.report, nil
}

// Route is one planned output.
type Route struct {
	Path  string `json:"path" yaml:"path"`
	URL   string `json:"url" yaml:"url"`
	Kind  string `json:"kind" yaml:"kind"`
	Owner string `json:"owner" yaml:"owner"`
}

// Routes loads, groups and resolves without rendering and lists every
// output the next pass would write, sorted by path.
func (g *Generator) Routes(ctx context.Context) ([]Route, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	bs := newBuildState(g, newReport("", g.now()))
	if err := runStages(ctx, bs, routeStages()); err != nil {
		return nil, err
	}
	out := make([]Route, 0, len(bs.outputs))
	for _, o := range bs.outputs {
		out = append(out, Route{Path: o.link.Path, URL: o.link.URL, Kind: o.kind, Owner: o.owner})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// PreviousManifest loads the manifest of the last successful pass.
func (g *Generator) PreviousManifest() (*manifest.Manifest, error) {
	return manifest.Load(filepath.Join(g.cfg.Paths.State, ManifestFileName))
}

func (g *Generator) recordHistory(logger *slog.Logger, r *Report) {
	if g.history == nil {
		return
	}
	e := history.Entry{
		BuildID:      r.BuildID,
		StartedAt:    r.Start,
		Duration:     r.Duration(),
		Outcome:      string(r.Outcome),
		FailedStage:  r.FailedStage,
		Error:        r.Error,
		Units:        r.Units,
		Outputs:      r.Outputs,
		ConfigHash:   r.ConfigHash,
		Revision:     r.Revision,
		ManifestHash: r.ManifestHash,
	}
	// A canceled pass is still recorded.
	if err := g.history.Record(context.Background(), e); err != nil {
		logger.Warn("Failed to record generation history", logfields.Error(err))
	}
}

func (g *Generator) publish(ctx context.Context, logger *slog.Logger, r *Report) {
	ev := notify.Event{
		BuildID:    r.BuildID,
		Outcome:    string(r.Outcome),
		Stage:      r.FailedStage,
		Error:      r.Error,
		Outputs:    r.Outputs,
		Added:      len(r.Diff.Added),
		Changed:    len(r.Diff.Changed),
		Removed:    len(r.Diff.Removed),
		DurationMS: r.Duration().Milliseconds(),
		Timestamp:  r.End,
	}
	pctx := ctx
	if ctx.Err() != nil {
		pctx = context.WithoutCancel(ctx)
	}
	if err := g.publisher.Publish(pctx, ev); err != nil {
		logger.Warn("Failed to publish generation event", logfields.Error(err))
	}
}
