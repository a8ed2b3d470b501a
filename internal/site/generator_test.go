package site

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepress/internal/config"
	serrors "git.home.luguber.info/inful/sitepress/internal/errors"
	"git.home.luguber.info/inful/sitepress/internal/history"
	"git.home.luguber.info/inful/sitepress/internal/metrics"
	"git.home.luguber.info/inful/sitepress/internal/notify"
)

const siteConfig = `version: "1"
site:
  title: Test Site
  url: https://example.org
  author: Jane
engines:
  - name: blog
    content_dir: blog
    url_prefix: blog
    permalink: "{slug}"
    paginations: ["", "tag/{tags}"]
    units_per_pagination: 2
    plugins: [markup]
    sort_key: "-time"
    unit_template: unit.html
    pagination_template: list.html
    feed: {path: atom.xml}
`

func writeFile(t *testing.T, root, name, body string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

// newFixture lays out a small blog and returns its parsed configuration.
func newFixture(t *testing.T, cfgText string) *config.Config {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "content/blog/a.md", "---\ntitle: A\ntime: 2024/01/01 10:00\ntags: go, web\n---\n*a*\n")
	writeFile(t, root, "content/blog/b.md", "---\ntitle: B\ntime: 2024/02/01 10:00\ntags: go\n---\nb\n")
	writeFile(t, root, "content/blog/c.md", "---\ntitle: C\ntime: 2024/03/01 10:00\ntags: web\n---\nc\n")
	writeFile(t, root, "templates/unit.html",
		`<h1>{{.Unit.Title}}</h1>{{content .Unit}}{{with .Unit.Prev}}<a rel="prev" href="{{.Permalink}}">prev</a>{{end}}`)
	writeFile(t, root, "templates/list.html",
		`<ul>{{range .Units}}<li>{{.Title}}</li>{{end}}</ul>{{with .Page.Next}}<a href="{{.Permalink}}">next</a>{{end}}`)
	writeFile(t, root, "templates/index.html",
		`{{.Site.Title}} {{(index .Site.Engines "blog").URL}} {{(index .Site.Engines "blog").FeedURL}}`)
	writeFile(t, root, "static/css/site.css", "body{}")
	writeFile(t, root, "static/.DS_Store", "junk")

	cfg, err := config.Parse([]byte(cfgText), root)
	require.NoError(t, err)
	return cfg
}

// readTree maps slash paths below dir to file contents.
func readTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}

func assertNoLeftovers(t *testing.T, cfg *config.Config) {
	t.Helper()
	assert.NoDirExists(t, cfg.Paths.Output+"_stage")
	assert.NoDirExists(t, cfg.Paths.Output+".prev")
}

type outcomeRecorder struct {
	metrics.NoopRecorder
	mu       sync.Mutex
	outcomes []string
	stages   map[string]metrics.ResultLabel
}

func (r *outcomeRecorder) IncGenerationOutcome(o string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *outcomeRecorder) IncStageResult(stage string, result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stages == nil {
		r.stages = map[string]metrics.ResultLabel{}
	}
	r.stages[stage] = result
}

type capturePublisher struct {
	events []notify.Event
}

func (p *capturePublisher) Publish(_ context.Context, e notify.Event) error {
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) Close() {}

func TestGenerate_WritesSite(t *testing.T) {
	cfg := newFixture(t, siteConfig)
	rec := &outcomeRecorder{}
	pub := &capturePublisher{}
	g := NewGenerator(cfg, WithRecorder(rec), WithPublisher(pub))

	report, err := g.Generate(context.Background())
	require.NoError(t, err)

	tree := readTree(t, cfg.Paths.Output)
	assert.ElementsMatch(t, []string{
		"index.html",
		"blog/a/index.html",
		"blog/b/index.html",
		"blog/c/index.html",
		"blog/index.html",
		"blog/2/index.html",
		"blog/tag/web/index.html",
		"blog/tag/go/index.html",
		"blog/atom.xml",
		"css/site.css",
	}, keys(tree))

	assert.Equal(t, "<h1>C</h1><p>c</p>\n", tree["blog/c/index.html"], "first unit in sort order has no previous neighbour")
	assert.Equal(t, "<h1>A</h1><p><em>a</em></p>\n"+`<a rel="prev" href="/blog/b/">prev</a>`, tree["blog/a/index.html"])
	assert.Equal(t, `<ul><li>C</li><li>B</li></ul><a href="/blog/2/">next</a>`, tree["blog/index.html"])
	assert.Equal(t, `<ul><li>A</li></ul>`, tree["blog/2/index.html"])
	assert.Equal(t, `<ul><li>C</li><li>A</li></ul>`, tree["blog/tag/web/index.html"])
	assert.Equal(t, `<ul><li>B</li><li>A</li></ul>`, tree["blog/tag/go/index.html"])
	assert.Equal(t, "Test Site /blog/ /blog/atom.xml", tree["index.html"])
	assert.Contains(t, tree["blog/atom.xml"], "<title>Test Site</title>")
	assert.Equal(t, "body{}", tree["css/site.css"])

	assert.Equal(t, OutcomeSuccess, report.Outcome)
	assert.Equal(t, 3, report.Units)
	assert.Equal(t, 4, report.Pages)
	assert.Equal(t, 10, report.Outputs)
	assert.Equal(t, 1, report.StaticFiles)
	assert.Equal(t, EngineCounts{Units: 3, Groups: 3, Pages: 4}, report.Engines["blog"])
	assert.Len(t, report.Diff.Added, 10)
	assert.NotEmpty(t, report.ConfigHash)
	for _, st := range generationStages() {
		assert.Contains(t, report.StageDurations, string(st.Name))
		assert.Equal(t, metrics.ResultSuccess, rec.stages[string(st.Name)])
	}
	assert.Equal(t, []string{"success"}, rec.outcomes)

	require.Len(t, pub.events, 1)
	assert.Equal(t, report.BuildID, pub.events[0].BuildID)
	assert.Equal(t, 10, pub.events[0].Added)

	persisted, err := LoadReport(cfg.Paths.State)
	require.NoError(t, err)
	assert.Equal(t, report.BuildID, persisted.BuildID)
	assert.Equal(t, OutcomeSuccess, persisted.Outcome)

	prev, err := g.PreviousManifest()
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Len(t, prev.Outputs, 10)
	assertNoLeftovers(t, cfg)
}

func TestGenerate_Idempotent(t *testing.T) {
	cfg := newFixture(t, siteConfig)
	g := NewGenerator(cfg)

	_, err := g.Generate(context.Background())
	require.NoError(t, err)
	first := readTree(t, cfg.Paths.Output)

	report, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, readTree(t, cfg.Paths.Output))
	assert.True(t, report.Diff.Empty())
	assert.Equal(t, 10, report.Diff.Unchanged)
	assertNoLeftovers(t, cfg)
}

func TestGenerate_RemovesStaleOutputs(t *testing.T) {
	cfg := newFixture(t, siteConfig)
	g := NewGenerator(cfg)
	_, err := g.Generate(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(cfg.Paths.Content, "blog", "b.md")))
	report, err := g.Generate(context.Background())
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(cfg.Paths.Output, "blog", "b", "index.html"))
	assert.NoFileExists(t, filepath.Join(cfg.Paths.Output, "blog", "2", "index.html"))
	assert.Contains(t, report.Diff.Removed, "blog/b/index.html")
	assert.Contains(t, report.Diff.Changed, "blog/index.html")
}

func TestGenerate_ParseErrorLeavesOutputUntouched(t *testing.T) {
	cfg := newFixture(t, siteConfig)
	g := NewGenerator(cfg)
	_, err := g.Generate(context.Background())
	require.NoError(t, err)
	before := readTree(t, cfg.Paths.Output)

	writeFile(t, cfg.Paths.Content, "blog/broken.md", "title: no delimiter\n")
	report, err := g.Generate(context.Background())
	require.Error(t, err)

	var ge *serrors.GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, string(StageLoad), ge.Stage)
	var pe *serrors.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, filepath.Join(cfg.Paths.Content, "blog", "broken.md"), pe.Path)

	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.Equal(t, string(StageLoad), report.FailedStage)
	assert.Equal(t, before, readTree(t, cfg.Paths.Output))
	assertNoLeftovers(t, cfg)
}

func TestGenerate_FailedPromotionKeepsPreviousManifest(t *testing.T) {
	cfg := newFixture(t, siteConfig)
	g := NewGenerator(cfg)
	first, err := g.Generate(context.Background())
	require.NoError(t, err)
	before := readTree(t, cfg.Paths.Output)

	writeFile(t, cfg.Paths.Content, "blog/d.md", "---\ntitle: D\ntime: 2024/04/01 10:00\n---\nd\n")
	promote = func(string, string) error { return errors.New("disk full") }
	t.Cleanup(func() { promote = os.Rename })

	report, err := g.Generate(context.Background())
	require.Error(t, err)
	var ge *serrors.GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, string(StageWrite), ge.Stage)
	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.Equal(t, before, readTree(t, cfg.Paths.Output))
	assertNoLeftovers(t, cfg)

	saved, err := g.PreviousManifest()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, first.BuildID, saved.BuildID)
	assert.NotContains(t, saved.Paths(), "blog/d/index.html")

	promote = os.Rename
	report, err = g.Generate(context.Background())
	require.NoError(t, err)
	assert.Contains(t, report.Diff.Added, "blog/d/index.html")
}

func TestGenerate_ParseErrorWritesNothing(t *testing.T) {
	cfg := newFixture(t, siteConfig)
	writeFile(t, cfg.Paths.Content, "blog/broken.md", "no front matter at all")

	_, err := NewGenerator(cfg).Generate(context.Background())
	var pe *serrors.ParseError
	require.ErrorAs(t, err, &pe)
	assert.NoDirExists(t, cfg.Paths.Output)
	assertNoLeftovers(t, cfg)
}

func TestGenerate_DuplicateSlugFailsBeforeRender(t *testing.T) {
	cfg := newFixture(t, siteConfig)
	writeFile(t, cfg.Paths.Content, "blog/one.md", "---\ntitle: My Post\ntime: 2024/04/01 10:00\n---\n")
	writeFile(t, cfg.Paths.Content, "blog/two.md", "---\ntitle: my post\ntime: 2024/04/02 10:00\n---\n")
	rec := &outcomeRecorder{}

	_, err := NewGenerator(cfg, WithRecorder(rec)).Generate(context.Background())
	var dup *serrors.DuplicateSlugError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "my-post", dup.Slug)
	assert.Equal(t, "blog", dup.Engine)
	assert.NotContains(t, rec.stages, string(StageRender))
	assert.NoDirExists(t, cfg.Paths.Output)
}

func TestGenerate_PermalinkCollision(t *testing.T) {
	cfg := newFixture(t, siteConfig)
	cfg.Engines[0].Permalink = "post"

	_, err := NewGenerator(cfg).Generate(context.Background())
	var col *serrors.PermalinkCollisionError
	require.ErrorAs(t, err, &col)
	assert.Equal(t, "blog/post/index.html", col.Path)
	assert.Len(t, col.Owners, 2)

	var ge *serrors.GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, string(StageCollisions), ge.Stage)
	assert.Equal(t, serrors.CategoryBuild, serrors.GetCategory(err))
	assert.NoDirExists(t, cfg.Paths.Output)
}

func TestGenerate_StaticCollidesWithPage(t *testing.T) {
	cfg := newFixture(t, siteConfig)
	writeFile(t, cfg.Paths.Static, "index.html", "static home")

	_, err := NewGenerator(cfg).Generate(context.Background())
	var col *serrors.PermalinkCollisionError
	require.ErrorAs(t, err, &col)
	assert.Equal(t, "index.html", col.Path)
}

func TestGenerate_MissingTemplateFailsInRender(t *testing.T) {
	cfg := newFixture(t, siteConfig)
	require.NoError(t, os.Remove(filepath.Join(cfg.Paths.Templates, "unit.html")))

	report, err := NewGenerator(cfg).Generate(context.Background())
	require.Error(t, err)
	assert.Equal(t, string(StageRender), report.FailedStage)
	assert.Equal(t, serrors.CategoryTemplate, serrors.GetCategory(err))
	assert.NoDirExists(t, cfg.Paths.Output)
	assertNoLeftovers(t, cfg)
}

func TestGenerate_ParallelRenderMatchesSequential(t *testing.T) {
	seq := newFixture(t, siteConfig)
	_, err := NewGenerator(seq).Generate(context.Background())
	require.NoError(t, err)

	par := newFixture(t, siteConfig)
	par.Render.Workers = 4
	_, err = NewGenerator(par).Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, readTree(t, seq.Paths.Output), readTree(t, par.Paths.Output))
}

func TestGenerate_Canceled(t *testing.T) {
	cfg := newFixture(t, siteConfig)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewGenerator(cfg).Generate(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, OutcomeCanceled, report.Outcome)
	assert.NoDirExists(t, cfg.Paths.Output)
}

func TestGenerate_RecordsHistory(t *testing.T) {
	cfg := newFixture(t, siteConfig)
	store, err := history.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	g := NewGenerator(cfg, WithHistory(store))
	report, err := g.Generate(context.Background())
	require.NoError(t, err)

	entry, ok, err := store.Get(context.Background(), report.BuildID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "success", entry.Outcome)
	assert.Equal(t, 10, entry.Outputs)
	assert.Equal(t, report.ManifestHash, entry.ManifestHash)
}

func TestRoutes(t *testing.T) {
	cfg := newFixture(t, siteConfig)
	routes, err := NewGenerator(cfg).Routes(context.Background())
	require.NoError(t, err)
	require.Len(t, routes, 10)

	byPath := map[string]Route{}
	for _, r := range routes {
		byPath[r.Path] = r
	}
	assert.Equal(t, "/blog/tag/go/", byPath["blog/tag/go/index.html"].URL)
	assert.Equal(t, "page", byPath["blog/tag/go/index.html"].Kind)
	assert.Equal(t, "feed", byPath["blog/atom.xml"].Kind)
	assert.Equal(t, filepath.Join(cfg.Paths.Content, "blog", "a.md"), byPath["blog/a/index.html"].Owner)
	assert.Equal(t, "blog/2/index.html", routes[0].Path)
	assert.NoDirExists(t, cfg.Paths.Output, "routes never writes")
}

func TestGenerate_FlatLayoutAndPaginationSegment(t *testing.T) {
	cfg := newFixture(t, siteConfig)
	flat := false
	cfg.Site.IndexHTMLOnly = &flat
	cfg.Site.PaginationSegment = "page"

	_, err := NewGenerator(cfg).Generate(context.Background())
	require.NoError(t, err)
	tree := readTree(t, cfg.Paths.Output)
	assert.Contains(t, tree, "blog/a.html")
	assert.Contains(t, tree, "blog/page/2.html")
	assert.Equal(t, `<ul><li>C</li><li>B</li></ul><a href="/blog/page/2.html">next</a>`, tree["blog.html"])
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
