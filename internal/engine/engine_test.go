package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepress/internal/config"
	serrors "git.home.luguber.info/inful/sitepress/internal/errors"
	"git.home.luguber.info/inful/sitepress/internal/plugin"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func newEngine(t *testing.T, dir string, mutate func(*config.EngineConfig)) *Engine {
	t.Helper()
	cfg, err := config.Parse([]byte("version: \"1\"\nengines:\n  - name: blog\n    plugins: [markup]\n"), dir)
	require.NoError(t, err)
	ec := cfg.Engines[0]
	ec.ContentDir = dir
	if mutate != nil {
		mutate(&ec)
	}
	e, err := FromConfig(cfg, ec, plugin.Builtins(nil), nil)
	require.NoError(t, err)
	return e
}

func TestEngine_UnitsSortedAndChained(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "---\ntitle: Alpha\ntime: 2024/01/01 10:00\n---\n*a*\n")
	writeFile(t, dir, "sub/b.md", "---\ntitle: Beta\ntime: 2024/02/01 10:00\n---\nb\n")
	writeFile(t, dir, "c.md", "---\ntitle: Gamma\ntime: 2024/03/01 10:00\n---\nc\n")
	writeFile(t, dir, ".hidden.md", "not front matter")
	writeFile(t, dir, ".git/x.md", "not front matter")

	e := newEngine(t, dir, nil)
	units, err := e.Units(context.Background())
	require.NoError(t, err)
	require.Len(t, units, 3)

	assert.Equal(t, []string{"gamma", "beta", "alpha"}, []string{units[0].Slug, units[1].Slug, units[2].Slug})
	assert.Equal(t, "<p><em>a</em></p>\n", string(units[2].Body))
	assert.Nil(t, units[0].Prev)
	assert.Equal(t, units[1], units[0].Next)
	assert.Equal(t, "blog", units[0].Engine)

	again, err := e.Units(context.Background())
	require.NoError(t, err)
	assert.Same(t, units[0], again[0], "units are cached")
}

func TestEngine_NonRecursiveAndPattern(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "---\ntitle: A\n---\n")
	writeFile(t, dir, "b.txt", "---\ntitle: B\n---\n")
	writeFile(t, dir, "sub/c.md", "---\ntitle: C\n---\n")

	e := newEngine(t, dir, func(ec *config.EngineConfig) {
		f := false
		ec.Recursive = &f
		ec.Pattern = "*.md"
	})
	paths, err := e.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.md")}, paths)
}

func TestEngine_DuplicateSlug(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.md", "---\ntitle: My Post\n---\n")
	writeFile(t, dir, "two.md", "---\ntitle: my post\n---\n")

	_, err := newEngine(t, dir, nil).Units(context.Background())
	var dup *serrors.DuplicateSlugError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "my-post", dup.Slug)
	assert.Equal(t, filepath.Join(dir, "one.md"), dup.First)
	assert.Equal(t, filepath.Join(dir, "two.md"), dup.Second)
}

func TestEngine_ParseErrorIsCached(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.md", "title: no delimiter\n")

	e := newEngine(t, dir, nil)
	_, err := e.Units(context.Background())
	var pe *serrors.ParseError
	require.ErrorAs(t, err, &pe)

	writeFile(t, dir, "bad.md", "---\ntitle: fixed\n---\n")
	_, err2 := e.Units(context.Background())
	assert.Equal(t, err, err2)
}

func TestEngine_MissingDirectory(t *testing.T) {
	e := newEngine(t, t.TempDir(), func(ec *config.EngineConfig) {
		ec.ContentDir = filepath.Join(ec.ContentDir, "nope")
	})
	units, err := e.Units(context.Background())
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestEngine_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "---\ntitle: A\n---\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newEngine(t, dir, nil).Units(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFromConfig_UnknownPlugin(t *testing.T) {
	cfg, err := config.Parse([]byte("version: \"1\"\nengines:\n  - name: blog\n    plugins: [nope]\n"), t.TempDir())
	require.NoError(t, err)
	_, err = FromConfig(cfg, cfg.Engines[0], plugin.Builtins(nil), nil)
	require.Error(t, err)
	assert.True(t, serrors.IsCategory(err, serrors.CategoryValidation))
}
