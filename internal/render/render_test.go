package render

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepress/internal/content"
	serrors "git.home.luguber.info/inful/sitepress/internal/errors"
)

func TestNew_LoadsTree(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "partials"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "partials", "nav.html"), []byte(`<nav>{{.Title}}</nav>`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.html"), []byte(`{{template "partials/nav.html" .}}<p>{{.Body}}</p>`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte(`ignored`), 0o600))

	e, err := New(dir, Funcs(FuncOptions{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"page.html", "partials/nav.html"}, e.Names())
	assert.True(t, e.Has("page.html"))

	out, err := e.Render("page.html", map[string]any{"Title": "T", "Body": "<b>x</b>"})
	require.NoError(t, err)
	assert.Equal(t, "<nav>T</nav><p>&lt;b&gt;x&lt;/b&gt;</p>", out)
}

func TestNew_MissingDir(t *testing.T) {
	e, err := New(filepath.Join(t.TempDir(), "none"), nil)
	require.NoError(t, err)
	assert.Empty(t, e.Names())
}

func TestNew_ParseError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.html"), []byte(`{{if}}`), 0o600))
	_, err := New(dir, nil)
	require.Error(t, err)
	assert.True(t, serrors.IsCategory(err, serrors.CategoryTemplate))
}

func TestRender_Errors(t *testing.T) {
	e, err := NewFromStrings(map[string]string{"x.html": `{{.Missing.Field}}`}, nil)
	require.NoError(t, err)

	_, err = e.Render("nope.html", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `template "nope.html" not found`)
	assert.True(t, serrors.IsCategory(err, serrors.CategoryTemplate))

	_, err = e.Render("x.html", map[string]any{"Missing": 3})
	assert.True(t, serrors.IsCategory(err, serrors.CategoryTemplate))
}

func TestFuncs(t *testing.T) {
	funcs := Funcs(FuncOptions{SiteURL: "https://example.org/", DisplayTimeFormat: "%d %B %Y", ExcerptLength: 12})
	e, err := NewFromStrings(map[string]string{
		"t.html": `{{displaytime .T}}|{{displaytime .T "%Y"}}|{{slugify "Hello World"}}|{{absurl "/a/"}}|{{activatedin "blog" "/blog/x/"}}|{{excerpt .U}}|{{content .U}}|{{field .U "tags"}}`,
	}, funcs)
	require.NoError(t, err)

	u := &content.Unit{Body: []byte("<p>Hello there <em>brave</em> new world</p>"), Fields: map[string]any{"tags": []string{"a", "b"}}}
	out, err := e.Render("t.html", map[string]any{"T": time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), "U": u})
	require.NoError(t, err)
	assert.Equal(t, "09 March 2024|2024|hello-world|https://example.org/a/|active|Hello there…|<p>Hello there <em>brave</em> new world</p>|a, b", out)
}

func TestActivatedIn(t *testing.T) {
	assert.Equal(t, "active", ActivatedIn("/", "/"))
	assert.Empty(t, ActivatedIn("/", "/blog/"))
	assert.Equal(t, "active", ActivatedIn("blog", "/blog"))
	assert.Empty(t, ActivatedIn("blog", "/blogroll/"))
}

func TestExcerpt(t *testing.T) {
	out, err := Excerpt("<p>a &amp; b</p><script>var x;</script><p>c</p>", 0)
	require.NoError(t, err)
	assert.Equal(t, "a & b c", out)

	out, err = Excerpt("<p>Supercalifragilistic</p>", 5)
	require.NoError(t, err)
	assert.Equal(t, "Super…", out)
}
