package pack

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepress/internal/config"
	"git.home.luguber.info/inful/sitepress/internal/content"
	serrors "git.home.luguber.info/inful/sitepress/internal/errors"
	"git.home.luguber.info/inful/sitepress/internal/permalink"
	"git.home.luguber.info/inful/sitepress/internal/slug"
)

func unit(path string, f map[string]any) *content.Unit {
	return &content.Unit{SourcePath: path, Slug: path, Fields: f}
}

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func members(g *Group) []string {
	out := make([]string, len(g.Units))
	for i, u := range g.Units {
		out[i] = u.SourcePath
	}
	return out
}

func TestBuild_TagFanOut(t *testing.T) {
	units := []*content.Unit{
		unit("one", map[string]any{"tags": []string{"a", "b"}}),
		unit("two", map[string]any{"tags": []string{"b"}}),
		unit("three", map[string]any{"tags": []string{"c"}}),
	}
	groups, err := Build(units, []Spec{{Pattern: "tag/{tags}", PerPage: 10}}, Options{SortKey: "time"})
	require.NoError(t, err)
	require.Len(t, groups, 3)

	assert.Equal(t, "a", groups[0].Value)
	assert.Equal(t, []string{"one"}, members(groups[0]))
	assert.Equal(t, "b", groups[1].Value)
	assert.Equal(t, []string{"one", "two"}, members(groups[1]))
	assert.Equal(t, "c", groups[2].Value)
	assert.Equal(t, []string{"three"}, members(groups[2]))
	assert.Equal(t, map[string]any{"tags": "b"}, groups[1].Fields)

	total := 0
	for _, g := range groups {
		total += len(g.Units)
	}
	assert.Equal(t, 4, total, "membership sum equals the sum of tag-set sizes")
}

func TestBuild_CatchAll(t *testing.T) {
	units := []*content.Unit{unit("a", nil), unit("b", nil)}
	groups, err := Build(units, []Spec{{Pattern: "", PerPage: 1}}, Options{})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Empty(t, groups[0].Key)
	assert.Len(t, groups[0].Pages, 2)

	groups, err = Build(nil, []Spec{{Pattern: ""}}, Options{})
	require.NoError(t, err)
	assert.Empty(t, groups, "no units means no empty listing")
}

func TestBuild_TimeBuckets(t *testing.T) {
	units := []*content.Unit{
		unit("jan-2", map[string]any{"time": day(2)}),
		unit("feb", map[string]any{"time": time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}),
		unit("jan-1", map[string]any{"time": day(1)}),
	}
	groups, err := Build(units, []Spec{{Pattern: "{time:%Y/%m}", PerPage: 10}}, Options{SortKey: "time", Reverse: true})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "2024/01", groups[0].Value)
	assert.Equal(t, []string{"jan-2", "jan-1"}, members(groups[0]))
	assert.Equal(t, "2024/02", groups[1].Value)

	segs, err := permalink.NewResolver(nil).Segments(groups[0].Pattern, groups[0].Fields, "group")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024", "01"}, segs)
}

func TestBuild_ScalarBucketsFoldCase(t *testing.T) {
	units := []*content.Unit{
		unit("x", map[string]any{"author": "Ann"}),
		unit("y", map[string]any{"author": "bob"}),
		unit("z", map[string]any{"author": "ann"}),
	}
	groups, err := Build(units, []Spec{{Pattern: "by/{author}", PerPage: 10}}, Options{Slugs: slug.New(slug.Options{})})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Ann", groups[0].Value)
	assert.Equal(t, []string{"x", "z"}, members(groups[0]))
}

func TestBuild_MissingField(t *testing.T) {
	units := []*content.Unit{
		unit("has", map[string]any{"tags": []string{"a"}}),
		unit("lacks", map[string]any{}),
	}
	_, err := Build(units, []Spec{{Pattern: "tag/{tags}"}}, Options{Engine: "blog"})
	var mf *serrors.MissingFieldError
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, "tags", mf.Field)
	assert.Equal(t, "lacks", mf.Path)
	assert.Equal(t, "blog", mf.Engine)

	groups, err := Build([]*content.Unit{unit("a", nil)}, []Spec{{Pattern: "tag/{tags}"}}, Options{})
	require.NoError(t, err)
	assert.Empty(t, groups, "field absent everywhere yields no groups")
}

func TestBuild_InvalidPattern(t *testing.T) {
	_, err := Build([]*content.Unit{unit("a", nil)}, []Spec{{Pattern: "{tags}/list"}}, Options{})
	assert.ErrorIs(t, err, permalink.ErrPatternSyntax)
}

func TestBuild_UnmatchedPolicy(t *testing.T) {
	units := []*content.Unit{
		unit("tagged", map[string]any{"tags": []string{"a"}}),
		unit("empty", map[string]any{"tags": []string{}}),
	}
	specs := []Spec{{Pattern: "tag/{tags}"}}

	_, err := Build(units, specs, Options{Unmatched: config.UnmatchedIgnore})
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	_, err = Build(units, specs, Options{Unmatched: config.UnmatchedWarn, Logger: logger})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "path=empty")

	_, err = Build(units, specs, Options{Unmatched: config.UnmatchedError})
	var mf *serrors.MissingFieldError
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, "empty", mf.Path)
}

func TestPaginate(t *testing.T) {
	for _, tc := range []struct{ g, p, pages, last int }{
		{1, 10, 1, 1},
		{10, 10, 1, 10},
		{11, 10, 2, 1},
		{25, 5, 5, 5},
		{7, 0, 1, 7},
	} {
		g := &Group{}
		for i := 0; i < tc.g; i++ {
			g.Units = append(g.Units, unit(string(rune('a'+i)), nil))
		}
		Paginate(g, tc.p)
		require.Len(t, g.Pages, tc.pages)
		assert.Len(t, g.Pages[len(g.Pages)-1].Units, tc.last)

		var flat []*content.Unit
		for i, p := range g.Pages {
			assert.Equal(t, i+1, p.Number)
			assert.Equal(t, tc.pages, p.Total)
			flat = append(flat, p.Units...)
		}
		assert.Equal(t, g.Units, flat, "order is preserved across pages")
		assert.Nil(t, g.Pages[0].Prev)
		assert.Nil(t, g.Pages[len(g.Pages)-1].Next)
	}
}

func TestPageSegments(t *testing.T) {
	base := []string{"blog", "tag", "go"}
	assert.Equal(t, base, PageSegments(base, "page", 1))
	assert.Equal(t, []string{"blog", "tag", "go", "page", "2"}, PageSegments(base, "page", 2))
	assert.Equal(t, []string{"blog", "3"}, PageSegments([]string{"blog"}, "", 3))
}

func TestSortUnits(t *testing.T) {
	units := []*content.Unit{
		unit("none", map[string]any{}),
		unit("old", map[string]any{"time": day(1)}),
		unit("new", map[string]any{"time": day(5)}),
		unit("tie", map[string]any{"time": day(1)}),
	}
	SortUnits(units, "time", true)
	assert.Equal(t, []string{"new", "old", "tie", "none"}, members(&Group{Units: units}))

	SortUnits(units, "time", false)
	assert.Equal(t, []string{"old", "tie", "new", "none"}, members(&Group{Units: units}))

	SortUnits(units, "slug", false)
	assert.Equal(t, []string{"new", "none", "old", "tie"}, members(&Group{Units: units}))
}

func TestChain(t *testing.T) {
	units := []*content.Unit{unit("a", nil), unit("b", nil), unit("c", nil)}
	Chain(units)
	assert.Nil(t, units[0].Prev)
	assert.Equal(t, units[1], units[0].Next)
	assert.Equal(t, units[0], units[1].Prev)
	assert.Nil(t, units[2].Next)
}
