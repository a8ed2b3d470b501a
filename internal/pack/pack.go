// Package pack groups an engine's units into paginated listings.
//
// Each pagination pattern yields zero or more groups. A pattern without a
// placeholder yields one group holding every unit. A placeholder bound to
// a scalar field buckets units by the formatted value, and a placeholder
// bound to a list field fans a unit out into one group per element.
package pack

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/sitepress/internal/config"
	"git.home.luguber.info/inful/sitepress/internal/content"
	serrors "git.home.luguber.info/inful/sitepress/internal/errors"
	"git.home.luguber.info/inful/sitepress/internal/fields"
	"git.home.luguber.info/inful/sitepress/internal/logfields"
	"git.home.luguber.info/inful/sitepress/internal/permalink"
	"git.home.luguber.info/inful/sitepress/internal/slug"
)

// Spec is one pagination pattern with its page size.
type Spec struct {
	Pattern string
	PerPage int
}

// Options controls grouping for one engine.
type Options struct {
	Engine    string
	SortKey   string
	Reverse   bool
	Unmatched config.UnmatchedPolicy
	// Slugs folds string bucket values so that "Go" and "go" share a group.
	Slugs  *slug.Slugifier
	Logger *slog.Logger
}

// Group is a set of units sharing a pagination key value.
type Group struct {
	Pattern *permalink.Pattern
	// Key is the grouping field, empty for the catch-all group.
	Key string
	// Value is the bucket's formatted value.
	Value string
	// Fields binds the pattern's placeholder for permalink resolution.
	Fields map[string]any
	Units  []*content.Unit
	Pages  []*Page
}

// Page is one page of a group's listing.
type Page struct {
	Number     int // 1-based
	Total      int
	Units      []*content.Unit
	Group      *Group
	Permalink  string
	OutputPath string
	Prev       *Page
	Next       *Page
}

// Build groups units, which must already be in the engine's sorted order.
// Groups come out per spec in configured order, and within a spec in order
// of first appearance.
func Build(units []*content.Unit, specs []Spec, opts Options) ([]*Group, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	matched := make(map[*content.Unit]bool, len(units))
	var groups []*Group
	for _, spec := range specs {
		p, err := permalink.ParsePagination(spec.Pattern)
		if err != nil {
			return nil, err
		}
		gs, err := group(units, p, opts)
		if err != nil {
			return nil, err
		}
		for _, g := range gs {
			SortUnits(g.Units, opts.SortKey, opts.Reverse)
			Paginate(g, spec.PerPage)
			for _, u := range g.Units {
				matched[u] = true
			}
		}
		groups = append(groups, gs...)
	}

	if len(specs) > 0 {
		if err := checkUnmatched(units, specs, matched, opts, logger); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func group(units []*content.Unit, p *permalink.Pattern, opts Options) ([]*Group, error) {
	if len(units) == 0 {
		return nil, nil
	}

	ph, keyed := p.Key()
	if !keyed {
		return []*Group{{
			Pattern: p,
			Fields:  map[string]any{},
			Units:   append([]*content.Unit(nil), units...),
		}}, nil
	}

	var missing *content.Unit
	present := 0
	for _, u := range units {
		if v, ok := u.Fields[ph.Field]; ok && v != nil {
			present++
		} else if missing == nil {
			missing = u
		}
	}
	if present == 0 {
		return nil, nil
	}
	if missing != nil {
		return nil, &serrors.MissingFieldError{
			Engine:  opts.Engine,
			Pattern: p.String(),
			Field:   ph.Field,
			Path:    missing.SourcePath,
		}
	}

	var order []string
	buckets := make(map[string]*Group)
	add := func(u *content.Unit, key, display string, bound any) {
		g, ok := buckets[key]
		if !ok {
			g = &Group{
				Pattern: p,
				Key:     ph.Field,
				Value:   display,
				Fields:  map[string]any{ph.Field: bound},
			}
			buckets[key] = g
			order = append(order, key)
		}
		if n := len(g.Units); n == 0 || g.Units[n-1] != u {
			g.Units = append(g.Units, u)
		}
	}

	for _, u := range units {
		v := u.Fields[ph.Field]
		if list, ok := v.([]string); ok {
			for _, item := range list {
				add(u, bucketKey(item, opts.Slugs), item, item)
			}
			continue
		}
		display, err := fields.Format(v, ph.Format)
		if err != nil {
			return nil, fmt.Errorf("pagination %q: %s: %w", p.String(), u.SourcePath, err)
		}
		key := display
		if s, ok := v.(string); ok {
			key = bucketKey(s, opts.Slugs)
		}
		add(u, key, display, v)
	}

	out := make([]*Group, 0, len(order))
	for _, key := range order {
		out = append(out, buckets[key])
	}
	return out, nil
}

func bucketKey(s string, slugs *slug.Slugifier) string {
	if slugs == nil {
		return s
	}
	if k, err := slugs.Make(s); err == nil {
		return k
	}
	return s
}

// Paginate splits a group into pages of at most perPage units and links
// neighbouring pages. perPage < 1 puts every unit on one page.
func Paginate(g *Group, perPage int) {
	n := len(g.Units)
	if perPage < 1 {
		perPage = n
	}
	g.Pages = nil
	if n == 0 {
		return
	}
	total := (n + perPage - 1) / perPage
	for i := 0; i < total; i++ {
		end := min((i+1)*perPage, n)
		page := &Page{
			Number: i + 1,
			Total:  total,
			Units:  g.Units[i*perPage : end],
			Group:  g,
		}
		if i > 0 {
			prev := g.Pages[i-1]
			page.Prev = prev
			prev.Next = page
		}
		g.Pages = append(g.Pages, page)
	}
}

// PageSegments returns the path segments of page number n given the
// segments of the group's first page. Later pages append the optional
// pagination segment and the page number.
func PageSegments(base []string, segment string, n int) []string {
	out := append([]string(nil), base...)
	if n <= 1 {
		return out
	}
	if segment = strings.Trim(segment, "/"); segment != "" {
		out = append(out, segment)
	}
	return append(out, strconv.Itoa(n))
}

func checkUnmatched(units []*content.Unit, specs []Spec, matched map[*content.Unit]bool, opts Options, logger *slog.Logger) error {
	policy := opts.Unmatched
	if policy == "" || policy == config.UnmatchedIgnore {
		return nil
	}
	patterns := make([]string, len(specs))
	for i, s := range specs {
		patterns[i] = s.Pattern
	}
	for _, u := range units {
		if matched[u] {
			continue
		}
		if policy == config.UnmatchedError {
			keys := make([]string, 0, len(specs))
			for _, s := range specs {
				if p, err := permalink.ParsePagination(s.Pattern); err == nil {
					if ph, ok := p.Key(); ok {
						keys = append(keys, ph.Field)
					}
				}
			}
			return &serrors.MissingFieldError{
				Engine:  opts.Engine,
				Pattern: strings.Join(patterns, ", "),
				Field:   strings.Join(keys, ", "),
				Path:    u.SourcePath,
			}
		}
		logger.Warn("Unit is not listed on any pagination page",
			logfields.Engine(opts.Engine),
			logfields.Path(u.SourcePath),
			logfields.Pattern(strings.Join(patterns, ", ")))
	}
	return nil
}
