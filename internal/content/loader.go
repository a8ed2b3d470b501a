package content

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/inful/mdfp"

	serrors "git.home.luguber.info/inful/sitepress/internal/errors"
	"git.home.luguber.info/inful/sitepress/internal/fields"
	"git.home.luguber.info/inful/sitepress/internal/frontmatter"
	"git.home.luguber.info/inful/sitepress/internal/slug"
)

// Markup names understood by the loader. The markup package registers
// converters under the same names.
const (
	MarkupMarkdown = "markdown"
	MarkupHTML     = "html"
	MarkupText     = "text"
)

var (
	// ErrProtectedField is returned when front matter sets a field reserved
	// for the generator.
	ErrProtectedField = errors.New("field is protected")
	// ErrMissingRequired is returned when a required field is absent after
	// defaults are applied.
	ErrMissingRequired = errors.New("required field missing")
)

// Options carries the per-engine load rules.
type Options struct {
	Engine        string
	Delimiter     string
	Defaults      map[string]any
	Required      []string
	Protected     []string
	TimeFields    []string
	ListFields    []string
	ListSeparator string
	TimeFormat    string
	Slugs         *slug.Slugifier
}

// Loader turns content files into units. It has no side effects and is
// safe for concurrent use.
type Loader struct {
	opts Options
}

// NewLoader returns a Loader for one engine.
func NewLoader(opts Options) *Loader {
	if opts.Slugs == nil {
		opts.Slugs = slug.New(slug.Options{})
	}
	if opts.Delimiter == "" {
		opts.Delimiter = frontmatter.DefaultDelimiter
	}
	return &Loader{opts: opts}
}

// Load reads and parses one content file.
func (l *Loader) Load(path string) (*Unit, error) {
	// #nosec G304 -- path comes from scanning the engine's content directory.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &serrors.ParseError{Path: path, Err: err}
	}
	var mod time.Time
	if info, statErr := os.Stat(path); statErr == nil {
		mod = info.ModTime()
	}
	return l.Parse(path, data, mod)
}

// Parse builds a unit from file contents.
func (l *Loader) Parse(path string, data []byte, modTime time.Time) (*Unit, error) {
	raw, body, err := frontmatter.SplitRequired(data, l.opts.Delimiter)
	if err != nil {
		return nil, &serrors.ParseError{Path: path, Err: err}
	}

	parsed, err := frontmatter.ParseYAML(raw)
	if err != nil {
		return nil, &serrors.ParseError{Path: path, Err: err}
	}

	fm := make(map[string]any, len(parsed)+len(l.opts.Defaults))
	for k, v := range parsed {
		fm[k] = fields.Normalize(v)
	}

	for _, name := range l.opts.Protected {
		if _, ok := fm[name]; ok {
			return nil, &serrors.ParseError{Path: path, Field: name, Err: ErrProtectedField}
		}
	}

	for k, v := range l.opts.Defaults {
		if _, ok := fm[k]; !ok {
			fm[k] = fields.Normalize(copyValue(v))
		}
	}

	for _, name := range l.opts.Required {
		if v, ok := fm[name]; !ok || v == nil {
			return nil, &serrors.ParseError{Path: path, Field: name, Err: ErrMissingRequired}
		}
	}

	for _, name := range l.opts.TimeFields {
		v, ok := fm[name]
		if !ok {
			continue
		}
		t, err := fields.ParseTime(v, l.opts.TimeFormat)
		if err != nil {
			return nil, &serrors.ParseError{Path: path, Field: name, Err: err}
		}
		fm[name] = t
	}

	for _, name := range l.opts.ListFields {
		v, ok := fm[name]
		if !ok {
			continue
		}
		list, err := fields.ToList(v, l.opts.ListSeparator)
		if err != nil {
			return nil, &serrors.ParseError{Path: path, Field: name, Err: err}
		}
		fm[name] = list
	}

	s, err := l.slugFor(path, fm)
	if err != nil {
		return nil, &serrors.ParseError{Path: path, Field: "slug", Err: err}
	}

	return &Unit{
		SourcePath:  path,
		Engine:      l.opts.Engine,
		Slug:        s,
		Fields:      fm,
		Body:        body,
		Markup:      markupFor(path, fm),
		Fingerprint: mdfp.CalculateFingerprintFromParts(strings.TrimRight(string(raw), "\r\n"), string(body)),
		ModTime:     modTime,
	}, nil
}

// slugFor prefers an explicit slug, then the title, then the file name.
func (l *Loader) slugFor(path string, fm map[string]any) (string, error) {
	if v, ok := fm["slug"]; ok {
		return l.opts.Slugs.Make(fields.String(v))
	}
	if v, ok := fm["title"]; ok {
		return l.opts.Slugs.Make(fields.String(v))
	}
	base := filepath.Base(path)
	return l.opts.Slugs.Make(strings.TrimSuffix(base, filepath.Ext(base)))
}

func markupFor(path string, fm map[string]any) string {
	if m, ok := fm["markup"].(string); ok && strings.TrimSpace(m) != "" {
		return strings.ToLower(strings.TrimSpace(m))
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return MarkupMarkdown
	case ".html", ".htm":
		return MarkupHTML
	default:
		return MarkupText
	}
}

// copyValue keeps units from sharing mutable default values.
func copyValue(v any) any {
	switch vv := v.(type) {
	case []string:
		return append([]string(nil), vv...)
	case []any:
		return append([]any(nil), vv...)
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, item := range vv {
			out[k] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
