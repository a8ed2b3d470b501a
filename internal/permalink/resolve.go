package permalink

import (
	"errors"
	"fmt"
	"strings"
	"time"

	serrors "git.home.luguber.info/inful/sitepress/internal/errors"
	"git.home.luguber.info/inful/sitepress/internal/fields"
	"git.home.luguber.info/inful/sitepress/internal/slug"
)

// ErrUnsafePath reports a resolved path that would escape the output root.
var ErrUnsafePath = errors.New("permalink escapes output root")

// Resolver expands patterns against field values.
type Resolver struct {
	slugs *slug.Slugifier
}

// NewResolver returns a Resolver that slugifies non-temporal values with s.
func NewResolver(s *slug.Slugifier) *Resolver {
	if s == nil {
		s = slug.New(slug.Options{})
	}
	return &Resolver{slugs: s}
}

// Resolve parses pattern and expands it against values.
func (r *Resolver) Resolve(pattern string, values map[string]any) (string, error) {
	p, err := Parse(pattern)
	if err != nil {
		return "", err
	}
	segs, err := r.Segments(p, values, "")
	if err != nil {
		return "", err
	}
	return strings.Join(segs, "/"), nil
}

// Segments expands p into normalized path segments. owner names the unit or
// group being resolved and only feeds error messages.
//
// Time values are formatted with the placeholder's strftime format and may
// span several segments. Strings are slugified. Numbers and booleans are
// formatted as is.
func (r *Resolver) Segments(p *Pattern, values map[string]any, owner string) ([]string, error) {
	var b strings.Builder
	for _, pt := range p.parts {
		if pt.placeholder == nil {
			b.WriteString(pt.literal)
			continue
		}
		ph := pt.placeholder
		v, ok := values[ph.Field]
		if !ok || v == nil {
			return nil, &serrors.UnresolvedPlaceholderError{Pattern: p.raw, Field: ph.Field, Owner: owner}
		}
		s, err := r.value(v, ph.Format)
		if err != nil {
			return nil, fmt.Errorf("permalink %q: placeholder %s for %s: %w", p.raw, ph, owner, err)
		}
		b.WriteString(s)
	}
	return Normalize(b.String())
}

func (r *Resolver) value(v any, format string) (string, error) {
	switch vv := v.(type) {
	case time.Time:
		return fields.Format(vv, format)
	case string:
		return r.slugs.Make(vv)
	default:
		return fields.Format(vv, format)
	}
}

// Normalize splits p into clean segments: empty and "." segments are
// dropped and ".." is rejected.
func Normalize(p string) ([]string, error) {
	raw := strings.Split(strings.ReplaceAll(p, "\\", "/"), "/")
	segs := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		switch s {
		case "", ".":
			continue
		case "..":
			return nil, fmt.Errorf("%w: %q", ErrUnsafePath, p)
		}
		segs = append(segs, s)
	}
	return segs, nil
}
