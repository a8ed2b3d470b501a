// Package permalink expands permalink patterns into normalized output paths
// and URLs, and detects output collisions.
package permalink

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPatternSyntax reports a malformed pattern.
var ErrPatternSyntax = errors.New("invalid permalink pattern")

// Placeholder is one `{name}` or `{name:format}` reference.
type Placeholder struct {
	Field  string
	Format string
}

func (p Placeholder) String() string {
	if p.Format == "" {
		return "{" + p.Field + "}"
	}
	return "{" + p.Field + ":" + p.Format + "}"
}

type part struct {
	literal     string
	placeholder *Placeholder
	segment     int // index of the path segment the part starts in
}

// Pattern is a parsed permalink pattern. It is immutable and safe to share.
type Pattern struct {
	raw      string
	parts    []part
	segments int
}

// Parse parses a pattern such as "{time:%Y/%m/%d}/{slug}" or "tag/{tags}".
// Leading and trailing separators are ignored.
func Parse(raw string) (*Pattern, error) {
	src := strings.Trim(strings.TrimSpace(raw), "/")
	p := &Pattern{raw: raw}
	if src == "" {
		return p, nil
	}

	var lit strings.Builder
	segment := 0
	flush := func() {
		if lit.Len() > 0 {
			p.parts = append(p.parts, part{literal: lit.String(), segment: segment})
			lit.Reset()
		}
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '{':
			end := strings.IndexByte(src[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w %q: unclosed '{'", ErrPatternSyntax, raw)
			}
			body := src[i+1 : i+1+end]
			if strings.ContainsRune(body, '{') {
				return nil, fmt.Errorf("%w %q: nested '{'", ErrPatternSyntax, raw)
			}
			name, format, _ := strings.Cut(body, ":")
			name = strings.TrimSpace(name)
			if name == "" {
				return nil, fmt.Errorf("%w %q: empty placeholder", ErrPatternSyntax, raw)
			}
			flush()
			p.parts = append(p.parts, part{placeholder: &Placeholder{Field: name, Format: format}, segment: segment})
			i += end + 1
		case '}':
			return nil, fmt.Errorf("%w %q: unexpected '}'", ErrPatternSyntax, raw)
		case '/':
			lit.WriteByte(c)
			segment++
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	p.segments = segment + 1
	return p, nil
}

// MustParse is Parse that panics; intended for constants in tests and defaults.
func MustParse(raw string) *Pattern {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePagination parses a pagination pattern: at most one placeholder, and
// only within the last path segment.
func ParsePagination(raw string) (*Pattern, error) {
	p, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	holders := p.Placeholders()
	if len(holders) > 1 {
		return nil, fmt.Errorf("%w %q: pagination patterns take at most one placeholder", ErrPatternSyntax, raw)
	}
	for _, pt := range p.parts {
		if pt.placeholder != nil && pt.segment != p.segments-1 {
			return nil, fmt.Errorf("%w %q: only the last path segment may hold a placeholder", ErrPatternSyntax, raw)
		}
	}
	return p, nil
}

// String returns the pattern as written.
func (p *Pattern) String() string { return p.raw }

// Placeholders lists the placeholders in order of appearance.
func (p *Pattern) Placeholders() []Placeholder {
	var out []Placeholder
	for _, pt := range p.parts {
		if pt.placeholder != nil {
			out = append(out, *pt.placeholder)
		}
	}
	return out
}

// Key returns the single placeholder of a pagination pattern, if any.
func (p *Pattern) Key() (Placeholder, bool) {
	for _, pt := range p.parts {
		if pt.placeholder != nil {
			return *pt.placeholder, true
		}
	}
	return Placeholder{}, false
}

// Static reports whether the pattern has no placeholders.
func (p *Pattern) Static() bool {
	_, ok := p.Key()
	return !ok
}
