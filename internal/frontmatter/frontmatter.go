// Package frontmatter splits content files into a metadata block and a body.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// DefaultDelimiter opens and closes the metadata block.
const DefaultDelimiter = "---"

var (
	// ErrMissingOpeningDelimiter indicates the document does not start with the delimiter line.
	ErrMissingOpeningDelimiter = errors.New("front matter opening delimiter missing")
	// ErrMissingClosingDelimiter indicates the document started with the
	// delimiter but never closed the block.
	ErrMissingClosingDelimiter = errors.New("front matter closing delimiter missing")
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Style captures formatting details needed for stable rewriting.
type Style struct {
	Newline            string
	HasTrailingNewline bool
}

// Split separates the front matter block from the body.
//
// If the document does not start with a delimiter line, had is false and
// body is the full input. The closing delimiter may be the last line of the
// file. An empty delimiter selects DefaultDelimiter.
func Split(content []byte, delimiter string) (frontmatter []byte, body []byte, had bool, style Style, err error) {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	content = bytes.TrimPrefix(content, bom)
	style = detectStyle(content)

	nl := style.Newline
	open := []byte(delimiter + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, style, nil
	}

	rest := content[len(open):]
	switch {
	case bytes.HasPrefix(rest, open):
		return []byte{}, rest[len(open):], true, style, nil
	case bytes.Equal(rest, []byte(delimiter)):
		return []byte{}, []byte{}, true, style, nil
	}

	closeSeq := []byte(nl + delimiter + nl)
	if idx := bytes.Index(rest, closeSeq); idx >= 0 {
		return rest[:idx+len(nl)], rest[idx+len(closeSeq):], true, style, nil
	}

	closeEOF := []byte(nl + delimiter)
	if bytes.HasSuffix(rest, closeEOF) {
		return rest[:len(rest)-len(delimiter)], []byte{}, true, style, nil
	}

	return nil, nil, false, style, ErrMissingClosingDelimiter
}

// SplitRequired is Split for callers that treat a missing block as malformed.
func SplitRequired(content []byte, delimiter string) (frontmatter []byte, body []byte, err error) {
	fm, body, had, _, err := Split(content, delimiter)
	if err != nil {
		return nil, nil, err
	}
	if !had {
		return nil, nil, ErrMissingOpeningDelimiter
	}
	return fm, body, nil
}

// Join reassembles a document from raw frontmatter and body.
func Join(frontmatter []byte, body []byte, delimiter string, style Style) []byte {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	nl := style.Newline
	if nl == "" {
		nl = "\n"
	}

	fence := []byte(delimiter + nl)
	out := make([]byte, 0, 2*len(fence)+len(frontmatter)+len(body))
	out = append(out, fence...)
	out = append(out, frontmatter...)
	if len(frontmatter) > 0 && !bytes.HasSuffix(frontmatter, []byte(nl)) {
		out = append(out, nl...)
	}
	out = append(out, fence...)
	out = append(out, body...)
	return out
}

// ParseYAML parses raw YAML frontmatter (without delimiters) into a map.
func ParseYAML(frontmatter []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(frontmatter)) == 0 {
		return map[string]any{}, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(frontmatter, &fields); err != nil {
		return nil, fmt.Errorf("front matter yaml: %w", err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func detectStyle(content []byte) Style {
	newline := "\n"
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		newline = "\r\n"
	}

	return Style{
		Newline:            newline,
		HasTrailingNewline: len(content) > 0 && content[len(content)-1] == '\n',
	}
}
