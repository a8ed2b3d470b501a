// Package markup converts unit bodies into HTML.
package markup

import (
	"bytes"
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Converter turns a raw body into HTML.
type Converter interface {
	Convert(raw []byte) ([]byte, error)
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc func(raw []byte) ([]byte, error)

// Convert implements Converter.
func (f ConverterFunc) Convert(raw []byte) ([]byte, error) { return f(raw) }

// Registry maps markup names to converters.
type Registry struct {
	mu         sync.RWMutex
	converters map[string]Converter
}

// NewRegistry returns a registry holding the markdown, html and text converters.
func NewRegistry() *Registry {
	r := &Registry{converters: make(map[string]Converter)}
	r.Register("markdown", NewMarkdown())
	r.Register("html", ConverterFunc(passthrough))
	r.Register("text", ConverterFunc(plainText))
	return r
}

// Register adds or replaces a converter.
func (r *Registry) Register(name string, c Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters[strings.ToLower(name)] = c
}

// Get returns the converter registered under name.
func (r *Registry) Get(name string) (Converter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.converters[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("no converter for markup %q (have %s)", name, strings.Join(r.namesLocked(), ", "))
	}
	return c, nil
}

// Names lists registered markup names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.converters))
	for n := range r.converters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Markdown converts CommonMark with GitHub extensions and footnotes.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown returns the goldmark-backed converter. Raw HTML in the source
// is kept.
func NewMarkdown() *Markdown {
	return &Markdown{md: goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Footnote),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)}
}

// Convert implements Converter.
func (m *Markdown) Convert(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := m.md.Convert(raw, &buf); err != nil {
		return nil, fmt.Errorf("markdown: %w", err)
	}
	return buf.Bytes(), nil
}

func passthrough(raw []byte) ([]byte, error) { return raw, nil }

// plainText escapes the body and wraps blank-line separated blocks in <p>.
func plainText(raw []byte) ([]byte, error) {
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	var b strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(para), "\n", "<br>\n"))
		b.WriteString("</p>\n")
	}
	return []byte(b.String()), nil
}
