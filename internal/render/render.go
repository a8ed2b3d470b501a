// Package render renders pages through html/template.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	serrors "git.home.luguber.info/inful/sitepress/internal/errors"
)

// templateExts lists the file extensions loaded as templates.
var templateExts = map[string]bool{".html": true, ".htm": true, ".xml": true, ".tmpl": true}

// Engine holds the parsed template set. It is safe for concurrent use once
// constructed.
type Engine struct {
	root  *template.Template
	names map[string]bool
}

// New parses every template below dir. Templates are named by their slash
// separated path relative to dir, so they can include each other with
// {{template "partials/nav.html" .}}. A missing dir yields an empty set.
func New(dir string, funcs template.FuncMap) (*Engine, error) {
	root := template.New("").Funcs(funcs)
	e := &Engine{root: root, names: map[string]bool{}}

	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return e, nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !templateExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		// #nosec G304 -- path is below the configured template directory.
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := root.New(name).Parse(string(data)); err != nil {
			return serrors.TemplateError(name, err)
		}
		e.names[name] = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// NewFromStrings builds an engine from in-memory templates.
func NewFromStrings(templates map[string]string, funcs template.FuncMap) (*Engine, error) {
	root := template.New("").Funcs(funcs)
	e := &Engine{root: root, names: map[string]bool{}}
	for name, src := range templates {
		if _, err := root.New(name).Parse(src); err != nil {
			return nil, serrors.TemplateError(name, err)
		}
		e.names[name] = true
	}
	return e, nil
}

// Has reports whether a template with that name exists.
func (e *Engine) Has(name string) bool { return e.names[name] }

// Names lists the loaded templates.
func (e *Engine) Names() []string {
	out := make([]string, 0, len(e.names))
	for n := range e.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Render executes the named template with data.
func (e *Engine) Render(name string, data map[string]any) (string, error) {
	if !e.names[name] {
		return "", serrors.TemplateError(name, fmt.Errorf("template %q not found", name))
	}
	var buf bytes.Buffer
	if err := e.root.ExecuteTemplate(&buf, name, data); err != nil {
		return "", serrors.TemplateError(name, err)
	}
	return buf.String(), nil
}
