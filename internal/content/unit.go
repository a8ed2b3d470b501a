// Package content defines the content unit and loads units from files.
package content

import (
	"time"

	"git.home.luguber.info/inful/sitepress/internal/fields"
)

// Unit is one content file turned into typed fields and a body.
//
// Fields are only written while loading. Plugins may replace Body. The
// location fields are set once by the generator after permalink resolution.
type Unit struct {
	SourcePath  string
	Engine      string
	Slug        string
	Fields      map[string]any
	Body        []byte
	Markup      string
	Fingerprint string
	ModTime     time.Time

	Permalink  string // site-relative URL
	OutputPath string // slash-separated path below the output root

	// Prev and Next are the neighbours in the engine's sorted order.
	Prev *Unit
	Next *Unit
}

// Field returns a field value.
func (u *Unit) Field(name string) (any, bool) {
	v, ok := u.Fields[name]
	return v, ok
}

// Title returns the title field rendered as text.
func (u *Unit) Title() string {
	if v, ok := u.Fields["title"]; ok {
		return fields.String(v)
	}
	return ""
}

// Time returns a time-typed field.
func (u *Unit) Time(name string) (time.Time, bool) {
	t, ok := u.Fields[name].(time.Time)
	return t, ok
}

// Values returns the values a permalink pattern can reference: every field
// plus the unit's slug and engine.
func (u *Unit) Values() map[string]any {
	out := make(map[string]any, len(u.Fields)+2)
	for k, v := range u.Fields {
		out[k] = v
	}
	out["slug"] = u.Slug
	if _, ok := out["engine"]; !ok && u.Engine != "" {
		out["engine"] = u.Engine
	}
	return out
}

// String identifies the unit in logs and errors.
func (u *Unit) String() string { return u.SourcePath }
