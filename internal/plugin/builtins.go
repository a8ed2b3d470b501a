package plugin

import (
	"git.home.luguber.info/inful/sitepress/internal/content"
	"git.home.luguber.info/inful/sitepress/internal/markup"
)

// Built-in plugin names.
const (
	NameMarkup    = "markup"
	NameHighlight = "highlight"
	NameMinify    = "minify"
)

// Builtins returns a registry holding the built-in plugins. markups backs
// the markup plugin; nil selects the default converters.
func Builtins(markups *markup.Registry) *Registry {
	if markups == nil {
		markups = markup.NewRegistry()
	}
	r := NewRegistry()
	mustRegister(r, Metadata{Name: NameMarkup, Description: "convert the body to HTML according to the unit's markup"},
		func(Options) (Plugin, error) { return &markupPlugin{converters: markups}, nil })
	mustRegister(r, Metadata{Name: NameHighlight, Description: "syntax highlight fenced code blocks"}, newHighlight)
	mustRegister(r, Metadata{Name: NameMinify, Description: "minify the HTML body"}, newMinify)
	return r
}

func mustRegister(r *Registry, meta Metadata, f Factory) {
	if err := r.Register(meta, f); err != nil {
		panic(err)
	}
}

type markupPlugin struct {
	converters *markup.Registry
}

func (p *markupPlugin) Name() string { return NameMarkup }

func (p *markupPlugin) Apply(u *content.Unit) error {
	c, err := p.converters.Get(u.Markup)
	if err != nil {
		return err
	}
	out, err := c.Convert(u.Body)
	if err != nil {
		return err
	}
	u.Body = out
	return nil
}
