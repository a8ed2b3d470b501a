package plugin

import (
	"fmt"
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	mhtml "github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"

	"git.home.luguber.info/inful/sitepress/internal/content"
)

type minifyPlugin struct {
	m *minify.M
}

func newMinify(opts Options) (Plugin, error) {
	m := minify.New()
	m.Add("text/html", &mhtml.Minifier{
		KeepEndTags:    true,
		KeepWhitespace: opts.Bool("keep_whitespace", false),
	})
	m.AddFunc("text/css", css.Minify)
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	return &minifyPlugin{m: m}, nil
}

func (p *minifyPlugin) Name() string { return NameMinify }

func (p *minifyPlugin) Apply(u *content.Unit) error {
	out, err := p.m.Bytes("text/html", u.Body)
	if err != nil {
		return fmt.Errorf("minify: %w", err)
	}
	u.Body = out
	return nil
}
