package plugin

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/sitepress/internal/content"
)

// highlightPlugin rewrites <pre><code class="language-x"> blocks into
// chroma-highlighted markup. Blocks without a known language are left alone.
type highlightPlugin struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

func newHighlight(opts Options) (Plugin, error) {
	name := opts.String("style", "github")
	style := styles.Get(name)
	if style == nil || (style == styles.Fallback && name != styles.Fallback.Name) {
		return nil, fmt.Errorf("unknown style %q", name)
	}
	formatter := chromahtml.New(
		chromahtml.WithClasses(opts.Bool("classes", false)),
		chromahtml.TabWidth(opts.Int("tab_width", 4)),
	)
	return &highlightPlugin{style: style, formatter: formatter}, nil
}

func (p *highlightPlugin) Name() string { return NameHighlight }

func (p *highlightPlugin) Apply(u *content.Unit) error {
	if !bytes.Contains(u.Body, []byte("<pre")) {
		return nil
	}
	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(bytes.NewReader(u.Body), container)
	if err != nil {
		return fmt.Errorf("parse body: %w", err)
	}
	for _, n := range nodes {
		container.AppendChild(n)
	}

	changed := false
	var walkErr error
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			if lang, code, ok := codeBlock(c); ok {
				replaced, err := p.replace(n, c, lang, code)
				if err != nil {
					walkErr = err
					return
				}
				changed = changed || replaced
			} else {
				walk(c)
			}
			c = next
		}
	}
	walk(container)
	if walkErr != nil || !changed {
		return walkErr
	}

	var buf bytes.Buffer
	for c := container.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return fmt.Errorf("render body: %w", err)
		}
	}
	u.Body = buf.Bytes()
	return nil
}

// replace swaps pre for highlighted nodes. It reports false when the
// language has no lexer.
func (p *highlightPlugin) replace(parent, pre *html.Node, lang, code string) (bool, error) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		return false, nil
	}
	it, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		return false, fmt.Errorf("tokenise %s block: %w", lang, err)
	}
	var buf bytes.Buffer
	if err := p.formatter.Format(&buf, p.style, it); err != nil {
		return false, fmt.Errorf("format %s block: %w", lang, err)
	}
	nodes, err := html.ParseFragment(&buf, parent)
	if err != nil {
		return false, fmt.Errorf("parse highlighted %s block: %w", lang, err)
	}
	for _, n := range nodes {
		parent.InsertBefore(n, pre)
	}
	parent.RemoveChild(pre)
	return true, nil
}

// codeBlock matches <pre><code class="language-x">...</code></pre>.
func codeBlock(n *html.Node) (lang, code string, ok bool) {
	if n.Type != html.ElementNode || n.DataAtom != atom.Pre {
		return "", "", false
	}
	c := n.FirstChild
	if c == nil || c.Type != html.ElementNode || c.DataAtom != atom.Code {
		return "", "", false
	}
	for _, a := range c.Attr {
		if a.Key != "class" {
			continue
		}
		for _, cls := range strings.Fields(a.Val) {
			if l, found := strings.CutPrefix(cls, "language-"); found && l != "" {
				lang = l
			}
		}
	}
	if lang == "" {
		return "", "", false
	}
	return lang, textContent(c), true
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
