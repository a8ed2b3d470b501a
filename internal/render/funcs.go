package render

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/ncruces/go-strftime"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitepress/internal/content"
	"git.home.luguber.info/inful/sitepress/internal/fields"
	"git.home.luguber.info/inful/sitepress/internal/permalink"
	"git.home.luguber.info/inful/sitepress/internal/slug"
)

// FuncOptions configures the template functions.
type FuncOptions struct {
	SiteURL           string
	DisplayTimeFormat string
	ExcerptLength     int
	Slugs             *slug.Slugifier
}

// Funcs returns the function map available to every template.
func Funcs(opts FuncOptions) template.FuncMap {
	if opts.Slugs == nil {
		opts.Slugs = slug.New(slug.Options{})
	}
	return template.FuncMap{
		"displaytime": func(t time.Time, format ...string) string {
			f := opts.DisplayTimeFormat
			if len(format) > 0 && format[0] != "" {
				f = format[0]
			}
			return strftime.Format(f, t)
		},
		"activatedin": ActivatedIn,
		"excerpt": func(v any, n ...int) (string, error) {
			limit := opts.ExcerptLength
			if len(n) > 0 {
				limit = n[0]
			}
			return Excerpt(bodyOf(v), limit)
		},
		"slugify": func(s string) string {
			out, err := opts.Slugs.Make(s)
			if err != nil {
				return ""
			}
			return out
		},
		"absurl": func(url string) string { return permalink.Absolute(opts.SiteURL, url) },
		"content": func(u *content.Unit) template.HTML {
			// #nosec G203 -- unit bodies are produced by the site's own markup pipeline.
			return template.HTML(u.Body)
		},
		"field": func(u *content.Unit, name string) string {
			v, ok := u.Fields[name]
			if !ok {
				return ""
			}
			return fields.String(v)
		},
		"join": strings.Join,
	}
}

// ActivatedIn returns "active" when current lies within the section URL,
// for navigation menus.
func ActivatedIn(section, current string) string {
	section = "/" + strings.Trim(section, "/")
	if section == "/" {
		if current == "/" || current == "" {
			return "active"
		}
		return ""
	}
	if current == section || strings.HasPrefix(current, section+"/") {
		return "active"
	}
	return ""
}

func bodyOf(v any) string {
	switch vv := v.(type) {
	case *content.Unit:
		return string(vv.Body)
	case template.HTML:
		return string(vv)
	case string:
		return vv
	case []byte:
		return string(vv)
	default:
		return fmt.Sprint(v)
	}
}

// Excerpt strips markup from an HTML fragment and cuts the text to at most
// limit runes at a word boundary, appending an ellipsis when shortened.
func Excerpt(fragment string, limit int) (string, error) {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	skip := 0
loop:
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				break loop
			}
			return "", z.Err()
		case html.StartTagToken:
			if name, _ := z.TagName(); isSkipped(string(name)) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isSkipped(string(name)) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}

	text := strings.Join(strings.Fields(b.String()), " ")
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text, nil
	}
	cut := limit
	for cut > 0 && !unicode.IsSpace(runes[cut]) {
		cut--
	}
	if cut == 0 {
		cut = limit
	}
	return strings.TrimRightFunc(string(runes[:cut]), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}) + "…", nil
}

func isSkipped(tag string) bool {
	return tag == "script" || tag == "style"
}
