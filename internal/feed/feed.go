// Package feed builds Atom feeds from engine units.
package feed

import (
	"encoding/xml"
	"sort"
	"time"

	"git.home.luguber.info/inful/sitepress/internal/content"
	"git.home.luguber.info/inful/sitepress/internal/permalink"
)

const atomNS = "http://www.w3.org/2005/Atom"

// Options describes one feed.
type Options struct {
	Title   string
	Author  string
	SiteURL string // absolute base URL
	HomeURL string // site-relative URL of the engine's listing
	SelfURL string // site-relative URL of the feed itself
	// TimeField selects the entry date; units lacking it are left out.
	TimeField string
	Limit     int
}

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	NS      string      `xml:"xmlns,attr"`
	Title   string      `xml:"title"`
	ID      string      `xml:"id"`
	Updated string      `xml:"updated"`
	Links   []atomLink  `xml:"link"`
	Author  *atomPerson `xml:"author,omitempty"`
	Entries []atomEntry `xml:"entry"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr,omitempty"`
}

type atomPerson struct {
	Name string `xml:"name"`
}

type atomEntry struct {
	Title     string      `xml:"title"`
	ID        string      `xml:"id"`
	Link      atomLink    `xml:"link"`
	Published string      `xml:"published"`
	Updated   string      `xml:"updated"`
	Content   atomContent `xml:"content"`
}

type atomContent struct {
	Type string `xml:"type,attr"`
	Body string `xml:",chardata"`
}

// Build renders the feed document. The feed's updated stamp is the newest
// entry time so the output only changes when content does.
func Build(units []*content.Unit, opts Options) ([]byte, error) {
	dated := make([]*content.Unit, 0, len(units))
	for _, u := range units {
		if _, ok := u.Time(opts.TimeField); ok {
			dated = append(dated, u)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		a, _ := dated[i].Time(opts.TimeField)
		b, _ := dated[j].Time(opts.TimeField)
		return a.After(b)
	})
	if opts.Limit > 0 && len(dated) > opts.Limit {
		dated = dated[:opts.Limit]
	}

	home := permalink.Absolute(opts.SiteURL, opts.HomeURL)
	f := atomFeed{
		NS:    atomNS,
		Title: opts.Title,
		ID:    home,
		Links: []atomLink{
			{Href: permalink.Absolute(opts.SiteURL, opts.SelfURL), Rel: "self"},
			{Href: home},
		},
	}
	if opts.Author != "" {
		f.Author = &atomPerson{Name: opts.Author}
	}

	var newest time.Time
	for _, u := range dated {
		ts, _ := u.Time(opts.TimeField)
		if ts.After(newest) {
			newest = ts
		}
		link := permalink.Absolute(opts.SiteURL, u.Permalink)
		f.Entries = append(f.Entries, atomEntry{
			Title:     u.Title(),
			ID:        link,
			Link:      atomLink{Href: link},
			Published: ts.UTC().Format(time.RFC3339),
			Updated:   ts.UTC().Format(time.RFC3339),
			Content:   atomContent{Type: "html", Body: string(u.Body)},
		})
	}
	f.Updated = newest.UTC().Format(time.RFC3339)

	out, err := xml.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}
