package site

import (
	"git.home.luguber.info/inful/sitepress/internal/config"
	"git.home.luguber.info/inful/sitepress/internal/content"
	"git.home.luguber.info/inful/sitepress/internal/pack"
)

// SiteView is the "Site" value every template receives.
type SiteView struct {
	Title       string
	URL         string
	Description string
	Author      string
	Prefix      string
	Params      map[string]any
	// Engines maps engine names to their views, for cross-engine listings
	// such as a home page showing the latest posts.
	Engines map[string]*EngineView
}

// EngineView is the "Engine" value templates receive.
type EngineView struct {
	Name string
	// URL is the engine's listing home: the first page of its unkeyed
	// pagination when one exists, otherwise the engine prefix.
	URL     string
	FeedURL string
	Units   []*content.Unit
	Groups  []*pack.Group
}

func newSiteView(cfg *config.Config) *SiteView {
	return &SiteView{
		Title:       cfg.Site.Title,
		URL:         cfg.Site.URL,
		Description: cfg.Site.Description,
		Author:      cfg.Site.Author,
		Prefix:      cfg.Site.URLPrefix,
		Params:      cfg.Site.Params,
		Engines:     make(map[string]*EngineView, len(cfg.Engines)),
	}
}

// GroupsFor returns the groups built from one pagination pattern.
func (v *EngineView) GroupsFor(pattern string) []*pack.Group {
	var out []*pack.Group
	for _, g := range v.Groups {
		if g.Pattern.String() == pattern {
			out = append(out, g)
		}
	}
	return out
}

func unitData(site *SiteView, ev *EngineView, u *content.Unit) map[string]any {
	return map[string]any{
		"Site":   site,
		"Engine": ev,
		"Unit":   u,
	}
}

func pageData(site *SiteView, ev *EngineView, p *pack.Page) map[string]any {
	return map[string]any{
		"Site":   site,
		"Engine": ev,
		"Page":   p,
		"Group":  p.Group,
		"Units":  p.Units,
	}
}

func indexData(site *SiteView) map[string]any {
	return map[string]any{"Site": site}
}
