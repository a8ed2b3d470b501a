package config

import (
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/sitepress/internal/frontmatter"
	"git.home.luguber.info/inful/sitepress/internal/slug"
)

// Engine defaults mirror a typical blog engine.
const (
	DefaultPermalink          = "{slug}"
	DefaultUnitsPerPagination = 10
	DefaultSortKey            = "time"
	DefaultTimeFormat         = "%Y/%m/%d %H:%M"
	DefaultDisplayTimeFormat  = "%A, %d %B %Y"
	DefaultListSeparator      = ","
	DefaultExcerptLength      = 400
	DefaultFeedPath           = "atom.xml"
	DefaultFeedLimit          = 10
	DefaultNotifySubject      = "sitepress.generated"

	defaultDebounce = 300 * time.Millisecond
	defaultMaxDelay = 5 * time.Second
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// SiteDefaultApplier handles site and path defaults.
type SiteDefaultApplier struct{}

func (SiteDefaultApplier) Domain() string { return "site" }

func (SiteDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Site.Title == "" {
		cfg.Site.Title = "My Site"
	}
	if cfg.Site.IndexHTMLOnly == nil {
		cfg.Site.IndexHTMLOnly = boolPtr(true)
	}

	cfg.Paths.Content = resolvePath(cfg.baseDir, cfg.Paths.Content, "content")
	cfg.Paths.Templates = resolvePath(cfg.baseDir, cfg.Paths.Templates, "templates")
	cfg.Paths.Static = resolvePath(cfg.baseDir, cfg.Paths.Static, "static")
	cfg.Paths.Output = resolvePath(cfg.baseDir, cfg.Paths.Output, "site")
	cfg.Paths.State = resolvePath(cfg.baseDir, cfg.Paths.State, ".sitepress")

	if cfg.Slug.Separator == "" {
		cfg.Slug.Separator = slug.DefaultSeparator
	}
	if cfg.FrontMatter.Delimiter == "" {
		cfg.FrontMatter.Delimiter = frontmatter.DefaultDelimiter
	}
	return nil
}

// RenderDefaultApplier handles render defaults.
type RenderDefaultApplier struct{}

func (RenderDefaultApplier) Domain() string { return "render" }

func (RenderDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Render.Workers == 0 {
		cfg.Render.Workers = 1
	}
	if cfg.Render.IndexTemplate == "" {
		cfg.Render.IndexTemplate = "index.html"
	}
	if cfg.Render.DisplayTimeFormat == "" {
		cfg.Render.DisplayTimeFormat = DefaultDisplayTimeFormat
	}
	if cfg.Render.ExcerptLength <= 0 {
		cfg.Render.ExcerptLength = DefaultExcerptLength
	}
	if cfg.Report.Persist == nil {
		cfg.Report.Persist = boolPtr(true)
	}
	return nil
}

// EngineDefaultApplier handles per-engine defaults.
type EngineDefaultApplier struct{}

func (EngineDefaultApplier) Domain() string { return "engines" }

func (EngineDefaultApplier) ApplyDefaults(cfg *Config) error {
	for i := range cfg.Engines {
		e := &cfg.Engines[i]
		if e.ContentDir == "" {
			e.ContentDir = e.Name
		}
		if !filepath.IsAbs(e.ContentDir) {
			e.ContentDir = filepath.Join(cfg.Paths.Content, e.ContentDir)
		}
		if e.Permalink == "" {
			e.Permalink = DefaultPermalink
		}
		if e.UnitsPerPagination == 0 {
			e.UnitsPerPagination = DefaultUnitsPerPagination
		}
		if e.SortKey == "" {
			e.SortKey = DefaultSortKey
			if e.SortReverse == nil {
				e.SortReverse = boolPtr(true)
			}
		}
		if e.SortReverse == nil {
			e.SortReverse = boolPtr(false)
		}
		if e.UnitTemplate == "" {
			e.UnitTemplate = e.Name + "_unit.html"
		}
		if e.PaginationTemplate == "" {
			e.PaginationTemplate = e.Name + "_pagination.html"
		}
		if e.Required == nil {
			e.Required = []string{"title"}
		}
		if e.Protected == nil {
			e.Protected = []string{"id", "content"}
		}
		if e.TimeFields == nil {
			e.TimeFields = []string{"time"}
		}
		if e.ListFields == nil {
			e.ListFields = []string{"tags", "categories"}
		}
		if e.ListSeparator == "" {
			e.ListSeparator = DefaultListSeparator
		}
		if e.TimeFormat == "" {
			e.TimeFormat = DefaultTimeFormat
		}
		if e.Recursive == nil {
			e.Recursive = boolPtr(true)
		}
		if e.Pattern == "" {
			e.Pattern = "*"
		}
		if e.Unmatched == "" {
			e.Unmatched = UnmatchedIgnore
		}
		if e.Feed != nil {
			if e.Feed.Path == "" {
				e.Feed.Path = DefaultFeedPath
			}
			if e.Feed.Limit <= 0 {
				e.Feed.Limit = DefaultFeedLimit
			}
			if e.Feed.TimeField == "" {
				e.Feed.TimeField = DefaultSortKey
			}
		}
	}
	return nil
}

// RuntimeDefaultApplier handles watch, serve, notify and logging defaults.
type RuntimeDefaultApplier struct{}

func (RuntimeDefaultApplier) Domain() string { return "runtime" }

func (RuntimeDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = defaultDebounce
	}
	if cfg.Watch.MaxDelay == 0 {
		cfg.Watch.MaxDelay = defaultMaxDelay
	}
	if cfg.Serve.Addr == "" {
		cfg.Serve.Addr = ":8080"
	}
	if cfg.History.Path != "" && !filepath.IsAbs(cfg.History.Path) {
		cfg.History.Path = filepath.Join(cfg.baseDir, cfg.History.Path)
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNotifySubject
	}
	if cfg.Notify.Timeout == 0 {
		cfg.Notify.Timeout = 2 * time.Second
	}
	if cfg.Notify.Backoff == "" {
		cfg.Notify.Backoff = RetryBackoffLinear
	}
	if cfg.Notify.RetryDelay == 0 {
		cfg.Notify.RetryDelay = 500 * time.Millisecond
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
	if cfg.Logging.File != "" && !filepath.IsAbs(cfg.Logging.File) {
		cfg.Logging.File = filepath.Join(cfg.baseDir, cfg.Logging.File)
	}
	return nil
}

// defaultAppliers run in order; engine defaults depend on resolved paths.
func defaultAppliers() []DefaultApplier {
	return []DefaultApplier{
		SiteDefaultApplier{},
		RenderDefaultApplier{},
		EngineDefaultApplier{},
		RuntimeDefaultApplier{},
	}
}

// applyDefaults applies default values to configuration
func applyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers() {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

// Enabled reports whether build reports are written.
func (r ReportConfig) Enabled() bool {
	return r.Persist == nil || *r.Persist
}

func resolvePath(base, p, fallback string) string {
	if p == "" {
		p = fallback
	}
	if filepath.IsAbs(p) || base == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
