// Package config loads, normalizes and validates the site configuration.
//
// A *Config returned by Load is fully defaulted and validated and must be
// treated as read-only by every component it is passed to.
package config

import (
	"time"
)

// CurrentVersion is the only configuration version Load accepts.
const CurrentVersion = "1"

// DefaultFileName is the configuration file looked up when none is given.
const DefaultFileName = "sitepress.yaml"

// Config represents the whole site configuration.
type Config struct {
	Version     string            `yaml:"version"`
	Site        SiteConfig        `yaml:"site"`
	Paths       PathsConfig       `yaml:"paths"`
	Render      RenderConfig      `yaml:"render"`
	Engines     []EngineConfig    `yaml:"engines"`
	Slug        SlugConfig        `yaml:"slug"`
	FrontMatter FrontMatterConfig `yaml:"front_matter"`
	Plugins     PluginsConfig     `yaml:"plugins,omitempty"`
	Watch       WatchConfig       `yaml:"watch"`
	Serve       ServeConfig       `yaml:"serve"`
	Report      ReportConfig      `yaml:"report"`
	History     HistoryConfig     `yaml:"history"`
	Notify      NotifyConfig      `yaml:"notify"`
	Logging     LoggingConfig     `yaml:"logging"`

	// baseDir is the directory holding the configuration file; relative
	// paths resolve against it.
	baseDir string
}

// SiteConfig holds values exposed to every template.
type SiteConfig struct {
	Title       string `yaml:"title"`
	URL         string `yaml:"url"`
	Description string `yaml:"description,omitempty"`
	Author      string `yaml:"author,omitempty"`
	// URLPrefix is prepended to every generated URL but not to output paths.
	URLPrefix string `yaml:"url_prefix,omitempty"`
	// IndexHTMLOnly writes pages as dir/index.html (default true).
	IndexHTMLOnly *bool `yaml:"index_html_only,omitempty"`
	// PaginationSegment is inserted before page numbers of listing pages 2..n.
	PaginationSegment string         `yaml:"pagination_segment,omitempty"`
	Params            map[string]any `yaml:"params,omitempty"`
}

// PathsConfig locates inputs and outputs.
type PathsConfig struct {
	Content   string `yaml:"content"`
	Templates string `yaml:"templates"`
	Static    string `yaml:"static"`
	Output    string `yaml:"output"`
	// State holds build reports and the last manifest.
	State string `yaml:"state"`
}

// RenderConfig controls the render phase.
type RenderConfig struct {
	// Workers bounds parallel rendering; 1 renders sequentially.
	Workers int `yaml:"workers"`
	// IndexTemplate renders the site root page when the template exists.
	IndexTemplate string `yaml:"index_template"`
	// DisplayTimeFormat is the strftime format used by the displaytime function.
	DisplayTimeFormat string `yaml:"display_time_format"`
	// ExcerptLength is the default rune count of the excerpt function.
	ExcerptLength int `yaml:"excerpt_length"`
}

// UnmatchedPolicy decides what happens to units that land in no group.
type UnmatchedPolicy string

const (
	UnmatchedIgnore UnmatchedPolicy = "ignore"
	UnmatchedWarn   UnmatchedPolicy = "warn"
	UnmatchedError  UnmatchedPolicy = "error"
)

// EngineConfig configures one content source.
type EngineConfig struct {
	Name               string          `yaml:"name"`
	ContentDir         string          `yaml:"content_dir"`
	URLPrefix          string          `yaml:"url_prefix"`
	Permalink          string          `yaml:"permalink"`
	Paginations        []string        `yaml:"paginations"`
	UnitsPerPagination int             `yaml:"units_per_pagination"`
	Defaults           map[string]any  `yaml:"defaults,omitempty"`
	Plugins            []string        `yaml:"plugins,omitempty"`
	SortKey            string          `yaml:"sort_key"`
	SortReverse        *bool           `yaml:"sort_reverse,omitempty"`
	UnitTemplate       string          `yaml:"unit_template"`
	PaginationTemplate string          `yaml:"pagination_template"`
	Required           []string        `yaml:"required,omitempty"`
	Protected          []string        `yaml:"protected,omitempty"`
	TimeFields         []string        `yaml:"time_fields,omitempty"`
	ListFields         []string        `yaml:"list_fields,omitempty"`
	ListSeparator      string          `yaml:"list_separator"`
	TimeFormat         string          `yaml:"time_format"`
	Recursive          *bool           `yaml:"recursive,omitempty"`
	Pattern            string          `yaml:"pattern"`
	Unmatched          UnmatchedPolicy `yaml:"unmatched"`
	Feed               *FeedConfig     `yaml:"feed,omitempty"`
}

// Reverse reports the effective sort direction.
func (e EngineConfig) Reverse() bool {
	return e.SortReverse != nil && *e.SortReverse
}

// IsRecursive reports whether the content directory is scanned recursively.
func (e EngineConfig) IsRecursive() bool {
	return e.Recursive == nil || *e.Recursive
}

// FeedConfig enables an Atom feed for an engine.
type FeedConfig struct {
	Path      string `yaml:"path"`
	Title     string `yaml:"title,omitempty"`
	Limit     int    `yaml:"limit"`
	TimeField string `yaml:"time_field"`
}

// SlugConfig configures slug derivation.
type SlugConfig struct {
	Separator     string            `yaml:"separator"`
	Substitutions map[string]string `yaml:"substitutions,omitempty"`
	DropArticles  bool              `yaml:"drop_articles,omitempty"`
}

// FrontMatterConfig configures the metadata block convention.
type FrontMatterConfig struct {
	Delimiter string `yaml:"delimiter"`
}

// PluginsConfig carries per-plugin options keyed by plugin name.
type PluginsConfig map[string]map[string]any

// Options returns the options for a plugin, never nil.
func (p PluginsConfig) Options(name string) map[string]any {
	if opts, ok := p[name]; ok && opts != nil {
		return opts
	}
	return map[string]any{}
}

// WatchConfig configures the regeneration loop.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	MaxDelay time.Duration `yaml:"max_delay"`
	// Interval triggers a full regeneration periodically when > 0.
	Interval time.Duration `yaml:"interval"`
	Ignore   []string      `yaml:"ignore,omitempty"`
}

// ServeConfig configures the preview server.
type ServeConfig struct {
	Addr    string `yaml:"addr"`
	Metrics bool   `yaml:"metrics"`
}

// ReportConfig controls persisted build reports.
type ReportConfig struct {
	Persist *bool `yaml:"persist,omitempty"`
}

// HistoryConfig enables the SQLite generation history.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// NotifyConfig enables NATS notifications after each generation.
type NotifyConfig struct {
	NATSURL string        `yaml:"nats_url,omitempty"`
	Subject string        `yaml:"subject,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// Retries is the number of publish attempts after the first failure.
	Retries    int              `yaml:"retries,omitempty"`
	Backoff    RetryBackoffMode `yaml:"backoff,omitempty"`
	RetryDelay time.Duration    `yaml:"retry_delay,omitempty"`
}

// RetryBackoffMode selects how delays grow between retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
	File   string    `yaml:"file,omitempty"`
}

// BaseDir returns the directory relative paths were resolved against.
func (c *Config) BaseDir() string { return c.baseDir }

// IndexHTMLOnly reports the effective page layout.
func (c *Config) IndexHTMLOnly() bool {
	return c.Site.IndexHTMLOnly == nil || *c.Site.IndexHTMLOnly
}

// Engine returns the engine configuration with the given name.
func (c *Config) Engine(name string) (EngineConfig, bool) {
	for _, e := range c.Engines {
		if e.Name == name {
			return e, true
		}
	}
	return EngineConfig{}, false
}

func boolPtr(b bool) *bool { return &b }
