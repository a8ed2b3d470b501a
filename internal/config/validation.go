package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	serrors "git.home.luguber.info/inful/sitepress/internal/errors"
	"git.home.luguber.info/inful/sitepress/internal/permalink"
)

var engineNameRE = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidateConfig validates a normalized, defaulted configuration.
func ValidateConfig(cfg *Config) error {
	validator := newConfigurationValidator(cfg)
	return validator.validate()
}

// configurationValidator coordinates validation across all configuration domains.
type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validateSite(); err != nil {
		return err
	}
	if err := cv.validateEngines(); err != nil {
		return err
	}
	if err := cv.validateRuntime(); err != nil {
		return err
	}
	return nil
}

func (cv *configurationValidator) validateSite() error {
	if u := cv.config.Site.URL; u != "" {
		parsed, err := url.Parse(u)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return serrors.ValidationFailed("site.url", fmt.Sprintf("%q is not an absolute URL", u))
		}
	}
	if cv.config.Render.Workers < 1 {
		return serrors.ValidationFailed("render.workers", "must be at least 1")
	}
	if strings.Contains(cv.config.Site.PaginationSegment, "..") {
		return serrors.ValidationFailed("site.pagination_segment", "must not contain ..")
	}
	return nil
}

func (cv *configurationValidator) validateEngines() error {
	if len(cv.config.Engines) == 0 {
		return serrors.ValidationFailed("engines", "at least one engine must be configured")
	}

	names := make(map[string]bool, len(cv.config.Engines))
	for i, e := range cv.config.Engines {
		field := fmt.Sprintf("engines[%d]", i)
		if !engineNameRE.MatchString(e.Name) {
			return serrors.ValidationFailed(field+".name", fmt.Sprintf("%q must be lowercase letters, digits, '-' or '_'", e.Name))
		}
		if names[e.Name] {
			return serrors.ValidationFailed(field+".name", fmt.Sprintf("duplicate engine name %q", e.Name))
		}
		names[e.Name] = true

		if err := validateEngine(e, field); err != nil {
			return err
		}
	}
	return nil
}

func validateEngine(e EngineConfig, field string) error {
	if _, err := permalink.Parse(e.Permalink); err != nil {
		return serrors.ValidationFailed(field+".permalink", err.Error())
	}

	seen := make(map[string]bool, len(e.Paginations))
	for j, p := range e.Paginations {
		if seen[p] {
			return serrors.ValidationFailed(fmt.Sprintf("%s.paginations[%d]", field, j), fmt.Sprintf("duplicate pattern %q", p))
		}
		seen[p] = true
		if _, err := permalink.ParsePagination(p); err != nil {
			return serrors.ValidationFailed(fmt.Sprintf("%s.paginations[%d]", field, j), err.Error())
		}
	}
	if e.UnitsPerPagination < 1 {
		return serrors.ValidationFailed(field+".units_per_pagination", "must be at least 1")
	}

	plugins := make(map[string]bool, len(e.Plugins))
	for _, p := range e.Plugins {
		if p == "" {
			return serrors.ValidationFailed(field+".plugins", "plugin name cannot be empty")
		}
		if plugins[p] {
			return serrors.ValidationFailed(field+".plugins", fmt.Sprintf("plugin %q listed twice", p))
		}
		plugins[p] = true
	}

	protected := make(map[string]bool, len(e.Protected))
	for _, p := range e.Protected {
		protected[p] = true
	}
	for k := range e.Defaults {
		if protected[k] {
			return serrors.ValidationFailed(field+".defaults", fmt.Sprintf("default for protected field %q", k))
		}
	}
	for _, r := range e.Required {
		if protected[r] {
			return serrors.ValidationFailed(field+".required", fmt.Sprintf("field %q is both required and protected", r))
		}
	}

	if strings.TrimSpace(e.TimeFormat) == "" {
		return serrors.ValidationFailed(field+".time_format", "cannot be empty")
	}

	if e.Feed != nil {
		if _, err := permalink.Normalize(e.Feed.Path); err != nil {
			return serrors.ValidationFailed(field+".feed.path", err.Error())
		}
	}
	return nil
}

func (cv *configurationValidator) validateRuntime() error {
	w := cv.config.Watch
	if w.Debounce < 0 {
		return serrors.ValidationFailed("watch.debounce", "cannot be negative")
	}
	if w.MaxDelay < w.Debounce {
		return serrors.ValidationFailed("watch.max_delay", "must not be shorter than watch.debounce")
	}
	if w.Interval < 0 {
		return serrors.ValidationFailed("watch.interval", "cannot be negative")
	}
	if u := cv.config.Notify.NATSURL; u != "" && !strings.Contains(u, "://") {
		return serrors.ValidationFailed("notify.nats_url", fmt.Sprintf("%q is not a URL", u))
	}
	if cv.config.Notify.Retries < 0 {
		return serrors.ValidationFailed("notify.retries", "cannot be negative")
	}
	switch cv.config.Notify.Backoff {
	case RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential:
	default:
		return serrors.ValidationFailed("notify.backoff", fmt.Sprintf("unknown mode %q (fixed|linear|exponential)", cv.config.Notify.Backoff))
	}
	return nil
}
