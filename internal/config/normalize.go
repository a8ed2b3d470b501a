package config

import (
	"fmt"
	"strings"
)

// NormalizationResult captures adjustments & warnings from normalization pass.
type NormalizationResult struct{ Warnings []string }

// NormalizeConfig canonicalizes enumerations and bounds prior to default
// application. It mutates the provided config in place.
func NormalizeConfig(c *Config) *NormalizationResult {
	res := &NormalizationResult{}
	if c == nil {
		return res
	}

	c.Site.URL = strings.TrimRight(strings.TrimSpace(c.Site.URL), "/")
	c.Site.URLPrefix = strings.Trim(strings.TrimSpace(c.Site.URLPrefix), "/")
	c.Site.PaginationSegment = strings.Trim(strings.TrimSpace(c.Site.PaginationSegment), "/")

	if c.Render.Workers < 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("render.workers: %d coerced to 1", c.Render.Workers))
		c.Render.Workers = 1
	}

	for i := range c.Engines {
		normalizeEngine(&c.Engines[i], fmt.Sprintf("engines[%d]", i), res)
	}

	normalizeNotify(&c.Notify, res)
	normalizeLogging(&c.Logging, res)
	return res
}

func normalizeEngine(e *EngineConfig, field string, res *NormalizationResult) {
	e.Name = strings.TrimSpace(e.Name)
	e.URLPrefix = strings.Trim(strings.TrimSpace(e.URLPrefix), "/")
	e.SortKey = strings.TrimSpace(e.SortKey)

	// A leading "-" on the sort key selects reverse order.
	if strings.HasPrefix(e.SortKey, "-") {
		e.SortKey = strings.TrimLeft(e.SortKey, "-")
		if e.SortReverse != nil && !*e.SortReverse {
			res.Warnings = append(res.Warnings, warnChanged(field+".sort_reverse", "false", "true"))
		}
		e.SortReverse = boolPtr(true)
	}

	if e.UnitsPerPagination < 0 {
		res.Warnings = append(res.Warnings, warnChanged(field+".units_per_pagination", e.UnitsPerPagination, 0))
		e.UnitsPerPagination = 0
	}

	if raw := string(e.Unmatched); strings.TrimSpace(raw) != "" {
		if p := NormalizeUnmatchedPolicy(raw); p != "" {
			e.Unmatched = p
		} else {
			res.Warnings = append(res.Warnings, warnUnknown(field+".unmatched", raw, string(UnmatchedIgnore)))
			e.Unmatched = UnmatchedIgnore
		}
	}

	for j, p := range e.Paginations {
		e.Paginations[j] = strings.Trim(strings.TrimSpace(p), "/")
	}
	for j, p := range e.Plugins {
		e.Plugins[j] = strings.ToLower(strings.TrimSpace(p))
	}
}

func normalizeNotify(n *NotifyConfig, res *NormalizationResult) {
	raw := strings.TrimSpace(string(n.Backoff))
	if raw == "" {
		return
	}
	mode := RetryBackoffMode(strings.ToLower(raw))
	if mode != n.Backoff {
		res.Warnings = append(res.Warnings, warnChanged("notify.backoff", n.Backoff, mode))
	}
	n.Backoff = mode
}

func normalizeLogging(l *LoggingConfig, res *NormalizationResult) {
	if raw := string(l.Level); strings.TrimSpace(raw) != "" {
		if lvl := NormalizeLogLevel(raw); lvl != "" {
			l.Level = lvl
		} else {
			res.Warnings = append(res.Warnings, warnUnknown("logging.level", raw, string(LogLevelInfo)))
			l.Level = LogLevelInfo
		}
	}
	if raw := string(l.Format); strings.TrimSpace(raw) != "" {
		if f := NormalizeLogFormat(raw); f != "" {
			l.Format = f
		} else {
			res.Warnings = append(res.Warnings, warnUnknown("logging.format", raw, string(LogFormatText)))
			l.Format = LogFormatText
		}
	}
}

func warnChanged(field string, from, to any) string {
	return fmt.Sprintf("%s: %v normalized to %v", field, from, to)
}

func warnUnknown(field, value, fallback string) string {
	return fmt.Sprintf("%s: unknown value %q, using %q", field, value, fallback)
}
