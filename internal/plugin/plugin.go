// Package plugin provides the per-engine unit transformation pipeline.
// Plugins are registered by name and referenced from engine configuration.
package plugin

import (
	"fmt"
	"regexp"

	"git.home.luguber.info/inful/sitepress/internal/content"
)

// Plugin transforms a unit after it is loaded and before it is rendered.
// Apply may replace the unit's Body but must not touch its fields.
type Plugin interface {
	// Name returns the identifier engines use to reference the plugin.
	Name() string

	// Apply transforms one unit in place.
	Apply(u *content.Unit) error
}

// Metadata describes a registered plugin.
type Metadata struct {
	// Name is the unique plugin identifier (e.g., "markup", "highlight").
	Name string

	// Description provides a human-readable summary of the plugin's purpose.
	Description string
}

var pluginNameRE = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Validate checks if the plugin metadata is valid.
func (m Metadata) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("plugin name is required")
	}
	if !pluginNameRE.MatchString(m.Name) {
		return fmt.Errorf("invalid plugin name %q", m.Name)
	}
	return nil
}

// Factory builds a plugin instance from its configured options.
type Factory func(opts Options) (Plugin, error)

// Options holds the per-plugin configuration block.
type Options map[string]any

// String retrieves a string option, or def when absent or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key].(string); ok {
		return v
	}
	return def
}

// Bool retrieves a boolean option, or def when absent or not a boolean.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key].(bool); ok {
		return v
	}
	return def
}

// Int retrieves an integer option, or def when absent or not a number.
func (o Options) Int(key string, def int) int {
	switch v := o[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// Pipeline applies plugins in order.
type Pipeline []Plugin

// Apply runs every plugin over u. Failures name the plugin and the unit.
func (p Pipeline) Apply(u *content.Unit) error {
	for _, pl := range p {
		if err := pl.Apply(u); err != nil {
			return fmt.Errorf("plugin %s: %s: %w", pl.Name(), u.SourcePath, err)
		}
	}
	return nil
}

// Names lists the plugin names in pipeline order.
func (p Pipeline) Names() []string {
	names := make([]string, len(p))
	for i, pl := range p {
		names[i] = pl.Name()
	}
	return names
}
