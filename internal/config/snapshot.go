package config

import (
	"crypto/sha256"
	"encoding/hex"

	"gopkg.in/yaml.v3"
)

// snapshotView lists the configuration that affects generated output.
// Logging, serve, watch and notification settings are left out so that
// changing them does not register as a content-affecting change.
type snapshotView struct {
	Site        SiteConfig        `yaml:"site"`
	Paths       PathsConfig       `yaml:"paths"`
	Render      RenderConfig      `yaml:"render"`
	Engines     []EngineConfig    `yaml:"engines"`
	Slug        SlugConfig        `yaml:"slug"`
	FrontMatter FrontMatterConfig `yaml:"front_matter"`
	Plugins     PluginsConfig     `yaml:"plugins"`
}

// Snapshot computes a stable hash of the build-affecting configuration.
// Callers should snapshot a loaded (normalized and defaulted) configuration.
func (c *Config) Snapshot() string {
	if c == nil {
		return ""
	}
	view := snapshotView{
		Site:        c.Site,
		Paths:       c.Paths,
		Render:      c.Render,
		Engines:     c.Engines,
		Slug:        c.Slug,
		FrontMatter: c.FrontMatter,
		Plugins:     c.Plugins,
	}
	// yaml.v3 sorts map keys, which keeps the encoding deterministic.
	data, err := yaml.Marshal(view)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
