package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Example returns the configuration written by Init.
func Example() *Config {
	return &Config{
		Version: CurrentVersion,
		Site: SiteConfig{
			Title:       "My Site",
			URL:         "https://example.org",
			Description: "Notes and articles",
		},
		Paths: PathsConfig{
			Content:   "content",
			Templates: "templates",
			Static:    "static",
			Output:    "site",
		},
		Engines: []EngineConfig{
			{
				Name:               "blog",
				URLPrefix:          "blog",
				Permalink:          "{time:%Y/%m/%d}/{slug}",
				Paginations:        []string{"", "tag/{tags}", "{time:%Y/%m}"},
				UnitsPerPagination: 10,
				Defaults:           map[string]any{"author": "admin"},
				Plugins:            []string{"markup", "highlight"},
				SortKey:            "time",
				SortReverse:        boolPtr(true),
				Required:           []string{"title", "time"},
				Protected:          []string{"id", "content"},
				TimeFields:         []string{"time"},
				ListFields:         []string{"tags", "categories"},
				Feed:               &FeedConfig{Path: "atom.xml", Limit: 10},
			},
			{
				Name:      "pages",
				Permalink: "{slug}",
				Plugins:   []string{"markup"},
				SortKey:   "title",
				Required:  []string{"title"},
			},
		},
		Plugins: PluginsConfig{
			"highlight": {"style": "github"},
		},
		Watch:   WatchConfig{Debounce: defaultDebounce, MaxDelay: defaultMaxDelay},
		Serve:   ServeConfig{Addr: ":8080", Metrics: true},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
	}
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	data, err := yaml.Marshal(Example())
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
