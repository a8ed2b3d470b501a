package plugin

import (
	"fmt"
	"sort"
	"sync"
)

type entry struct {
	meta    Metadata
	factory Factory
}

// Registry manages plugin registration and discovery.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]entry
}

// NewRegistry creates a new empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]entry),
	}
}

// Register adds a plugin factory to the registry.
// Returns an error if a plugin with the same name already exists.
func (r *Registry) Register(meta Metadata, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("cannot register nil factory for %q", meta.Name)
	}
	if err := meta.Validate(); err != nil {
		return fmt.Errorf("invalid plugin metadata: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[meta.Name]; exists {
		return fmt.Errorf("plugin %s already registered", meta.Name)
	}
	r.plugins[meta.Name] = entry{meta: meta, factory: factory}
	return nil
}

// Has checks if a plugin with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.plugins[name]
	return ok
}

// New instantiates the named plugin.
func (r *Registry) New(name string, opts Options) (Plugin, error) {
	r.mu.RLock()
	e, ok := r.plugins[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("plugin %s not found", name)
	}
	if opts == nil {
		opts = Options{}
	}
	p, err := e.factory(opts)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", name, err)
	}
	return p, nil
}

// Pipeline instantiates the named plugins in order. options returns the
// configuration block for one plugin name.
func (r *Registry) Pipeline(names []string, options func(name string) map[string]any) (Pipeline, error) {
	pipeline := make(Pipeline, 0, len(names))
	for _, name := range names {
		var opts Options
		if options != nil {
			opts = options(name)
		}
		p, err := r.New(name, opts)
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, p)
	}
	return pipeline, nil
}

// List returns metadata for all registered plugins sorted by name.
func (r *Registry) List() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Metadata, 0, len(r.plugins))
	for _, e := range r.plugins {
		result = append(result, e.meta)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Names returns the registered plugin names sorted.
func (r *Registry) Names() []string {
	list := r.List()
	names := make([]string, len(list))
	for i, m := range list {
		names[i] = m.Name
	}
	return names
}
