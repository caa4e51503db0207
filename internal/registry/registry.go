// internal/registry/registry.go
package registry

import (
	"sort"
	"sync"

	"search-orchestrator/internal/common/errors"
	"search-orchestrator/pkg/catalog"
)

// Registry holds the static set of sources. The set itself is fixed at
// startup; only enabled flags and statistics change afterwards.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]*Source
}

// Credentials maps source name to whether a credential is configured for it.
type Credentials map[string]bool

// NewFromCatalog builds the registry from a validated catalog. A catalog
// whose every source is disabled is a deployment fault.
func NewFromCatalog(cat *catalog.SourceCatalog, creds Credentials) (*Registry, error) {
	r := &Registry{sources: make(map[string]*Source, len(cat.Sources))}

	anyEnabled := false
	for _, def := range cat.Sources {
		src := &Source{
			Name:               def.Name,
			DisplayName:        def.DisplayName,
			Capabilities:       def.Capabilities,
			RequiresCredential: def.RequiresCredential,
			HasCredential:      creds[def.Name],
			Stats:              newSourceStats(),
		}
		src.enabled.Store(def.Enabled)
		if def.Enabled {
			anyEnabled = true
		}
		r.sources[def.Name] = src
	}

	if !anyEnabled {
		return nil, errors.NewNoSourcesActiveError()
	}
	return r, nil
}

// Get returns the source by name, or nil.
func (r *Registry) Get(name string) *Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[name]
}

// ListEnabled returns the enabled sources ordered by name.
func (r *Registry) ListEnabled() []*Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Source, 0, len(r.sources))
	for _, s := range r.sources {
		if s.Enabled() {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListAll returns every registered source ordered by name.
func (r *Registry) ListAll() []*Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Source, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Disable flips the source off. Immediate for subsequent ranking decisions,
// not retroactive for requests already dispatched.
func (r *Registry) Disable(name string) {
	if s := r.Get(name); s != nil {
		s.enabled.Store(false)
	}
}

// Enable flips the source back on.
func (r *Registry) Enable(name string) {
	if s := r.Get(name); s != nil {
		s.enabled.Store(true)
	}
}
