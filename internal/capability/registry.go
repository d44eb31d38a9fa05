package capability

import (
	"log/slog"
	"sort"
	"sync"
)

// Registry holds the registered capabilities keyed by intent name.
type Registry struct {
	mu     sync.RWMutex
	caps   map[string]Capability
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		caps:   make(map[string]Capability),
		logger: logger,
	}
}

func (r *Registry) Register(c Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps[c.Name()] = c
	r.logger.Debug("registered capability", "name", c.Name())
}

// Get returns the capability for name, or nil when the name is unknown.
func (r *Registry) Get(name string) Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.caps[name]
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.caps))
	for n := range r.caps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
