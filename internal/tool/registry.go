package tool

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is the flat catalogue of tools the dispatcher routes by name.
//
// Registration happens at startup; lookups happen on every model turn, so
// the map is guarded by an RWMutex. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds t under its definition name. Registering a duplicate name is
// a programming error and fails loudly rather than silently shadowing.
func (r *Registry) Register(t Tool) error {
	name := t.Definition().Name
	if name == "" {
		return fmt.Errorf("tool: register: empty tool name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.tools[name]; dup {
		return fmt.Errorf("tool: register: duplicate tool %q", name)
	}
	r.tools[name] = t
	return nil
}

// MustRegister registers every tool and panics on the first failure.
// Intended for startup wiring where a duplicate name is unrecoverable.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns every registered tool's definition sorted by name, for
// advertising the catalogue to the model and to MCP clients.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Len reports the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
