package commands

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Registry maps command names and aliases to commands.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Command
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Command)}
}

// Register adds c under its name and aliases. No key may already be taken,
// and on error nothing is added.
func (r *Registry) Register(c Command) error {
	keys := append([]string{c.Name()}, c.Aliases()...)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("command %q: blank name or alias", c.Name())
		}
		if prev, taken := r.byName[k]; taken {
			return fmt.Errorf("command %q: %q already registered by %q", c.Name(), k, prev.Name())
		}
	}
	for _, k := range keys {
		r.byName[k] = c
	}
	return nil
}

// Find looks up a command by name or alias.
func (r *Registry) Find(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	return c, ok
}

// All returns each registered command once, ordered by name.
func (r *Registry) All() []Command {
	r.mu.RLock()
	primary := make(map[string]Command, len(r.byName))
	for _, c := range r.byName {
		primary[c.Name()] = c
	}
	r.mu.RUnlock()

	cmds := make([]Command, 0, len(primary))
	for _, name := range slices.Sorted(maps.Keys(primary)) {
		cmds = append(cmds, primary[name])
	}
	return cmds
}

// DefaultRegistry is filled by the init functions of this package.
var DefaultRegistry = NewRegistry()

// Register adds c to DefaultRegistry and panics on a clash.
func Register(c Command) {
	if err := DefaultRegistry.Register(c); err != nil {
		panic(err)
	}
}
