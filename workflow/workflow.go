package workflow

import (
	"fmt"
	"sort"
	"sync"
)

// Builder produces a workflow definition on demand. Catalog packages
// register builders at init time; the CLI resolves them by name.
type Builder struct {
	Name        string
	Description string
	Definition  func() (Definition, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Builder{}
)

// Register adds a builder to the global registry.
func Register(b Builder) error {
	if b.Name == "" {
		return fmt.Errorf("workflow builder has no name")
	}
	if b.Definition == nil {
		return fmt.Errorf("workflow builder %q has no definition func", b.Name)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[b.Name]; exists {
		return fmt.Errorf("workflow %q already registered", b.Name)
	}
	registry[b.Name] = b
	return nil
}

// MustRegister panics on registration failure. Intended for init funcs.
func MustRegister(b Builder) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// Get resolves a registered builder by name.
func Get(name string) (Builder, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	b, ok := registry[name]
	if !ok {
		return Builder{}, fmt.Errorf("workflow %q not registered", name)
	}
	return b, nil
}

// Names lists registered workflows, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
