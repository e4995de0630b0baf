// Package prompt holds the step prompt templates and renders them into the
// payloads sent to the agent capability. Templates may be overridden from a
// directory of JSON files so prompt tuning never requires a rebuild.
package prompt

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/prodflowhq/prodflow/types"
)

// Spec is one named prompt template. Names are conventionally
// "<workflow>.<step>".
type Spec struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Role         string   `json:"role,omitempty"`
	Task         string   `json:"task"`
	Context      string   `json:"context,omitempty"`
	Instructions []string `json:"instructions,omitempty"`
	OutputFormat string   `json:"outputFormat,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// RenderPayload renders every template field of the spec with the given
// variables.
func RenderPayload(spec Spec, vars map[string]string) (types.PromptPayload, error) {
	payload := types.PromptPayload{Role: spec.Role, OutputFormat: spec.OutputFormat}

	task, err := Render(spec.Task, vars)
	if err != nil {
		return types.PromptPayload{}, fmt.Errorf("prompt %q task: %w", spec.Name, err)
	}
	payload.Task = task

	context, err := Render(spec.Context, vars)
	if err != nil {
		return types.PromptPayload{}, fmt.Errorf("prompt %q context: %w", spec.Name, err)
	}
	payload.Context = context

	for i, instruction := range spec.Instructions {
		rendered, err := Render(instruction, vars)
		if err != nil {
			return types.PromptPayload{}, fmt.Errorf("prompt %q instruction %d: %w", spec.Name, i, err)
		}
		payload.Instructions = append(payload.Instructions, rendered)
	}
	return payload, nil
}

type Registry struct {
	mu    sync.RWMutex
	items map[string]Spec
}

func NewRegistry() *Registry {
	return &Registry{items: map[string]Spec{}}
}

var global = NewRegistry()

func Register(spec Spec) error { return global.Register(spec) }
func MustRegister(spec Spec) {
	if err := Register(spec); err != nil {
		panic(err)
	}
}
func Resolve(name string) (Spec, bool) { return global.Resolve(name) }
func Names() []string                  { return global.Names() }
func Delete(name string) bool          { return global.Delete(name) }

func (r *Registry) Register(spec Spec) error {
	spec.Name = strings.TrimSpace(spec.Name)
	if spec.Name == "" {
		return fmt.Errorf("prompt name is required")
	}
	if strings.TrimSpace(spec.Task) == "" {
		return fmt.Errorf("prompt %q has no task template", spec.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[spec.Name] = spec
	return nil
}

func (r *Registry) Resolve(name string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.items[strings.TrimSpace(name)]
	return spec, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.items))
	for name := range r.items {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Delete(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[name]; !ok {
		return false
	}
	delete(r.items, name)
	return true
}

// Overlay returns base unless an override with the same name is registered,
// in which case the override wins. Step factories call this when rendering,
// so an override loaded at startup takes effect on every subsequent run.
func Overlay(base Spec) Spec {
	if override, ok := Resolve(base.Name); ok {
		return override
	}
	return base
}
