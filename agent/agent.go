// Package agent defines the boundary to the external generative agent
// capability. The harness treats the capability as opaque, slow, and
// costly: it never retries or rate-limits on its behalf.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/prodflowhq/prodflow/types"
)

// Invoker performs the reasoning work for one step. Implementations must
// return the agent's response as raw JSON; the step executor validates it.
type Invoker interface {
	Name() string
	Invoke(ctx context.Context, agentName string, prompt types.PromptPayload) (json.RawMessage, error)
}

// InvocationError wraps a failure of the external capability. It is
// propagated to the workflow, which decides whether the run dies.
type InvocationError struct {
	Agent string
	Err   error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("agent %q invocation failed: %v", e.Agent, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

var (
	mu       sync.RWMutex
	invokers = map[string]Invoker{}
)

// Register adds an invoker to the global registry so CLI and config can
// select it by name.
func Register(inv Invoker) error {
	if inv == nil {
		return errors.New("invoker is nil")
	}
	name := inv.Name()
	if name == "" {
		return errors.New("invoker name is required")
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := invokers[name]; exists {
		return fmt.Errorf("invoker %q already registered", name)
	}
	invokers[name] = inv
	return nil
}

func MustRegister(inv Invoker) {
	if err := Register(inv); err != nil {
		panic(err)
	}
}

func Get(name string) (Invoker, bool) {
	mu.RLock()
	defer mu.RUnlock()
	inv, ok := invokers[name]
	return inv, ok
}

func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(invokers))
	for name := range invokers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
