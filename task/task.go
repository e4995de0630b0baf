// Package task defines the declarative descriptor for one process step and
// the pure factories that produce descriptors from step arguments.
package task

import (
	"fmt"
	"sort"

	"github.com/prodflowhq/prodflow/schema"
	"github.com/prodflowhq/prodflow/types"
)

// KindAgent is the only descriptor kind today: the step delegates its work
// to the external agent capability.
const KindAgent = "agent"

// Descriptor is the immutable specification of one step: which agent to
// call, with what prompt, what shape the response must have, and where the
// request/response pair is persisted.
type Descriptor struct {
	Kind         string              `json:"kind"`
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Agent        string              `json:"agent"`
	Prompt       types.PromptPayload `json:"prompt"`
	OutputSchema schema.Schema       `json:"-"`
	InputPath    string              `json:"inputPath"`
	OutputPath   string              `json:"outputPath"`
	Labels       []string            `json:"labels,omitempty"`
}

// InvalidArgumentError reports a malformed arguments mapping handed to a
// descriptor factory. It is a caller error and never retryable.
type InvalidArgumentError struct {
	Key    string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Key, e.Reason)
}

// Args is the named-value mapping a factory consumes. Accessors return
// InvalidArgumentError so factories can surface malformed mappings without
// panicking.
type Args map[string]any

func (a Args) String(key string) (string, error) {
	raw, ok := a[key]
	if !ok {
		return "", &InvalidArgumentError{Key: key, Reason: "missing"}
	}
	value, ok := raw.(string)
	if !ok {
		return "", &InvalidArgumentError{Key: key, Reason: fmt.Sprintf("expected string, got %T", raw)}
	}
	return value, nil
}

func (a Args) StringOr(key, fallback string) string {
	if value, err := a.String(key); err == nil {
		return value
	}
	return fallback
}

// Vars renders every argument as a string variable map for prompt
// templating, with deterministic formatting.
func (a Args) Vars() map[string]string {
	vars := make(map[string]string, len(a))
	for key, raw := range a {
		vars[key] = formatValue(raw)
	}
	return vars
}

// Merge returns a copy of a overlaid with extra. Neither input is mutated.
func (a Args) Merge(extra Args) Args {
	out := make(Args, len(a)+len(extra))
	for key, value := range a {
		out[key] = value
	}
	for key, value := range extra {
		out[key] = value
	}
	return out
}

// Keys returns the argument names in sorted order.
func (a Args) Keys() []string {
	keys := make([]string, 0, len(a))
	for key := range a {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func formatValue(raw any) string {
	switch value := raw.(type) {
	case string:
		return value
	case fmt.Stringer:
		return value.String()
	default:
		return fmt.Sprintf("%v", value)
	}
}

// RunContext is the slice of run state a factory may consult: per-step
// identifier generation only, so factories stay pure and deterministic.
type RunContext interface {
	// StepID returns the stable identifier for the named step within the
	// run. Repeated calls with the same name within one run yield
	// successive identifiers (name, name-2, ...).
	StepID(name string) string
}

// Factory builds a descriptor from an arguments mapping and a run context.
// Implementations must be pure: no I/O, no clock, no randomness.
type Factory func(args Args, rc RunContext) (Descriptor, error)

// runContext is the standard RunContext used by the workflow runner.
type runContext struct {
	counts map[string]int
}

// NewRunContext returns a deterministic step-identifier generator. It is
// not safe for concurrent use; a run is single-threaded by design.
func NewRunContext() RunContext {
	return &runContext{counts: map[string]int{}}
}

func (rc *runContext) StepID(name string) string {
	rc.counts[name]++
	if n := rc.counts[name]; n > 1 {
		return fmt.Sprintf("%s-%d", name, n)
	}
	return name
}

// InputPath and OutputPath derive the stable per-step persistence paths.
// The run identifier prefix is applied by the step executor, keeping
// descriptors independent of any particular run.
func InputPath(stepID string) string {
	return fmt.Sprintf("tasks/%s/input.json", stepID)
}

func OutputPath(stepID string) string {
	return fmt.Sprintf("tasks/%s/result.json", stepID)
}
