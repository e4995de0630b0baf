package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/prodflowhq/prodflow/state"
	"github.com/prodflowhq/prodflow/step"
	"github.com/prodflowhq/prodflow/task"
	"github.com/prodflowhq/prodflow/types"
)

// Definition is an ordered list of step and breakpoint entries. The order
// is the whole control flow: step N+1 may read only what steps <= N
// produced, so a workflow is a directed sequence, never a general graph.
type Definition struct {
	Name        string
	Description string
	Entries     []Entry
}

// Entry is exactly one of a step or a breakpoint.
type Entry struct {
	Step       *StepEntry
	Breakpoint *BreakpointEntry
}

// InputsFunc derives a step's extra arguments from accumulated run state.
// It runs after every prior step has completed, so it may read any earlier
// result.
type InputsFunc func(run *Run) (task.Args, error)

// SummaryFunc builds the context summary shown to a reviewer at a
// breakpoint.
type SummaryFunc func(run *Run) map[string]any

type StepEntry struct {
	Name    string
	Factory task.Factory
	Inputs  InputsFunc
	Gates   []Gate
}

type BreakpointEntry struct {
	Name     string
	Title    string
	Question string
	Summary  SummaryFunc
}

// Gate is a threshold check on a numeric field of a step result. A fatal
// gate short-circuits the run; an advisory gate raises a breakpoint so a
// human decides.
type Gate struct {
	Name string
	// Step names the result to inspect; empty means the step the gate is
	// attached to.
	Step      string
	Path      string
	Threshold float64
	Fatal     bool
	Reason    string
}

// Step builds a step entry from a declarative spec.
func Step(spec task.StepSpec, inputs InputsFunc, gates ...Gate) Entry {
	return Entry{Step: &StepEntry{
		Name:    spec.Name,
		Factory: spec.Factory(),
		Inputs:  inputs,
		Gates:   gates,
	}}
}

// Breakpoint builds a human-approval entry.
func Breakpoint(name, title, question string, summary SummaryFunc) Entry {
	return Entry{Breakpoint: &BreakpointEntry{
		Name:     name,
		Title:    title,
		Question: question,
		Summary:  summary,
	}}
}

// Validate checks structural sanity: every entry is exactly one kind, step
// names are unique and non-empty.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("workflow name is required")
	}
	if len(d.Entries) == 0 {
		return fmt.Errorf("workflow %q has no entries", d.Name)
	}
	seen := map[string]bool{}
	for i, entry := range d.Entries {
		switch {
		case entry.Step != nil && entry.Breakpoint != nil:
			return fmt.Errorf("workflow %q entry %d is both step and breakpoint", d.Name, i)
		case entry.Step != nil:
			name := strings.TrimSpace(entry.Step.Name)
			if name == "" {
				return fmt.Errorf("workflow %q entry %d has no step name", d.Name, i)
			}
			if seen[name] {
				return fmt.Errorf("workflow %q has duplicate step %q", d.Name, name)
			}
			seen[name] = true
			if entry.Step.Factory == nil {
				return fmt.Errorf("workflow %q step %q has no factory", d.Name, name)
			}
		case entry.Breakpoint != nil:
			if strings.TrimSpace(entry.Breakpoint.Name) == "" {
				return fmt.Errorf("workflow %q entry %d has no breakpoint name", d.Name, i)
			}
		default:
			return fmt.Errorf("workflow %q entry %d is empty", d.Name, i)
		}
	}
	return nil
}

// Run is the accumulated state of one execution. Results are append-only
// and keyed by step id; the runner owns all mutation.
type Run struct {
	ID       string
	Workflow string
	Status   types.RunStatus
	Inputs   task.Args
	Reason   string

	results   map[string]map[string]any
	trace     []string
	artifacts []types.Artifact
	rc        task.RunContext

	startedAt time.Time
	updatedAt time.Time
}

func newRun(id, workflow string, inputs task.Args, now time.Time) *Run {
	return &Run{
		ID:        id,
		Workflow:  workflow,
		Status:    types.RunStatusPending,
		Inputs:    inputs,
		results:   map[string]map[string]any{},
		rc:        task.NewRunContext(),
		startedAt: now,
		updatedAt: now,
	}
}

// Result returns the payload of an earlier step.
func (r *Run) Result(stepID string) (map[string]any, bool) {
	payload, ok := r.results[stepID]
	return payload, ok
}

// Value walks a dotted path ("step.field.nested") through an earlier
// step's payload.
func (r *Run) Value(stepID, path string) (any, bool) {
	payload, ok := r.results[stepID]
	if !ok {
		return nil, false
	}
	var current any = payload
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Number is Value narrowed to a float64.
func (r *Run) Number(stepID, path string) (float64, bool) {
	raw, ok := r.Value(stepID, path)
	if !ok {
		return 0, false
	}
	switch value := raw.(type) {
	case float64:
		return value, true
	case int:
		return float64(value), true
	default:
		return 0, false
	}
}

// StringValue is Value narrowed to a string.
func (r *Run) StringValue(stepID, path string) (string, bool) {
	raw, ok := r.Value(stepID, path)
	if !ok {
		return "", false
	}
	value, ok := raw.(string)
	return value, ok
}

// Artifacts returns a copy of the accumulated artifact list, in step order,
// duplicates preserved.
func (r *Run) Artifacts() []types.Artifact {
	return append([]types.Artifact(nil), r.artifacts...)
}

// Trace returns the executed step ids in order.
func (r *Run) Trace() []string {
	return append([]string(nil), r.trace...)
}

func (r *Run) appendResult(result step.Result, now time.Time) {
	r.results[result.StepID] = result.Payload
	r.trace = append(r.trace, result.StepID)
	r.artifacts = append(r.artifacts, result.Artifacts...)
	r.updatedAt = now
}

func (r *Run) record() state.RunRecord {
	created := r.startedAt
	updated := r.updatedAt
	return state.RunRecord{
		RunID:     r.ID,
		Workflow:  r.Workflow,
		Status:    r.Status,
		Inputs:    map[string]any(r.Inputs),
		Results:   r.results,
		StepTrace: r.Trace(),
		Artifacts: r.Artifacts(),
		Reason:    r.Reason,
		CreatedAt: &created,
		UpdatedAt: &updated,
	}
}

// restoreRun rebuilds run state from a persisted record so a paused run can
// continue after a process restart. The step-id generator is replayed over
// the entries already executed, keeping identifiers stable across the
// pause.
func restoreRun(def Definition, record state.RunRecord, resumeIndex int, now time.Time) (*Run, error) {
	run := &Run{
		ID:       record.RunID,
		Workflow: record.Workflow,
		Status:   record.Status,
		Inputs:   task.Args(record.Inputs),
		Reason:   record.Reason,
		results:  record.Results,
		trace:    append([]string(nil), record.StepTrace...),
		rc:       task.NewRunContext(),
	}
	if run.results == nil {
		run.results = map[string]map[string]any{}
	}
	run.artifacts = append(run.artifacts, record.Artifacts...)
	if record.CreatedAt != nil {
		run.startedAt = record.CreatedAt.UTC()
	} else {
		run.startedAt = now
	}
	run.updatedAt = now

	if resumeIndex < 0 || resumeIndex > len(def.Entries) {
		return nil, fmt.Errorf("resume index %d out of range for workflow %q", resumeIndex, def.Name)
	}
	for _, entry := range def.Entries[:resumeIndex] {
		if entry.Step != nil {
			run.rc.StepID(entry.Step.Name)
		}
	}
	return run, nil
}
