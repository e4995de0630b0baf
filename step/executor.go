// Package step executes one task descriptor against the agent capability:
// persist the request, invoke the agent exactly once, validate the
// response, persist the result. Retries are deliberately absent here;
// agent calls are costly and non-idempotent, so retry policy belongs to
// the caller.
package step

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/prodflowhq/prodflow/agent"
	"github.com/prodflowhq/prodflow/blob"
	"github.com/prodflowhq/prodflow/observe"
	"github.com/prodflowhq/prodflow/schema"
	"github.com/prodflowhq/prodflow/task"
	"github.com/prodflowhq/prodflow/types"
)

// Result is the validated response of one step.
type Result struct {
	StepID    string           `json:"stepId"`
	Agent     string           `json:"agent"`
	Payload   map[string]any   `json:"payload"`
	Artifacts []types.Artifact `json:"artifacts,omitempty"`
}

// SchemaViolationError reports a response that did not conform to the
// step's declared output schema. It carries every violation found so the
// operator sees complete diagnostics, not just the first failure.
type SchemaViolationError struct {
	StepID     string
	Violations []schema.Violation
}

func (e *SchemaViolationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("step %q response violates output schema: %s", e.StepID, strings.Join(parts, "; "))
}

type Executor struct {
	invoker  agent.Invoker
	blobs    blob.Store
	observer observe.Sink
}

type Option func(*Executor)

func WithObserver(observer observe.Sink) Option {
	return func(e *Executor) {
		if observer != nil {
			e.observer = observer
		}
	}
}

func NewExecutor(invoker agent.Invoker, blobs blob.Store, opts ...Option) (*Executor, error) {
	if invoker == nil {
		return nil, fmt.Errorf("invoker is required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	e := &Executor{invoker: invoker, blobs: blobs, observer: observe.NoopSink{}}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run executes the descriptor within the given run namespace. Exactly two
// blobs are written per successful step: the resolved input payload before
// the agent call, the validated result after.
func (e *Executor) Run(ctx context.Context, desc task.Descriptor, runID string) (Result, error) {
	if desc.Kind != task.KindAgent {
		return Result{}, fmt.Errorf("unsupported descriptor kind %q", desc.Kind)
	}
	if desc.ID == "" {
		return Result{}, fmt.Errorf("descriptor has no step id")
	}
	if strings.TrimSpace(runID) == "" {
		return Result{}, fmt.Errorf("run id is required")
	}

	// The input blob captures everything needed to diagnose or re-run the
	// step after a crash, including the schema the response was held to.
	input := map[string]any{
		"descriptor":   desc,
		"outputSchema": desc.OutputSchema.Document(),
	}
	if err := e.blobs.Write(ctx, path.Join(runID, desc.InputPath), input); err != nil {
		return Result{}, fmt.Errorf("failed to persist step input: %w", err)
	}

	started := time.Now().UTC()
	e.emit(ctx, observe.Event{
		Kind:      observe.KindStep,
		Status:    observe.StatusStarted,
		RunID:     runID,
		Name:      desc.ID,
		Agent:     desc.Agent,
		Timestamp: started,
	})

	raw, err := e.invoker.Invoke(ctx, desc.Agent, desc.Prompt)
	if err != nil {
		invocationErr := err
		if _, ok := err.(*agent.InvocationError); !ok {
			invocationErr = &agent.InvocationError{Agent: desc.Agent, Err: err}
		}
		e.emitFailure(ctx, runID, desc, started, invocationErr)
		return Result{}, invocationErr
	}

	violations, err := schema.ValidateBytes(raw, desc.OutputSchema)
	if err != nil {
		e.emitFailure(ctx, runID, desc, started, err)
		return Result{}, err
	}
	if len(violations) > 0 {
		violationErr := &SchemaViolationError{StepID: desc.ID, Violations: violations}
		e.emitFailure(ctx, runID, desc, started, violationErr)
		return Result{}, violationErr
	}

	payload := map[string]any{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		decodeErr := fmt.Errorf("step %q payload is not a JSON object: %w", desc.ID, err)
		e.emitFailure(ctx, runID, desc, started, decodeErr)
		return Result{}, decodeErr
	}

	if err := e.blobs.Write(ctx, path.Join(runID, desc.OutputPath), payload); err != nil {
		return Result{}, fmt.Errorf("failed to persist step result: %w", err)
	}

	result := Result{
		StepID:    desc.ID,
		Agent:     desc.Agent,
		Payload:   payload,
		Artifacts: declaredArtifacts(payload),
	}
	e.emit(ctx, observe.Event{
		Kind:       observe.KindStep,
		Status:     observe.StatusCompleted,
		RunID:      runID,
		Name:       desc.ID,
		Agent:      desc.Agent,
		Timestamp:  started,
		DurationMs: time.Since(started).Milliseconds(),
	})
	return result, nil
}

// declaredArtifacts pulls the conventional "artifacts" array out of a step
// payload. Entries are decoded one by one so a single malformed entry does
// not lose the valid ones; entries without a path are ignored.
func declaredArtifacts(payload map[string]any) []types.Artifact {
	raw, ok := payload["artifacts"].([]any)
	if !ok {
		return nil
	}
	out := make([]types.Artifact, 0, len(raw))
	for _, entry := range raw {
		encoded, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		var artifact types.Artifact
		if err := json.Unmarshal(encoded, &artifact); err != nil {
			continue
		}
		if strings.TrimSpace(artifact.Path) == "" {
			continue
		}
		out = append(out, artifact)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (e *Executor) emit(ctx context.Context, event observe.Event) {
	if e.observer == nil {
		return
	}
	_ = e.observer.Emit(ctx, event)
}

func (e *Executor) emitFailure(ctx context.Context, runID string, desc task.Descriptor, started time.Time, cause error) {
	e.emit(ctx, observe.Event{
		Kind:       observe.KindStep,
		Status:     observe.StatusFailed,
		RunID:      runID,
		Name:       desc.ID,
		Agent:      desc.Agent,
		Timestamp:  started,
		DurationMs: time.Since(started).Milliseconds(),
		Error:      cause.Error(),
	})
}
