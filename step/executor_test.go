package step

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/prodflowhq/prodflow/agent"
	"github.com/prodflowhq/prodflow/blob/memory"
	"github.com/prodflowhq/prodflow/prompt"
	"github.com/prodflowhq/prodflow/schema"
	"github.com/prodflowhq/prodflow/task"
)

func collectDescriptor(t *testing.T) task.Descriptor {
	t.Helper()
	spec := task.StepSpec{
		Name:  "collect-metrics",
		Title: "Collect metrics",
		Agent: "pm-analyst",
		Prompt: prompt.Spec{
			Name: "retention.collect-metrics",
			Task: "Collect AARRR metrics for {{product}}.",
		},
		OutputSchema: schema.Object(map[string]schema.Schema{
			"score": schema.NumberBetween(0, 100),
			"artifacts": schema.Array(schema.Object(map[string]schema.Schema{
				"path":   schema.String(),
				"format": schema.String(),
			}, "path")),
		}, "score"),
	}
	desc, err := spec.Factory()(task.Args{"product": "Atlas"}, task.NewRunContext())
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	return desc
}

func TestRunPersistsInputAndOutput(t *testing.T) {
	blobs := memory.New()
	invoker := agent.NewScripted().Respond("pm-analyst", map[string]any{
		"score": 42.0,
		"artifacts": []map[string]any{
			{"path": "docs/metrics.md", "format": "markdown"},
		},
	})
	executor, err := NewExecutor(invoker, blobs)
	if err != nil {
		t.Fatalf("NewExecutor failed: %v", err)
	}

	result, err := executor.Run(context.Background(), collectDescriptor(t), "run-1")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Payload["score"] != 42.0 {
		t.Fatalf("unexpected payload: %#v", result.Payload)
	}
	if len(result.Artifacts) != 1 || result.Artifacts[0].Path != "docs/metrics.md" {
		t.Fatalf("unexpected artifacts: %#v", result.Artifacts)
	}

	paths, err := blobs.List(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{
		"run-1/tasks/collect-metrics/input.json",
		"run-1/tasks/collect-metrics/result.json",
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("expected exactly two blobs per step:\n%s", diff)
	}
	if calls := invoker.Calls(); len(calls) != 1 {
		t.Fatalf("agent must be invoked exactly once, got %v", calls)
	}
}

func TestRunRejectsNonConformingResponse(t *testing.T) {
	blobs := memory.New()
	// Violates two constraints at once: range and a wrong artifacts shape.
	invoker := agent.NewScripted().Respond("pm-analyst", map[string]any{
		"score":     900.0,
		"artifacts": "not-a-list",
	})
	executor, _ := NewExecutor(invoker, blobs)

	_, err := executor.Run(context.Background(), collectDescriptor(t), "run-2")
	var violation *SchemaViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected SchemaViolationError, got %v", err)
	}
	if len(violation.Violations) < 2 {
		t.Fatalf("expected every violation reported, got %v", violation.Violations)
	}

	// The input blob stays for diagnosis; no result blob is written.
	paths, _ := blobs.List(context.Background(), "run-2")
	if len(paths) != 1 || paths[0] != "run-2/tasks/collect-metrics/input.json" {
		t.Fatalf("unexpected blobs after failure: %v", paths)
	}
}

func TestRunFailsClosedOnUnparseableResponse(t *testing.T) {
	invoker := agent.NewScripted().RespondRaw("pm-analyst", []byte("```json not quite"))
	executor, _ := NewExecutor(invoker, memory.New())

	_, err := executor.Run(context.Background(), collectDescriptor(t), "run-3")
	var violation *SchemaViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected SchemaViolationError for bad JSON, got %v", err)
	}
}

func TestRunWrapsAgentFailures(t *testing.T) {
	invoker := agent.NewScripted() // no responses queued
	executor, _ := NewExecutor(invoker, memory.New())

	_, err := executor.Run(context.Background(), collectDescriptor(t), "run-4")
	var invocation *agent.InvocationError
	if !errors.As(err, &invocation) {
		t.Fatalf("expected InvocationError, got %v", err)
	}
}

func TestRunKeepsValidArtifactsNextToMalformedOnes(t *testing.T) {
	spec := task.StepSpec{
		Name:  "summarize-findings",
		Title: "Summarize findings",
		Agent: "pm-analyst",
		Prompt: prompt.Spec{
			Name: "retention.summarize-findings",
			Task: "Summarize findings for {{product}}.",
		},
		OutputSchema: schema.Object(map[string]schema.Schema{
			"score":     schema.NumberBetween(0, 100),
			"artifacts": schema.Array(schema.Object(nil)),
		}, "score"),
	}
	desc, err := spec.Factory()(task.Args{"product": "Atlas"}, task.NewRunContext())
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}

	invoker := agent.NewScripted().Respond("pm-analyst", map[string]any{
		"score": 55.0,
		"artifacts": []any{
			map[string]any{"path": "docs/summary.md", "format": "markdown"},
			map[string]any{"path": 7},
			map[string]any{"label": "no path"},
			map[string]any{"path": "docs/detail.md"},
		},
	})
	executor, _ := NewExecutor(invoker, memory.New())

	result, err := executor.Run(context.Background(), desc, "run-5")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	var paths []string
	for _, artifact := range result.Artifacts {
		paths = append(paths, artifact.Path)
	}
	want := []string{"docs/summary.md", "docs/detail.md"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("malformed entries must not drop valid artifacts:\n%s", diff)
	}
}
