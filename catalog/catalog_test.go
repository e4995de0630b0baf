package catalog

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/prodflowhq/prodflow/agent"
	blobmemory "github.com/prodflowhq/prodflow/blob/memory"
	"github.com/prodflowhq/prodflow/breakpoint"
	"github.com/prodflowhq/prodflow/catalog/prd"
	"github.com/prodflowhq/prodflow/prompt"
	"github.com/prodflowhq/prodflow/step"
	"github.com/prodflowhq/prodflow/task"
	"github.com/prodflowhq/prodflow/types"
	"github.com/prodflowhq/prodflow/workflow"
)

// Every catalog workflow accepts these without missing-variable failures.
var catalogInputs = task.Args{
	"product":        "Acme Notes",
	"context":        "B2B note-taking app, 40k weekly actives.",
	"quarter":        "Q4",
	"metricsSummary": "Day-30 retention 22 percent, falling.",
	"surveySummary":  "31 percent very disappointed.",
	"orgSummary":     "Three squads, one PM each, no platform owner.",
}

func TestAllWorkflowsRegisteredAndValid(t *testing.T) {
	want := []string{"governance", "pmf", "prd", "retention", "roadmap", "storymap"}
	if diff := cmp.Diff(want, workflow.Names()); diff != "" {
		t.Fatalf("registered workflows mismatch (-want +got):\n%s", diff)
	}
	for _, name := range want {
		builder, err := workflow.Get(name)
		if err != nil {
			t.Fatalf("Get(%q): %v", name, err)
		}
		def, err := builder.Definition()
		if err != nil {
			t.Fatalf("%s Definition: %v", name, err)
		}
		if err := def.Validate(); err != nil {
			t.Fatalf("%s Validate: %v", name, err)
		}
	}
}

func TestFirstStepFactoriesAreDeterministic(t *testing.T) {
	for _, name := range workflow.Names() {
		builder, err := workflow.Get(name)
		if err != nil {
			t.Fatalf("Get(%q): %v", name, err)
		}
		def, err := builder.Definition()
		if err != nil {
			t.Fatalf("%s Definition: %v", name, err)
		}
		entry := def.Entries[0]
		if entry.Step == nil {
			t.Fatalf("%s entry 0 is not a step", name)
		}
		// First-step factories depend only on the initial inputs, so two
		// fresh runs must yield identical descriptors.
		first, err := entry.Step.Factory(catalogInputs, task.NewRunContext())
		if err != nil {
			t.Fatalf("%s factory: %v", name, err)
		}
		second, err := entry.Step.Factory(catalogInputs, task.NewRunContext())
		if err != nil {
			t.Fatalf("%s factory (second call): %v", name, err)
		}
		if diff := cmp.Diff(first, second, cmpopts.IgnoreFields(task.Descriptor{}, "OutputSchema")); diff != "" {
			t.Fatalf("%s descriptor not deterministic (-first +second):\n%s", name, diff)
		}
	}
}

func TestPRDWorkflowEndToEnd(t *testing.T) {
	scripted := agent.NewScripted().
		Respond("product-analyst", map[string]any{
			"problemStatement": "Users lose notes when switching devices.",
			"personas": []map[string]any{
				{"name": "Mobile-first PM", "pains": []string{"sync loss"}},
			},
			"clarity": map[string]any{"value": 80, "rationale": "Clear signal from support tickets."},
		}).
		Respond("story-writer", map[string]any{
			"stories": []map[string]any{
				{"id": "S1", "persona": "Mobile-first PM", "story": "As a PM, I want sync, so that notes survive device switches.", "priority": "must"},
				{"id": "S2", "persona": "Mobile-first PM", "story": "As a PM, I want conflict resolution, so that edits merge.", "priority": "should"},
				{"id": "S3", "persona": "Mobile-first PM", "story": "As a PM, I want offline mode, so that I can work anywhere.", "priority": "could"},
			},
		}).
		Respond("qa-analyst", map[string]any{
			"criteria": map[string]any{
				"S1": []string{"A note created on device A appears on device B within 5 seconds."},
				"S2": []string{"Concurrent edits produce a merged note, never a silent overwrite."},
				"S3": []string{"Notes created offline sync once connectivity returns."},
			},
			"readiness": map[string]any{"value": 75, "gaps": []string{}},
		}).
		Respond("doc-writer", map[string]any{
			"summary":  "PRD assembled.",
			"concerns": []string{},
			"artifacts": []map[string]any{
				{"path": "docs/prd.md", "format": "markdown", "label": "PRD"},
			},
		})

	executor, err := step.NewExecutor(scripted, blobmemory.New())
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	runner, err := workflow.NewRunner(executor, workflow.WithController(breakpoint.AutoApprove{Note: "approved"}))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	builder, err := workflow.Get("prd")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	def, err := builder.Definition()
	if err != nil {
		t.Fatalf("Definition: %v", err)
	}
	result, err := runner.Execute(context.Background(), def, catalogInputs)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success || result.Status != types.RunStatusSucceeded {
		t.Fatalf("prd run: success=%v status=%s reason=%q", result.Success, result.Status, result.Reason)
	}
	want := []string{"analyze-problem", "generate-stories", "define-acceptance", "assemble-prd"}
	if diff := cmp.Diff(want, result.StepTrace); diff != "" {
		t.Fatalf("step trace mismatch (-want +got):\n%s", diff)
	}
	if len(result.Artifacts) != 1 || result.Artifacts[0].Path != "docs/prd.md" {
		t.Fatalf("artifacts = %+v", result.Artifacts)
	}
}

func TestPromptOverrideAddressesCatalogSteps(t *testing.T) {
	override := prompt.Spec{
		Name: "prd.analyze-problem",
		Role: "You are a terse product analyst.",
		Task: "Restate the problem for {{product}} in one sentence.",
	}
	if err := prompt.Register(override); err != nil {
		t.Fatalf("register override: %v", err)
	}
	defer prompt.Delete(override.Name)

	builder, err := workflow.Get(prd.Name)
	if err != nil {
		t.Fatalf("Get(prd): %v", err)
	}
	def, err := builder.Definition()
	if err != nil {
		t.Fatalf("Definition: %v", err)
	}
	desc, err := def.Entries[0].Step.Factory(catalogInputs, task.NewRunContext())
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	if desc.Prompt.Task != "Restate the problem for Acme Notes in one sentence." {
		t.Fatalf("override not applied, got task %q", desc.Prompt.Task)
	}
	if desc.Prompt.Role != override.Role {
		t.Fatalf("override role not applied, got %q", desc.Prompt.Role)
	}
}
