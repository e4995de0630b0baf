package task

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/prodflowhq/prodflow/prompt"
	"github.com/prodflowhq/prodflow/schema"
)

func problemAnalysisSpec() StepSpec {
	return StepSpec{
		Name:  "problem-analysis",
		Title: "Problem analysis",
		Agent: "pm-analyst",
		Prompt: prompt.Spec{
			Name: "prd.problem-analysis",
			Role: "product strategist",
			Task: "Analyze the problem space for {{product}}.",
		},
		OutputSchema: schema.Object(map[string]schema.Schema{
			"summary": schema.String(),
			"score":   schema.NumberBetween(0, 100),
		}, "summary", "score"),
		Labels: []string{"prd", "analysis"},
	}
}

func TestFactoryIsDeterministic(t *testing.T) {
	factory := problemAnalysisSpec().Factory()
	args := Args{"product": "Atlas"}

	first, err := factory(args, NewRunContext())
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	second, err := factory(args, NewRunContext())
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	ignoreSchema := cmpopts.IgnoreFields(Descriptor{}, "OutputSchema")
	if diff := cmp.Diff(first, second, ignoreSchema); diff != "" {
		t.Fatalf("descriptors differ across identical calls:\n%s", diff)
	}
}

func TestFactoryDescriptorShape(t *testing.T) {
	factory := problemAnalysisSpec().Factory()
	desc, err := factory(Args{"product": "Atlas"}, NewRunContext())
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	if desc.Kind != KindAgent {
		t.Fatalf("unexpected kind %q", desc.Kind)
	}
	if desc.ID != "problem-analysis" {
		t.Fatalf("unexpected step id %q", desc.ID)
	}
	if desc.InputPath != "tasks/problem-analysis/input.json" {
		t.Fatalf("unexpected input path %q", desc.InputPath)
	}
	if desc.OutputPath != "tasks/problem-analysis/result.json" {
		t.Fatalf("unexpected output path %q", desc.OutputPath)
	}
	if desc.Prompt.Task != "Analyze the problem space for Atlas." {
		t.Fatalf("prompt not rendered: %q", desc.Prompt.Task)
	}
}

func TestFactoryRejectsMalformedArgs(t *testing.T) {
	factory := problemAnalysisSpec().Factory()
	_, err := factory(Args{}, NewRunContext())
	var invalid *InvalidArgumentError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidArgumentError, got %v", err)
	}
	if invalid.Key != "product" {
		t.Fatalf("unexpected key %q", invalid.Key)
	}
}

func TestRunContextRepeatedSteps(t *testing.T) {
	rc := NewRunContext()
	ids := []string{rc.StepID("review"), rc.StepID("review"), rc.StepID("review")}
	want := []string{"review", "review-2", "review-3"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("unexpected step ids:\n%s", diff)
	}
}

func TestArgsAccessors(t *testing.T) {
	args := Args{"product": "Atlas", "quarter": 3}

	if _, err := args.String("quarter"); err == nil {
		t.Fatal("expected type error for non-string argument")
	}
	if got := args.StringOr("missing", "fallback"); got != "fallback" {
		t.Fatalf("unexpected fallback: %q", got)
	}
	vars := args.Vars()
	if vars["quarter"] != "3" {
		t.Fatalf("numeric argument not formatted: %q", vars["quarter"])
	}

	merged := args.Merge(Args{"quarter": 4})
	if merged["quarter"] != 4 || args["quarter"] != 3 {
		t.Fatalf("merge should not mutate the receiver: %v / %v", merged, args)
	}
}

func TestFactoryAppliesPromptOverride(t *testing.T) {
	override := prompt.Spec{
		Name: "prd.problem-analysis",
		Task: "Audit the problem space for {{product}}.",
	}
	if err := prompt.Register(override); err != nil {
		t.Fatalf("register override: %v", err)
	}
	defer prompt.Delete(override.Name)

	desc, err := problemAnalysisSpec().Factory()(Args{"product": "Atlas"}, NewRunContext())
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	if desc.Prompt.Task != "Audit the problem space for Atlas." {
		t.Fatalf("override not applied, got task %q", desc.Prompt.Task)
	}
}
