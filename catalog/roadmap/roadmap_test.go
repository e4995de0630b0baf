package roadmap

import (
	"testing"

	"github.com/prodflowhq/prodflow/schema"
)

func TestPublishSchemaReflectsDocumentShape(t *testing.T) {
	s := publishRoadmap.OutputSchema
	if s.Kind != schema.KindObject {
		t.Fatalf("unexpected schema kind %q", s.Kind)
	}

	valid := map[string]any{
		"summary": "Q4 roadmap: activation first, then platform debt.",
		"artifacts": []any{
			map[string]any{"path": "docs/roadmap.md", "format": "markdown", "label": "Roadmap"},
		},
	}
	violations, err := schema.Validate(valid, s)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("expected conforming document, got %v", violations)
	}

	missingSummary := map[string]any{
		"artifacts": []any{map[string]any{"path": "docs/roadmap.md"}},
	}
	violations, err = schema.Validate(missingSummary, s)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(violations) == 0 {
		t.Fatal("summary must be required")
	}

	emptyArtifacts := map[string]any{
		"summary":   "No document written.",
		"artifacts": []any{},
	}
	violations, err = schema.Validate(emptyArtifacts, s)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(violations) == 0 {
		t.Fatal("at least one artifact must be declared")
	}
}
