package fs

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/prodflowhq/prodflow/blob"
	"github.com/prodflowhq/prodflow/schema"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create fs store: %v", err)
	}
	return s
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := map[string]any{"summary": "churn concentrated in week 2", "score": 61.0}
	if err := s.Write(ctx, "run-1/tasks/retention-audit/result.json", in); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	out := map[string]any{}
	if err := s.Read(ctx, "run-1/tasks/retention-audit/result.json", &out); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("round trip drifted:\n%s", diff)
	}
}

func TestPersistedResultRevalidates(t *testing.T) {
	// A step result written to the store and read back must still conform
	// to the schema it was validated against.
	s := newTestStore(t)
	ctx := context.Background()
	resultSchema := schema.Object(map[string]schema.Schema{
		"summary": schema.String(),
		"score":   schema.NumberBetween(0, 100),
	}, "summary", "score")

	payload := map[string]any{"summary": "ok", "score": 88.0}
	if violations, err := schema.Validate(payload, resultSchema); err != nil || len(violations) > 0 {
		t.Fatalf("fixture should conform: %v %v", violations, err)
	}
	if err := s.Write(ctx, "run-2/tasks/a/result.json", payload); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	reread := map[string]any{}
	if err := s.Read(ctx, "run-2/tasks/a/result.json", &reread); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	violations, err := schema.Validate(reread, resultSchema)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("re-read value no longer conforms: %v", violations)
	}
}

func TestReadMissing(t *testing.T) {
	s := newTestStore(t)
	out := map[string]any{}
	if err := s.Read(context.Background(), "run-1/absent.json", &out); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListIsRunScoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, path := range []string{
		"run-1/tasks/a/input.json",
		"run-1/tasks/a/result.json",
		"run-2/tasks/b/input.json",
	} {
		if err := s.Write(ctx, path, map[string]any{"path": path}); err != nil {
			t.Fatalf("Write %q failed: %v", path, err)
		}
	}
	paths, err := s.List(ctx, "run-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"run-1/tasks/a/input.json", "run-1/tasks/a/result.json"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("unexpected listing:\n%s", diff)
	}
}

func TestRejectsEscapingPaths(t *testing.T) {
	s := newTestStore(t)
	if err := s.Write(context.Background(), "../outside.json", map[string]any{}); err == nil {
		t.Fatal("expected path traversal to be rejected")
	}
}
