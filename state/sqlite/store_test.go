package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prodflowhq/prodflow/state"
	"github.com/prodflowhq/prodflow/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "state.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestSQLiteStore_SaveLoadRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	record := state.RunRecord{
		RunID:    "run-1",
		Workflow: "prd",
		Status:   types.RunStatusRunning,
		Inputs:   map[string]any{"product": "Atlas"},
		Results: map[string]map[string]any{
			"problem-analysis": {"summary": "clear pain", "score": 72.0},
		},
		StepTrace: []string{"problem-analysis"},
		Artifacts: []types.Artifact{
			{Path: "docs/problem-statement.md", Format: "markdown", Label: "Problem statement"},
		},
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	if err := s.SaveRun(ctx, record); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := s.LoadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if got.Workflow != "prd" || got.Status != types.RunStatusRunning {
		t.Fatalf("unexpected run identity: %#v", got)
	}
	if got.Results["problem-analysis"]["score"] != 72.0 {
		t.Fatalf("unexpected results: %#v", got.Results)
	}
	if len(got.Artifacts) != 1 || got.Artifacts[0].Path != "docs/problem-statement.md" {
		t.Fatalf("unexpected artifacts: %#v", got.Artifacts)
	}
}

func TestSQLiteStore_LoadRunNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadRun(context.Background(), "absent")
	if !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_SaveRunUpsertsAccumulatedState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	record := state.RunRecord{RunID: "run-2", Workflow: "roadmap", Status: types.RunStatusRunning}
	if err := s.SaveRun(ctx, record); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	record.StepTrace = []string{"theme-mining", "capacity-check"}
	record.Status = types.RunStatusSucceeded
	completed := time.Now().UTC()
	record.CompletedAt = &completed
	if err := s.SaveRun(ctx, record); err != nil {
		t.Fatalf("second SaveRun failed: %v", err)
	}

	got, err := s.LoadRun(ctx, "run-2")
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if got.Status != types.RunStatusSucceeded || len(got.StepTrace) != 2 {
		t.Fatalf("upsert lost state: %#v", got)
	}
	if got.CompletedAt == nil {
		t.Fatal("completed_at not persisted")
	}
}

func TestSQLiteStore_ListRunsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fixtures := []state.RunRecord{
		{RunID: "a", Workflow: "prd", Status: types.RunStatusSucceeded},
		{RunID: "b", Workflow: "prd", Status: types.RunStatusFailed},
		{RunID: "c", Workflow: "retention", Status: types.RunStatusSucceeded},
	}
	for _, record := range fixtures {
		if err := s.SaveRun(ctx, record); err != nil {
			t.Fatalf("SaveRun %q failed: %v", record.RunID, err)
		}
	}

	runs, err := s.ListRuns(ctx, state.ListRunsQuery{Workflow: "prd", Status: "succeeded"})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "a" {
		t.Fatalf("unexpected listing: %#v", runs)
	}
}

func TestSQLiteStore_BreakpointLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	record := state.BreakpointRecord{
		RunID:     "run-3",
		Seq:       1,
		StepID:    "scope-review",
		NextIndex: 3,
		Title:     "Scope review",
		Question:  "Approve the MoSCoW cut before drafting?",
		Summary:   map[string]any{"mustCount": 4.0},
		Artifacts: []types.Artifact{{Path: "docs/scope.md", Format: "markdown"}},
	}
	if err := s.SaveBreakpoint(ctx, record); err != nil {
		t.Fatalf("SaveBreakpoint failed: %v", err)
	}
	if err := s.SaveBreakpoint(ctx, record); !errors.Is(err, state.ErrConflict) {
		t.Fatalf("duplicate seq should be ErrConflict, got %v", err)
	}

	latest, err := s.LoadLatestBreakpoint(ctx, "run-3")
	if err != nil {
		t.Fatalf("LoadLatestBreakpoint failed: %v", err)
	}
	if latest.Status != state.BreakpointPending || latest.NextIndex != 3 {
		t.Fatalf("unexpected breakpoint: %#v", latest)
	}

	if err := s.ResolveBreakpoint(ctx, "run-3", 1, state.BreakpointResumed, "looks good"); err != nil {
		t.Fatalf("ResolveBreakpoint failed: %v", err)
	}
	if err := s.ResolveBreakpoint(ctx, "run-3", 1, state.BreakpointAborted, ""); !errors.Is(err, state.ErrConflict) {
		t.Fatalf("double resolve should be ErrConflict, got %v", err)
	}
	if err := s.ResolveBreakpoint(ctx, "run-3", 9, state.BreakpointResumed, ""); !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("unknown seq should be ErrNotFound, got %v", err)
	}

	resolved, err := s.LoadLatestBreakpoint(ctx, "run-3")
	if err != nil {
		t.Fatalf("LoadLatestBreakpoint failed: %v", err)
	}
	if resolved.Status != state.BreakpointResumed || resolved.Note != "looks good" || resolved.ResolvedAt == nil {
		t.Fatalf("resolution not persisted: %#v", resolved)
	}
}
