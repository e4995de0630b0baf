package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderSubstitutesTokens(t *testing.T) {
	out, err := Render("Draft a PRD for {{product}} targeting {{segment}}.", map[string]string{
		"product": "Atlas",
		"segment": "mid-market",
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if out != "Draft a PRD for Atlas targeting mid-market." {
		t.Fatalf("unexpected render: %q", out)
	}
}

func TestRenderReportsMissingVariables(t *testing.T) {
	_, err := Render("{{a}} and {{b}}", map[string]string{"a": "x"})
	var missing *MissingVarsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingVarsError, got %v", err)
	}
	if len(missing.Keys) != 1 || missing.Keys[0] != "b" {
		t.Fatalf("unexpected missing keys: %v", missing.Keys)
	}
}

func TestRenderPayload(t *testing.T) {
	spec := Spec{
		Name:         "prd.problem-analysis",
		Role:         "product strategist",
		Task:         "Analyze the problem space for {{product}}.",
		Instructions: []string{"Quantify the pain for {{segment}}."},
		OutputFormat: "json",
	}
	payload, err := RenderPayload(spec, map[string]string{"product": "Atlas", "segment": "SMB"})
	if err != nil {
		t.Fatalf("RenderPayload failed: %v", err)
	}
	if !strings.Contains(payload.Task, "Atlas") {
		t.Fatalf("task not rendered: %q", payload.Task)
	}
	if len(payload.Instructions) != 1 || !strings.Contains(payload.Instructions[0], "SMB") {
		t.Fatalf("instructions not rendered: %v", payload.Instructions)
	}
}

func TestLoadDirRegistersOverrides(t *testing.T) {
	dir := t.TempDir()
	content := `{"name":"prd.problem-analysis","task":"Override task for {{product}}."}`
	if err := os.WriteFile(filepath.Join(dir, "prd.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("write prompt file: %v", err)
	}
	t.Cleanup(func() { Delete("prd.problem-analysis") })

	loaded, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if loaded != 1 {
		t.Fatalf("expected 1 loaded prompt, got %d", loaded)
	}

	base := Spec{Name: "prd.problem-analysis", Task: "Base task."}
	got := Overlay(base)
	if !strings.Contains(got.Task, "Override") {
		t.Fatalf("override not applied: %q", got.Task)
	}
}

func TestLoadDirMissingDirectory(t *testing.T) {
	loaded, err := LoadDir(filepath.Join(t.TempDir(), "absent"))
	if err != nil || loaded != 0 {
		t.Fatalf("missing dir should be a no-op, got %d, %v", loaded, err)
	}
}
