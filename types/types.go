package types

import "time"

// Artifact is a reference to a document produced as a side effect of a
// process step. The harness never loads artifact content into memory; it
// only tracks where the agent says the document landed.
type Artifact struct {
	Path     string `json:"path"`
	Format   string `json:"format,omitempty"`
	Label    string `json:"label,omitempty"`
	Language string `json:"language,omitempty"`
}

// PromptPayload is the structured prompt handed to the agent capability
// for one step.
type PromptPayload struct {
	Role         string   `json:"role,omitempty"`
	Task         string   `json:"task"`
	Context      string   `json:"context,omitempty"`
	Instructions []string `json:"instructions,omitempty"`
	OutputFormat string   `json:"outputFormat,omitempty"`
}

// RunStatus is the lifecycle state of one process run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusPaused    RunStatus = "paused"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Metadata describes one completed (or terminated) process invocation.
type Metadata struct {
	ProcessID  string    `json:"processId"`
	Workflow   string    `json:"workflow,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"durationMs"`
}

// RunResult is what a process invocation returns to its caller. A failed
// run still carries every artifact accumulated before the failure point:
// partial product documents retain value for the operator.
type RunResult struct {
	Success   bool                      `json:"success"`
	Status    RunStatus                 `json:"status"`
	Reason    string                    `json:"reason,omitempty"`
	Concerns  []string                  `json:"concerns,omitempty"`
	Artifacts []Artifact                `json:"artifacts"`
	Results   map[string]map[string]any `json:"results,omitempty"`
	StepTrace []string                  `json:"stepTrace,omitempty"`
	Metadata  Metadata                  `json:"metadata"`
	Events    []Event                   `json:"events,omitempty"`
}
