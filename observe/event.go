package observe

import "time"

type Kind string

type Status string

const (
	KindRun        Kind = "run"
	KindStep       Kind = "step"
	KindGate       Kind = "gate"
	KindBreakpoint Kind = "breakpoint"
	KindCustom     Kind = "custom"
)

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusPaused    Status = "paused"
)

type Event struct {
	ID         string         `json:"id,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	RunID      string         `json:"runId,omitempty"`
	Workflow   string         `json:"workflow,omitempty"`
	Kind       Kind           `json:"kind"`
	Status     Status         `json:"status,omitempty"`
	Name       string         `json:"name,omitempty"`
	Agent      string         `json:"agent,omitempty"`
	Message    string         `json:"message,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMs int64          `json:"durationMs,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func (e *Event) Normalize() {
	if e == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Kind == "" {
		e.Kind = KindCustom
	}
	if e.Attributes == nil {
		e.Attributes = map[string]any{}
	}
}
