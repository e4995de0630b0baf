package types

import "time"

type EventType string

const (
	EventRunStarted         EventType = "run.started"
	EventRunPaused          EventType = "run.paused"
	EventRunResumed         EventType = "run.resumed"
	EventRunCompleted       EventType = "run.completed"
	EventRunFailed          EventType = "run.failed"
	EventStepStarted        EventType = "step.started"
	EventStepCompleted      EventType = "step.completed"
	EventStepFailed         EventType = "step.failed"
	EventGateEvaluated      EventType = "gate.evaluated"
	EventBreakpointRaised   EventType = "breakpoint.raised"
	EventBreakpointResolved EventType = "breakpoint.resolved"
)

type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"runId,omitempty"`
	Workflow  string    `json:"workflow,omitempty"`
	StepID    string    `json:"stepId,omitempty"`
	Agent     string    `json:"agent,omitempty"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
}
