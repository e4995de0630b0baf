package observe

import (
	"strings"

	"github.com/prodflowhq/prodflow/types"
)

// FromRuntimeEvent converts a runner lifecycle event into an observer
// event, deriving kind and status from the dotted event type.
func FromRuntimeEvent(in types.Event) Event {
	e := Event{
		Timestamp: in.Timestamp,
		RunID:     in.RunID,
		Workflow:  in.Workflow,
		Name:      in.StepID,
		Agent:     in.Agent,
		Message:   in.Message,
		Error:     in.Error,
		Attributes: map[string]any{
			"eventType": string(in.Type),
		},
	}

	eventType := string(in.Type)
	switch {
	case strings.HasPrefix(eventType, "step."):
		e.Kind = KindStep
	case strings.HasPrefix(eventType, "gate."):
		e.Kind = KindGate
	case strings.HasPrefix(eventType, "breakpoint."):
		e.Kind = KindBreakpoint
	case strings.HasPrefix(eventType, "run."):
		e.Kind = KindRun
	default:
		e.Kind = KindCustom
	}

	switch {
	case strings.HasSuffix(eventType, "started"), strings.HasSuffix(eventType, "raised"):
		e.Status = StatusStarted
	case strings.HasSuffix(eventType, "failed"):
		e.Status = StatusFailed
	case strings.HasSuffix(eventType, "paused"):
		e.Status = StatusPaused
	default:
		e.Status = StatusCompleted
	}

	e.Normalize()
	return e
}
