package state

import (
	"time"

	"github.com/prodflowhq/prodflow/types"
)

// RunRecord is the durable snapshot of one process run. Results and
// artifacts are append-only: every save carries the full accumulated set,
// and a later save never drops an earlier step's contribution.
type RunRecord struct {
	RunID       string                    `json:"runId"`
	Workflow    string                    `json:"workflow"`
	Status      types.RunStatus           `json:"status"`
	Inputs      map[string]any            `json:"inputs,omitempty"`
	Results     map[string]map[string]any `json:"results,omitempty"`
	StepTrace   []string                  `json:"stepTrace,omitempty"`
	Artifacts   []types.Artifact          `json:"artifacts,omitempty"`
	Reason      string                    `json:"reason,omitempty"`
	Error       string                    `json:"error,omitempty"`
	CreatedAt   *time.Time                `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time                `json:"updatedAt,omitempty"`
	CompletedAt *time.Time                `json:"completedAt,omitempty"`
}

const (
	BreakpointPending = "pending"
	BreakpointResumed = "resumed"
	BreakpointAborted = "aborted"
)

// BreakpointRecord is one human-approval pause point raised by a run. The
// run does not proceed past a pending record; NextIndex marks the entry
// where the workflow continues once the record is resolved. GateIndex is
// the position of the advisory gate that parked the run within the
// previous entry's gate list, or -1 when the pause is a declared
// breakpoint, so a resumed run evaluates the gates that follow it.
type BreakpointRecord struct {
	RunID      string           `json:"runId"`
	Seq        int              `json:"seq"`
	StepID     string           `json:"stepId"`
	NextIndex  int              `json:"nextIndex"`
	GateIndex  int              `json:"gateIndex"`
	Title      string           `json:"title"`
	Question   string           `json:"question"`
	Summary    map[string]any   `json:"summary,omitempty"`
	Artifacts  []types.Artifact `json:"artifacts,omitempty"`
	Status     string           `json:"status"`
	Note       string           `json:"note,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
	ResolvedAt *time.Time       `json:"resolvedAt,omitempty"`
}
