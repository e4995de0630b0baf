// Package breakpoint implements the human-approval pause points a process
// workflow raises between steps. A paused run holds indefinitely; there is
// no timeout because a reviewer, not a liveness bound, decides when work
// continues.
package breakpoint

import (
	"context"
	"errors"

	"github.com/prodflowhq/prodflow/types"
)

// Request is what the operator sees while a run is paused.
type Request struct {
	Title    string  `json:"title"`
	Question string  `json:"question"`
	Context  Context `json:"context"`
}

// Context bundles the slice of run state relevant to the approval decision.
type Context struct {
	RunID     string           `json:"runId"`
	Workflow  string           `json:"workflow,omitempty"`
	Summary   map[string]any   `json:"summary,omitempty"`
	Artifacts []types.Artifact `json:"artifacts,omitempty"`
}

type Kind string

const (
	// KindResume approves the pause point; the run continues.
	KindResume Kind = "resume"
	// KindAbort terminates the run cleanly at the pause point.
	KindAbort Kind = "abort"
)

// Resolution is the operator's answer to a Request.
type Resolution struct {
	Kind Kind   `json:"kind"`
	Note string `json:"note,omitempty"`
}

// ErrDetached signals that the controller does not hold paused runs in
// process: the runner should persist the pause and return, and a later
// resume re-attaches by run id.
var ErrDetached = errors.New("breakpoint: detached")

// Controller suspends a workflow until an external resolution arrives.
type Controller interface {
	Pause(ctx context.Context, req Request) (Resolution, error)
}

// AutoApprove resolves every pause immediately with a resume. Used for
// unattended runs where the gates alone guard quality.
type AutoApprove struct {
	Note string
}

func (a AutoApprove) Pause(ctx context.Context, req Request) (Resolution, error) {
	if err := ctx.Err(); err != nil {
		return Resolution{}, err
	}
	_ = req
	return Resolution{Kind: KindResume, Note: a.Note}, nil
}

// Detached always reports ErrDetached, which makes the runner park the run
// in the Paused state and return. The CLI resume command continues it.
type Detached struct{}

func (Detached) Pause(ctx context.Context, req Request) (Resolution, error) {
	_ = ctx
	_ = req
	return Resolution{}, ErrDetached
}
