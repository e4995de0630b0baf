package state

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("state: not found")
	ErrConflict = errors.New("state: conflict")
)

type ListRunsQuery struct {
	Workflow string
	Status   string
	Limit    int
	Offset   int
}

type Store interface {
	SaveRun(ctx context.Context, run RunRecord) error
	LoadRun(ctx context.Context, runID string) (RunRecord, error)
	ListRuns(ctx context.Context, query ListRunsQuery) ([]RunRecord, error)

	// SaveBreakpoint inserts a new record; a duplicate (run, seq) pair is
	// ErrConflict.
	SaveBreakpoint(ctx context.Context, record BreakpointRecord) error
	// ResolveBreakpoint marks a pending record resumed or aborted. A
	// record that is not pending is ErrConflict.
	ResolveBreakpoint(ctx context.Context, runID string, seq int, status, note string) error
	LoadLatestBreakpoint(ctx context.Context, runID string) (BreakpointRecord, error)
	ListBreakpoints(ctx context.Context, runID string, limit int) ([]BreakpointRecord, error)

	Close() error
}
