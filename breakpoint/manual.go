package breakpoint

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type pending struct {
	request Request
	done    chan Resolution
}

// Manual is an in-process controller: Pause blocks the calling workflow
// until another goroutine calls Resolve with the run id. One pause may be
// outstanding per run, which matches the single logical thread of control a
// run has.
type Manual struct {
	mu      sync.Mutex
	waiting map[string]*pending
}

func NewManual() *Manual {
	return &Manual{waiting: map[string]*pending{}}
}

func (m *Manual) Pause(ctx context.Context, req Request) (Resolution, error) {
	runID := req.Context.RunID
	if runID == "" {
		return Resolution{}, fmt.Errorf("breakpoint request has no run id")
	}

	entry := &pending{request: req, done: make(chan Resolution, 1)}
	m.mu.Lock()
	if _, exists := m.waiting[runID]; exists {
		m.mu.Unlock()
		return Resolution{}, fmt.Errorf("run %q is already paused", runID)
	}
	m.waiting[runID] = entry
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.waiting, runID)
		m.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return Resolution{}, ctx.Err()
	case res := <-entry.done:
		return res, nil
	}
}

// Resolve delivers the operator's resolution to a paused run.
func (m *Manual) Resolve(runID string, res Resolution) error {
	m.mu.Lock()
	entry, ok := m.waiting[runID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("run %q is not paused", runID)
	}
	select {
	case entry.done <- res:
		return nil
	default:
		return fmt.Errorf("run %q already resolved", runID)
	}
}

// Pending lists the requests currently awaiting resolution, sorted by run id.
func (m *Manual) Pending() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, 0, len(m.waiting))
	for _, entry := range m.waiting {
		out = append(out, entry.request)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Context.RunID < out[j].Context.RunID
	})
	return out
}
