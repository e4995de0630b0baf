// Package memory implements state.Store in process memory. It backs tests
// and single-shot CLI runs that do not need durability.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prodflowhq/prodflow/state"
)

const defaultLimit = 50

type Store struct {
	mu          sync.Mutex
	runs        map[string]state.RunRecord
	breakpoints map[string][]state.BreakpointRecord
}

func New() *Store {
	return &Store{
		runs:        map[string]state.RunRecord{},
		breakpoints: map[string][]state.BreakpointRecord{},
	}
}

func (s *Store) SaveRun(ctx context.Context, run state.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.RunID] = run
	return nil
}

func (s *Store) LoadRun(ctx context.Context, runID string) (state.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return state.RunRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return state.RunRecord{}, state.ErrNotFound
	}
	return run, nil
}

func (s *Store) ListRuns(ctx context.Context, query state.ListRunsQuery) ([]state.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]state.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		if query.Workflow != "" && run.Workflow != query.Workflow {
			continue
		}
		if query.Status != "" && string(run.Status) != query.Status {
			continue
		}
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool {
		left, right := out[i].CreatedAt, out[j].CreatedAt
		if left == nil || right == nil {
			return out[i].RunID < out[j].RunID
		}
		return left.After(*right)
	})

	// Same paging semantics as the sqlite store.
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []state.RunRecord{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) SaveBreakpoint(ctx context.Context, record state.BreakpointRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.breakpoints[record.RunID]
	for _, e := range existing {
		if e.Seq == record.Seq {
			return state.ErrConflict
		}
	}
	s.breakpoints[record.RunID] = append(existing, record)
	return nil
}

func (s *Store) ResolveBreakpoint(ctx context.Context, runID string, seq int, status, note string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.breakpoints[runID]
	for i, record := range records {
		if record.Seq != seq {
			continue
		}
		if record.Status != state.BreakpointPending {
			return state.ErrConflict
		}
		now := time.Now().UTC()
		record.Status = status
		record.Note = note
		record.ResolvedAt = &now
		records[i] = record
		return nil
	}
	return state.ErrNotFound
}

func (s *Store) LoadLatestBreakpoint(ctx context.Context, runID string) (state.BreakpointRecord, error) {
	if err := ctx.Err(); err != nil {
		return state.BreakpointRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.breakpoints[runID]
	if len(records) == 0 {
		return state.BreakpointRecord{}, state.ErrNotFound
	}
	latest := records[0]
	for _, record := range records[1:] {
		if record.Seq > latest.Seq {
			latest = record
		}
	}
	return latest, nil
}

func (s *Store) ListBreakpoints(ctx context.Context, runID string, limit int) ([]state.BreakpointRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records := append([]state.BreakpointRecord(nil), s.breakpoints[runID]...)
	sort.Slice(records, func(i, j int) bool { return records[i].Seq > records[j].Seq })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *Store) Close() error { return nil }
