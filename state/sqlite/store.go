// Package sqlite persists run and breakpoint records in a local SQLite
// database. It is the default durable store: a paused run survives process
// restarts as long as the database file does.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/prodflowhq/prodflow/state"
	"github.com/prodflowhq/prodflow/types"
)

//go:embed schema.sql
var schemaSQL string

const (
	defaultBusyTimeout = 5 * time.Second
	defaultLimit       = 50
)

type Store struct {
	db          *sql.DB
	busyTimeout time.Duration
	enableWAL   bool
	maxOpenConn int
}

type Option func(*Store)

func WithBusyTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout >= 0 {
			s.busyTimeout = timeout
		}
	}
}

func WithWAL(enabled bool) Option {
	return func(s *Store) { s.enableWAL = enabled }
}

func WithMaxOpenConns(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxOpenConn = n
		}
	}
}

func New(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	s := &Store{
		busyTimeout: defaultBusyTimeout,
		enableWAL:   true,
		maxOpenConn: 1,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(s.maxOpenConn)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s.db = db
	if err := s.initialize(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	if s.busyTimeout > 0 {
		ms := int(s.busyTimeout / time.Millisecond)
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d;", ms)); err != nil {
			return fmt.Errorf("failed to set busy_timeout: %w", err)
		}
	}
	if s.enableWAL {
		if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("failed to enable wal: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func (s *Store) SaveRun(ctx context.Context, run state.RunRecord) error {
	now := time.Now().UTC()
	if run.CreatedAt == nil {
		run.CreatedAt = &now
	}
	if run.UpdatedAt == nil {
		run.UpdatedAt = &now
	}
	if run.RunID == "" {
		return fmt.Errorf("run_id is required")
	}
	if run.Workflow == "" {
		return fmt.Errorf("workflow is required")
	}
	if run.Status == "" {
		run.Status = types.RunStatusRunning
	}

	inputsRaw, err := marshalOrEmptyObject(run.Inputs)
	if err != nil {
		return fmt.Errorf("failed to marshal inputs: %w", err)
	}
	resultsRaw, err := marshalOrEmptyObject(run.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	traceRaw, err := json.Marshal(emptyIfNil(run.StepTrace))
	if err != nil {
		return fmt.Errorf("failed to marshal step trace: %w", err)
	}
	artifactsRaw, err := json.Marshal(emptyIfNilArtifacts(run.Artifacts))
	if err != nil {
		return fmt.Errorf("failed to marshal artifacts: %w", err)
	}

	const q = `
INSERT INTO runs (
  run_id, workflow, status, inputs, results, step_trace, artifacts, reason, error, created_at, updated_at, completed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
  workflow=excluded.workflow,
  status=excluded.status,
  inputs=excluded.inputs,
  results=excluded.results,
  step_trace=excluded.step_trace,
  artifacts=excluded.artifacts,
  reason=excluded.reason,
  error=excluded.error,
  updated_at=excluded.updated_at,
  completed_at=excluded.completed_at;
`
	_, err = s.db.ExecContext(
		ctx,
		q,
		run.RunID,
		run.Workflow,
		string(run.Status),
		inputsRaw,
		resultsRaw,
		string(traceRaw),
		string(artifactsRaw),
		run.Reason,
		run.Error,
		toNullableTime(run.CreatedAt),
		toNullableTime(run.UpdatedAt),
		toNullableTime(run.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

func (s *Store) LoadRun(ctx context.Context, runID string) (state.RunRecord, error) {
	if strings.TrimSpace(runID) == "" {
		return state.RunRecord{}, fmt.Errorf("run_id is required")
	}

	const q = `
SELECT run_id, workflow, status, inputs, results, step_trace, artifacts, reason, error, created_at, updated_at, completed_at
FROM runs
WHERE run_id = ?;
`
	row := s.db.QueryRowContext(ctx, q, runID)
	run, err := scanRun(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return state.RunRecord{}, state.ErrNotFound
		}
		return state.RunRecord{}, err
	}
	return run, nil
}

func (s *Store) ListRuns(ctx context.Context, query state.ListRunsQuery) ([]state.RunRecord, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	var (
		where []string
		args  []any
	)
	if query.Workflow != "" {
		where = append(where, "workflow = ?")
		args = append(args, query.Workflow)
	}
	if query.Status != "" {
		where = append(where, "status = ?")
		args = append(args, query.Status)
	}

	sqlText := `
SELECT run_id, workflow, status, inputs, results, step_trace, artifacts, reason, error, created_at, updated_at, completed_at
FROM runs
`
	if len(where) > 0 {
		sqlText += " WHERE " + strings.Join(where, " AND ")
	}
	sqlText += " ORDER BY created_at DESC LIMIT ? OFFSET ?;"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]state.RunRecord, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

func (s *Store) SaveBreakpoint(ctx context.Context, record state.BreakpointRecord) error {
	if record.RunID == "" {
		return fmt.Errorf("run_id is required")
	}
	if record.Seq < 0 {
		return fmt.Errorf("seq must be >= 0")
	}
	if record.Status == "" {
		record.Status = state.BreakpointPending
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	summaryRaw, err := marshalOrEmptyObject(record.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal breakpoint summary: %w", err)
	}
	artifactsRaw, err := json.Marshal(emptyIfNilArtifacts(record.Artifacts))
	if err != nil {
		return fmt.Errorf("failed to marshal breakpoint artifacts: %w", err)
	}

	const q = `
INSERT INTO breakpoints (run_id, seq, step_id, next_index, gate_index, title, question, summary, artifacts, status, note, created_at, resolved_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	_, err = s.db.ExecContext(
		ctx,
		q,
		record.RunID,
		record.Seq,
		record.StepID,
		record.NextIndex,
		record.GateIndex,
		record.Title,
		record.Question,
		summaryRaw,
		string(artifactsRaw),
		record.Status,
		record.Note,
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
		toNullableTime(record.ResolvedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return state.ErrConflict
		}
		return fmt.Errorf("failed to save breakpoint: %w", err)
	}
	return nil
}

func (s *Store) ResolveBreakpoint(ctx context.Context, runID string, seq int, status, note string) error {
	if runID == "" {
		return fmt.Errorf("run_id is required")
	}
	const q = `
UPDATE breakpoints
SET status = ?, note = ?, resolved_at = ?
WHERE run_id = ? AND seq = ? AND status = ?;
`
	res, err := s.db.ExecContext(
		ctx,
		q,
		status,
		note,
		time.Now().UTC().Format(time.RFC3339Nano),
		runID,
		seq,
		state.BreakpointPending,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve breakpoint: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to resolve breakpoint: %w", err)
	}
	if affected == 0 {
		// Either the record does not exist or it is already resolved.
		if _, loadErr := s.loadBreakpoint(ctx, runID, seq); loadErr != nil {
			return loadErr
		}
		return state.ErrConflict
	}
	return nil
}

func (s *Store) LoadLatestBreakpoint(ctx context.Context, runID string) (state.BreakpointRecord, error) {
	if runID == "" {
		return state.BreakpointRecord{}, fmt.Errorf("run_id is required")
	}

	const q = `
SELECT run_id, seq, step_id, next_index, gate_index, title, question, summary, artifacts, status, note, created_at, resolved_at
FROM breakpoints
WHERE run_id = ?
ORDER BY seq DESC
LIMIT 1;
`
	row := s.db.QueryRowContext(ctx, q, runID)
	record, err := scanBreakpoint(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return state.BreakpointRecord{}, state.ErrNotFound
		}
		return state.BreakpointRecord{}, err
	}
	return record, nil
}

func (s *Store) ListBreakpoints(ctx context.Context, runID string, limit int) ([]state.BreakpointRecord, error) {
	if runID == "" {
		return nil, fmt.Errorf("run_id is required")
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	const q = `
SELECT run_id, seq, step_id, next_index, gate_index, title, question, summary, artifacts, status, note, created_at, resolved_at
FROM breakpoints
WHERE run_id = ?
ORDER BY seq DESC
LIMIT ?;
`
	rows, err := s.db.QueryContext(ctx, q, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list breakpoints: %w", err)
	}
	defer rows.Close()

	out := make([]state.BreakpointRecord, 0, limit)
	for rows.Next() {
		record, err := scanBreakpoint(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate breakpoints: %w", err)
	}
	return out, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) loadBreakpoint(ctx context.Context, runID string, seq int) (state.BreakpointRecord, error) {
	const q = `
SELECT run_id, seq, step_id, next_index, gate_index, title, question, summary, artifacts, status, note, created_at, resolved_at
FROM breakpoints
WHERE run_id = ? AND seq = ?;
`
	row := s.db.QueryRowContext(ctx, q, runID, seq)
	record, err := scanBreakpoint(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return state.BreakpointRecord{}, state.ErrNotFound
		}
		return state.BreakpointRecord{}, err
	}
	return record, nil
}

func scanRun(scan func(dest ...any) error) (state.RunRecord, error) {
	var (
		run          state.RunRecord
		status       string
		inputsRaw    string
		resultsRaw   string
		traceRaw     string
		artifactsRaw string
		createdRaw   string
		updatedRaw   string
		completedRaw sql.NullString
	)
	err := scan(
		&run.RunID,
		&run.Workflow,
		&status,
		&inputsRaw,
		&resultsRaw,
		&traceRaw,
		&artifactsRaw,
		&run.Reason,
		&run.Error,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	)
	if err != nil {
		return state.RunRecord{}, err
	}
	run.Status = types.RunStatus(status)
	if err := json.Unmarshal([]byte(inputsRaw), &run.Inputs); err != nil {
		return state.RunRecord{}, fmt.Errorf("failed to decode run inputs: %w", err)
	}
	if err := json.Unmarshal([]byte(resultsRaw), &run.Results); err != nil {
		return state.RunRecord{}, fmt.Errorf("failed to decode run results: %w", err)
	}
	if err := json.Unmarshal([]byte(traceRaw), &run.StepTrace); err != nil {
		return state.RunRecord{}, fmt.Errorf("failed to decode step trace: %w", err)
	}
	if err := json.Unmarshal([]byte(artifactsRaw), &run.Artifacts); err != nil {
		return state.RunRecord{}, fmt.Errorf("failed to decode run artifacts: %w", err)
	}
	created, err := parseRequiredTime(createdRaw)
	if err != nil {
		return state.RunRecord{}, fmt.Errorf("failed to parse run created_at: %w", err)
	}
	updated, err := parseRequiredTime(updatedRaw)
	if err != nil {
		return state.RunRecord{}, fmt.Errorf("failed to parse run updated_at: %w", err)
	}
	run.CreatedAt = &created
	run.UpdatedAt = &updated
	if completedRaw.Valid && strings.TrimSpace(completedRaw.String) != "" {
		completed, err := parseRequiredTime(completedRaw.String)
		if err != nil {
			return state.RunRecord{}, fmt.Errorf("failed to parse run completed_at: %w", err)
		}
		run.CompletedAt = &completed
	}
	return run, nil
}

func scanBreakpoint(scan func(dest ...any) error) (state.BreakpointRecord, error) {
	var (
		record       state.BreakpointRecord
		summaryRaw   string
		artifactsRaw string
		createdRaw   string
		resolvedRaw  sql.NullString
	)
	err := scan(
		&record.RunID,
		&record.Seq,
		&record.StepID,
		&record.NextIndex,
		&record.GateIndex,
		&record.Title,
		&record.Question,
		&summaryRaw,
		&artifactsRaw,
		&record.Status,
		&record.Note,
		&createdRaw,
		&resolvedRaw,
	)
	if err != nil {
		return state.BreakpointRecord{}, err
	}
	if err := json.Unmarshal([]byte(summaryRaw), &record.Summary); err != nil {
		return state.BreakpointRecord{}, fmt.Errorf("failed to decode breakpoint summary: %w", err)
	}
	if err := json.Unmarshal([]byte(artifactsRaw), &record.Artifacts); err != nil {
		return state.BreakpointRecord{}, fmt.Errorf("failed to decode breakpoint artifacts: %w", err)
	}
	record.CreatedAt, err = parseRequiredTime(createdRaw)
	if err != nil {
		return state.BreakpointRecord{}, fmt.Errorf("failed to parse breakpoint created_at: %w", err)
	}
	if resolvedRaw.Valid && strings.TrimSpace(resolvedRaw.String) != "" {
		resolved, err := parseRequiredTime(resolvedRaw.String)
		if err != nil {
			return state.BreakpointRecord{}, fmt.Errorf("failed to parse breakpoint resolved_at: %w", err)
		}
		record.ResolvedAt = &resolved
	}
	return record, nil
}

func marshalOrEmptyObject(value any) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	if string(raw) == "null" {
		return "{}", nil
	}
	return string(raw), nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func emptyIfNilArtifacts(values []types.Artifact) []types.Artifact {
	if values == nil {
		return []types.Artifact{}
	}
	return values
}

func parseRequiredTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func toNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
