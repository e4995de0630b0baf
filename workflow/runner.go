package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prodflowhq/prodflow/breakpoint"
	"github.com/prodflowhq/prodflow/observe"
	"github.com/prodflowhq/prodflow/state"
	statememory "github.com/prodflowhq/prodflow/state/memory"
	"github.com/prodflowhq/prodflow/step"
	"github.com/prodflowhq/prodflow/task"
	"github.com/prodflowhq/prodflow/types"
)

var (
	// ErrNotPaused is returned by Resume and Abort when the run is not
	// sitting at a breakpoint.
	ErrNotPaused = errors.New("workflow: run is not paused")
	// ErrAbortedAtBreakpoint is the reason recorded when an operator
	// terminates a paused run.
	ErrAbortedAtBreakpoint = errors.New("workflow: aborted at breakpoint")
)

// Runner drives a workflow definition: steps execute strictly in order,
// gates are evaluated after each step, and breakpoints suspend the run
// until a human resolves them. A failed or aborted run still returns every
// artifact accumulated so far.
type Runner struct {
	executor   *step.Executor
	store      state.Store
	controller breakpoint.Controller
	observer   observe.Sink
}

type RunnerOption func(*Runner)

func WithStore(store state.Store) RunnerOption {
	return func(r *Runner) {
		if store != nil {
			r.store = store
		}
	}
}

func WithController(controller breakpoint.Controller) RunnerOption {
	return func(r *Runner) {
		if controller != nil {
			r.controller = controller
		}
	}
}

func WithObserver(observer observe.Sink) RunnerOption {
	return func(r *Runner) {
		if observer != nil {
			r.observer = observer
		}
	}
}

func NewRunner(executor *step.Executor, opts ...RunnerOption) (*Runner, error) {
	if executor == nil {
		return nil, fmt.Errorf("step executor is required")
	}
	r := &Runner{
		executor:   executor,
		store:      statememory.New(),
		controller: breakpoint.Detached{},
		observer:   observe.NoopSink{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Execute starts a fresh run of the definition. The returned result is
// meaningful even when err is non-nil: it carries everything produced up to
// the failure point.
func (r *Runner) Execute(ctx context.Context, def Definition, inputs task.Args) (types.RunResult, error) {
	if err := def.Validate(); err != nil {
		return types.RunResult{}, err
	}
	run := newRun(uuid.NewString(), def.Name, inputs, time.Now().UTC())
	return r.execute(ctx, def, run, 0, 1, -1)
}

// Resume continues a run parked at a breakpoint, recording the operator's
// approval note. The definition must be the same one the run started with.
func (r *Runner) Resume(ctx context.Context, def Definition, runID, note string) (types.RunResult, error) {
	if err := def.Validate(); err != nil {
		return types.RunResult{}, err
	}
	record, err := r.store.LoadRun(ctx, runID)
	if err != nil {
		return types.RunResult{}, err
	}
	if record.Status != types.RunStatusPaused {
		return types.RunResult{}, fmt.Errorf("%w: run %q is %s", ErrNotPaused, runID, record.Status)
	}
	if record.Workflow != def.Name {
		return types.RunResult{}, fmt.Errorf("run %q belongs to workflow %q, not %q", runID, record.Workflow, def.Name)
	}
	pause, err := r.store.LoadLatestBreakpoint(ctx, runID)
	if err != nil {
		return types.RunResult{}, err
	}
	if pause.Status != state.BreakpointPending {
		return types.RunResult{}, fmt.Errorf("run %q has no pending breakpoint", runID)
	}
	if err := r.store.ResolveBreakpoint(ctx, runID, pause.Seq, state.BreakpointResumed, note); err != nil {
		return types.RunResult{}, err
	}

	run, err := restoreRun(def, record, pause.NextIndex, time.Now().UTC())
	if err != nil {
		return types.RunResult{}, err
	}
	resumeGate := -1
	if pause.GateIndex >= 0 {
		// The run parked on an advisory gate; the gates after it have
		// not been evaluated yet.
		resumeGate = pause.GateIndex + 1
	}
	return r.execute(ctx, def, run, pause.NextIndex, pause.Seq+1, resumeGate)
}

// Abort terminates a run parked at a breakpoint. The run transitions to
// failed; no further steps execute.
func (r *Runner) Abort(ctx context.Context, runID, note string) error {
	record, err := AbortRun(ctx, r.store, runID, note)
	if err != nil {
		return err
	}
	r.emit(ctx, nil, types.Event{
		Type:      types.EventRunFailed,
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		Workflow:  record.Workflow,
		Message:   record.Reason,
	})
	return nil
}

// AbortRun is the store-level abort: it needs no executor or agent
// capability, only the state store, so operational tooling can terminate a
// parked run directly.
func AbortRun(ctx context.Context, store state.Store, runID, note string) (state.RunRecord, error) {
	record, err := store.LoadRun(ctx, runID)
	if err != nil {
		return state.RunRecord{}, err
	}
	if record.Status != types.RunStatusPaused {
		return state.RunRecord{}, fmt.Errorf("%w: run %q is %s", ErrNotPaused, runID, record.Status)
	}
	pause, err := store.LoadLatestBreakpoint(ctx, runID)
	if err != nil {
		return state.RunRecord{}, err
	}
	if pause.Status == state.BreakpointPending {
		if err := store.ResolveBreakpoint(ctx, runID, pause.Seq, state.BreakpointAborted, note); err != nil {
			return state.RunRecord{}, err
		}
	}

	now := time.Now().UTC()
	record.Status = types.RunStatusFailed
	record.Reason = abortReason(note)
	record.UpdatedAt = &now
	record.CompletedAt = &now
	if err := store.SaveRun(ctx, record); err != nil {
		return state.RunRecord{}, err
	}
	return record, nil
}

func (r *Runner) execute(ctx context.Context, def Definition, run *Run, startIndex, seq, resumeGate int) (types.RunResult, error) {
	events := []types.Event{}
	now := time.Now().UTC()

	run.Status = types.RunStatusRunning
	if err := r.persistRun(ctx, run, nil, ""); err != nil {
		return types.RunResult{}, err
	}
	startType := types.EventRunStarted
	if startIndex > 0 {
		startType = types.EventRunResumed
	}
	r.emit(ctx, &events, types.Event{
		Type:      startType,
		Timestamp: now,
		RunID:     run.ID,
		Workflow:  run.Workflow,
	})

	// runGates evaluates a step's gates from the given offset. When done
	// is true the run parked or terminated and execute returns res and
	// err unchanged.
	runGates := func(entryIndex int, se *StepEntry, defaultStep string, first int) (res types.RunResult, done bool, err error) {
		for gi := first; gi < len(se.Gates); gi++ {
			gate := se.Gates[gi]
			stepID := gate.Step
			if stepID == "" {
				stepID = defaultStep
			}
			score, ok := run.Number(stepID, gate.Path)
			passed := ok && score >= gate.Threshold
			r.emit(ctx, &events, types.Event{
				Type:      types.EventGateEvaluated,
				Timestamp: time.Now().UTC(),
				RunID:     run.ID,
				Workflow:  run.Workflow,
				StepID:    stepID,
				Message:   gateMessage(gate, score, ok, passed),
			})
			if passed {
				continue
			}

			reason := gate.Reason
			if reason == "" {
				reason = "Quality gate failed"
			}
			if gate.Fatal {
				res, err = r.terminate(ctx, run, reason, events)
				return res, true, err
			}

			// Advisory gate: a human decides whether the run continues.
			req := breakpoint.Request{
				Title:    fmt.Sprintf("Advisory gate %q", gateName(gate, stepID)),
				Question: fmt.Sprintf("%s (scored %.1f against %.1f). Continue anyway?", reason, score, gate.Threshold),
				Context: breakpoint.Context{
					RunID:     run.ID,
					Workflow:  run.Workflow,
					Summary:   map[string]any{"step": stepID, "score": score, "threshold": gate.Threshold},
					Artifacts: run.Artifacts(),
				},
			}
			resolution, parked, err := r.holdAt(ctx, run, gateName(gate, stepID), req, entryIndex+1, gi, seq, &events)
			seq++
			if err != nil {
				return r.result(run, events, time.Now().UTC()), true, err
			}
			if parked {
				return r.result(run, events, time.Now().UTC()), true, nil
			}
			if resolution.Kind == breakpoint.KindAbort {
				res, err = r.terminate(ctx, run, abortReason(resolution.Note), events)
				return res, true, err
			}
		}
		return types.RunResult{}, false, nil
	}

	// A run parked on an advisory gate finishes that step's remaining
	// gates before moving on to the next entry.
	if resumeGate >= 0 && startIndex > 0 && startIndex <= len(def.Entries) {
		if se := def.Entries[startIndex-1].Step; se != nil && len(run.trace) > 0 {
			if res, done, err := runGates(startIndex-1, se, run.trace[len(run.trace)-1], resumeGate); done {
				return res, err
			}
		}
	}

	for i := startIndex; i < len(def.Entries); i++ {
		entry := def.Entries[i]

		if entry.Breakpoint != nil {
			bp := entry.Breakpoint
			req := r.buildRequest(run, bp)
			res, parked, err := r.holdAt(ctx, run, bp.Name, req, i+1, -1, seq, &events)
			seq++
			if err != nil {
				return r.result(run, events, time.Now().UTC()), err
			}
			if parked {
				return r.result(run, events, time.Now().UTC()), nil
			}
			if res.Kind == breakpoint.KindAbort {
				return r.terminate(ctx, run, abortReason(res.Note), events)
			}
			continue
		}

		se := entry.Step
		args := run.Inputs
		if se.Inputs != nil {
			extra, err := se.Inputs(run)
			if err != nil {
				return r.failStep(ctx, run, se.Name, fmt.Errorf("inputs for step %q: %w", se.Name, err), events)
			}
			args = args.Merge(extra)
		}

		desc, err := se.Factory(args, run.rc)
		if err != nil {
			return r.failStep(ctx, run, se.Name, err, events)
		}

		// The executor reports step progress to the observer; the runner
		// only records it in the run's own event log.
		events = append(events, types.Event{
			Type:      types.EventStepStarted,
			Timestamp: time.Now().UTC(),
			RunID:     run.ID,
			Workflow:  run.Workflow,
			StepID:    desc.ID,
			Agent:     desc.Agent,
		})

		result, err := r.executor.Run(ctx, desc, run.ID)
		if err != nil {
			return r.failStep(ctx, run, se.Name, err, events)
		}
		run.appendResult(result, time.Now().UTC())
		events = append(events, types.Event{
			Type:      types.EventStepCompleted,
			Timestamp: run.updatedAt,
			RunID:     run.ID,
			Workflow:  run.Workflow,
			StepID:    result.StepID,
			Agent:     result.Agent,
		})

		// Step output must be durable before the next entry runs.
		if err := r.persistRun(ctx, run, nil, ""); err != nil {
			return r.result(run, events, time.Now().UTC()), err
		}

		if res, done, err := runGates(i, se, result.StepID, 0); done {
			return res, err
		}
	}

	completed := time.Now().UTC()
	run.Status = types.RunStatusSucceeded
	if err := r.persistRun(ctx, run, &completed, ""); err != nil {
		return r.result(run, events, completed), err
	}
	r.emit(ctx, &events, types.Event{
		Type:      types.EventRunCompleted,
		Timestamp: completed,
		RunID:     run.ID,
		Workflow:  run.Workflow,
	})
	return r.result(run, events, completed), nil
}

// holdAt persists the pause point, then asks the controller to hold the
// run. A detached controller parks the run instead: state is durable, and
// a later Resume re-attaches by run id.
func (r *Runner) holdAt(
	ctx context.Context,
	run *Run,
	name string,
	req breakpoint.Request,
	nextIndex, gateIndex, seq int,
	events *[]types.Event,
) (breakpoint.Resolution, bool, error) {
	now := time.Now().UTC()
	record := state.BreakpointRecord{
		RunID:     run.ID,
		Seq:       seq,
		StepID:    name,
		NextIndex: nextIndex,
		GateIndex: gateIndex,
		Title:     req.Title,
		Question:  req.Question,
		Summary:   req.Context.Summary,
		Artifacts: req.Context.Artifacts,
		Status:    state.BreakpointPending,
		CreatedAt: now,
	}
	if err := r.store.SaveBreakpoint(ctx, record); err != nil {
		return breakpoint.Resolution{}, false, err
	}
	run.Status = types.RunStatusPaused
	if err := r.persistRun(ctx, run, nil, ""); err != nil {
		return breakpoint.Resolution{}, false, err
	}
	r.emit(ctx, events, types.Event{
		Type:      types.EventBreakpointRaised,
		Timestamp: now,
		RunID:     run.ID,
		Workflow:  run.Workflow,
		StepID:    name,
		Message:   req.Question,
	})
	r.emit(ctx, events, types.Event{
		Type:      types.EventRunPaused,
		Timestamp: now,
		RunID:     run.ID,
		Workflow:  run.Workflow,
	})

	res, err := r.controller.Pause(ctx, req)
	if errors.Is(err, breakpoint.ErrDetached) {
		return breakpoint.Resolution{}, true, nil
	}
	if err != nil {
		// The run stays paused and durable; the pause can still be
		// resolved later through the store.
		return breakpoint.Resolution{}, false, err
	}

	status := state.BreakpointResumed
	if res.Kind == breakpoint.KindAbort {
		status = state.BreakpointAborted
	}
	if err := r.store.ResolveBreakpoint(ctx, run.ID, seq, status, res.Note); err != nil && !errors.Is(err, state.ErrConflict) {
		return breakpoint.Resolution{}, false, err
	}
	r.emit(ctx, events, types.Event{
		Type:      types.EventBreakpointResolved,
		Timestamp: time.Now().UTC(),
		RunID:     run.ID,
		Workflow:  run.Workflow,
		StepID:    name,
		Message:   string(res.Kind),
	})

	if res.Kind == breakpoint.KindResume {
		run.Status = types.RunStatusRunning
		if err := r.persistRun(ctx, run, nil, ""); err != nil {
			return breakpoint.Resolution{}, false, err
		}
		r.emit(ctx, events, types.Event{
			Type:      types.EventRunResumed,
			Timestamp: time.Now().UTC(),
			RunID:     run.ID,
			Workflow:  run.Workflow,
		})
	}
	return res, false, nil
}

func (r *Runner) buildRequest(run *Run, bp *BreakpointEntry) breakpoint.Request {
	summary := map[string]any{
		"completedSteps": len(run.trace),
	}
	if len(run.trace) > 0 {
		summary["lastStep"] = run.trace[len(run.trace)-1]
	}
	if bp.Summary != nil {
		for key, value := range bp.Summary(run) {
			summary[key] = value
		}
	}
	return breakpoint.Request{
		Title:    bp.Title,
		Question: bp.Question,
		Context: breakpoint.Context{
			RunID:     run.ID,
			Workflow:  run.Workflow,
			Summary:   summary,
			Artifacts: run.Artifacts(),
		},
	}
}

// terminate ends the run as a data-driven failure (gate or abort): the
// result carries the reason and all partial artifacts, and err is nil
// because nothing in the infrastructure broke.
func (r *Runner) terminate(ctx context.Context, run *Run, reason string, events []types.Event) (types.RunResult, error) {
	completed := time.Now().UTC()
	run.Status = types.RunStatusFailed
	run.Reason = reason
	if err := r.persistRun(ctx, run, &completed, ""); err != nil {
		return r.result(run, events, completed), err
	}
	r.emit(ctx, &events, types.Event{
		Type:      types.EventRunFailed,
		Timestamp: completed,
		RunID:     run.ID,
		Workflow:  run.Workflow,
		Message:   reason,
	})
	return r.result(run, events, completed), nil
}

func (r *Runner) failStep(ctx context.Context, run *Run, stepName string, cause error, events []types.Event) (types.RunResult, error) {
	completed := time.Now().UTC()
	run.Status = types.RunStatusFailed
	run.Reason = fmt.Sprintf("step %q failed", stepName)
	if err := r.persistRun(ctx, run, &completed, cause.Error()); err != nil {
		return r.result(run, events, completed), errors.Join(cause, err)
	}
	events = append(events, types.Event{
		Type:      types.EventStepFailed,
		Timestamp: completed,
		RunID:     run.ID,
		Workflow:  run.Workflow,
		StepID:    stepName,
		Error:     cause.Error(),
	})
	r.emit(ctx, &events, types.Event{
		Type:      types.EventRunFailed,
		Timestamp: completed,
		RunID:     run.ID,
		Workflow:  run.Workflow,
		Message:   run.Reason,
	})
	return r.result(run, events, completed), fmt.Errorf("step %q failed: %w", stepName, cause)
}

func (r *Runner) result(run *Run, events []types.Event, completedAt time.Time) types.RunResult {
	var concerns []string
	if run.Status == types.RunStatusFailed && run.Reason != "" {
		concerns = append(concerns, run.Reason)
	}
	return types.RunResult{
		Success:   run.Status == types.RunStatusSucceeded,
		Status:    run.Status,
		Reason:    run.Reason,
		Concerns:  concerns,
		Artifacts: run.Artifacts(),
		Results:   run.results,
		StepTrace: run.Trace(),
		Metadata: types.Metadata{
			ProcessID:  run.ID,
			Workflow:   run.Workflow,
			Timestamp:  completedAt,
			DurationMs: completedAt.Sub(run.startedAt).Milliseconds(),
		},
		Events: events,
	}
}

func (r *Runner) persistRun(ctx context.Context, run *Run, completedAt *time.Time, errText string) error {
	record := run.record()
	record.Error = errText
	record.CompletedAt = completedAt
	if completedAt != nil {
		record.UpdatedAt = completedAt
	}
	return r.store.SaveRun(ctx, record)
}

func (r *Runner) emit(ctx context.Context, events *[]types.Event, event types.Event) {
	if events != nil {
		*events = append(*events, event)
	}
	if r.observer != nil {
		_ = r.observer.Emit(ctx, observe.FromRuntimeEvent(event))
	}
}

func gateMessage(gate Gate, score float64, found, passed bool) string {
	if !found {
		return fmt.Sprintf("gate %s: score field %q missing", gateName(gate, gate.Step), gate.Path)
	}
	verdict := "passed"
	if !passed {
		verdict = "failed"
	}
	return fmt.Sprintf("gate %s %s: %.1f vs threshold %.1f", gateName(gate, gate.Step), verdict, score, gate.Threshold)
}

func gateName(gate Gate, stepID string) string {
	if gate.Name != "" {
		return gate.Name
	}
	return stepID + "." + gate.Path
}

func abortReason(note string) string {
	reason := ErrAbortedAtBreakpoint.Error()
	if note != "" {
		reason = fmt.Sprintf("%s: %s", reason, note)
	}
	return reason
}
