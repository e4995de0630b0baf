package observe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recorder collects every emitted event behind a lock so async sinks can
// write from their own goroutine.
type recorder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recorder) Emit(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestMultiSinkFansOutPastFailures(t *testing.T) {
	boom := errors.New("boom")
	first := &recorder{err: boom}
	second := &recorder{}
	sink := NewMultiSink(first, second)

	err := sink.Emit(context.Background(), Event{Kind: KindRun, Status: StatusStarted, RunID: "run-1"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the downstream failure surfaced, got %v", err)
	}
	if first.len() != 1 || second.len() != 1 {
		t.Fatalf("every sink must see the event: %d / %d", first.len(), second.len())
	}
}

func TestMultiSinkCollapsesDegenerateCases(t *testing.T) {
	if _, ok := NewMultiSink().(NoopSink); !ok {
		t.Fatal("no sinks must collapse to a noop")
	}
	only := &recorder{}
	if NewMultiSink(nil, only) != Sink(only) {
		t.Fatal("a single sink must be returned unwrapped")
	}
}

func TestAsyncSinkDeliversAndDrainsOnClose(t *testing.T) {
	downstream := &recorder{}
	sink := NewAsyncSink(downstream, 8)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := sink.Emit(ctx, Event{Kind: KindStep, Status: StatusCompleted, RunID: "run-1"}); err != nil {
			t.Fatalf("Emit: %v", err)
		}
	}
	sink.Close()

	if downstream.len() != 3 {
		t.Fatalf("expected 3 events after close, got %d", downstream.len())
	}
	if err := sink.Emit(ctx, Event{Kind: KindRun}); err != nil {
		t.Fatalf("Emit after close must be a no-op, got %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if downstream.len() != 3 {
		t.Fatalf("event accepted after close")
	}
}
