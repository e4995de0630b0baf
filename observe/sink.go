package observe

import (
	"context"
	"errors"
	"sync"
)

// Sink receives the runtime events the runner and step executor emit. A
// sink must tolerate events arriving after the run they describe has
// already finished.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(ctx context.Context, event Event) error

func (f SinkFunc) Emit(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type NoopSink struct{}

func (NoopSink) Emit(ctx context.Context, event Event) error {
	_ = ctx
	_ = event
	return nil
}

// MultiSink fans each event out to every downstream sink. A failing sink
// does not starve the ones after it; the errors are joined.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) Sink {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s == nil {
			continue
		}
		kept = append(kept, s)
	}
	switch len(kept) {
	case 0:
		return NoopSink{}
	case 1:
		return kept[0]
	default:
		return &MultiSink{sinks: kept}
	}
}

func (m *MultiSink) Emit(ctx context.Context, event Event) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AsyncSink decouples event delivery from the runner hot path: Emit only
// enqueues, a single goroutine forwards. When the buffer is full the event
// is dropped rather than blocking a run.
type AsyncSink struct {
	downstream Sink
	queue      chan Event
	drained    chan struct{}

	mu     sync.Mutex
	closed bool
}

func NewAsyncSink(downstream Sink, buffer int) *AsyncSink {
	if downstream == nil {
		downstream = NoopSink{}
	}
	if buffer <= 0 {
		buffer = 256
	}
	s := &AsyncSink{
		downstream: downstream,
		queue:      make(chan Event, buffer),
		drained:    make(chan struct{}),
	}
	go s.forward()
	return s
}

func (s *AsyncSink) Emit(ctx context.Context, event Event) error {
	if s == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	event.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	select {
	case s.queue <- event:
	default:
		// Full buffer: drop instead of stalling the run.
	}
	return nil
}

// Close stops accepting events and blocks until the queue is drained.
func (s *AsyncSink) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.drained
}

func (s *AsyncSink) forward() {
	for event := range s.queue {
		_ = s.downstream.Emit(context.Background(), event)
	}
	close(s.drained)
}
