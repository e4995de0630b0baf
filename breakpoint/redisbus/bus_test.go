package redisbus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/prodflowhq/prodflow/breakpoint"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis bus tests")
	}
	bus, err := New(addr, WithPrefix("prodflow-test:"+uuid.NewString()))
	if err != nil {
		t.Fatalf("failed to create bus: %v", err)
	}
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestPauseResolveRoundTrip(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runID := uuid.NewString()
	req := breakpoint.Request{
		Title:    "Roadmap sanity check",
		Question: "Does Q3 capacity look right?",
		Context:  breakpoint.Context{RunID: runID, Workflow: "roadmap"},
	}

	got := make(chan breakpoint.Resolution, 1)
	errs := make(chan error, 1)
	go func() {
		res, err := bus.Pause(ctx, req)
		if err != nil {
			errs <- err
			return
		}
		got <- res
	}()

	// The request must become visible to the operator surface first.
	deadline := time.After(5 * time.Second)
	for {
		requests, err := bus.Requests(ctx, 10)
		if err != nil {
			t.Fatalf("Requests failed: %v", err)
		}
		if len(requests) > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("request never published")
		case <-time.After(50 * time.Millisecond):
		}
	}

	if err := bus.Resolve(ctx, runID, breakpoint.Resolution{Kind: breakpoint.KindResume, Note: "approved"}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	select {
	case err := <-errs:
		t.Fatalf("Pause failed: %v", err)
	case res := <-got:
		if res.Kind != breakpoint.KindResume || res.Note != "approved" {
			t.Fatalf("unexpected resolution: %#v", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("resolution never delivered")
	}
}

func TestPauseAborts(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runID := uuid.NewString()
	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = bus.Resolve(ctx, runID, breakpoint.Resolution{Kind: breakpoint.KindAbort, Note: "stale inputs"})
	}()

	res, err := bus.Pause(ctx, breakpoint.Request{Context: breakpoint.Context{RunID: runID}})
	if err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if res.Kind != breakpoint.KindAbort {
		t.Fatalf("expected abort, got %#v", res)
	}
}
