// Package otel bridges the observe.Sink to OpenTelemetry tracing.
//
// It converts observe.Event objects into OTel spans so process runs,
// steps, gates, and breakpoints are visible in any OpenTelemetry-compatible
// backend (Jaeger, Zipkin, Grafana, etc.).
package otel

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/prodflowhq/prodflow/observe"
)

const instrumentationName = "github.com/prodflowhq/prodflow"

// Sink implements observe.Sink by emitting OpenTelemetry spans.
type Sink struct {
	tracer trace.Tracer
}

// NewSink creates an OTel sink using the given TracerProvider.
// If tp is nil, it uses a noop tracer provider.
func NewSink(tp trace.TracerProvider) *Sink {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &Sink{
		tracer: tp.Tracer(instrumentationName),
	}
}

// Emit converts an observe.Event into an OTel span.
func (s *Sink) Emit(_ context.Context, event observe.Event) error {
	event.Normalize()

	startTime := event.Timestamp
	_, span := s.tracer.Start(context.Background(), spanNameFor(event), trace.WithTimestamp(startTime))

	attrs := []attribute.KeyValue{
		attribute.String("process.event.kind", string(event.Kind)),
	}
	if event.RunID != "" {
		attrs = append(attrs, attribute.String("process.run.id", event.RunID))
	}
	if event.Workflow != "" {
		attrs = append(attrs, attribute.String("process.workflow", event.Workflow))
	}
	if event.Agent != "" {
		attrs = append(attrs, attribute.String("process.agent", event.Agent))
	}
	if event.Name != "" {
		attrs = append(attrs, attribute.String("process.event.name", event.Name))
	}
	if event.Status != "" {
		attrs = append(attrs, attribute.String("process.status", string(event.Status)))
	}
	if event.Message != "" {
		attrs = append(attrs, attribute.String("process.message", truncate(event.Message, 1024)))
	}
	if event.DurationMs > 0 {
		attrs = append(attrs, attribute.Int64("process.duration_ms", event.DurationMs))
	}
	for k, v := range event.Attributes {
		attrs = append(attrs, attribute.String("process.attr."+k, fmt.Sprintf("%v", v)))
	}
	span.SetAttributes(attrs...)

	if event.Status == observe.StatusFailed {
		span.SetStatus(codes.Error, event.Error)
		if event.Error != "" {
			span.RecordError(fmt.Errorf("%s", event.Error))
		}
	} else if event.Status == observe.StatusCompleted {
		span.SetStatus(codes.Ok, "")
	}

	endTime := startTime
	if event.DurationMs > 0 {
		endTime = startTime.Add(time.Duration(event.DurationMs) * time.Millisecond)
	}
	span.End(trace.WithTimestamp(endTime))
	return nil
}

func spanNameFor(event observe.Event) string {
	switch event.Kind {
	case observe.KindRun:
		return "process.run"
	case observe.KindStep:
		if event.Name != "" {
			return "process.step." + event.Name
		}
		return "process.step"
	case observe.KindGate:
		if event.Name != "" {
			return "process.gate." + event.Name
		}
		return "process.gate"
	case observe.KindBreakpoint:
		return "process.breakpoint"
	default:
		if event.Name != "" {
			return "process." + event.Name
		}
		return "process.event"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
