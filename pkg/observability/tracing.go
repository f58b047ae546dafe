package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name of the tracer for matching runs.
	TracerName = "tlr"
)

// Span attribute keys
const (
	AttrRunID      = "run_id"
	AttrStage      = "stage"
	AttrEntities   = "entities"
	AttrCandidates = "candidates"
	AttrRelations  = "relations"
	AttrLinks      = "links"
)

// SpanRun is the root span of one run.
const SpanRun = "tlr.run"

// Tracer provides tracing for matching runs.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer from the global provider.
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(TracerName)}
}

// NewTracerFromProvider creates a tracer from tp.
func NewTracerFromProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(TracerName)}
}

// StartRunSpan starts the root span of a run.
func (t *Tracer) StartRunSpan(ctx context.Context, runID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanRun,
		trace.WithAttributes(attribute.String(AttrRunID, runID)),
	)
}

// StartStageSpan starts a span for a stage with its input sizes.
func (t *Tracer) StartStageSpan(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{attribute.String(AttrStage, stage)}, attrs...)
	return t.tracer.Start(ctx, fmt.Sprintf("tlr.stage.%s", stage), trace.WithAttributes(attrs...))
}

// EndSpan records the link count and outcome on span and ends it.
func EndSpan(span trace.Span, links int, err error) {
	span.SetAttributes(attribute.Int(AttrLinks, links))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
