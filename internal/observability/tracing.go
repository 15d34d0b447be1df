package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is a no-op until a tracer provider is installed with otel.SetTracerProvider.
var Tracer = otel.Tracer("movementmemory")

// EndSpan marks the span failed when err is non-nil, then ends it.
//
//	ctx, span := observability.Tracer.Start(ctx, "engine.recompute")
//	defer func() { observability.EndSpan(span, err) }()
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	span.End()
}
