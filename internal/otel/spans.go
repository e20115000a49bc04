package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Standard attribute keys for workforce engine spans.
var (
	AttrTaskID    = attribute.Key("workforce.task.id")
	AttrWorkerID  = attribute.Key("workforce.worker.id")
	AttrRunID     = attribute.Key("workforce.run.id")
	AttrEventKind = attribute.Key("workforce.event.kind")
	AttrEventSeq  = attribute.Key("workforce.event.seq")
)

// StartSpan is a convenience wrapper that starts an internal span with
// common attributes. The engine has no worker transport of its own, so
// every span this package produces is internal: there is no server/client
// split to model.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}
