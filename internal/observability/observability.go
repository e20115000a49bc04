// Package observability wires the workforce engine's best-effort
// lifecycle notifications into OpenTelemetry, following the counter and
// no-op-when-disabled conventions of internal/otel.
package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	wfotel "github.com/basket/go-claw/internal/otel"
	"github.com/basket/go-claw/internal/workforce"
)

// Metrics holds the counters this package reports.
type Metrics struct {
	AssignmentsTotal  metric.Int64Counter
	TaskFailuresTotal metric.Int64Counter
	TaskExpiredTotal  metric.Int64Counter
	WorkerLostTotal   metric.Int64Counter
	FacadeErrorsTotal metric.Int64Counter
}

// NewMetrics creates every counter instrument this package reports from
// the given meter, the same incremental-error-checking shape as
// otel.NewMetrics.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.AssignmentsTotal, err = meter.Int64Counter("workforce.assignments_total",
		metric.WithDescription("Task assignments produced by schedule"),
	)
	if err != nil {
		return nil, err
	}
	m.TaskFailuresTotal, err = meter.Int64Counter("workforce.task_failures_total",
		metric.WithDescription("Tasks that reached the Failed terminal state"),
	)
	if err != nil {
		return nil, err
	}
	m.TaskExpiredTotal, err = meter.Int64Counter("workforce.task_expired_total",
		metric.WithDescription("Tasks that reached the Expired terminal state"),
	)
	if err != nil {
		return nil, err
	}
	m.WorkerLostTotal, err = meter.Int64Counter("workforce.worker_lost_total",
		metric.WithDescription("Workers marked Lost by schedule"),
	)
	if err != nil {
		return nil, err
	}
	m.FacadeErrorsTotal, err = meter.Int64Counter("workforce.facade_errors_total",
		metric.WithDescription("Façade calls that returned an error"),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Recorder implements workforce.Observer. It never blocks the engine's
// single-threaded mutation path: every call here is synchronous counter
// math plus an immediately-ended span, with no I/O beyond what the OTel
// SDK itself batches.
type Recorder struct {
	tracer  trace.Tracer
	metrics *Metrics
}

var _ workforce.Observer = (*Recorder)(nil)

// New builds a Recorder from an initialized OTel provider. Pass a
// disabled provider (otel.Init with Config.Enabled=false) to get a
// Recorder that still satisfies the interface but costs nothing.
func New(provider *wfotel.Provider) (*Recorder, error) {
	metrics, err := NewMetrics(provider.Meter)
	if err != nil {
		return nil, err
	}
	return &Recorder{tracer: provider.Tracer, metrics: metrics}, nil
}

func (r *Recorder) OnEvent(e workforce.Event) {
	ctx := context.Background()
	_, span := wfotel.StartSpan(ctx, r.tracer, "workforce."+string(e.Kind),
		wfotel.AttrTaskID.String(e.TaskID),
		wfotel.AttrWorkerID.String(e.WorkerID),
		wfotel.AttrEventSeq.Int64(int64(e.Seq)),
	)
	defer span.End()

	switch e.Kind {
	case workforce.EventTaskAssigned:
		r.metrics.AssignmentsTotal.Add(ctx, 1)
	case workforce.EventTaskFailed:
		r.metrics.TaskFailuresTotal.Add(ctx, 1)
	case workforce.EventTaskExpired:
		r.metrics.TaskExpiredTotal.Add(ctx, 1)
	case workforce.EventWorkerLost:
		r.metrics.WorkerLostTotal.Add(ctx, 1)
	}
}

func (r *Recorder) OnChannelMessage(m workforce.ChannelMessage) {
	ctx := context.Background()
	_, span := wfotel.StartSpan(ctx, r.tracer, "workforce.channel."+string(m.Kind),
		wfotel.AttrTaskID.String(m.TaskID),
		wfotel.AttrWorkerID.String(m.WorkerID),
	)
	span.End()
}

func (r *Recorder) OnFacadeError(op string, code workforce.ErrorCode) {
	ctx := context.Background()
	r.metrics.FacadeErrorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("workforce.op", op),
		attribute.String("workforce.error_code", string(code)),
	))
}
