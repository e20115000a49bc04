package observability_test

import (
	"context"
	"testing"

	"github.com/basket/go-claw/internal/observability"
	"github.com/basket/go-claw/internal/otel"
	"github.com/basket/go-claw/internal/workforce"
)

func newTestRecorder(t *testing.T) *observability.Recorder {
	t.Helper()
	provider, err := otel.Init(context.Background(), otel.Config{Enabled: true, Exporter: "none"})
	if err != nil {
		t.Fatalf("init otel: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	r, err := observability.New(provider)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	return r
}

func TestRecorder_OnEventDoesNotPanic(t *testing.T) {
	r := newTestRecorder(t)

	r.OnEvent(workforce.Event{Seq: 1, Kind: workforce.EventTaskAssigned, TaskID: "t1", WorkerID: "w1"})
	r.OnEvent(workforce.Event{Seq: 2, Kind: workforce.EventTaskFailed, TaskID: "t1"})
	r.OnEvent(workforce.Event{Seq: 3, Kind: workforce.EventTaskExpired, TaskID: "t1"})
	r.OnEvent(workforce.Event{Seq: 4, Kind: workforce.EventWorkerLost, WorkerID: "w1"})
	r.OnEvent(workforce.Event{Seq: 5, Kind: workforce.EventPlanLoaded})
}

func TestRecorder_OnChannelMessageDoesNotPanic(t *testing.T) {
	r := newTestRecorder(t)
	r.OnChannelMessage(workforce.ChannelMessage{Seq: 1, Direction: workforce.ToWorker, WorkerID: "w1", TaskID: "t1", Kind: workforce.ChannelAssign})
}

func TestRecorder_OnFacadeErrorDoesNotPanic(t *testing.T) {
	r := newTestRecorder(t)
	r.OnFacadeError("ScheduleTask", workforce.ErrUnknownTask)
}

func TestRecorder_DisabledProviderIsSafe(t *testing.T) {
	provider, err := otel.Init(context.Background(), otel.Config{Enabled: false})
	if err != nil {
		t.Fatalf("init disabled otel: %v", err)
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	r, err := observability.New(provider)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	r.OnEvent(workforce.Event{Seq: 1, Kind: workforce.EventTaskAssigned})
}
