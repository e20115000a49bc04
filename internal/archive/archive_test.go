package archive_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/basket/go-claw/internal/archive"
	"github.com/basket/go-claw/internal/workforce"
)

func openTestStore(t *testing.T) *archive.Store {
	t.Helper()
	dir := t.TempDir()
	store, err := archive.Open(filepath.Join(dir, "run.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_CreatesSchemaAndIsReopenable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.db")

	store, err := archive.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := archive.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
}

func TestWriteRun_PersistsSnapshotEventsAndChannel(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	snap := workforce.Snapshot{
		Config:     workforce.RuntimeConfig{RunID: "run-1"},
		Tasks:      map[string]workforce.Task{},
		NowMs:      1000,
		EventSeq:   2,
		ChannelSeq: 1,
	}
	events := []workforce.Event{
		{Seq: 0, Kind: workforce.EventPlanLoaded, TimestampMs: 0},
		{Seq: 1, Kind: workforce.EventTaskAssigned, TimestampMs: 500, TaskID: "t1", WorkerID: "w1"},
	}
	channel := []workforce.ChannelMessage{
		{Seq: 0, Direction: workforce.ToWorker, WorkerID: "w1", TaskID: "t1", Kind: workforce.ChannelAssign},
	}

	if err := store.WriteRun(ctx, snap, events, channel); err != nil {
		t.Fatalf("write run: %v", err)
	}
}

func TestWriteRun_MultipleRunsGetDistinctRows(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	snap := workforce.Snapshot{
		Config: workforce.RuntimeConfig{RunID: "run-a"},
		Tasks:  map[string]workforce.Task{},
	}
	if err := store.WriteRun(ctx, snap, nil, nil); err != nil {
		t.Fatalf("write run a: %v", err)
	}
	snap.Config.RunID = "run-b"
	if err := store.WriteRun(ctx, snap, nil, nil); err != nil {
		t.Fatalf("write run b: %v", err)
	}
}
