// Package archive persists a finished workforce run to SQLite. It is a
// caller, never the engine: the engine itself owns no persistence (its
// Non-goals explicitly leave snapshot storage to whoever calls
// get_snapshot/drain_events/list_channel_messages), and this package is
// wired only from the CLI's --archive flag. It follows the teacher's
// persistence.Store schema-versioned migration style, trimmed to the
// handful of tables a finished run needs.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/basket/go-claw/internal/workforce"
)

const (
	schemaVersion  = 1
	schemaChecksum = "workforce-archive-v1"
)

// Store is a single archive SQLite file.
type Store struct {
	db *sql.DB
}

// Open creates (or reuses) a SQLite file at path and ensures its schema
// is current.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			checksum TEXT NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var maxVersion int
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&maxVersion); err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}
	if maxVersion > schemaVersion {
		return fmt.Errorf("archive schema version %d is newer than supported %d", maxVersion, schemaVersion)
	}
	if maxVersion == schemaVersion {
		var checksum string
		if err := s.db.QueryRowContext(ctx, `SELECT checksum FROM schema_migrations WHERE version = ?;`, schemaVersion).Scan(&checksum); err != nil {
			return fmt.Errorf("read schema checksum: %w", err)
		}
		if checksum != schemaChecksum {
			return fmt.Errorf("archive schema checksum mismatch: got %q want %q", checksum, schemaChecksum)
		}
		return nil
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			now_ms INTEGER NOT NULL,
			event_seq INTEGER NOT NULL,
			channel_seq INTEGER NOT NULL,
			snapshot_json TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS run_events (
			run_row_id TEXT NOT NULL REFERENCES runs(id),
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			timestamp_ms INTEGER NOT NULL,
			task_id TEXT,
			worker_id TEXT,
			payload_json TEXT,
			PRIMARY KEY (run_row_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS run_channel_messages (
			run_row_id TEXT NOT NULL REFERENCES runs(id),
			seq INTEGER NOT NULL,
			direction TEXT NOT NULL,
			worker_id TEXT NOT NULL,
			task_id TEXT,
			kind TEXT NOT NULL,
			payload_json TEXT,
			PRIMARY KEY (run_row_id, seq)
		);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec archive migration: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version, checksum) VALUES (?, ?);`, schemaVersion, schemaChecksum); err != nil {
		return fmt.Errorf("insert schema migration: %w", err)
	}
	return nil
}

// WriteRun persists one finished run's snapshot, events, and channel
// messages under a fresh archive row id.
func (s *Store) WriteRun(ctx context.Context, snap workforce.Snapshot, events []workforce.Event, channel []workforce.ChannelMessage) error {
	rowID := uuid.NewString()

	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, run_id, now_ms, event_seq, channel_seq, snapshot_json)
		VALUES (?, ?, ?, ?, ?, ?);
	`, rowID, snap.Config.RunID, snap.NowMs, snap.EventSeq, snap.ChannelSeq, string(snapJSON)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, e := range events {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_events (run_row_id, seq, kind, timestamp_ms, task_id, worker_id, payload_json)
			VALUES (?, ?, ?, ?, ?, ?, ?);
		`, rowID, e.Seq, string(e.Kind), e.TimestampMs, e.TaskID, e.WorkerID, string(payload)); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	for _, m := range channel {
		payload, err := json.Marshal(m.Payload)
		if err != nil {
			return fmt.Errorf("marshal channel payload: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_channel_messages (run_row_id, seq, direction, worker_id, task_id, kind, payload_json)
			VALUES (?, ?, ?, ?, ?, ?, ?);
		`, rowID, m.Seq, string(m.Direction), m.WorkerID, m.TaskID, string(m.Kind), string(payload)); err != nil {
			return fmt.Errorf("insert channel message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}
	return nil
}
