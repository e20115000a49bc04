package telemetry

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLogger_EmitsStructuredSchema(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug", "", false)

	logger.Info("startup phase", "phase", "plan_loaded", "task_id", "task-1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		t.Fatalf("expected at least one log line")
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("unmarshal log json: %v", err)
	}

	required := []string{"timestamp", "level", "msg", "component", "trace_id"}
	for _, key := range required {
		if _, ok := entry[key]; !ok {
			t.Fatalf("missing required key %q in log entry: %#v", key, entry)
		}
	}
	if entry["component"] != "workforce" {
		t.Fatalf("expected component=workforce, got %#v", entry["component"])
	}
	if entry["trace_id"] != "-" {
		t.Fatalf("expected trace_id='-' when none is supplied, got %#v", entry["trace_id"])
	}
	if entry["task_id"] != "task-1" {
		t.Fatalf("expected task_id propagation, got %#v", entry["task_id"])
	}
}

func TestNewLogger_PropagatesSuppliedTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info", "run-42", false)
	logger.Info("scheduled")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("unmarshal log: %v", err)
	}
	if entry["trace_id"] != "run-42" {
		t.Fatalf("trace_id = %#v, want run-42", entry["trace_id"])
	}
}

func TestNewLogger_RedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info", "", false)

	logger.Info("security check",
		"api_key", "abc123",
		"auth_header", "Authorization: Bearer super-secret-token",
	)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) == 0 {
		t.Fatalf("expected log line")
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("unmarshal log: %v", err)
	}
	if entry["api_key"] != "[REDACTED]" {
		t.Fatalf("expected api_key redaction, got %#v", entry["api_key"])
	}
	if entry["auth_header"] != "[REDACTED]" {
		t.Fatalf("expected auth_header redaction, got %#v", entry["auth_header"])
	}
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "", false)
	logger.Info("should be suppressed")
	logger.Warn("should appear")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected exactly one log line at warn level, got %d: %v", len(lines), lines)
	}
}

func TestNewLogger_PrettyIsNotJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info", "", true)
	logger.Info("scheduled")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err == nil {
		t.Fatalf("pretty handler produced valid JSON, want plain text")
	}
	if !strings.Contains(buf.String(), "component=workforce") {
		t.Fatalf("pretty output missing component attribute: %q", buf.String())
	}
}
