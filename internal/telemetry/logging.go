// Package telemetry builds the structured logger the workforce simulator
// CLI threads through the engine façade: JSON output, a stable
// component/trace_id prefix, and the same secret-redaction hook the
// teacher applies to any attacker-reachable field before it reaches a
// log line.
package telemetry

import (
	"io"
	"log/slog"
	"strings"

	"github.com/basket/go-claw/internal/shared"
)

// NewLogger builds a slog.Logger writing to w (the CLI passes
// os.Stderr, since stdout carries the scenario's JSON result stream).
// traceID tags every line so log output from one simulator run can be
// correlated even when several runs are aggregated downstream. pretty
// selects a human-readable text handler for an interactive terminal
// (the CLI decides this from isatty); a non-interactive writer (a file,
// a pipe) always gets JSON lines instead.
func NewLogger(w io.Writer, level, traceID string, pretty bool) *slog.Logger {
	if traceID == "" {
		traceID = "-"
	}
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "timestamp"
			}
			if shouldRedactKey(a.Key) {
				return slog.String(a.Key, "[REDACTED]")
			}
			if a.Value.Kind() == slog.KindString {
				if redacted, ok := redactStringValue(a.Value.String()); ok {
					return slog.String(a.Key, redacted)
				}
			}
			return a
		},
	}
	var handler slog.Handler
	if pretty {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With("component", "workforce", "trace_id", traceID)
}

func shouldRedactKey(key string) bool {
	lower := strings.ToLower(strings.TrimSpace(key))
	if lower == "" {
		return false
	}
	sensitiveTokens := []string{"token", "secret", "password", "authorization", "api_key", "apikey", "bearer"}
	for _, token := range sensitiveTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func redactStringValue(v string) (string, bool) {
	lower := strings.ToLower(v)
	if strings.Contains(lower, "bearer ") {
		return "[REDACTED]", true
	}
	if strings.Contains(lower, "api_key") || strings.Contains(lower, "authorization:") {
		return "[REDACTED]", true
	}
	redacted := shared.Redact(v)
	if redacted != v {
		return redacted, true
	}
	return v, false
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
