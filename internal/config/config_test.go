package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/basket/go-claw/internal/workforce"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EventVersion != 1 {
		t.Fatalf("EventVersion = %d, want 1", cfg.EventVersion)
	}
	if cfg.LivenessTimeoutMs != 30_000 {
		t.Fatalf("LivenessTimeoutMs = %d, want 30000", cfg.LivenessTimeoutMs)
	}
	if cfg.FailurePolicy != nil {
		t.Fatalf("FailurePolicy = %+v, want nil", cfg.FailurePolicy)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	body := []byte(`
run_id: run-7
liveness_timeout_ms: 5000
failure_policy:
  mode: retry
  base_ms: 100
  max_backoff_ms: 2000
  jitter_ms: 10
`)
	if err := os.WriteFile(filepath.Join(dir, FileName), body, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RunID != "run-7" {
		t.Fatalf("RunID = %q, want run-7", cfg.RunID)
	}
	if cfg.LivenessTimeoutMs != 5000 {
		t.Fatalf("LivenessTimeoutMs = %d, want 5000", cfg.LivenessTimeoutMs)
	}
	if cfg.FailurePolicy == nil || cfg.FailurePolicy.Mode != workforce.Retry {
		t.Fatalf("FailurePolicy = %+v, want mode retry", cfg.FailurePolicy)
	}
	if cfg.FailurePolicy.BaseMs != 100 || cfg.FailurePolicy.MaxBackoffMs != 2000 || cfg.FailurePolicy.JitterMs != 10 {
		t.Fatalf("FailurePolicy backoff fields = %+v", cfg.FailurePolicy)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WORKFORCE_RUN_ID", "env-run")
	t.Setenv("WORKFORCE_LIVENESS_TIMEOUT_MS", "9999")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RunID != "env-run" {
		t.Fatalf("RunID = %q, want env-run", cfg.RunID)
	}
	if cfg.LivenessTimeoutMs != 9999 {
		t.Fatalf("LivenessTimeoutMs = %d, want 9999", cfg.LivenessTimeoutMs)
	}
}
