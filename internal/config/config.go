// Package config loads the engine's RuntimeConfig defaults from an
// optional sibling YAML file, the same merge-over-defaults shape the
// teacher's config.Load gives its own Config: defaults seeded in code,
// overridden by whatever the file sets, then by environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/basket/go-claw/internal/workforce"
)

// FileName is the conventional sibling config file name, mirroring the
// teacher's ConfigPath(homeDir) convention.
const FileName = "workforce.yaml"

// fileConfig mirrors workforce.RuntimeConfig's JSON shape in YAML so
// operators can hand-edit a scenario-independent defaults file.
type fileConfig struct {
	RunID             string `yaml:"run_id"`
	EventVersion      int    `yaml:"event_version"`
	LivenessTimeoutMs int64  `yaml:"liveness_timeout_ms"`
	FailurePolicy     *struct {
		Mode         string `yaml:"mode"`
		BaseMs       int64  `yaml:"base_ms"`
		MaxBackoffMs int64  `yaml:"max_backoff_ms"`
		JitterMs     int64  `yaml:"jitter_ms"`
	} `yaml:"failure_policy"`
}

// Load reads dir/workforce.yaml if present, merges it over built-in
// defaults, and applies WORKFORCE_* environment overrides. A missing
// file is not an error — the caller gets plain defaults, matching the
// teacher's Load() treating a missing config.yaml as first-run rather
// than a failure.
func Load(dir string) (workforce.RuntimeConfig, error) {
	cfg := workforce.RuntimeConfig{EventVersion: 1, LivenessTimeoutMs: 30_000}

	path := FileName
	if dir != "" {
		path = dir + string(os.PathSeparator) + FileName
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
	} else if len(data) > 0 {
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		applyFileConfig(&cfg, fc)
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyFileConfig(cfg *workforce.RuntimeConfig, fc fileConfig) {
	if fc.RunID != "" {
		cfg.RunID = fc.RunID
	}
	if fc.EventVersion > 0 {
		cfg.EventVersion = fc.EventVersion
	}
	if fc.LivenessTimeoutMs > 0 {
		cfg.LivenessTimeoutMs = fc.LivenessTimeoutMs
	}
	if fc.FailurePolicy != nil {
		cfg.FailurePolicy = &workforce.FailurePolicy{
			Mode:         workforce.FailurePolicyMode(fc.FailurePolicy.Mode),
			BaseMs:       fc.FailurePolicy.BaseMs,
			MaxBackoffMs: fc.FailurePolicy.MaxBackoffMs,
			JitterMs:     fc.FailurePolicy.JitterMs,
		}
	}
}

func applyEnvOverrides(cfg *workforce.RuntimeConfig) {
	if v := os.Getenv("WORKFORCE_RUN_ID"); v != "" {
		cfg.RunID = v
	}
	if v := os.Getenv("WORKFORCE_LIVENESS_TIMEOUT_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.LivenessTimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("WORKFORCE_FAILURE_POLICY_MODE")); v != "" {
		if cfg.FailurePolicy == nil {
			cfg.FailurePolicy = &workforce.FailurePolicy{}
		}
		cfg.FailurePolicy.Mode = workforce.FailurePolicyMode(v)
	}
}
