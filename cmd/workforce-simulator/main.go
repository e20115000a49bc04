// Command workforce-simulator drives a workforce.Engine from a scenario
// document: a plan, a worker list, and an ordered list of schedule /
// result / cancel actions. It prints each schedule action's assignments
// as it runs, then a final JSON object with the snapshot, events, and
// channel log.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/basket/go-claw/internal/archive"
	wfconfig "github.com/basket/go-claw/internal/config"
	"github.com/basket/go-claw/internal/observability"
	"github.com/basket/go-claw/internal/otel"
	"github.com/basket/go-claw/internal/shared"
	"github.com/basket/go-claw/internal/telemetry"
	"github.com/basket/go-claw/internal/workforce"
)

// Version is set via ldflags at build time: -ldflags "-X main.Version=...".
var Version = "v0.1-dev"

// scenario is the document this CLI consumes: config/plan/workers/actions,
// matching the shape confirmed by the original Rust simulator.
type scenario struct {
	Config  *workforce.RuntimeConfig  `json:"config"`
	Plan    workforce.Plan            `json:"plan"`
	Workers []workforce.WorkerRegistration `json:"workers"`
	Actions []scenarioAction          `json:"actions"`
}

type scenarioAction struct {
	Type   string                    `json:"type"`
	NowMs  *int64                    `json:"nowMs,omitempty"`
	Result *workforce.ResultEnvelope `json:"result,omitempty"`
	TaskID string                    `json:"taskId,omitempty"`
	Reason string                    `json:"reason,omitempty"`
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [flags] <scenario.json>

Runs a workforce scheduling scenario and prints the resulting
assignments, snapshot, event log, and channel log as JSON.

Flags:
`, os.Args[0])
	flag.PrintDefaults()
}

func main() {
	archivePath := flag.String("archive", "", "optional SQLite path to archive the finished run")
	configDir := flag.String("config-dir", "", "directory to look for a sibling workforce.yaml in")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	otelEnabled := flag.Bool("otel", false, "enable OpenTelemetry spans/metrics")
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() != 1 {
		printUsage()
		os.Exit(2)
	}

	traceID := shared.NewTraceID()
	pretty := isatty.IsTerminal(os.Stderr.Fd())
	logger := telemetry.NewLogger(os.Stderr, *logLevel, traceID, pretty)

	if err := run(flag.Arg(0), *archivePath, *configDir, *otelEnabled, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(path, archivePath, configDir string, otelEnabled bool, logger *slog.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read scenario: %w", err)
	}
	if err := workforce.ValidateScenario(raw); err != nil {
		return fmt.Errorf("invalid scenario: %w", err)
	}

	var sc scenario
	if err := json.Unmarshal(raw, &sc); err != nil {
		return fmt.Errorf("parse scenario: %w", err)
	}

	cfg := sc.Config
	if cfg == nil {
		fileCfg, err := wfconfig.Load(configDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = &fileCfg
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}

	engine, err := workforce.New(*cfg)
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}

	ctx := context.Background()
	provider, err := otel.Init(ctx, otel.Config{Enabled: otelEnabled, ServiceName: "workforce-simulator"})
	if err != nil {
		return fmt.Errorf("init otel: %w", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()
	recorder, err := observability.New(provider)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}
	engine.SetObserver(recorder)

	if err := engine.LoadPlan(sc.Plan); err != nil {
		return fmt.Errorf("load plan: %w", err)
	}
	logger.Info("plan loaded", "run_id", cfg.RunID, "task_count", len(sc.Plan.Tasks))

	if err := engine.RegisterWorkers(sc.Workers); err != nil {
		return fmt.Errorf("register workers: %w", err)
	}
	logger.Info("workers registered", "worker_count", len(sc.Workers))

	out := json.NewEncoder(os.Stdout)
	for i, action := range sc.Actions {
		logger.Debug("applying action", "index", i, "type", action.Type)
		if err := applyAction(engine, action, out); err != nil {
			return fmt.Errorf("action %d (%s): %w", i, action.Type, err)
		}
	}

	snapshot := engine.GetSnapshot()
	events := engine.DrainEvents(0, 0)
	channel := engine.ListChannelMessages(0, 0)

	if archivePath != "" {
		store, err := archive.Open(archivePath)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer func() { _ = store.Close() }()
		if err := store.WriteRun(ctx, snapshot, events, channel); err != nil {
			return fmt.Errorf("write archive: %w", err)
		}
	}

	pretty := json.NewEncoder(os.Stdout)
	pretty.SetIndent("", "  ")
	return pretty.Encode(map[string]interface{}{
		"snapshot": snapshot,
		"events":   events,
		"channel":  channel,
	})
}

func applyAction(engine *workforce.Engine, action scenarioAction, out *json.Encoder) error {
	switch action.Type {
	case "schedule":
		assignments := engine.Schedule(action.NowMs)
		if len(assignments) > 0 {
			return out.Encode(assignments)
		}
		return nil
	case "result":
		if action.Result == nil {
			return fmt.Errorf("result action missing result envelope")
		}
		return engine.SubmitResult(*action.Result, action.NowMs)
	case "cancel":
		return engine.CancelTask(action.TaskID, action.Reason)
	default:
		return fmt.Errorf("unknown action type %q", action.Type)
	}
}
