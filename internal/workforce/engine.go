package workforce

import (
	"sync"
)

// Observer receives best-effort lifecycle notifications for metrics and
// tracing (internal/observability implements this). It never influences
// engine state or its return values — a nil Observer is always valid and
// every call site below treats it as optional.
type Observer interface {
	OnEvent(e Event)
	OnChannelMessage(m ChannelMessage)
	OnFacadeError(op string, code ErrorCode)
}

// Engine is the single mutable entry point described in §4.1. Every
// public method serializes its own mutation under mu so the façade is
// safe to share across goroutines that don't otherwise coordinate,
// matching the teacher's convention of guarding shared maps with a
// leaf-level mutex (e.g. internal/agent.Registry) even though the spec
// only requires the caller to provide that serialization itself.
type Engine struct {
	mu sync.Mutex

	config        RuntimeConfig
	failurePolicy FailurePolicy

	planLoaded bool
	plan       Plan

	tasks   *taskRegistry
	workers *workerRegistry

	events  eventLog
	channel channelLog
	clk     clock

	observer Observer
}

// New constructs an empty engine with no plan and no workers (§4.1).
func New(config RuntimeConfig) (*Engine, error) {
	fp, err := normalizeFailurePolicy(config.FailurePolicy)
	if err != nil {
		return nil, err
	}
	if config.EventVersion == 0 {
		config.EventVersion = 1
	}
	if config.LivenessTimeoutMs <= 0 {
		config.LivenessTimeoutMs = 30_000
	}
	return &Engine{
		config:        config,
		failurePolicy: fp,
		workers:       newWorkerRegistry(),
	}, nil
}

// SetObserver attaches (or clears, with nil) the engine's telemetry hook.
func (e *Engine) SetObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = o
}

func (e *Engine) emitEvent(now int64, kind EventKind, taskID, workerID string, payload interface{}) Event {
	ev := Event{
		Seq:         e.clk.nextEventSeq(),
		Kind:        kind,
		TimestampMs: now,
		TaskID:      taskID,
		WorkerID:    workerID,
		Payload:     payload,
	}
	e.events.append(ev)
	if e.observer != nil {
		e.observer.OnEvent(ev)
	}
	return ev
}

func (e *Engine) emitChannel(now int64, direction ChannelDirection, workerID, taskID string, kind ChannelKind, payload interface{}) ChannelMessage {
	_ = now
	m := ChannelMessage{
		Seq:       e.clk.nextChannelSeq(),
		Direction: direction,
		WorkerID:  workerID,
		TaskID:    taskID,
		Kind:      kind,
		Payload:   payload,
	}
	e.channel.append(m)
	if e.observer != nil {
		e.observer.OnChannelMessage(m)
	}
	return m
}

func (e *Engine) fail(op string, err *Error) *Error {
	if e.observer != nil {
		e.observer.OnFacadeError(op, err.Code)
	}
	return err
}

// LoadPlan installs the plan, marks dependency-free tasks Ready, and
// emits plan_loaded followed by one task_ready per such task in plan
// order (§4.1).
func (e *Engine) LoadPlan(plan Plan) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.planLoaded {
		return e.fail("load_plan", newErr(ErrPlanAlreadyLoaded, "a plan is already loaded"))
	}
	dependents, err := validatePlan(plan)
	if err != nil {
		return e.fail("load_plan", err.(*Error))
	}

	e.plan = plan
	e.tasks = newTaskRegistry(plan, dependents)
	e.planLoaded = true

	now := e.clk.advance(nil)
	e.emitEvent(now, EventPlanLoaded, "", "", map[string]int{"taskCount": len(plan.Tasks)})

	for _, id := range e.tasks.order {
		entry := e.tasks.entries[id]
		if entry.depCount == 0 {
			entry.task.State = TaskReady
			e.emitEvent(now, EventTaskReady, id, "", nil)
		}
	}
	return nil
}

// RegisterWorkers inserts each worker with initial state Ready, emitting
// worker_registered in input order (§4.1).
func (e *Engine) RegisterWorkers(regs []WorkerRegistration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range regs {
		if _, exists := e.workers.get(r.ID); exists {
			return e.fail("register_workers", newErr(ErrDuplicateWorkerID, "duplicate worker id %q", r.ID))
		}
	}
	now := e.clk.advance(nil)
	for _, r := range regs {
		e.workers.add(r)
		w, _ := e.workers.get(r.ID)
		w.worker.LastHeartbeatMs = now
		e.emitEvent(now, EventWorkerRegistered, "", r.ID, map[string]interface{}{
			"capabilities":  r.Capabilities,
			"maxConcurrent": r.MaxConcurrent,
		})
	}
	return nil
}

// GetSnapshot returns a value copy of plan, task states, worker states,
// and configuration (§4.1).
func (e *Engine) GetSnapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		Config:     e.config,
		NowMs:      e.clk.lastMs,
		EventSeq:   e.clk.eventSeq,
		ChannelSeq: e.clk.channelSeq,
	}
	if e.tasks != nil {
		snap.Plan = Plan{Tasks: append([]TaskSpec(nil), e.plan.Tasks...)}
		snap.Tasks = e.tasks.snapshot()
	}
	snap.Workers = e.workers.snapshot()
	return snap
}

// DrainEvents returns events with sequence > sinceSeq, truncated to
// limit. The name is historical (§4.1): it never removes entries.
func (e *Engine) DrainEvents(sinceSeq uint64, limit int) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.events.since(sinceSeq, limit)
}

// ListChannelMessages returns channel entries with sequence > sinceSeq,
// truncated to limit.
func (e *Engine) ListChannelMessages(sinceSeq uint64, limit int) []ChannelMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channel.since(sinceSeq, limit)
}
