// Package workforce implements the deterministic task/worker scheduling
// engine: a single mutable façade that matches a declared plan of tasks
// against a pool of registered workers, tracks task lifecycle, applies a
// configurable failure policy, and emits an ordered audit stream of
// events. The engine never reads a system clock and never starts a
// background goroutine; every effect is driven by an explicit call.
package workforce

import "encoding/json"

// TaskState is a task's position in its lifecycle state machine.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskReady     TaskState = "ready"
	TaskAssigned  TaskState = "assigned"
	TaskRunning   TaskState = "running"
	TaskBackoff   TaskState = "backoff"
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
	TaskCancelled TaskState = "cancelled"
	TaskExpired   TaskState = "expired"
)

// Terminal reports whether a state never transitions again.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskSucceeded, TaskFailed, TaskCancelled, TaskExpired:
		return true
	}
	return false
}

// WorkerLiveness is a worker's availability for new assignments.
type WorkerLiveness string

const (
	WorkerReady    WorkerLiveness = "ready"
	WorkerBusy     WorkerLiveness = "busy"
	WorkerDraining WorkerLiveness = "draining"
	WorkerLost     WorkerLiveness = "lost"
)

// EventKind tags an audit log entry.
type EventKind string

const (
	EventPlanLoaded       EventKind = "plan_loaded"
	EventWorkerRegistered EventKind = "worker_registered"
	EventTaskReady        EventKind = "task_ready"
	EventTaskAssigned     EventKind = "task_assigned"
	EventTaskStarted      EventKind = "task_started"
	EventTaskSucceeded    EventKind = "task_succeeded"
	EventTaskFailed       EventKind = "task_failed"
	EventTaskRetry        EventKind = "task_retry_scheduled"
	EventTaskCancelled    EventKind = "task_cancelled"
	EventTaskExpired      EventKind = "task_expired"
	EventWorkerLost       EventKind = "worker_lost"
)

// ChannelDirection distinguishes worker-facing directives from replies.
// Only ToWorker is ever produced by this engine.
type ChannelDirection string

const (
	ToWorker   ChannelDirection = "to_worker"
	FromWorker ChannelDirection = "from_worker"
)

// ChannelKind tags a channel message.
type ChannelKind string

const (
	ChannelAssign ChannelKind = "assign"
	ChannelCancel ChannelKind = "cancel"
)

// TaskSpec is the immutable, plan-time declaration of a task.
type TaskSpec struct {
	ID                string          `json:"id"`
	Capability        string          `json:"capability"`
	Payload           json.RawMessage `json:"payload,omitempty"`
	DependsOn         []string        `json:"dependsOn,omitempty"`
	MaxAttempts       int             `json:"maxAttempts,omitempty"`
	AttemptTimeoutMs  *int64          `json:"attemptTimeoutMs,omitempty"`
	Priority          int             `json:"priority,omitempty"`
	DeadlineMs        *int64          `json:"deadlineMs,omitempty"`
}

// Plan is the ordered, immutable set of tasks loaded once per engine.
type Plan struct {
	Tasks []TaskSpec `json:"tasks"`
}

// DependencyError is the sentinel attached to a dependent task when one of
// its dependencies exhausts retries under FailurePolicyContinue (see
// SPEC_FULL.md "Open Question Decisions").
type DependencyError struct {
	TaskID  string `json:"taskId"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Task is the runtime state of a single task instance.
type Task struct {
	ID                  string                     `json:"id"`
	State               TaskState                  `json:"state"`
	Attempt             int                         `json:"attempt"`
	MaxAttempts         int                         `json:"maxAttempts"`
	LastErrorCode       string                      `json:"lastErrorCode,omitempty"`
	LastErrorMessage    string                      `json:"lastErrorMessage,omitempty"`
	AssignedWorker      string                      `json:"assignedWorker,omitempty"`
	AssignedAtMs        int64                       `json:"assignedAtMs,omitempty"`
	TerminalAtMs        int64                       `json:"terminalAtMs,omitempty"`
	CancellationReason  string                      `json:"cancellationReason,omitempty"`
	Result              json.RawMessage             `json:"result,omitempty"`
	RetryNotBeforeMs    int64                       `json:"retryNotBeforeMs,omitempty"`
	UpstreamErrors      map[string]DependencyError  `json:"upstreamErrors,omitempty"`
}

// WorkerRegistration is the caller-supplied declaration used by
// register_workers.
type WorkerRegistration struct {
	ID            string            `json:"id"`
	Capabilities  []string          `json:"capabilities"`
	MaxConcurrent int               `json:"maxConcurrent,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Worker is the runtime state of a registered worker.
type Worker struct {
	ID              string            `json:"id"`
	Capabilities    []string          `json:"capabilities"`
	MaxConcurrent   int               `json:"maxConcurrent"`
	Assigned        []string          `json:"assigned,omitempty"`
	LastHeartbeatMs int64             `json:"lastHeartbeatMs"`
	Liveness        WorkerLiveness    `json:"liveness"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// FailurePolicyMode selects how the result reducer handles an error outcome.
type FailurePolicyMode string

const (
	FailFast FailurePolicyMode = "fail_fast"
	Retry    FailurePolicyMode = "retry"
	Continue FailurePolicyMode = "continue"
)

// FailurePolicy configures retry/backoff/cascade behavior on task error.
type FailurePolicy struct {
	Mode         FailurePolicyMode `json:"mode,omitempty"`
	BaseMs       int64             `json:"baseMs,omitempty"`
	MaxBackoffMs int64             `json:"maxBackoffMs,omitempty"`
	JitterMs     int64             `json:"jitterMs,omitempty"`
}

// RuntimeConfig configures one engine instance.
type RuntimeConfig struct {
	RunID             string         `json:"runId,omitempty"`
	EventVersion      int            `json:"eventVersion,omitempty"`
	FailurePolicy     *FailurePolicy `json:"failurePolicy,omitempty"`
	LivenessTimeoutMs int64          `json:"livenessTimeoutMs,omitempty"`
}

// Event is one entry in the append-only audit log.
type Event struct {
	Seq         uint64      `json:"seq"`
	Kind        EventKind   `json:"kind"`
	TimestampMs int64       `json:"timestampMs"`
	TaskID      string      `json:"taskId,omitempty"`
	WorkerID    string      `json:"workerId,omitempty"`
	Payload     interface{} `json:"payload,omitempty"`
}

// ChannelMessage is one entry in the worker-facing channel log.
type ChannelMessage struct {
	Seq       uint64           `json:"seq"`
	Direction ChannelDirection `json:"direction"`
	WorkerID  string           `json:"workerId"`
	TaskID    string           `json:"taskId,omitempty"`
	Kind      ChannelKind      `json:"kind"`
	Payload   interface{}      `json:"payload,omitempty"`
}

// Assignment is the tuple produced by schedule().
type Assignment struct {
	TaskID   string `json:"taskId"`
	WorkerID string `json:"workerId"`
	Attempt  int    `json:"attempt"`
}

// ResultOutcome tags the kind of result envelope submitted for a task.
type ResultOutcome string

const (
	OutcomeStarted ResultOutcome = "started"
	OutcomeSuccess ResultOutcome = "success"
	OutcomeError   ResultOutcome = "error"
)

// ResultError carries error detail on an OutcomeError envelope.
type ResultError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable *bool  `json:"retryable,omitempty"`
}

// ResultEnvelope is submitted by a caller on behalf of a worker.
type ResultEnvelope struct {
	TaskID   string          `json:"taskId"`
	WorkerID string          `json:"workerId"`
	Attempt  int             `json:"attempt"`
	Outcome  ResultOutcome   `json:"outcome"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    *ResultError    `json:"error,omitempty"`
}

// Snapshot is a value copy of everything the engine currently knows.
type Snapshot struct {
	Config       RuntimeConfig      `json:"config"`
	Plan         Plan               `json:"plan"`
	Tasks        map[string]Task    `json:"tasks"`
	Workers      map[string]Worker  `json:"workers"`
	NowMs        int64              `json:"nowMs"`
	EventSeq     uint64             `json:"eventSeq"`
	ChannelSeq   uint64             `json:"channelSeq"`
}
