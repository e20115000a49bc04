package workforce

// SubmitResult applies a worker's result envelope to task state (§4.7).
// Validation runs in the exact order spec.md §4.7 lists; any mismatch
// leaves every piece of state untouched (fail-atomic, §7).
func (e *Engine) SubmitResult(envelope ResultEnvelope, nowMs *int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tasks == nil {
		return e.fail("submit_result", newErr(ErrUnknownTask, "unknown task %q", envelope.TaskID))
	}
	entry, ok := e.tasks.get(envelope.TaskID)
	if !ok {
		return e.fail("submit_result", newErr(ErrUnknownTask, "unknown task %q", envelope.TaskID))
	}
	worker, ok := e.workers.get(envelope.WorkerID)
	if !ok {
		return e.fail("submit_result", newErr(ErrUnknownWorker, "unknown worker %q", envelope.WorkerID))
	}
	if entry.task.AssignedWorker != envelope.WorkerID {
		return e.fail("submit_result", newErr(ErrNotAssignedToWorker, "task %q is not assigned to worker %q", envelope.TaskID, envelope.WorkerID))
	}
	if entry.task.State != TaskAssigned && entry.task.State != TaskRunning {
		return e.fail("submit_result", newErr(ErrTaskNotRunning, "task %q is not assigned or running", envelope.TaskID))
	}
	if envelope.Attempt != entry.task.Attempt {
		return e.fail("submit_result", newErr(ErrAttemptMismatch, "task %q attempt mismatch: got %d, want %d", envelope.TaskID, envelope.Attempt, entry.task.Attempt))
	}

	now := e.clk.advance(nowMs)
	// A result envelope is proof of worker liveness, regardless of outcome
	// (see SPEC_FULL.md "Open Question Decisions" for why there is no
	// separate heartbeat action).
	worker.worker.LastHeartbeatMs = now

	switch envelope.Outcome {
	case OutcomeStarted:
		if entry.task.State == TaskAssigned {
			entry.task.State = TaskRunning
			e.emitEvent(now, EventTaskStarted, envelope.TaskID, envelope.WorkerID, nil)
		}
		return nil
	case OutcomeSuccess:
		e.applySuccess(entry, worker, envelope, now)
		return nil
	case OutcomeError:
		e.applyError(entry, worker, envelope.Error, now)
		return nil
	default:
		return e.fail("submit_result", newErr(ErrInvalidConfig, "unknown result outcome %q", envelope.Outcome))
	}
}

func (e *Engine) applySuccess(entry *taskEntry, worker *workerEntry, envelope ResultEnvelope, now int64) {
	entry.task.State = TaskSucceeded
	entry.task.Result = envelope.Result
	entry.task.TerminalAtMs = now
	worker.free(entry.task.ID)
	e.emitEvent(now, EventTaskSucceeded, entry.task.ID, envelope.WorkerID, nil)
	e.satisfyDependents(entry.task.ID, now)
}

func (e *Engine) applyError(entry *taskEntry, worker *workerEntry, resultErr *ResultError, now int64) {
	worker.free(entry.task.ID)

	code, message := "", ""
	var retryable *bool
	if resultErr != nil {
		code, message, retryable = resultErr.Code, resultErr.Message, resultErr.Retryable
	}
	entry.task.LastErrorCode = code
	entry.task.LastErrorMessage = message

	switch e.failurePolicy.Mode {
	case FailFast:
		e.failTask(entry, now)
		e.cascadeCancel(entry.task.ID, now)
	case Retry, Continue:
		if entry.task.Attempt < entry.task.MaxAttempts && (retryable == nil || *retryable) {
			entry.task.Attempt++
			delay := backoffMs(e.failurePolicy, e.config.RunID, entry.task.ID, entry.task.Attempt)
			entry.task.RetryNotBeforeMs = now + delay
			entry.task.State = TaskBackoff
			e.emitEvent(now, EventTaskRetry, entry.task.ID, "", map[string]interface{}{
				"attempt":          entry.task.Attempt,
				"retryNotBeforeMs": entry.task.RetryNotBeforeMs,
			})
			return
		}
		e.failTask(entry, now)
		if e.failurePolicy.Mode == Retry {
			e.cascadeCancel(entry.task.ID, now)
		} else {
			e.propagateSentinel(entry.task.ID, code, message, now)
		}
	}
}

func (e *Engine) failTask(entry *taskEntry, now int64) {
	entry.task.State = TaskFailed
	entry.task.TerminalAtMs = now
	e.emitEvent(now, EventTaskFailed, entry.task.ID, "", map[string]interface{}{
		"code":    entry.task.LastErrorCode,
		"message": entry.task.LastErrorMessage,
	})
}

// satisfyDependents decrements the dependency count of every task that
// depends on id and flips any that reach zero to Ready (§4.4).
func (e *Engine) satisfyDependents(id string, now int64) {
	for _, depID := range e.tasks.dependents[id] {
		dep, ok := e.tasks.get(depID)
		if !ok || dep.task.State.Terminal() {
			continue
		}
		dep.depCount--
		if dep.depCount <= 0 && dep.task.State == TaskPending {
			dep.task.State = TaskReady
			e.emitEvent(now, EventTaskReady, depID, "", nil)
		}
	}
}

// cascadeCancel transitively cancels every non-terminal dependent of id
// with reason "dependency_failed:<id>" (§4.4, §4.8). It terminates
// because the dependency graph is acyclic (checked once at load_plan).
func (e *Engine) cascadeCancel(id string, now int64) {
	for _, depID := range e.tasks.dependents[id] {
		dep, ok := e.tasks.get(depID)
		if !ok || dep.task.State.Terminal() {
			continue
		}
		reason := "dependency_failed:" + id
		e.transitionCancelled(dep, reason, now)
		e.cascadeCancel(depID, now)
	}
}

// propagateSentinel implements FailurePolicyMode Continue (§4.7): the
// dependent is neither cascaded nor blocked. It is treated as if its
// dependency on id were satisfied, with a DependencyError recorded so a
// caller that inspects the snapshot can see the degraded input (see
// SPEC_FULL.md "Open Question Decisions").
func (e *Engine) propagateSentinel(id, code, message string, now int64) {
	for _, depID := range e.tasks.dependents[id] {
		dep, ok := e.tasks.get(depID)
		if !ok || dep.task.State.Terminal() {
			continue
		}
		if dep.task.UpstreamErrors == nil {
			dep.task.UpstreamErrors = make(map[string]DependencyError)
		}
		dep.task.UpstreamErrors[id] = DependencyError{TaskID: id, Code: code, Message: message}
		dep.depCount--
		if dep.depCount <= 0 && dep.task.State == TaskPending {
			dep.task.State = TaskReady
			e.emitEvent(now, EventTaskReady, depID, "", nil)
		}
	}
}

func (e *Engine) transitionCancelled(entry *taskEntry, reason string, now int64) {
	if entry.task.State == TaskAssigned || entry.task.State == TaskRunning {
		if w, ok := e.workers.get(entry.task.AssignedWorker); ok {
			w.free(entry.task.ID)
		}
		entry.task.AssignedWorker = ""
	}
	entry.task.State = TaskCancelled
	entry.task.CancellationReason = reason
	entry.task.TerminalAtMs = now
	e.emitEvent(now, EventTaskCancelled, entry.task.ID, "", map[string]string{"reason": reason})
}

// CancelTask transitions a non-terminal task to Cancelled, freeing its
// worker and cascading to dependents (§4.8).
func (e *Engine) CancelTask(taskID string, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tasks == nil {
		return e.fail("cancel_task", newErr(ErrUnknownTask, "unknown task %q", taskID))
	}
	entry, ok := e.tasks.get(taskID)
	if !ok {
		return e.fail("cancel_task", newErr(ErrUnknownTask, "unknown task %q", taskID))
	}
	if entry.task.State.Terminal() {
		return e.fail("cancel_task", newErr(ErrTaskAlreadyTerminal, "task %q is already terminal", taskID))
	}

	now := e.clk.advance(nil)
	wasAssigned := entry.task.State == TaskAssigned || entry.task.State == TaskRunning
	workerID := entry.task.AssignedWorker

	e.transitionCancelled(entry, reason, now)

	if wasAssigned {
		e.emitChannel(now, ToWorker, workerID, taskID, ChannelCancel, map[string]string{"reason": reason})
	}
	e.cascadeCancel(taskID, now)
	return nil
}
