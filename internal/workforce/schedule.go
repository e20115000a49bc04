package workforce

// Schedule is the sole assignment producer (§4.6). It performs the seven
// steps in order, appending every event before returning, and never
// fails — timeouts and worker loss are modeled as events and state
// transitions, never as errors to this caller (§7).
func (e *Engine) Schedule(nowMs *int64) []Assignment {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clk.advance(nowMs)

	e.wakeBackoff(now)
	e.expireOverdue(now)
	e.reapLostWorkers(now)

	tasks, workers := e.candidates()
	matches := matchCandidates(tasks, workers)

	assignments := make([]Assignment, 0, len(matches))
	for _, m := range matches {
		entry, _ := e.tasks.get(m.taskID)
		worker, _ := e.workers.get(m.workerID)

		if entry.task.Attempt == 0 {
			entry.task.Attempt = 1
		}
		entry.task.State = TaskAssigned
		entry.task.AssignedWorker = m.workerID
		entry.task.AssignedAtMs = now
		worker.assign(m.taskID)

		e.emitEvent(now, EventTaskAssigned, m.taskID, m.workerID, map[string]interface{}{
			"attempt": entry.task.Attempt,
		})
		e.emitChannel(now, ToWorker, m.workerID, m.taskID, ChannelAssign, map[string]interface{}{
			"attemptId":        attemptID(e.config.RunID, m.taskID, entry.task.Attempt),
			"attempt":          entry.task.Attempt,
			"payload":          entry.spec.Payload,
			"attemptTimeoutMs": entry.spec.AttemptTimeoutMs,
		})
		assignments = append(assignments, Assignment{TaskID: m.taskID, WorkerID: m.workerID, Attempt: entry.task.Attempt})
	}
	return assignments
}

// wakeBackoff is §4.6 step 2.
func (e *Engine) wakeBackoff(now int64) {
	if e.tasks == nil {
		return
	}
	for _, id := range e.tasks.order {
		entry := e.tasks.entries[id]
		if entry.task.State == TaskBackoff && now >= entry.task.RetryNotBeforeMs {
			entry.task.State = TaskReady
			e.emitEvent(now, EventTaskReady, id, "", nil)
		}
	}
}

// expireOverdue is §4.6 step 3: per-attempt timeout or deadline elapsed.
func (e *Engine) expireOverdue(now int64) {
	if e.tasks == nil {
		return
	}
	for _, id := range e.tasks.order {
		entry := e.tasks.entries[id]
		if entry.task.State != TaskAssigned && entry.task.State != TaskRunning {
			continue
		}
		reason := ""
		switch {
		case entry.spec.DeadlineMs != nil && now > *entry.spec.DeadlineMs:
			reason = "deadline"
		case entry.spec.AttemptTimeoutMs != nil && now-entry.task.AssignedAtMs > *entry.spec.AttemptTimeoutMs:
			reason = "timeout"
		}
		if reason != "" {
			e.applyTimeout(entry, now, reason)
		}
	}
}

// reapLostWorkers is §4.6 step 4 / §4.5: mark workers Lost whose last
// heartbeat predates the liveness window, returning their assigned tasks
// to Ready without incrementing attempt.
func (e *Engine) reapLostWorkers(now int64) {
	for _, id := range e.workers.order {
		w := e.workers.entries[id]
		if w.worker.Liveness == WorkerLost {
			continue
		}
		if now-w.worker.LastHeartbeatMs <= e.config.LivenessTimeoutMs {
			continue
		}
		var reassigned []string
		for taskID := range w.assigned {
			entry, ok := e.tasks.get(taskID)
			if !ok || entry.task.State.Terminal() {
				continue
			}
			entry.task.State = TaskReady
			entry.task.AssignedWorker = ""
			reassigned = append(reassigned, taskID)
		}
		w.assigned = make(map[string]bool)
		w.worker.Liveness = WorkerLost
		e.emitEvent(now, EventWorkerLost, "", id, map[string]interface{}{"reassignedTasks": reassigned})
	}
}

// candidates builds the two ordered lists §4.6 step 5 describes.
func (e *Engine) candidates() ([]candidateTask, []candidateWorker) {
	var tasks []candidateTask
	if e.tasks != nil {
		for _, id := range e.tasks.order {
			entry := e.tasks.entries[id]
			if entry.task.State != TaskReady {
				continue
			}
			tasks = append(tasks, candidateTask{
				id:         id,
				capability: entry.spec.Capability,
				priority:   entry.spec.Priority,
				planIndex:  entry.planIndex,
			})
		}
	}

	var workers []candidateWorker
	for _, id := range e.workers.order {
		w := e.workers.entries[id]
		if w.worker.Liveness != WorkerReady && w.worker.Liveness != WorkerBusy {
			continue
		}
		remaining := w.worker.MaxConcurrent - len(w.assigned)
		if remaining <= 0 {
			continue
		}
		workers = append(workers, candidateWorker{
			id:        id,
			remaining: remaining,
			covers:    w.covers,
		})
	}
	return tasks, workers
}

// applyTimeout is the timeout path §4.6 step 3 hands off to (see
// SPEC_FULL.md "Open Question Decisions" for why its terminal state is
// Expired rather than Failed, reconciling §4.4 and §4.7).
func (e *Engine) applyTimeout(entry *taskEntry, now int64, code string) {
	if w, ok := e.workers.get(entry.task.AssignedWorker); ok {
		w.free(entry.task.ID)
	}
	entry.task.AssignedWorker = ""
	entry.task.LastErrorCode = code
	entry.task.LastErrorMessage = "attempt " + code + " elapsed"

	switch e.failurePolicy.Mode {
	case FailFast:
		e.expireTask(entry, now)
		e.cascadeCancel(entry.task.ID, now)
	case Retry, Continue:
		if entry.task.Attempt < entry.task.MaxAttempts {
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
		e.expireTask(entry, now)
		if e.failurePolicy.Mode == Retry {
			e.cascadeCancel(entry.task.ID, now)
		} else {
			e.propagateSentinel(entry.task.ID, code, entry.task.LastErrorMessage, now)
		}
	}
}

func (e *Engine) expireTask(entry *taskEntry, now int64) {
	entry.task.State = TaskExpired
	entry.task.TerminalAtMs = now
	e.emitEvent(now, EventTaskExpired, entry.task.ID, "", map[string]interface{}{"code": entry.task.LastErrorCode})
}
