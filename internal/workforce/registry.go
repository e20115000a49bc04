package workforce

// taskEntry is the registry's internal record for one task: the
// immutable spec, its plan-declared index (the scheduler's ascending
// tie-break, §4.6), its mutable runtime Task, and the number of
// dependencies not yet satisfied.
type taskEntry struct {
	spec      TaskSpec
	planIndex int
	task      Task
	depCount  int
}

// taskRegistry owns every task for the lifetime of one engine (component
// D). It is a plain map guarded by the engine façade's single call
// discipline — no internal locking, matching the teacher's single-owner
// convention for state that is only ever touched from one call at a time.
type taskRegistry struct {
	order      []string // plan order, fixed at load_plan
	entries    map[string]*taskEntry
	dependents map[string][]string // task id -> ids of tasks depending on it
}

func newTaskRegistry(plan Plan, dependents map[string][]string) *taskRegistry {
	reg := &taskRegistry{
		entries:    make(map[string]*taskEntry, len(plan.Tasks)),
		dependents: dependents,
	}
	for i, spec := range plan.Tasks {
		if spec.MaxAttempts <= 0 {
			spec.MaxAttempts = 1
		}
		reg.order = append(reg.order, spec.ID)
		reg.entries[spec.ID] = &taskEntry{
			spec:      spec,
			planIndex: i,
			depCount:  len(spec.DependsOn),
			task: Task{
				ID:          spec.ID,
				State:       TaskPending,
				MaxAttempts: spec.MaxAttempts,
			},
		}
	}
	return reg
}

func (r *taskRegistry) get(id string) (*taskEntry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

func (r *taskRegistry) snapshot() map[string]Task {
	out := make(map[string]Task, len(r.entries))
	for id, e := range r.entries {
		out[id] = cloneTask(e.task)
	}
	return out
}

func cloneTask(t Task) Task {
	cp := t
	if t.Result != nil {
		cp.Result = append([]byte(nil), t.Result...)
	}
	if t.UpstreamErrors != nil {
		cp.UpstreamErrors = make(map[string]DependencyError, len(t.UpstreamErrors))
		for k, v := range t.UpstreamErrors {
			cp.UpstreamErrors[k] = v
		}
	}
	return cp
}

// workerEntry is the registry's internal record for one worker: the
// mutable runtime Worker plus a capability set for O(1) match checks.
type workerEntry struct {
	worker Worker
	caps   map[string]bool
	assigned map[string]bool
}

// workerRegistry owns every worker for the lifetime of one engine
// (component E).
type workerRegistry struct {
	order   []string
	entries map[string]*workerEntry
}

func newWorkerRegistry() *workerRegistry {
	return &workerRegistry{entries: make(map[string]*workerEntry)}
}

func (r *workerRegistry) add(reg WorkerRegistration) {
	maxConcurrent := reg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	caps := make(map[string]bool, len(reg.Capabilities))
	for _, c := range reg.Capabilities {
		caps[c] = true
	}
	r.order = append(r.order, reg.ID)
	r.entries[reg.ID] = &workerEntry{
		caps:     caps,
		assigned: make(map[string]bool),
		worker: Worker{
			ID:            reg.ID,
			Capabilities:  append([]string(nil), reg.Capabilities...),
			MaxConcurrent: maxConcurrent,
			Liveness:      WorkerReady,
			Metadata:      reg.Metadata,
		},
	}
}

func (r *workerRegistry) get(id string) (*workerEntry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

func (r *workerRegistry) snapshot() map[string]Worker {
	out := make(map[string]Worker, len(r.entries))
	for id, e := range r.entries {
		w := e.worker
		w.Capabilities = append([]string(nil), e.worker.Capabilities...)
		w.Assigned = assignedIDs(e)
		out[id] = w
	}
	return out
}

func assignedIDs(e *workerEntry) []string {
	if len(e.assigned) == 0 {
		return nil
	}
	ids := make([]string, 0, len(e.assigned))
	for id := range e.assigned {
		ids = append(ids, id)
	}
	return ids
}

func (e *workerEntry) hasCapacity() bool {
	return len(e.assigned) < e.worker.MaxConcurrent
}

func (e *workerEntry) covers(capability string) bool {
	return e.caps[capability]
}

func (e *workerEntry) assign(taskID string) {
	e.assigned[taskID] = true
	if !e.hasCapacity() {
		e.worker.Liveness = WorkerBusy
	}
}

func (e *workerEntry) free(taskID string) {
	delete(e.assigned, taskID)
	if e.worker.Liveness == WorkerBusy {
		e.worker.Liveness = WorkerReady
	}
}
