package workforce

import "sort"

// candidateTask is the minimal view the pure matcher needs: enough to
// sort deterministically and to check capability coverage.
type candidateTask struct {
	id         string
	capability string
	priority   int
	planIndex  int
}

type candidateWorker struct {
	id       string
	remaining int
	covers   func(capability string) bool
}

// match is one greedy-matcher decision (§4.6 steps 5-6).
type match struct {
	taskID   string
	workerID string
}

// matchCandidates is the pure, deterministic matcher (component F). It
// never touches the registries directly so it can be reasoned about (and
// tested) independently of the façade's bookkeeping, the same separation
// the teacher draws between coordinator.topoSort (pure graph algorithm)
// and Executor (the stateful caller around it).
func matchCandidates(tasks []candidateTask, workers []candidateWorker) []match {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].priority != tasks[j].priority {
			return tasks[i].priority > tasks[j].priority
		}
		return tasks[i].planIndex < tasks[j].planIndex
	})
	sort.SliceStable(workers, func(i, j int) bool {
		return workers[i].id < workers[j].id
	})

	var matches []match
	for _, t := range tasks {
		for i := range workers {
			w := &workers[i]
			if w.remaining <= 0 {
				continue
			}
			if !w.covers(t.capability) {
				continue
			}
			matches = append(matches, match{taskID: t.id, workerID: w.id})
			w.remaining--
			break
		}
	}
	return matches
}
