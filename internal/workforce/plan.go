package workforce

// validatePlan checks structural well-formedness of a Plan the way the
// teacher's coordinator.Plan.Validate / topoSort pair does for DAG plans:
// unique ids, dependencies that resolve, and no cycles. It also returns
// the dependents adjacency (task id -> ids of tasks that depend on it),
// the O(1) cascade lookup the design notes (spec.md §9) call for.
func validatePlan(plan Plan) (dependents map[string][]string, err error) {
	seen := make(map[string]bool, len(plan.Tasks))
	for _, t := range plan.Tasks {
		if t.ID == "" {
			return nil, newErr(ErrInvalidConfig, "task has empty id")
		}
		if seen[t.ID] {
			return nil, newErr(ErrDuplicateTaskID, "duplicate task id %q", t.ID)
		}
		seen[t.ID] = true
	}

	for _, t := range plan.Tasks {
		for _, dep := range t.DependsOn {
			if !seen[dep] {
				return nil, newErr(ErrUnknownDependency, "task %q depends on unknown task %q", t.ID, dep)
			}
		}
	}

	dependents = make(map[string][]string, len(plan.Tasks))
	for _, t := range plan.Tasks {
		for _, dep := range t.DependsOn {
			dependents[dep] = append(dependents[dep], t.ID)
		}
	}

	if err := checkAcyclic(plan, dependents); err != nil {
		return nil, err
	}
	return dependents, nil
}

// checkAcyclic runs Kahn's algorithm (the same wave-building shape as the
// teacher's coordinator.topoSort) purely to detect a cycle; the engine
// does not need the wave grouping itself since tasks become Ready
// independently as each dependency succeeds.
func checkAcyclic(plan Plan, dependents map[string][]string) error {
	depCount := make(map[string]int, len(plan.Tasks))
	for _, t := range plan.Tasks {
		depCount[t.ID] = len(t.DependsOn)
	}

	var queue []string
	for _, t := range plan.Tasks {
		if depCount[t.ID] == 0 {
			queue = append(queue, t.ID)
		}
	}

	processed := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		processed++
		for _, dep := range dependents[id] {
			depCount[dep]--
			if depCount[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if processed != len(plan.Tasks) {
		return newErr(ErrCyclicDependency, "plan contains a dependency cycle")
	}
	return nil
}
