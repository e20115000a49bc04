package workforce

import "hash/fnv"

const (
	defaultBaseMs       int64 = 500
	defaultMaxBackoffMs int64 = 30_000
	defaultJitterMs     int64 = 0
)

// normalizeFailurePolicy applies the §4.7 defaults the way the teacher's
// policy.Default() seeds a zero-value Policy, and validates the mode.
func normalizeFailurePolicy(p *FailurePolicy) (FailurePolicy, error) {
	out := FailurePolicy{
		Mode:         FailFast,
		BaseMs:       defaultBaseMs,
		MaxBackoffMs: defaultMaxBackoffMs,
		JitterMs:     defaultJitterMs,
	}
	if p == nil {
		return out, nil
	}
	if p.Mode != "" {
		out.Mode = p.Mode
	}
	switch out.Mode {
	case FailFast, Retry, Continue:
	default:
		return FailurePolicy{}, newErr(ErrInvalidConfig, "unknown failure policy mode %q", p.Mode)
	}
	if p.BaseMs > 0 {
		out.BaseMs = p.BaseMs
	}
	if p.MaxBackoffMs > 0 {
		out.MaxBackoffMs = p.MaxBackoffMs
	}
	if p.JitterMs > 0 {
		out.JitterMs = p.JitterMs
	}
	return out, nil
}

// backoffMs computes the exponential backoff with deterministic jitter
// described in §4.7: base*2^(attempt-1), clamped at max, plus a jitter
// term derived from hash(run_id, task_id, attempt) mod jitter_ms. The
// hash uses fnv64a, the same hashing primitive the teacher's
// policy.policyVersionFor uses to derive a stable version string from
// policy content — here it stands in for a deterministic PRNG so that
// two runs with identical config and action sequence stay byte-identical
// (spec.md §9's "deterministic jitter" design note forbids a system RNG).
func backoffMs(policy FailurePolicy, runID, taskID string, attempt int) int64 {
	backoff := policy.BaseMs
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= policy.MaxBackoffMs {
			backoff = policy.MaxBackoffMs
			break
		}
	}
	if backoff > policy.MaxBackoffMs {
		backoff = policy.MaxBackoffMs
	}
	if policy.JitterMs > 0 {
		backoff += jitter(runID, taskID, attempt, policy.JitterMs)
	}
	return backoff
}

func jitter(runID, taskID string, attempt int, jitterMs int64) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(runID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(taskID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte{byte(attempt), byte(attempt >> 8), byte(attempt >> 16), byte(attempt >> 24)})
	return int64(h.Sum64() % uint64(jitterMs))
}
