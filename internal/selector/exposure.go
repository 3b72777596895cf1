package selector

import "sync"

// #region exposure-tracker

// ExposureTracker counts, across all sessions, how often each item has been
// administered. It is the only mutable resource shared between concurrent
// sessions, so every access holds the mutex; Record is called exactly once
// per administration, at directive time.
type ExposureTracker struct {
	mu       sync.Mutex
	sessions int
	counts   map[string]int
}

// NewExposureTracker returns an empty tracker.
func NewExposureTracker() *ExposureTracker {
	return &ExposureTracker{counts: make(map[string]int)}
}

// StartSession registers a new examinee session in the denominator.
func (t *ExposureTracker) StartSession() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions++
}

// Record registers one administration of the item.
func (t *ExposureTracker) Record(itemID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[itemID]++
}

// Rate returns the fraction of sessions that have seen the item. Zero when
// no sessions have started yet.
func (t *ExposureTracker) Rate(itemID string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sessions == 0 {
		return 0
	}
	return float64(t.counts[itemID]) / float64(t.sessions)
}

// Snapshot returns a copy of the tracker state for persistence.
func (t *ExposureTracker) Snapshot() (sessions int, counts map[string]int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.counts))
	for id, n := range t.counts {
		out[id] = n
	}
	return t.sessions, out
}

// Restore replaces the tracker state, e.g. when reloading from the store.
func (t *ExposureTracker) Restore(sessions int, counts map[string]int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions = sessions
	t.counts = make(map[string]int, len(counts))
	for id, n := range counts {
		t.counts[id] = n
	}
}

// #endregion exposure-tracker
