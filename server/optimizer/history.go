package optimizer

import (
	"sync"
)

// historyCap bounds the retained feedback loops; the oldest entry is evicted
// first.
const historyCap = 100

// History retains detected feedback loops plus a keyed view of the loops
// whose breach is still active.
type History struct {
	mu      sync.RWMutex
	entries []*FeedbackLoop
	active  map[string]*FeedbackLoop // keyed by trigger metric
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{active: make(map[string]*FeedbackLoop)}
}

// Append records a loop, evicting the oldest entry past the cap, and marks
// the loop active for its metric.
func (h *History) Append(loop *FeedbackLoop) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, loop)
	if len(h.entries) > historyCap {
		h.entries = h.entries[len(h.entries)-historyCap:]
	}
	h.active[loop.Trigger.Metric] = loop
}

// Resolve clears the active marker for a metric that is back within
// thresholds.
func (h *History) Resolve(metric string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.active, metric)
}

// Len returns the number of retained loops.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// ActiveCount returns the number of metrics with an unresolved breach.
func (h *History) ActiveCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active)
}

// Entries returns a copy of the retained loops, oldest first.
func (h *History) Entries() []*FeedbackLoop {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*FeedbackLoop, len(h.entries))
	copy(out, h.entries)
	return out
}

// Clear drops all entries and active markers.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
	h.active = make(map[string]*FeedbackLoop)
}
