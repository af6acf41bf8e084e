package watcher

import (
	"sync"
	"time"
)

// DebounceGate admits at most one event per key per interval.
//
// It is a leading-edge debouncer: the first event after a quiet period is
// admitted immediately, later events inside the window are suppressed, and
// the window is anchored to the last ADMITTED event. Rejected calls never
// move the anchor, so a steady stream of edits cannot starve admission.
type DebounceGate struct {
	interval time.Duration

	mu           sync.Mutex
	lastAdmitted map[string]time.Time

	now func() time.Time
}

// NewDebounceGate creates a gate with the given admission interval.
func NewDebounceGate(interval time.Duration) *DebounceGate {
	return &DebounceGate{
		interval:     interval,
		lastAdmitted: make(map[string]time.Time),
		now:          time.Now,
	}
}

// SetClock overrides the gate's time source. Intended for tests.
func (g *DebounceGate) SetClock(now func() time.Time) {
	g.now = now
}

// Admit reports whether an event for key should be processed now. When it
// returns true the admission time is recorded as the new window anchor.
func (g *DebounceGate) Admit(key string) bool {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	last, seen := g.lastAdmitted[key]
	if seen && now.Sub(last) < g.interval {
		return false
	}
	g.lastAdmitted[key] = now
	return true
}

// Forget drops the debounce state for a key. Called when a workspace is
// evicted so the map does not grow with dead keys.
func (g *DebounceGate) Forget(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.lastAdmitted, key)
}
