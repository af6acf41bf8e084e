package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebounceGateLeadingEdge(t *testing.T) {
	gate := NewDebounceGate(100 * time.Millisecond)
	now := time.Now()
	gate.SetClock(func() time.Time { return now })

	// First event fires immediately, second in the window is suppressed.
	assert.True(t, gate.Admit("ws1"))
	assert.False(t, gate.Admit("ws1"))

	// After the interval the next event is admitted again.
	now = now.Add(100 * time.Millisecond)
	assert.True(t, gate.Admit("ws1"))
}

func TestDebounceGateAnchoredToAdmittedEvent(t *testing.T) {
	gate := NewDebounceGate(100 * time.Millisecond)
	now := time.Now()
	gate.SetClock(func() time.Time { return now })

	assert.True(t, gate.Admit("ws1"))

	// A steady stream of rejected events must not push back the window.
	for range 9 {
		now = now.Add(10 * time.Millisecond)
		assert.False(t, gate.Admit("ws1"))
	}

	now = now.Add(10 * time.Millisecond) // 100ms after the admitted event
	assert.True(t, gate.Admit("ws1"))
}

func TestDebounceGateKeysAreIndependent(t *testing.T) {
	gate := NewDebounceGate(time.Minute)

	assert.True(t, gate.Admit("ws1"))
	assert.True(t, gate.Admit("ws2"))
	assert.False(t, gate.Admit("ws1"))
	assert.False(t, gate.Admit("ws2"))
}

func TestDebounceGateForget(t *testing.T) {
	gate := NewDebounceGate(time.Minute)

	assert.True(t, gate.Admit("ws1"))
	assert.False(t, gate.Admit("ws1"))

	gate.Forget("ws1")
	assert.True(t, gate.Admit("ws1"))
}

func TestDebounceGateRealClockBurst(t *testing.T) {
	gate := NewDebounceGate(50 * time.Millisecond)

	admitted := 0
	for range 3 {
		if gate.Admit("ws") {
			admitted++
		}
	}
	assert.Equal(t, 1, admitted)

	time.Sleep(60 * time.Millisecond)
	assert.True(t, gate.Admit("ws"))
}
