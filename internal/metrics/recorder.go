package metrics

import "time"

// RegenOutcome enumerates regeneration result categories for counters.
type RegenOutcome string

const (
	RegenSuccess  RegenOutcome = "success"
	RegenEmpty    RegenOutcome = "empty"    // main file absent or blank, benign no-op
	RegenTemplate RegenOutcome = "template" // template evaluation failed
	RegenRender   RegenOutcome = "render"   // document rendering failed
)

// Recorder defines observability hooks for the session store, watcher,
// sweeper, and regeneration dispatcher. All methods must be safe on the
// NoopRecorder so injection stays optional.
type Recorder interface {
	IncSessionCreated()
	IncSessionEvicted(success bool)
	SetActiveSessions(n int)

	IncWatchEvent(admitted bool)

	ObserveRegenDuration(d time.Duration)
	IncRegenOutcome(outcome RegenOutcome)
	SetArtifactSize(sizeBytes int64)

	ObserveSweepDuration(d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncSessionCreated()                  {}
func (NoopRecorder) IncSessionEvicted(bool)              {}
func (NoopRecorder) SetActiveSessions(int)               {}
func (NoopRecorder) IncWatchEvent(bool)                  {}
func (NoopRecorder) ObserveRegenDuration(time.Duration)  {}
func (NoopRecorder) IncRegenOutcome(RegenOutcome)        {}
func (NoopRecorder) SetArtifactSize(int64)               {}
func (NoopRecorder) ObserveSweepDuration(time.Duration)  {}
