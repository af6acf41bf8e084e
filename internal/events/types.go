package events

import "time"

// RegenerateRequested asks the dispatcher to regenerate a workspace's
// artifact. Published by the change watcher after debounce admission and by
// manual triggers from the transport layer.
type RegenerateRequested struct {
	SessionID   string
	Workspace   string
	Reason      string // "file_change" or "manual"
	RequestedAt time.Time
}

// ArtifactUpdated is published after a successful regeneration.
type ArtifactUpdated struct {
	SessionID   string
	Workspace   string
	Artifact    string
	SizeBytes   int64
	GeneratedAt time.Time
}

// ArtifactFailed is published when regeneration fails at any stage.
// Detail carries the full failure chain for display; Message is the
// human-readable summary.
type ArtifactFailed struct {
	SessionID string
	Workspace string
	Message   string
	Detail    string
	FailedAt  time.Time
}

// SessionEvicted is published after the sweeper reclaims an expired session.
type SessionEvicted struct {
	SessionID string
	Age       time.Duration
	EvictedAt time.Time
}
