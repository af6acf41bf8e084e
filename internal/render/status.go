package render

import (
	"sync"
	"time"
)

// GenError is the recorded failure of the most recent regeneration attempt.
type GenError struct {
	Message   string    `json:"message"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// Status is the per-workspace regeneration state queried by the transport
// layer. A failed regeneration keeps the previous artifact fields intact;
// only LastError changes.
type Status struct {
	ArtifactExists bool      `json:"artifact_exists"`
	LastGenerated  time.Time `json:"last_generated"`
	LastSizeBytes  int64     `json:"last_size_bytes"`
	LastError      *GenError `json:"last_error,omitempty"`
}

// StatusRegistry tracks regeneration outcomes per session token.
type StatusRegistry struct {
	mu       sync.RWMutex
	statuses map[string]Status
}

// NewStatusRegistry creates an empty registry.
func NewStatusRegistry() *StatusRegistry {
	return &StatusRegistry{statuses: make(map[string]Status)}
}

// RecordSuccess stores a successful generation, clearing any previous error.
func (r *StatusRegistry) RecordSuccess(token string, at time.Time, sizeBytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[token] = Status{
		ArtifactExists: true,
		LastGenerated:  at,
		LastSizeBytes:  sizeBytes,
	}
}

// RecordFailure stores a failed generation, preserving the previous
// artifact's timestamp and size.
func (r *StatusRegistry) RecordFailure(token string, genErr GenError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.statuses[token]
	s.LastError = &genErr
	r.statuses[token] = s
}

// Get returns the status for a token, reporting whether one is recorded.
func (r *StatusRegistry) Get(token string) (Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.statuses[token]
	return s, ok
}

// Forget drops the status for an evicted workspace.
func (r *StatusRegistry) Forget(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.statuses, token)
}
