package session

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	ferrors "git.home.luguber.info/inful/previewd/internal/foundation/errors"
	"git.home.luguber.info/inful/previewd/internal/logfields"
	"git.home.luguber.info/inful/previewd/internal/metrics"
	"git.home.luguber.info/inful/previewd/internal/workspace"
)

// entry holds per-session metadata. The creation mutex serializes workspace
// materialization per token without blocking unrelated sessions.
type entry struct {
	createdAt  time.Time
	lastAccess time.Time
	createMu   sync.Mutex
}

// Expired describes one session past its lifetime.
type Expired struct {
	Token string
	Age   time.Duration
}

// Info is the observability view of a session.
type Info struct {
	Token           string        `json:"session_id"`
	CreatedAt       time.Time     `json:"created_at"`
	LastAccess      time.Time     `json:"last_access"`
	ExpiresIn       time.Duration `json:"expires_in"`
	WorkspaceExists bool          `json:"workspace_exists"`
}

// Store is the in-memory session registry and the single source of truth for
// workspace liveness. A session exists in the store if and only if its
// workspace directory exists or is being created.
//
// The store-wide mutex only guards the metadata map; workspace
// materialization and deletion run under per-token mutexes so that slow
// filesystem work on one session never stalls access to another.
type Store struct {
	workspacesRoot string
	templateRoot   string
	lifetime       time.Duration

	mu       sync.Mutex
	sessions map[string]*entry

	recorder metrics.Recorder
	now      func() time.Time
}

// NewStore creates a session store rooted at workspacesRoot. The root
// directory is created if absent.
func NewStore(workspacesRoot, templateRoot string, lifetime time.Duration, recorder metrics.Recorder) (*Store, error) {
	if workspacesRoot == "" {
		return nil, ferrors.ValidationError("workspaces root must not be empty").Build()
	}
	if lifetime <= 0 {
		return nil, ferrors.ValidationError("session lifetime must be positive").Build()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if err := os.MkdirAll(workspacesRoot, 0o750); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create workspaces root").
			WithContext("path", workspacesRoot).
			Build()
	}

	return &Store{
		workspacesRoot: workspacesRoot,
		templateRoot:   templateRoot,
		lifetime:       lifetime,
		sessions:       make(map[string]*entry),
		recorder:       recorder,
		now:            time.Now,
	}, nil
}

// SetClock overrides the store's time source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Lifetime returns the configured session lifetime.
func (s *Store) Lifetime() time.Duration {
	return s.lifetime
}

// CreateSessionID generates a fresh opaque session token.
func (s *Store) CreateSessionID() string {
	return uuid.NewString()
}

// validToken rejects tokens that could escape the workspaces root when used
// as a directory name. Tokens are opaque but they come from the network.
func validToken(token string) bool {
	if token == "" || token == "." || token == ".." {
		return false
	}
	return !strings.ContainsAny(token, "/\\")
}

// Register inserts a new session with createdAt = lastAccess = now.
// Registering an already-known token is a no-op; use Touch to refresh.
func (s *Store) Register(token string) {
	if !validToken(token) {
		slog.Warn("Refusing to register malformed session token", logfields.SessionID(token))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[token]; ok {
		return
	}
	now := s.now()
	s.sessions[token] = &entry{createdAt: now, lastAccess: now}
	s.recorder.IncSessionCreated()
	s.recorder.SetActiveSessions(len(s.sessions))
	slog.Info("Session registered", logfields.SessionID(token))
}

// Touch updates lastAccess for an existing session. An unknown token is
// registered instead, which self-heals a store that lost track of a live
// workspace.
func (s *Store) Touch(token string) {
	if !validToken(token) {
		return
	}

	s.mu.Lock()
	if e, ok := s.sessions[token]; ok {
		e.lastAccess = s.now()
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.Register(token)
}

// WorkspacePath returns the workspace directory for a token without touching
// the session or the filesystem.
func (s *Store) WorkspacePath(token string) string {
	return filepath.Join(s.workspacesRoot, token)
}

// workspaceExists reports whether the workspace directory is on disk.
func (s *Store) workspaceExists(token string) bool {
	info, err := os.Stat(s.WorkspacePath(token))
	return err == nil && info.IsDir()
}

// GetOrCreateWorkspace touches the session and returns its workspace path,
// cloning the template tree on first access. Concurrent calls for the same
// unseen token materialize the workspace exactly once: the per-token mutex
// serializes creation, and everyone else observes the completed clone.
func (s *Store) GetOrCreateWorkspace(token string) (string, error) {
	if !validToken(token) {
		return "", ferrors.ValidationError("malformed session token").Build()
	}

	s.Touch(token)

	s.mu.Lock()
	e := s.sessions[token]
	s.mu.Unlock()
	if e == nil {
		// Touch registers the token, so this is unreachable short of a
		// concurrent eviction; treat it that way and re-register.
		s.Register(token)
		s.mu.Lock()
		e = s.sessions[token]
		s.mu.Unlock()
	}

	path := s.WorkspacePath(token)

	e.createMu.Lock()
	defer e.createMu.Unlock()

	// An eviction may have won this lock first and removed both the entry
	// and the directory while we waited. Re-register before materializing,
	// or the workspace we are about to create would be invisible to every
	// future sweep.
	s.mu.Lock()
	if _, ok := s.sessions[token]; !ok {
		e.lastAccess = s.now()
		s.sessions[token] = e
		s.recorder.IncSessionCreated()
		s.recorder.SetActiveSessions(len(s.sessions))
		slog.Info("Session re-registered after eviction race", logfields.SessionID(token))
	}
	s.mu.Unlock()

	if s.workspaceExists(token) {
		return path, nil
	}

	slog.Info("Creating workspace", logfields.SessionID(token))
	if err := workspace.Materialize(s.templateRoot, path); err != nil {
		return "", err
	}
	return path, nil
}

// ListExpired returns sessions whose idle time strictly exceeds the given
// lifetime. Read-only; does not mutate access times.
func (s *Store) ListExpired(lifetime time.Duration) []Expired {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []Expired
	for token, e := range s.sessions {
		age := now.Sub(e.lastAccess)
		if age > lifetime {
			expired = append(expired, Expired{Token: token, Age: age})
		}
	}
	return expired
}

// Evict deletes the workspace directory and removes the session entry.
// A workspace directory that is already gone counts as evicted. If deletion
// fails for any other reason the entry is retained so the next sweep retries,
// and Evict returns false.
func (s *Store) Evict(token string) bool {
	s.mu.Lock()
	e, known := s.sessions[token]
	s.mu.Unlock()

	if known {
		// Serialize against an in-flight workspace creation for this token.
		e.createMu.Lock()
		defer e.createMu.Unlock()
	}

	path := s.WorkspacePath(token)
	err := os.RemoveAll(path)
	if err != nil && !os.IsNotExist(err) {
		slog.Error("Failed to delete workspace, retaining session for retry",
			logfields.SessionID(token), logfields.Error(err))
		s.recorder.IncSessionEvicted(false)
		return false
	}

	s.mu.Lock()
	delete(s.sessions, token)
	s.recorder.SetActiveSessions(len(s.sessions))
	s.mu.Unlock()

	s.recorder.IncSessionEvicted(true)
	slog.Info("Workspace evicted", logfields.SessionID(token))
	return true
}

// ActiveCount returns the number of registered sessions.
func (s *Store) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Info returns the observability view of one session.
func (s *Store) Info(token string) (Info, bool) {
	s.mu.Lock()
	e, ok := s.sessions[token]
	if !ok {
		s.mu.Unlock()
		return Info{}, false
	}
	createdAt := e.createdAt
	lastAccess := e.lastAccess
	s.mu.Unlock()

	return Info{
		Token:           token,
		CreatedAt:       createdAt,
		LastAccess:      lastAccess,
		ExpiresIn:       s.lifetime - s.now().Sub(lastAccess),
		WorkspaceExists: s.workspaceExists(token),
	}, true
}
