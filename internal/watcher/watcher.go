package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/previewd/internal/config"
	ferrors "git.home.luguber.info/inful/previewd/internal/foundation/errors"
	"git.home.luguber.info/inful/previewd/internal/logfields"
	"git.home.luguber.info/inful/previewd/internal/metrics"
	"git.home.luguber.info/inful/previewd/internal/retry"
	"git.home.luguber.info/inful/previewd/internal/util/sets"
)

// Callback receives the session token and workspace directory of an admitted
// change event.
type Callback func(token, workspaceDir string)

// Watcher observes the workspaces root for file mutations, resolves each
// event to its owning workspace, coalesces bursts per workspace through the
// debounce gate, and invokes the callback once per admitted burst.
type Watcher struct {
	root     string
	exts     sets.Set[string]
	ignored  sets.Set[string]
	gate     *DebounceGate
	observer Observer
	callback Callback
	recorder metrics.Recorder
	restart  retry.Policy

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	// Per-workspace callback dispatch. inflight marks workspaces with a
	// callback running; rerun marks those that took another admitted event
	// meanwhile and need one more pass once the current callback returns.
	jobMu    sync.Mutex
	inflight map[string]struct{}
	rerun    map[string]string // token -> workspace dir
	jobs     sync.WaitGroup
}

// New creates a watcher over root. The observation strategy is selected by
// cfg.Mode; the debounce interval is independent of the polling interval.
func New(root string, cfg config.WatchConfig, debounce time.Duration, callback Callback, recorder metrics.Recorder) (*Watcher, error) {
	if root == "" {
		return nil, ferrors.ValidationError("watch root must not be empty").Build()
	}
	if callback == nil {
		return nil, ferrors.ValidationError("callback is required").Build()
	}
	if debounce <= 0 {
		return nil, ferrors.ValidationError("debounce interval must be positive").Build()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	var obs Observer
	switch cfg.Mode {
	case config.WatchNative:
		obs = NewNativeObserver(root)
	case config.WatchPolling:
		obs = NewPollingObserver(root, cfg.PollInterval)
	default:
		return nil, ferrors.ValidationError("unknown watch mode").
			WithContext("mode", string(cfg.Mode)).
			Build()
	}

	return &Watcher{
		root:     filepath.Clean(root),
		exts:     sets.NewFolded(cfg.Extensions...),
		ignored:  sets.New[string](),
		restart:  retry.DefaultPolicy(),
		gate:     NewDebounceGate(debounce),
		observer: obs,
		callback: callback,
		recorder: recorder,
		inflight: make(map[string]struct{}),
		rerun:    make(map[string]string),
	}, nil
}

// NewWithObserver creates a watcher with an explicit observer strategy.
// Used by tests to drive synthetic events.
func NewWithObserver(root string, obs Observer, extensions []string, debounce time.Duration, callback Callback, recorder metrics.Recorder) (*Watcher, error) {
	w, err := New(root, config.WatchConfig{
		Mode:         config.WatchPolling,
		PollInterval: time.Second,
		Extensions:   extensions,
	}, debounce, callback, recorder)
	if err != nil {
		return nil, err
	}
	w.observer = obs
	return w, nil
}

// Ignore excludes files by base name from triggering callbacks. The
// generated artifact must be ignored or its own write would retrigger
// regeneration. Call before Start.
func (w *Watcher) Ignore(names ...string) {
	for _, name := range names {
		w.ignored.Add(name)
	}
}

// Gate exposes the debounce gate so eviction can drop per-workspace state.
func (w *Watcher) Gate() *DebounceGate {
	return w.gate
}

// Start launches the observation loop. Starting a running watcher is a
// warned no-op, not an error.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		slog.Warn("File watcher already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	events := make(chan string, 64)

	go func() {
		defer close(events)
		// A dead observer (e.g. exhausted inotify descriptors) is restarted
		// with backoff rather than silently ending observation.
		for attempt := 0; ; attempt++ {
			err := w.observer.Run(ctx, events)
			if err == nil || ctx.Err() != nil {
				return
			}
			if attempt >= w.restart.MaxRetries {
				slog.Error("Change observer terminated, giving up", logfields.Error(err))
				return
			}
			delay := w.restart.Delay(attempt + 1)
			slog.Warn("Change observer failed, restarting",
				logfields.Error(err), slog.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		defer close(w.done)
		for path := range events {
			w.handle(path)
		}
	}()

	slog.Info("File watcher started", logfields.Path(w.root))
}

// Stop terminates observation and blocks until the loop has fully exited.
// Stopping an already-stopped watcher is a warned no-op.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		slog.Warn("File watcher not running")
		return
	}
	w.running = false
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	cancel()
	<-done
	w.jobs.Wait()
	slog.Info("File watcher stopped")
}

// IsRunning reports whether the observation loop is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// handle processes one raw file event: extension filter, workspace
// resolution, debounce, callback.
func (w *Watcher) handle(path string) {
	ext := strings.ToLower(filepath.Ext(path))
	if !w.exts.Has(ext) {
		return
	}
	if w.ignored.Has(filepath.Base(path)) {
		return
	}

	token, dir, ok := w.resolveWorkspace(path)
	if !ok {
		return
	}

	admitted := w.gate.Admit(token)
	w.recorder.IncWatchEvent(admitted)
	if !admitted {
		slog.Debug("Change suppressed by debounce", logfields.SessionID(token))
		return
	}

	slog.Debug("Change admitted", logfields.SessionID(token), logfields.File(filepath.Base(path)))
	w.dispatch(token, dir)
}

// dispatch runs the callback on its own goroutine so a slow regeneration in
// one workspace never delays admitted events for another. Per workspace the
// callback stays serialized: at most one runs at a time, and an event
// admitted while one is running queues exactly one follow-up pass.
func (w *Watcher) dispatch(token, dir string) {
	w.jobMu.Lock()
	if _, busy := w.inflight[token]; busy {
		w.rerun[token] = dir
		w.jobMu.Unlock()
		return
	}
	w.inflight[token] = struct{}{}
	w.jobMu.Unlock()

	w.jobs.Add(1)
	go func() {
		defer w.jobs.Done()
		for {
			w.callback(token, dir)

			w.jobMu.Lock()
			next, again := w.rerun[token]
			if !again {
				delete(w.inflight, token)
				w.jobMu.Unlock()
				return
			}
			delete(w.rerun, token)
			w.jobMu.Unlock()
			dir = next
		}
	}()
}

// resolveWorkspace walks upward from the changed file until it finds the
// ancestor that is an immediate child of the watched root. Events fired for
// files directly at the root have no owning workspace and are ignored.
func (w *Watcher) resolveWorkspace(path string) (token, dir string, ok bool) {
	current := filepath.Dir(filepath.Clean(path))
	if current == w.root {
		// File lives directly at the root; there is no owning workspace.
		return "", "", false
	}
	for {
		parent := filepath.Dir(current)
		if parent == w.root {
			return filepath.Base(current), current, true
		}
		if parent == current {
			// Reached filesystem root without meeting the watch root; the
			// event is outside our tree.
			return "", "", false
		}
		current = parent
	}
}
