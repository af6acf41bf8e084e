// Package daemon wires the session store, change watcher, expiry sweeper,
// and regeneration dispatcher into one long-running service.
package daemon

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/previewd/internal/config"
	"git.home.luguber.info/inful/previewd/internal/events"
	ferrors "git.home.luguber.info/inful/previewd/internal/foundation/errors"
	"git.home.luguber.info/inful/previewd/internal/logfields"
	"git.home.luguber.info/inful/previewd/internal/metrics"
	"git.home.luguber.info/inful/previewd/internal/render"
	"git.home.luguber.info/inful/previewd/internal/session"
	"git.home.luguber.info/inful/previewd/internal/sweeper"
	"git.home.luguber.info/inful/previewd/internal/watcher"
)

// Status is the daemon's lifecycle state.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
)

// Daemon owns the preview service's components and their lifecycle.
type Daemon struct {
	cfg        *config.Config
	store      *session.Store
	watcher    *watcher.Watcher
	sweeper    *sweeper.Sweeper
	dispatcher *render.Dispatcher
	bus        *events.Bus
	recorder   metrics.Recorder

	status    atomic.Value // Status
	startTime time.Time
}

// New builds a daemon from a validated configuration. A nil recorder
// disables metrics.
func New(cfg *config.Config, recorder metrics.Recorder) (*Daemon, error) {
	if cfg == nil {
		return nil, ferrors.ConfigError("configuration is required").Build()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	bus := events.NewBus()

	store, err := session.NewStore(cfg.WorkspacesRoot, cfg.TemplateRoot, cfg.SessionLifetime, recorder)
	if err != nil {
		bus.Close()
		return nil, err
	}

	dispatcher, err := render.NewDispatcher(render.Options{
		MainFile:     cfg.MainFile,
		ParamsFile:   cfg.ParamsFile,
		ArtifactName: cfg.ArtifactName,
	}, render.NewTemplateEngine(), render.NewDocumentRenderer(), render.NewParamsLoader(), nil, bus, recorder)
	if err != nil {
		bus.Close()
		return nil, err
	}

	d := &Daemon{
		cfg:        cfg,
		store:      store,
		dispatcher: dispatcher,
		bus:        bus,
		recorder:   recorder,
	}
	d.status.Store(StatusStopped)

	d.watcher, err = watcher.New(cfg.WorkspacesRoot, cfg.Watch, cfg.DebounceInterval, d.onChange, recorder)
	if err != nil {
		bus.Close()
		return nil, err
	}
	d.watcher.Ignore(cfg.ArtifactName)

	d.sweeper, err = sweeper.New(store, cfg.CleanupInterval, bus, recorder)
	if err != nil {
		bus.Close()
		return nil, err
	}
	d.sweeper.OnEvict = d.onEvict

	return d, nil
}

// Bus exposes the event bus for transport-layer subscriptions.
func (d *Daemon) Bus() *events.Bus {
	return d.bus
}

// Status returns the daemon's lifecycle state.
func (d *Daemon) Status() Status {
	return d.status.Load().(Status)
}

// Uptime reports how long the daemon has been running.
func (d *Daemon) Uptime() time.Duration {
	if d.Status() != StatusRunning {
		return 0
	}
	return time.Since(d.startTime)
}

// onChange is the watcher callback: an admitted change in a workspace kicks
// off a regeneration and announces the request on the bus. Regeneration
// failures are already recorded by the dispatcher; the watcher loop must
// keep running regardless.
func (d *Daemon) onChange(token, workspaceDir string) {
	ctx := context.Background()
	_ = d.bus.Publish(ctx, events.RegenerateRequested{
		SessionID:   token,
		Workspace:   workspaceDir,
		Reason:      "file_change",
		RequestedAt: time.Now(),
	})
	_ = d.dispatcher.Regenerate(ctx, token, workspaceDir, true)
}

// onEvict drops per-session state held outside the store.
func (d *Daemon) onEvict(token string) {
	d.watcher.Gate().Forget(token)
	d.dispatcher.Statuses().Forget(token)
}

// Start brings up the watcher and the sweeper. It does not block.
func (d *Daemon) Start(ctx context.Context) error {
	if d.Status() != StatusStopped {
		return ferrors.DaemonError("daemon already started").Build()
	}
	d.status.Store(StatusStarting)

	slog.Info("Starting preview daemon",
		logfields.Path(d.cfg.WorkspacesRoot),
		logfields.Mode(string(d.cfg.Watch.Mode)))

	d.watcher.Start()
	if err := d.sweeper.Start(ctx); err != nil {
		d.watcher.Stop()
		d.status.Store(StatusStopped)
		return err
	}

	d.startTime = time.Now()
	d.status.Store(StatusRunning)
	return nil
}

// Stop shuts components down in reverse start order and closes the bus.
func (d *Daemon) Stop() error {
	if d.Status() != StatusRunning {
		return nil
	}
	d.status.Store(StatusStopping)

	err := d.sweeper.Stop()
	d.watcher.Stop()
	d.bus.Close()

	d.status.Store(StatusStopped)
	slog.Info("Preview daemon stopped")
	return err
}

// Run starts the daemon and blocks until the context is cancelled, then
// stops it.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return d.Stop()
}
