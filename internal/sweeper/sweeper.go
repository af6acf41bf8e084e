// Package sweeper periodically evicts idle sessions and their workspaces.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/previewd/internal/events"
	ferrors "git.home.luguber.info/inful/previewd/internal/foundation/errors"
	"git.home.luguber.info/inful/previewd/internal/logfields"
	"git.home.luguber.info/inful/previewd/internal/metrics"
	"git.home.luguber.info/inful/previewd/internal/session"
)

// Evictor is the session-store surface the sweeper drives.
type Evictor interface {
	ListExpired(lifetime time.Duration) []session.Expired
	Evict(token string) bool
	Lifetime() time.Duration
}

// Sweeper runs a periodic expiry sweep over the session store. Each evicted
// token is reported through OnEvict so per-session watcher and render state
// can be dropped alongside the workspace.
type Sweeper struct {
	scheduler gocron.Scheduler
	store     Evictor
	interval  time.Duration
	bus       *events.Bus
	recorder  metrics.Recorder

	// OnEvict, when set, is called for every successfully evicted token
	// before the eviction event is published.
	OnEvict func(token string)
}

// New creates a sweeper that fires every interval. A nil bus disables
// eviction events; a nil recorder disables metrics.
func New(store Evictor, interval time.Duration, bus *events.Bus, recorder metrics.Recorder) (*Sweeper, error) {
	if store == nil {
		return nil, ferrors.ValidationError("session store is required").Build()
	}
	if interval <= 0 {
		return nil, ferrors.ValidationError("sweep interval must be positive").Build()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryDaemon, "failed to create sweep scheduler").Build()
	}

	return &Sweeper{
		scheduler: s,
		store:     store,
		interval:  interval,
		bus:       bus,
		recorder:  recorder,
	}, nil
}

// Start schedules the periodic sweep and begins the scheduler.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() { s.Sweep(ctx) }),
		gocron.WithName("expiry-sweep"),
	)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryDaemon, "failed to schedule expiry sweep").Build()
	}

	slog.Info("Starting expiry sweeper", slog.Duration("interval", s.interval))
	s.scheduler.Start()
	return nil
}

// Stop shuts the scheduler down, waiting for a running sweep to finish.
func (s *Sweeper) Stop() error {
	slog.Info("Stopping expiry sweeper")
	return s.scheduler.Shutdown()
}

// Sweep evicts every session whose idle time exceeds the store's lifetime.
// It returns the number of evicted sessions. Sweeps over an all-active store
// stay silent; a summary line is logged only when something was evicted.
func (s *Sweeper) Sweep(ctx context.Context) int {
	start := time.Now()

	expired := s.store.ListExpired(s.store.Lifetime())
	evicted := 0
	for _, exp := range expired {
		if !s.store.Evict(exp.Token) {
			continue
		}
		evicted++
		if s.OnEvict != nil {
			s.OnEvict(exp.Token)
		}
		if s.bus != nil {
			_ = s.bus.Publish(ctx, events.SessionEvicted{
				SessionID: exp.Token,
				Age:       exp.Age,
				EvictedAt: time.Now(),
			})
		}
	}

	s.recorder.ObserveSweepDuration(time.Since(start))
	if evicted > 0 {
		slog.Info("Expiry sweep complete",
			logfields.Count(evicted),
			logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	}
	return evicted
}
