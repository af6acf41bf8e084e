package render

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/previewd/internal/events"
	ferrors "git.home.luguber.info/inful/previewd/internal/foundation/errors"
	"git.home.luguber.info/inful/previewd/internal/logfields"
	"git.home.luguber.info/inful/previewd/internal/metrics"
)

// Options configures the dispatcher's per-workspace file names.
type Options struct {
	// MainFile is the default entry markup file. A workspace can override it
	// with a "main_file" binding in its parameters file, as long as the
	// override is a bare file name.
	MainFile     string
	ParamsFile   string
	ArtifactName string
}

// Dispatcher glues admitted change events and manual triggers to the
// template engine and document renderer. Failures at any stage are captured
// into the status registry and published on the bus; they never propagate
// past this boundary as panics, and the watcher/sweeper callers discard the
// returned error after it has been recorded.
type Dispatcher struct {
	opts     Options
	engine   TemplateEngine
	renderer DocumentRenderer
	params   ParamsLoader
	statuses *StatusRegistry
	bus      *events.Bus
	recorder metrics.Recorder
}

// NewDispatcher wires a dispatcher. A nil bus disables notifications; a nil
// recorder disables metrics.
func NewDispatcher(opts Options, engine TemplateEngine, renderer DocumentRenderer, params ParamsLoader, statuses *StatusRegistry, bus *events.Bus, recorder metrics.Recorder) (*Dispatcher, error) {
	if engine == nil || renderer == nil || params == nil {
		return nil, ferrors.ValidationError("engine, renderer, and params loader are required").Build()
	}
	if statuses == nil {
		statuses = NewStatusRegistry()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if opts.MainFile == "" {
		opts.MainFile = "index.md"
	}
	if opts.ParamsFile == "" {
		opts.ParamsFile = "params.json"
	}
	if opts.ArtifactName == "" {
		opts.ArtifactName = "preview.html"
	}
	return &Dispatcher{
		opts:     opts,
		engine:   engine,
		renderer: renderer,
		params:   params,
		statuses: statuses,
		bus:      bus,
		recorder: recorder,
	}, nil
}

// Statuses exposes the status registry for transport-layer queries.
func (d *Dispatcher) Statuses() *StatusRegistry {
	return d.statuses
}

// ArtifactPath returns where the artifact lives inside a workspace.
func (d *Dispatcher) ArtifactPath(workspaceDir string) string {
	return filepath.Join(workspaceDir, d.opts.ArtifactName)
}

// mainFilePath resolves the workspace's entry markup file, honoring a
// per-workspace override from the parameters.
func (d *Dispatcher) mainFilePath(workspaceDir string, bindings map[string]any) string {
	name := d.opts.MainFile
	if override, ok := bindings["main_file"].(string); ok {
		if override != "" && filepath.Base(override) == override {
			name = override
		} else {
			slog.Warn("Ignoring invalid main_file override", logfields.File(override))
		}
	}
	return filepath.Join(workspaceDir, name)
}

// Regenerate renders the workspace's artifact. An absent or blank main file
// is a benign no-op: nothing is written, no error recorded, no notification
// published.
func (d *Dispatcher) Regenerate(ctx context.Context, token, workspaceDir string, notify bool) error {
	start := time.Now()

	bindings := d.params.Load(filepath.Join(workspaceDir, d.opts.ParamsFile))
	mainPath := d.mainFilePath(workspaceDir, bindings)

	content, err := os.ReadFile(mainPath)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("Main markup file absent, nothing to render",
				logfields.SessionID(token), logfields.File(filepath.Base(mainPath)))
			d.recorder.IncRegenOutcome(metrics.RegenEmpty)
			return nil
		}
		return d.fail(ctx, token, workspaceDir, notify, metrics.RegenRender,
			ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to read main markup file").
				WithContext("file", filepath.Base(mainPath)).
				Build())
	}
	if strings.TrimSpace(string(content)) == "" {
		slog.Debug("Main markup file is empty, nothing to render", logfields.SessionID(token))
		d.recorder.IncRegenOutcome(metrics.RegenEmpty)
		return nil
	}

	markup, err := d.engine.Render(mainPath, bindings, workspaceDir)
	if err != nil {
		return d.fail(ctx, token, workspaceDir, notify, metrics.RegenTemplate, err)
	}

	artifactPath := d.ArtifactPath(workspaceDir)
	if err := d.renderer.Render(markup, artifactPath, workspaceDir); err != nil {
		return d.fail(ctx, token, workspaceDir, notify, metrics.RegenRender, err)
	}

	info, err := os.Stat(artifactPath)
	if err != nil {
		return d.fail(ctx, token, workspaceDir, notify, metrics.RegenRender,
			ferrors.WrapError(err, ferrors.CategoryRender, "artifact missing after render").
				WithContext("path", artifactPath).
				Build())
	}

	generatedAt := time.Now()
	d.statuses.RecordSuccess(token, generatedAt, info.Size())
	d.recorder.ObserveRegenDuration(time.Since(start))
	d.recorder.IncRegenOutcome(metrics.RegenSuccess)
	d.recorder.SetArtifactSize(info.Size())

	slog.Info("Artifact generated",
		logfields.SessionID(token),
		logfields.Artifact(d.opts.ArtifactName),
		logfields.SizeBytes(info.Size()),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))

	if notify && d.bus != nil {
		_ = d.bus.Publish(ctx, events.ArtifactUpdated{
			SessionID:   token,
			Workspace:   workspaceDir,
			Artifact:    d.opts.ArtifactName,
			SizeBytes:   info.Size(),
			GeneratedAt: generatedAt,
		})
	}
	return nil
}

// fail records a structured error, publishes a failure event when notify is
// set, and returns the classified error for callers that want it.
func (d *Dispatcher) fail(ctx context.Context, token, workspaceDir string, notify bool, outcome metrics.RegenOutcome, err error) error {
	failedAt := time.Now()

	message := err.Error()
	detail := message
	if classified, ok := ferrors.AsClassified(err); ok {
		message = classified.Message()
		if cause := classified.Cause(); cause != nil {
			detail = message + ": " + cause.Error()
		}
	}

	d.statuses.RecordFailure(token, GenError{
		Message:   message,
		Detail:    detail,
		Timestamp: failedAt,
	})
	d.recorder.IncRegenOutcome(outcome)

	slog.Error("Artifact generation failed", logfields.SessionID(token), logfields.Error(err))

	if notify && d.bus != nil {
		_ = d.bus.Publish(ctx, events.ArtifactFailed{
			SessionID: token,
			Workspace: workspaceDir,
			Message:   message,
			Detail:    detail,
			FailedAt:  failedAt,
		})
	}
	return err
}
