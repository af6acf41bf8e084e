package daemon

import (
	"context"
	"time"

	"git.home.luguber.info/inful/previewd/internal/events"
	ferrors "git.home.luguber.info/inful/previewd/internal/foundation/errors"
	"git.home.luguber.info/inful/previewd/internal/render"
	"git.home.luguber.info/inful/previewd/internal/session"
	"git.home.luguber.info/inful/previewd/internal/workspace"
)

// Session is the resolved view handed to the transport layer.
type Session struct {
	Token        string
	WorkspaceDir string
	Created      bool
}

// ResolveSession materializes the workspace for a token, minting a fresh
// token when none is presented. A newly created workspace gets an initial
// regeneration so the first preview is ready before any file change.
func (d *Daemon) ResolveSession(ctx context.Context, token string) (Session, error) {
	created := false
	if token == "" {
		token = d.store.CreateSessionID()
		created = true
	}

	existedBefore := false
	if !created {
		_, existedBefore = d.store.Info(token)
	}

	dir, err := d.store.GetOrCreateWorkspace(token)
	if err != nil {
		return Session{}, err
	}

	if created || !existedBefore {
		_ = d.dispatcher.Regenerate(ctx, token, dir, true)
	}

	return Session{Token: token, WorkspaceDir: dir, Created: created || !existedBefore}, nil
}

// Files returns a path-confined file accessor for the session's workspace.
// The main markup file, the params file, and the artifact are protected from
// deletion through this surface.
func (d *Daemon) Files(token string) (*workspace.Dir, error) {
	dir, err := d.store.GetOrCreateWorkspace(token)
	if err != nil {
		return nil, err
	}
	return workspace.NewDir(dir, d.cfg.MainFile, d.cfg.ParamsFile, d.cfg.ArtifactName), nil
}

// Regenerate triggers a manual regeneration for a session, outside the
// watch pipeline.
func (d *Daemon) Regenerate(ctx context.Context, token string) error {
	dir, err := d.store.GetOrCreateWorkspace(token)
	if err != nil {
		return err
	}
	_ = d.bus.Publish(ctx, events.RegenerateRequested{
		SessionID:   token,
		Workspace:   dir,
		Reason:      "manual",
		RequestedAt: time.Now(),
	})
	return d.dispatcher.Regenerate(ctx, token, dir, true)
}

// SessionInfo returns session bookkeeping for a known token.
func (d *Daemon) SessionInfo(token string) (session.Info, error) {
	info, ok := d.store.Info(token)
	if !ok {
		return session.Info{}, ferrors.NotFoundError("unknown session").
			WithContext("session_id", token).
			Build()
	}
	return info, nil
}

// RenderStatus returns the most recent regeneration outcome for a session.
func (d *Daemon) RenderStatus(token string) (render.Status, bool) {
	return d.dispatcher.Statuses().Get(token)
}

// ArtifactPath returns where the session's rendered artifact lives.
func (d *Daemon) ArtifactPath(token string) string {
	return d.dispatcher.ArtifactPath(d.store.WorkspacePath(token))
}
