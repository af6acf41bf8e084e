package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/previewd/internal/config"
	"git.home.luguber.info/inful/previewd/internal/events"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	template := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(template, "index.md"), []byte("# Welcome"), 0o640))

	cfg := config.Default()
	cfg.WorkspacesRoot = filepath.Join(t.TempDir(), "workspaces")
	cfg.TemplateRoot = template
	cfg.DebounceInterval = 10 * time.Millisecond
	cfg.CleanupInterval = time.Hour
	cfg.Watch.Mode = config.WatchPolling
	cfg.Watch.PollInterval = 20 * time.Millisecond
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestResolveSessionMintsTokenAndRendersInitialArtifact(t *testing.T) {
	d, err := New(newTestConfig(t), nil)
	require.NoError(t, err)
	defer d.bus.Close()

	sess, err := d.ResolveSession(context.Background(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.True(t, sess.Created)

	content, err := os.ReadFile(filepath.Join(sess.WorkspaceDir, "index.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Welcome", string(content))

	_, err = os.Stat(d.ArtifactPath(sess.Token))
	require.NoError(t, err, "initial regeneration must produce the artifact")

	status, ok := d.RenderStatus(sess.Token)
	require.True(t, ok)
	assert.True(t, status.ArtifactExists)
}

func TestResolveSessionReusesExistingWorkspace(t *testing.T) {
	d, err := New(newTestConfig(t), nil)
	require.NoError(t, err)
	defer d.bus.Close()

	first, err := d.ResolveSession(context.Background(), "")
	require.NoError(t, err)

	again, err := d.ResolveSession(context.Background(), first.Token)
	require.NoError(t, err)
	assert.Equal(t, first.WorkspaceDir, again.WorkspaceDir)
	assert.False(t, again.Created)
}

func TestFilesProtectsArtifact(t *testing.T) {
	d, err := New(newTestConfig(t), nil)
	require.NoError(t, err)
	defer d.bus.Close()

	sess, err := d.ResolveSession(context.Background(), "")
	require.NoError(t, err)

	files, err := d.Files(sess.Token)
	require.NoError(t, err)

	require.NoError(t, files.Write("notes.md", []byte("scratch")))
	got, err := files.Read("notes.md")
	require.NoError(t, err)
	assert.Equal(t, "scratch", string(got))

	for _, name := range []string{d.cfg.MainFile, d.cfg.ParamsFile, d.cfg.ArtifactName} {
		assert.Error(t, files.Delete(name), "%s must be protected", name)
	}
	_, err = os.Stat(d.ArtifactPath(sess.Token))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(sess.WorkspaceDir, d.cfg.MainFile))
	assert.NoError(t, err)
}

func TestSessionInfoUnknownToken(t *testing.T) {
	d, err := New(newTestConfig(t), nil)
	require.NoError(t, err)
	defer d.bus.Close()

	_, err = d.SessionInfo("no-such-session")
	assert.Error(t, err)
}

func TestFileChangeTriggersRegeneration(t *testing.T) {
	d, err := New(newTestConfig(t), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, d.Start(ctx))
	defer func() { require.NoError(t, d.Stop()) }()

	updatedCh, unsub := events.Subscribe[events.ArtifactUpdated](d.Bus(), 8)
	defer unsub()

	sess, err := d.ResolveSession(ctx, "")
	require.NoError(t, err)

	// Let the poller absorb the freshly cloned workspace.
	deadline := time.After(3 * time.Second)
	drained := false
	for !drained {
		select {
		case <-updatedCh:
		case <-time.After(200 * time.Millisecond):
			drained = true
		case <-deadline:
			t.Fatal("poller never settled")
		}
	}

	require.NoError(t, os.WriteFile(
		filepath.Join(sess.WorkspaceDir, "index.md"), []byte("# Edited"), 0o640))

	select {
	case evt := <-updatedCh:
		assert.Equal(t, sess.Token, evt.SessionID)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change-triggered regeneration")
	}

	artifact, err := os.ReadFile(d.ArtifactPath(sess.Token))
	require.NoError(t, err)
	assert.Contains(t, string(artifact), "Edited")
}

func TestStartTwiceFails(t *testing.T) {
	d, err := New(newTestConfig(t), nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, d.Start(ctx))
	assert.Error(t, d.Start(ctx))
	require.NoError(t, d.Stop())
	assert.Equal(t, StatusStopped, d.Status())
}
