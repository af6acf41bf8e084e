package sweeper

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/previewd/internal/events"
	"git.home.luguber.info/inful/previewd/internal/session"
)

func newSweepStore(t *testing.T, lifetime time.Duration) *session.Store {
	t.Helper()

	template := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(template, "index.md"), []byte("# Tpl"), 0o640))

	store, err := session.NewStore(filepath.Join(t.TempDir(), "workspaces"), template, lifetime, nil)
	require.NoError(t, err)
	return store
}

func TestSweepEvictsOnlyExpired(t *testing.T) {
	store := newSweepStore(t, time.Hour)

	base := time.Now()
	now := base
	store.SetClock(func() time.Time { return now })

	stale := store.CreateSessionID()
	stalePath, err := store.GetOrCreateWorkspace(stale)
	require.NoError(t, err)

	now = base.Add(2 * time.Hour)
	fresh := store.CreateSessionID()
	freshPath, err := store.GetOrCreateWorkspace(fresh)
	require.NoError(t, err)

	var forgotten []string
	sw, err := New(store, time.Minute, nil, nil)
	require.NoError(t, err)
	sw.OnEvict = func(token string) { forgotten = append(forgotten, token) }

	evicted := sw.Sweep(context.Background())
	assert.Equal(t, 1, evicted)
	assert.Equal(t, []string{stale}, forgotten)

	_, err = os.Stat(stalePath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(freshPath)
	assert.NoError(t, err)
	assert.Equal(t, 1, store.ActiveCount())
}

func TestSweepExactLifetimeBoundaryIsKept(t *testing.T) {
	store := newSweepStore(t, time.Hour)

	base := time.Now()
	now := base
	store.SetClock(func() time.Time { return now })

	token := store.CreateSessionID()
	_, err := store.GetOrCreateWorkspace(token)
	require.NoError(t, err)

	// Idle for exactly the lifetime is not yet expired.
	now = base.Add(time.Hour)

	sw, err := New(store, time.Minute, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, sw.Sweep(context.Background()))
	assert.Equal(t, 1, store.ActiveCount())
}

func TestSweepPublishesEvictionEvents(t *testing.T) {
	store := newSweepStore(t, time.Hour)

	base := time.Now()
	now := base
	store.SetClock(func() time.Time { return now })

	token := store.CreateSessionID()
	_, err := store.GetOrCreateWorkspace(token)
	require.NoError(t, err)

	now = base.Add(3 * time.Hour)

	bus := events.NewBus()
	defer bus.Close()
	evictedCh, unsub := events.Subscribe[events.SessionEvicted](bus, 1)
	defer unsub()

	sw, err := New(store, time.Minute, bus, nil)
	require.NoError(t, err)
	require.Equal(t, 1, sw.Sweep(context.Background()))

	select {
	case evt := <-evictedCh:
		assert.Equal(t, token, evt.SessionID)
		assert.Greater(t, evt.Age, time.Hour)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for SessionEvicted")
	}
}

func TestSweepEmptyStoreIsQuiet(t *testing.T) {
	store := newSweepStore(t, time.Hour)

	sw, err := New(store, time.Minute, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, sw.Sweep(context.Background()))
}

func TestNewRejectsBadArguments(t *testing.T) {
	store := newSweepStore(t, time.Hour)

	_, err := New(nil, time.Minute, nil, nil)
	assert.Error(t, err)

	_, err = New(store, 0, nil, nil)
	assert.Error(t, err)
}

func TestStartAndStop(t *testing.T) {
	store := newSweepStore(t, time.Hour)

	sw, err := New(store, time.Hour, nil, nil)
	require.NoError(t, err)
	require.NoError(t, sw.Start(context.Background()))
	require.NoError(t, sw.Stop())
}
