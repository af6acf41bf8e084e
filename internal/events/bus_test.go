package events

import (
	"context"
	"testing"
	"time"

	ferrors "git.home.luguber.info/inful/previewd/internal/foundation/errors"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[ArtifactUpdated](b, 1)
	defer unsubscribe()

	require.NoError(t, b.Publish(context.Background(), ArtifactUpdated{
		SessionID: "s1",
		SizeBytes: 2048,
	}))

	select {
	case got := <-ch:
		require.Equal(t, "s1", got.SessionID)
		require.Equal(t, int64(2048), got.SizeBytes)
	case <-time.After(250 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_TypedDeliveryDoesNotCrossEventTypes(t *testing.T) {
	b := NewBus()
	defer b.Close()

	updatedCh, unsubU := Subscribe[ArtifactUpdated](b, 1)
	defer unsubU()
	failedCh, unsubF := Subscribe[ArtifactFailed](b, 1)
	defer unsubF()

	require.NoError(t, b.Publish(context.Background(), ArtifactFailed{SessionID: "s1", Message: "boom"}))

	select {
	case got := <-failedCh:
		require.Equal(t, "boom", got.Message)
	case <-time.After(250 * time.Millisecond):
		t.Fatal("timed out waiting for failure event")
	}

	select {
	case <-updatedCh:
		t.Fatal("ArtifactUpdated subscriber received ArtifactFailed")
	default:
	}
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[SessionEvicted](b, 1)
	require.Equal(t, 1, SubscriberCount[SessionEvicted](b))

	unsubscribe()
	require.Equal(t, 0, SubscriberCount[SessionEvicted](b))

	// Channel is closed after unsubscribe.
	_, ok := <-ch
	require.False(t, ok)
}

func TestBus_PublishBackpressure(t *testing.T) {
	b := NewBus()
	defer b.Close()

	_, unsubscribe := Subscribe[RegenerateRequested](b, 0) // unbuffered; no receiver => blocks
	defer unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := b.Publish(ctx, RegenerateRequested{SessionID: "s1"})
	require.Error(t, err)

	classified, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	require.Equal(t, ferrors.CategoryDaemon, classified.Category())
}

func TestBus_Close(t *testing.T) {
	b := NewBus()

	ch, _ := Subscribe[ArtifactUpdated](b, 1)
	b.Close()

	_, ok := <-ch
	require.False(t, ok)

	err := b.Publish(context.Background(), ArtifactUpdated{})
	require.Error(t, err)
}

func TestBus_PublishWithoutSubscribersIsDropped(t *testing.T) {
	b := NewBus()
	defer b.Close()

	require.NoError(t, b.Publish(context.Background(), ArtifactUpdated{SessionID: "s1"}))
}
