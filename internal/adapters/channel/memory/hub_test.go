package memory

import (
	"context"
	"testing"
	"time"

	"github.com/bnema/classroom/internal/domain"
	"github.com/bnema/classroom/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, b ports.Binding) domain.Event {
	t.Helper()

	select {
	case event, ok := <-b.Events():
		require.True(t, ok, "events channel closed")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return domain.Event{}
	}
}

func TestHubDeliversToEveryoneButSenderInOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hub := NewHub(nil)
	channel := ports.ChannelInfo{UUID: "chan-1"}

	teacher, err := hub.Bind(ctx, channel, "teacher")
	require.NoError(t, err)
	studentA, err := hub.Bind(ctx, channel, "student-a")
	require.NoError(t, err)
	studentB, err := hub.Bind(ctx, channel, "student-b")
	require.NoError(t, err)

	for seq := uint64(1); seq <= 50; seq++ {
		require.NoError(t, teacher.Publish(ctx, domain.Event{Type: domain.EventToolChanged, Sender: "teacher", Sequence: seq}))
	}

	for _, student := range []ports.Binding{studentA, studentB} {
		for seq := uint64(1); seq <= 50; seq++ {
			assert.Equal(t, seq, receive(t, student).Sequence)
		}
	}

	select {
	case event := <-teacher.Events():
		t.Fatalf("sender received its own event %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubSeverReportsTransportLoss(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hub := NewHub(nil)
	channel := ports.ChannelInfo{UUID: "chan-1"}

	b, err := hub.Bind(ctx, channel, "student")
	require.NoError(t, err)

	require.True(t, hub.Sever("chan-1", "student"))

	_, ok := <-b.Events()
	assert.False(t, ok)
	require.ErrorIs(t, b.Err(), domain.ErrTransportLoss)
	require.ErrorIs(t, b.Publish(ctx, domain.Event{Type: domain.EventSyncRequest}), domain.ErrTransportLoss)
	assert.Empty(t, hub.Subscribers("chan-1"))
	assert.False(t, hub.Sever("chan-1", "student"))
}

func TestHubCloseIsClean(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hub := NewHub(nil)

	b, err := hub.Bind(ctx, ports.ChannelInfo{UUID: "chan-1"}, "student")
	require.NoError(t, err)
	require.NoError(t, b.Close())

	<-b.Done()
	assert.NoError(t, b.Err())
	assert.ErrorIs(t, b.Publish(ctx, domain.Event{}), ErrBindingClosed)
}

func TestHubRebindReplacesPreviousSubscription(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hub := NewHub(nil)
	channel := ports.ChannelInfo{UUID: "chan-1"}

	first, err := hub.Bind(ctx, channel, "student")
	require.NoError(t, err)
	second, err := hub.Bind(ctx, channel, "student")
	require.NoError(t, err)

	<-first.Done()
	require.NoError(t, first.Close())
	assert.Equal(t, []domain.ParticipantID{"student"}, hub.Subscribers("chan-1"))

	teacher, err := hub.Bind(ctx, channel, "teacher")
	require.NoError(t, err)
	require.NoError(t, teacher.Publish(ctx, domain.Event{Type: domain.EventToolChanged, Tool: "pen"}))
	assert.Equal(t, "pen", receive(t, second).Tool)
}

func TestHubRejectsEmptyChannel(t *testing.T) {
	t.Parallel()

	_, err := NewHub(nil).Bind(context.Background(), ports.ChannelInfo{}, "student")
	require.Error(t, err)
}
