package application

import (
	"context"
	"testing"
	"time"

	"github.com/bnema/classroom/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminationRequiresBroadcaster(t *testing.T) {
	t.Parallel()

	room := newTestRoom(t)
	student := startEngine(t, room, "s1", domain.AuthorityFollower)
	coordinator := NewTerminationCoordinator(student, room.rooms, room.clock, room.policy, nil)

	require.ErrorIs(t, coordinator.RequestEnd(), domain.ErrNotBroadcaster)
	assert.Equal(t, domain.TerminationActive, coordinator.State())
}

func TestTerminationCancelReturnsToActive(t *testing.T) {
	t.Parallel()

	room := newTestRoom(t)
	teacher := startEngine(t, room, "t1", domain.AuthorityBroadcaster)
	coordinator := NewTerminationCoordinator(teacher, room.rooms, room.clock, room.policy, nil)

	require.ErrorIs(t, coordinator.ConfirmEnd(context.Background()), domain.ErrInvalidTransition)
	require.NoError(t, coordinator.RequestEnd())
	require.NoError(t, coordinator.CancelEnd())
	assert.Equal(t, domain.TerminationActive, coordinator.State())

	session, err := room.rooms.Session("math-101")
	require.NoError(t, err)
	assert.False(t, session.Terminated)
}

func TestTerminationPublishesSessionEndedOnce(t *testing.T) {
	t.Parallel()

	room := newTestRoom(t)
	ctx := context.Background()
	teacher := startEngine(t, room, "t1", domain.AuthorityBroadcaster)

	listener, err := room.rooms.Join(ctx, "math-101", "s1", domain.AuthorityFollower, domain.ReadinessRecord{})
	require.NoError(t, err)

	coordinator := NewTerminationCoordinator(teacher, room.rooms, room.clock, room.policy, nil)
	require.NoError(t, coordinator.RequestEnd())
	require.NoError(t, coordinator.ConfirmEnd(ctx))
	require.NoError(t, coordinator.ConfirmEnd(ctx))
	assert.Equal(t, domain.TerminationEnded, coordinator.State())

	select {
	case event := <-listener.Binding.Events():
		assert.Equal(t, domain.EventSessionEnded, event.Type)
		assert.NotZero(t, event.Timestamp)
	case <-time.After(2 * time.Second):
		t.Fatal("session_ended not delivered")
	}

	select {
	case event := <-listener.Binding.Events():
		t.Fatalf("unexpected second event %+v", event)
	case <-time.After(50 * time.Millisecond):
	}

	session, err := room.rooms.Session("math-101")
	require.NoError(t, err)
	assert.True(t, session.Terminated)
}

func TestTerminationVerifyReportsStragglers(t *testing.T) {
	t.Parallel()

	room := newTestRoom(t)
	room.policy.SyncDeadline = 30 * time.Millisecond
	ctx := context.Background()
	teacher := startEngine(t, room, "t1", domain.AuthorityBroadcaster)

	// A follower that never consumes its events never leaves.
	_, err := room.rooms.Join(ctx, "math-101", "stuck", domain.AuthorityFollower, domain.ReadinessRecord{})
	require.NoError(t, err)

	coordinator := NewTerminationCoordinator(teacher, room.rooms, room.clock, room.policy, nil)
	require.NoError(t, coordinator.RequestEnd())
	require.NoError(t, coordinator.ConfirmEnd(ctx))

	report, err := coordinator.Verify(ctx)
	require.ErrorIs(t, err, domain.ErrSyncTimeout)
	assert.Equal(t, []domain.ParticipantID{"stuck"}, report.Remaining)
	assert.False(t, report.Clean())
}

func TestVerifyEvictionOverWatches(t *testing.T) {
	t.Parallel()

	gone := make(chan struct{})
	close(gone)
	stuck := make(chan struct{})

	report, err := VerifyEviction(context.Background(), "math-101", 20*time.Millisecond, []FollowerWatch{
		{Participant: "s1", Done: gone},
		{Participant: "s2", Done: stuck},
	})
	require.ErrorIs(t, err, domain.ErrSyncTimeout)
	assert.Equal(t, []domain.ParticipantID{"s2"}, report.Remaining)

	report, err = VerifyEviction(context.Background(), "math-101", time.Second, []FollowerWatch{{Participant: "s1", Done: gone}})
	require.NoError(t, err)
	assert.True(t, report.Clean())
}
