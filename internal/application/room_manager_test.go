package application

import (
	"context"
	"errors"
	"testing"
	"time"

	channelmemory "github.com/bnema/classroom/internal/adapters/channel/memory"
	surfacememory "github.com/bnema/classroom/internal/adapters/surface/memory"
	"github.com/bnema/classroom/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomManagerSharesChannelAcrossParticipants(t *testing.T) {
	t.Parallel()

	room := newTestRoom(t)
	ctx := context.Background()

	teacher, err := room.rooms.Admit(ctx, JoinRequest{SessionID: "math-101", ParticipantID: "t1", Role: "teacher"})
	require.NoError(t, err)
	student, err := room.rooms.Admit(ctx, JoinRequest{SessionID: "math-101", ParticipantID: "s1", Role: "student"})
	require.NoError(t, err)
	other, err := room.rooms.Admit(ctx, JoinRequest{SessionID: "math-102", ParticipantID: "s1", Role: "student"})
	require.NoError(t, err)

	assert.Equal(t, teacher.Channel.UUID, student.Channel.UUID)
	assert.NotEqual(t, teacher.Channel.UUID, other.Channel.UUID)
	assert.NotEqual(t, teacher.Channel.Token, student.Channel.Token)

	response := student.Response()
	assert.True(t, response.OK)
	assert.Equal(t, domain.AuthorityFollower, response.Authority)
	assert.Equal(t, student.Channel.UUID, response.ChannelUUID)
}

func TestRoomManagerRejectsSecondBroadcaster(t *testing.T) {
	t.Parallel()

	room := newTestRoom(t)
	ctx := context.Background()

	first, err := room.rooms.Join(ctx, "math-101", "t1", domain.AuthorityBroadcaster, domain.ReadinessRecord{})
	require.NoError(t, err)

	_, err = room.rooms.Join(ctx, "math-101", "t2", domain.AuthorityBroadcaster, domain.ReadinessRecord{})
	require.ErrorIs(t, err, domain.ErrRoleConflict)

	session, err := room.rooms.Session("math-101")
	require.NoError(t, err)
	broadcaster, ok := session.Broadcaster()
	require.True(t, ok)
	assert.Equal(t, domain.ParticipantID("t1"), broadcaster.ID)
	assert.Len(t, session.Participants, 1)
	assert.Equal(t, []domain.ParticipantID{"t1"}, room.hub.Subscribers(first.Channel.UUID))
}

func TestRoomManagerReadmitsReconnectingBroadcaster(t *testing.T) {
	t.Parallel()

	room := newTestRoom(t)
	ctx := context.Background()

	first, err := room.rooms.Join(ctx, "math-101", "t1", domain.AuthorityBroadcaster, domain.ReadinessRecord{})
	require.NoError(t, err)
	second, err := room.rooms.Join(ctx, "math-101", "t1", domain.AuthorityBroadcaster, domain.ReadinessRecord{})
	require.NoError(t, err)

	<-first.Binding.Done()
	assert.NoError(t, first.Binding.Err())
	assert.Equal(t, first.Channel.UUID, second.Channel.UUID)

	session, err := room.rooms.Session("math-101")
	require.NoError(t, err)
	assert.Len(t, session.Participants, 1)
}

func TestRoomManagerJoinPreparesSurface(t *testing.T) {
	t.Parallel()

	room := newTestRoom(t)
	ctx := context.Background()

	handle, err := room.rooms.Join(ctx, "math-101", "s1", domain.AuthorityFollower, domain.ReadinessRecord{})
	require.NoError(t, err)

	surface, ok := handle.Surface.(*surfacememory.Surface)
	require.True(t, ok)
	snapshot := surface.Snapshot()
	assert.True(t, snapshot.Bound)
	assert.True(t, snapshot.InputBlocked)
	assert.Equal(t, domain.ViewModeFollower, snapshot.Mode)
	assert.Equal(t, domain.CanonicalCamera(), snapshot.Camera)
	assert.Equal(t, handle.Channel.UUID, surface.Channel())
}

func TestRoomManagerRollsBackOnTransportFailure(t *testing.T) {
	t.Parallel()

	clock := newInstantClock()
	rooms := NewRoomManager(failingTransport{err: errors.New("dial refused")}, surfacememory.NewFactory(testViewport), nil, clock, nil)

	_, err := rooms.Join(context.Background(), "math-101", "s1", domain.AuthorityFollower, domain.ReadinessRecord{})
	require.ErrorIs(t, err, domain.ErrTransportLoss)

	_, err = rooms.Session("math-101")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRoomManagerValidatesJoinRequest(t *testing.T) {
	t.Parallel()

	room := newTestRoom(t)

	_, err := room.rooms.Admit(context.Background(), JoinRequest{SessionID: "math-101", Role: "principal"})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	fields := make([]string, 0, len(validationErr.Fields))
	for _, field := range validationErr.Fields {
		fields = append(fields, field.Field)
	}
	assert.Equal(t, []string{"participantId", "role"}, fields)
}

func TestRoomManagerLeaveDestroysEmptySession(t *testing.T) {
	t.Parallel()

	room := newTestRoom(t)
	ctx := context.Background()

	handle, err := room.rooms.Join(ctx, "math-101", "s1", domain.AuthorityFollower, domain.ReadinessRecord{})
	require.NoError(t, err)

	require.NoError(t, room.rooms.Leave(ctx, "math-101", "s1"))
	<-handle.Binding.Done()

	_, err = room.rooms.Session("math-101")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	require.ErrorIs(t, room.rooms.Leave(ctx, "math-101", "s1"), domain.ErrParticipantNotFound)
}

func TestRoomManagerRejectsJoinAfterTermination(t *testing.T) {
	t.Parallel()

	room := newTestRoom(t)
	ctx := context.Background()

	_, err := room.rooms.Join(ctx, "math-101", "t1", domain.AuthorityBroadcaster, domain.ReadinessRecord{})
	require.NoError(t, err)
	require.NoError(t, room.rooms.MarkTerminated("math-101"))

	_, err = room.rooms.Join(ctx, "math-101", "s1", domain.AuthorityFollower, domain.ReadinessRecord{})
	require.ErrorIs(t, err, domain.ErrSessionEnded)
}

func TestRoomManagerAuthorize(t *testing.T) {
	t.Parallel()

	room := newTestRoom(t)
	admission, err := room.rooms.Admit(context.Background(), JoinRequest{SessionID: "math-101", ParticipantID: "s1", Role: "student"})
	require.NoError(t, err)

	authorized, err := room.rooms.Authorize(admission.Channel.UUID, "s1", admission.Channel.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionID("math-101"), authorized.SessionID)
	assert.Equal(t, domain.AuthorityFollower, authorized.Participant.Authority)

	_, err = room.rooms.Authorize(admission.Channel.UUID, "s1", "forged")
	require.ErrorIs(t, err, domain.ErrInvalidToken)
	_, err = room.rooms.Authorize("unknown-channel", "s1", admission.Channel.Token)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestRoomManagerSetCurrentSceneIsBroadcasterOnly(t *testing.T) {
	t.Parallel()

	room := newTestRoom(t)
	ctx := context.Background()

	teacher, err := room.rooms.Join(ctx, "math-101", "t1", domain.AuthorityBroadcaster, domain.ReadinessRecord{})
	require.NoError(t, err)
	student, err := room.rooms.Join(ctx, "math-101", "s1", domain.AuthorityFollower, domain.ReadinessRecord{})
	require.NoError(t, err)

	room.addDeck(t, "deck", 1)
	path := domain.ScenePath{Directory: "deck", Index: 0}
	require.ErrorIs(t, room.rooms.SetCurrentScene(ctx, student, path), domain.ErrNotBroadcaster)
	require.NoError(t, room.rooms.SetCurrentScene(ctx, teacher, path))

	session, err := room.rooms.Session("math-101")
	require.NoError(t, err)
	assert.Equal(t, path, session.CurrentScene)

	late, err := room.rooms.Join(ctx, "math-101", "s2", domain.AuthorityFollower, domain.ReadinessRecord{})
	require.NoError(t, err)
	assert.Equal(t, path, late.InitialScene)
	assert.Equal(t, path, late.Surface.Snapshot().Scene)
}

func TestRoomManagerWaitFollowersGone(t *testing.T) {
	t.Parallel()

	room := newTestRoom(t)
	ctx := context.Background()

	_, err := room.rooms.Join(ctx, "math-101", "t1", domain.AuthorityBroadcaster, domain.ReadinessRecord{})
	require.NoError(t, err)
	_, err = room.rooms.Join(ctx, "math-101", "s1", domain.AuthorityFollower, domain.ReadinessRecord{})
	require.NoError(t, err)

	shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, room.rooms.WaitFollowersGone(shortCtx, "math-101"), context.DeadlineExceeded)
	assert.Equal(t, []domain.ParticipantID{"s1"}, room.rooms.RemainingFollowers("math-101"))

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = room.rooms.Leave(ctx, "math-101", "s1")
	}()
	require.NoError(t, room.rooms.WaitFollowersGone(ctx, "math-101"))
}

func TestRoomManagerSetCurrentSceneRequiresExistingScene(t *testing.T) {
	t.Parallel()

	room := newTestRoom(t)
	ctx := context.Background()
	room.addDeck(t, "deck", 2)

	teacher, err := room.rooms.Join(ctx, "math-101", "t1", domain.AuthorityBroadcaster, domain.ReadinessRecord{})
	require.NoError(t, err)
	require.NoError(t, room.rooms.SetCurrentScene(ctx, teacher, domain.ScenePath{Directory: "deck", Index: 1}))

	err = room.rooms.SetCurrentScene(ctx, teacher, domain.ScenePath{Directory: "ghost", Index: 42})
	require.ErrorIs(t, err, domain.ErrSceneDirectoryNotFound)
	err = room.rooms.SetCurrentScene(ctx, teacher, domain.ScenePath{Directory: "deck", Index: 2})
	require.ErrorIs(t, err, domain.ErrSceneOutOfRange)

	session, err := room.rooms.Session("math-101")
	require.NoError(t, err)
	assert.Equal(t, domain.ScenePath{Directory: "deck", Index: 1}, session.CurrentScene)

	require.NoError(t, room.rooms.SetCurrentScene(ctx, teacher, domain.ScenePath{}))
}

func TestRoomManagerSetCurrentSceneWithoutStore(t *testing.T) {
	t.Parallel()

	clock := newInstantClock()
	rooms := NewRoomManager(channelmemory.NewHub(nil), surfacememory.NewFactory(testViewport), nil, clock, nil)
	teacher, err := rooms.Join(context.Background(), "math-101", "t1", domain.AuthorityBroadcaster, domain.ReadinessRecord{})
	require.NoError(t, err)

	err = rooms.SetCurrentScene(context.Background(), teacher, domain.ScenePath{Directory: "deck"})
	require.ErrorIs(t, err, domain.ErrSceneDirectoryNotFound)
}

func TestRoomManagerFailedRejoinKeepsSession(t *testing.T) {
	t.Parallel()

	room := newTestRoom(t)
	ctx := context.Background()
	room.addDeck(t, "deck", 1)

	ready := domain.ReadinessRecord{PermissionsGranted: true, ReadyConfirmed: true}
	teacher, err := room.rooms.Join(ctx, "math-101", "t1", domain.AuthorityBroadcaster, ready)
	require.NoError(t, err)
	path := domain.ScenePath{Directory: "deck", Index: 0}
	require.NoError(t, room.rooms.SetCurrentScene(ctx, teacher, path))
	before, err := room.rooms.Session("math-101")
	require.NoError(t, err)

	room.rooms.MarkDisconnected("math-101", "t1")
	room.transport.FailOnce(errors.New("dial refused"))
	_, err = room.rooms.Join(ctx, "math-101", "t1", domain.AuthorityBroadcaster, ready)
	require.ErrorIs(t, err, domain.ErrTransportLoss)

	after, err := room.rooms.Session("math-101")
	require.NoError(t, err)
	assert.Equal(t, before.ChannelUUID, after.ChannelUUID)
	assert.Equal(t, path, after.CurrentScene)
	broadcaster, ok := after.Broadcaster()
	require.True(t, ok)
	assert.Equal(t, domain.ParticipantID("t1"), broadcaster.ID)
	assert.Equal(t, domain.ConnectionDisconnected, broadcaster.Connection)

	_, err = room.rooms.Authorize(teacher.Channel.UUID, "t1", teacher.Channel.Token)
	require.NoError(t, err, "the previous channel token stays valid")

	_, err = room.rooms.Join(ctx, "math-101", "t2", domain.AuthorityBroadcaster, domain.ReadinessRecord{})
	require.ErrorIs(t, err, domain.ErrRoleConflict)

	rejoined, err := room.rooms.Join(ctx, "math-101", "t1", domain.AuthorityBroadcaster, ready)
	require.NoError(t, err)
	assert.Equal(t, before.ChannelUUID, rejoined.Channel.UUID)
	assert.Equal(t, path, rejoined.InitialScene)
}

func TestRoomManagerFailedFirstJoinRemovesParticipant(t *testing.T) {
	t.Parallel()

	room := newTestRoom(t)
	ctx := context.Background()

	_, err := room.rooms.Join(ctx, "math-101", "t1", domain.AuthorityBroadcaster, domain.ReadinessRecord{})
	require.NoError(t, err)

	room.transport.FailOnce(errors.New("dial refused"))
	_, err = room.rooms.Join(ctx, "math-101", "s1", domain.AuthorityFollower, domain.ReadinessRecord{})
	require.ErrorIs(t, err, domain.ErrTransportLoss)

	assert.Empty(t, room.rooms.RemainingFollowers("math-101"))
}

func TestRoomManagerRecordsReadiness(t *testing.T) {
	t.Parallel()

	room := newTestRoom(t)
	ctx := context.Background()

	ready := domain.ReadinessRecord{PermissionsGranted: true, MicTested: true, ReadyConfirmed: true}
	handle, err := room.rooms.Join(ctx, "math-101", "s1", domain.AuthorityFollower, ready)
	require.NoError(t, err)
	assert.Equal(t, ready, handle.Participant.Readiness)

	session, err := room.rooms.Session("math-101")
	require.NoError(t, err)
	participant, ok := session.Participant("s1")
	require.True(t, ok)
	assert.Equal(t, ready, participant.Readiness)
}
