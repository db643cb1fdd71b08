package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorityDerivedFromRole(t *testing.T) {
	assert.Equal(t, AuthorityBroadcaster, AuthorityFor(RoleTeacher))
	assert.Equal(t, AuthorityFollower, AuthorityFor(RoleStudent))
	assert.Equal(t, RoleTeacher, RoleFor(AuthorityBroadcaster))
	assert.Equal(t, RoleStudent, RoleFor(AuthorityFollower))

	_, err := ParseRole("principal")
	require.Error(t, err)
}

func TestSessionAdmitSingleBroadcaster(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	session := Session{ID: "math-101", ChannelUUID: "chan"}

	require.NoError(t, session.Admit(NewParticipant("t1", RoleTeacher, now)))
	require.NoError(t, session.Admit(NewParticipant("s1", RoleStudent, now)))

	err := session.Admit(NewParticipant("t2", RoleTeacher, now))
	require.ErrorIs(t, err, ErrRoleConflict)

	broadcaster, ok := session.Broadcaster()
	require.True(t, ok)
	assert.Equal(t, ParticipantID("t1"), broadcaster.ID)
	assert.Len(t, session.Participants, 2)

	require.NoError(t, session.Admit(NewParticipant("t1", RoleTeacher, now.Add(time.Minute))))
	assert.Len(t, session.Participants, 2)

	require.ErrorIs(t, session.Admit(NewParticipant("s1", RoleTeacher, now)), ErrRoleConflict)
}

func TestSessionAdmitAfterTermination(t *testing.T) {
	session := Session{ID: "math-101", ChannelUUID: "chan", Terminated: true}
	require.ErrorIs(t, session.Admit(NewParticipant("s1", RoleStudent, time.Now())), ErrSessionEnded)
}

func TestSessionCloneIsIndependent(t *testing.T) {
	session := Session{ID: "math-101", ChannelUUID: "chan"}
	require.NoError(t, session.Admit(NewParticipant("s1", RoleStudent, time.Now())))

	clone := session.Clone()
	require.True(t, clone.SetConnection("s1", ConnectionDisconnected))

	participant, ok := session.Participant("s1")
	require.True(t, ok)
	assert.Equal(t, ConnectionConnecting, participant.Connection)
	assert.True(t, session.Remove("s1"))
	assert.True(t, session.Empty())
	assert.Len(t, clone.Followers(), 1)
}

func TestReadinessConfirmRules(t *testing.T) {
	var record ReadinessRecord

	_, err := record.Confirm()
	require.ErrorIs(t, err, ErrPermissionsRequired)
	assert.False(t, record.CanEnter(false))
	assert.True(t, record.CanEnter(true))

	record = record.Mark(CheckPermissions, true).Mark(CheckMicrophone, false)
	confirmed, err := record.Confirm()
	require.NoError(t, err)
	again, err := confirmed.Confirm()
	require.NoError(t, err)
	assert.Equal(t, confirmed, again)
	assert.False(t, again.MicTested)

	revoked := again.Mark(CheckPermissions, false)
	assert.False(t, revoked.ReadyConfirmed)

	tested := again.Mark(CheckCamera, true).Mark(CheckCamera, false)
	assert.True(t, tested.CameraPreviewed)
}

func TestGateTransitions(t *testing.T) {
	tests := []struct {
		from GateState
		to   GateState
		ok   bool
	}{
		{from: GateInitializing, to: GateAwaitingReadiness, ok: true},
		{from: GateAwaitingReadiness, to: GateReadyToEnter, ok: true},
		{from: GateAwaitingReadiness, to: GateEntering, ok: false},
		{from: GateReadyToEnter, to: GateEntering, ok: true},
		{from: GateEntering, to: GateReadyToEnter, ok: true},
		{from: GateEntering, to: GateEntered, ok: true},
		{from: GateEntered, to: GateActive, ok: true},
		{from: GateActive, to: GateEntered, ok: false},
		{from: GateActive, to: GateDisconnected, ok: true},
		{from: GateDisconnected, to: GateDisconnected, ok: false},
		{from: GateDisconnected, to: GateEntering, ok: true},
		{from: GateAwaitingReadiness, to: GateLeft, ok: true},
		{from: GateLeft, to: GateEntering, ok: false},
		{from: GateLeft, to: GateLeft, ok: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			next, err := tt.from.Transition(tt.to)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.to, next)
				return
			}
			require.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.from, next)
		})
	}
}

func TestTerminationTransitions(t *testing.T) {
	state, err := TerminationActive.Transition(TerminationEndRequested)
	require.NoError(t, err)
	state, err = state.Transition(TerminationActive)
	require.NoError(t, err)
	_, err = state.Transition(TerminationEnded)
	require.ErrorIs(t, err, ErrInvalidTransition)

	state, _ = state.Transition(TerminationEndRequested)
	state, err = state.Transition(TerminationEnded)
	require.NoError(t, err)
	_, err = state.Transition(TerminationActive)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCameraScaleNeverBelowMinimum(t *testing.T) {
	for _, scale := range []float64{-3, 0, 0.05, 0.19999, math.NaN(), math.Inf(1), math.Inf(-1)} {
		assert.Equal(t, MinCameraScale, ClampScale(scale), "scale %v", scale)
	}
	assert.Equal(t, 0.2, ClampScale(0.2))
	assert.Equal(t, 40.0, ClampScale(40))

	camera := Camera{X: math.NaN(), Y: 3, Scale: 0.01}.Normalize()
	assert.Equal(t, Camera{X: 0, Y: 3, Scale: MinCameraScale}, camera)
}

func TestFitScale(t *testing.T) {
	margins := DefaultFitMargins()
	page := Size{Width: 800, Height: 600}

	tests := []struct {
		name     string
		page     Size
		viewport Size
		want     float64
	}{
		{name: "wide viewport uses wide margin", page: page, viewport: Size{Width: 1280, Height: 720}, want: 592.0 / 600.0},
		{name: "narrow viewport uses narrow margin", page: page, viewport: Size{Width: 400, Height: 800}, want: 368.0 / 800.0},
		{name: "tiny viewport is clamped", page: Size{Width: 10000, Height: 10000}, viewport: Size{Width: 300, Height: 300}, want: MinCameraScale},
		{name: "invalid page falls back", page: Size{}, viewport: Size{Width: 1280, Height: 720}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FitScale(tt.page, tt.viewport, margins)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, MinCameraScale)
		})
	}
}

func TestScenePathRoundTrip(t *testing.T) {
	path := ScenePath{Directory: "math-101-ab12cd34-17", Index: 3}
	assert.Equal(t, "/math-101-ab12cd34-17/3", path.String())

	parsed, err := ParseScenePath(path.String())
	require.NoError(t, err)
	assert.Equal(t, path, parsed)

	empty, err := ParseScenePath("")
	require.NoError(t, err)
	assert.True(t, empty.IsZero())

	for _, raw := range []string{"/deck", "/deck/x", "/deck/-1", "//2", "/a/b/c"} {
		_, err := ParseScenePath(raw)
		assert.Error(t, err, raw)
	}
}

func TestSceneDirectory(t *testing.T) {
	dir := SceneDirectory{Name: "deck", Scenes: []Scene{{Index: 0, Page: 1}, {Index: 1, Page: 3}}}
	require.NoError(t, dir.Validate())
	assert.Equal(t, []int{1, 3}, dir.Pages())

	first, ok := dir.First()
	require.True(t, ok)
	assert.Equal(t, ScenePath{Directory: "deck", Index: 0}, first)

	_, err := dir.Path(2)
	require.ErrorIs(t, err, ErrSceneOutOfRange)
	_, err = dir.Path(-1)
	require.ErrorIs(t, err, ErrSceneOutOfRange)

	for _, name := range []string{"a/b", `a\b`, ".", "..", " "} {
		assert.Error(t, SceneDirectory{Name: name}.Validate(), name)
	}
	require.NoError(t, SceneDirectory{Name: "..deck"}.Validate())
}

func TestViewStateMatchesIgnoresBinding(t *testing.T) {
	a := ViewState{Camera: CanonicalCamera(), Mode: ViewModeFollower, InputBlocked: true, Bound: true}
	b := a
	b.Bound = false
	assert.True(t, a.Matches(b))

	b.Camera.Scale = 2
	assert.False(t, a.Matches(b))
	assert.True(t, EventCameraMoved.MutatesView())
	assert.False(t, EventSyncRequest.MutatesView())
}
