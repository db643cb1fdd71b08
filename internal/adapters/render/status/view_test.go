package status

import (
	"testing"

	"github.com/bnema/classroom/internal/application"
	"github.com/bnema/classroom/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderActiveBroadcasterAndFollower(t *testing.T) {
	scene := domain.ScenePath{Directory: "math-101-abcd", Index: 2}

	output, err := Render([]application.ParticipantStatus{
		{
			Gate: application.GateStatus{
				SessionID:   "math-101",
				Participant: "t1",
				Authority:   domain.AuthorityBroadcaster,
				State:       domain.GateActive,
				Readiness:   domain.ReadinessRecord{PermissionsGranted: true, MicTested: true, SpeakerTested: true, CameraPreviewed: true, ReadyConfirmed: true},
			},
			View: domain.ViewState{
				Camera: domain.Camera{X: 100, Y: 50, Scale: 0.8},
				Scene:  scene,
				Tool:   "pen",
				Mode:   domain.ViewModeBroadcaster,
				Bound:  true,
			},
			Synced:      true,
			Termination: domain.TerminationActive,
		},
		{
			Gate: application.GateStatus{
				SessionID:   "math-101",
				Participant: "s1",
				Authority:   domain.AuthorityFollower,
				State:       domain.GateActive,
				Readiness:   domain.ReadinessRecord{PermissionsGranted: true, MicTested: true, ReadyConfirmed: true},
				Reconnects:  2,
			},
			View: domain.ViewState{
				Camera:       domain.Camera{X: 100, Y: 50, Scale: 0.8},
				Scene:        scene,
				Mode:         domain.ViewModeFollower,
				InputBlocked: true,
				Bound:        true,
			},
			Synced: true,
		},
	}, RenderOptions{SessionID: "math-101", Channel: "chan-1"})

	require.NoError(t, err)
	assert.Contains(t, output, "Classroom math-101")
	assert.Contains(t, output, "participants: 2")
	assert.Contains(t, output, "channel: chan-1")
	assert.Contains(t, output, "t1 (broadcaster)")
	assert.Contains(t, output, "s1 (follower)")
	assert.Contains(t, output, "gate: active")
	assert.Contains(t, output, "5/5")
	assert.Contains(t, output, "3/5")
	assert.Contains(t, output, "[x] permissions [x] mic [ ] speaker")
	assert.Contains(t, output, "camera: x=100 y=50 scale=0.80  scene: /math-101-abcd/2")
	assert.Contains(t, output, "tool: pen")
	assert.Contains(t, output, "[input blocked]")
	assert.Contains(t, output, "(reconnects: 2)")
	assert.NotContains(t, output, "termination:")
}

func TestRenderFlagsUnsyncedAndForcedParticipants(t *testing.T) {
	output, err := Render([]application.ParticipantStatus{
		{
			Gate: application.GateStatus{
				Participant: "s2",
				Authority:   domain.AuthorityFollower,
				State:       domain.GateEntered,
				Forced:      true,
			},
			View: domain.ViewState{Camera: domain.CanonicalCamera(), Mode: domain.ViewModeFollower},
		},
	}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "Classroom")
	assert.Contains(t, output, "gate: entered")
	assert.Contains(t, output, "[awaiting sync]")
	assert.Contains(t, output, "[forced]")
	assert.Contains(t, output, "0/5")
	assert.Contains(t, output, "scene: none")
	assert.Contains(t, output, "[unbound]")
}

func TestRenderShowsLeaveReasonAndTermination(t *testing.T) {
	output, err := Render([]application.ParticipantStatus{
		{
			Gate: application.GateStatus{
				Participant: "t1",
				Authority:   domain.AuthorityBroadcaster,
				State:       domain.GateLeft,
				LeaveReason: application.LeaveReasonVoluntary,
			},
			Termination: domain.TerminationEnded,
		},
		{
			Gate: application.GateStatus{
				Participant: "s1",
				Authority:   domain.AuthorityFollower,
				State:       domain.GateLeft,
				LeaveReason: application.LeaveReasonSessionEnded,
			},
		},
	}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "gate: left (voluntary)")
	assert.Contains(t, output, "gate: left (session ended)")
	assert.Contains(t, output, "termination: ended")
	assert.NotContains(t, output, "camera:")
}

func TestRenderWithoutParticipants(t *testing.T) {
	output, err := Render(nil, RenderOptions{SessionID: "math-101"})

	require.NoError(t, err)
	assert.Contains(t, output, "participants: 0")
	assert.Contains(t, output, "No participants.")
}

func TestRenderProgressBarClampsPercent(t *testing.T) {
	s := newStyles()

	assert.Equal(t, "[==========]", renderProgressBar(150, 10, s))
	assert.Equal(t, "[----------]", renderProgressBar(-5, 10, s))
	assert.Equal(t, "[=====-----]", renderProgressBar(50, 10, s))
	assert.Empty(t, renderProgressBar(50, 0, s))
}
