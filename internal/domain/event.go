package domain

import "time"

type EventType string

const (
	EventCameraMoved  EventType = "camera_moved"
	EventSceneChanged EventType = "scene_changed"
	EventToolChanged  EventType = "tool_changed"
	EventViewState    EventType = "view_state"
	EventSyncRequest  EventType = "sync_request"
	EventSessionEnded EventType = "session_ended"
)

// MutatesView reports whether the event changes the shared view. Only the
// broadcaster may publish these.
func (t EventType) MutatesView() bool {
	switch t {
	case EventCameraMoved, EventSceneChanged, EventToolChanged, EventViewState, EventSessionEnded:
		return true
	default:
		return false
	}
}

type Event struct {
	Type      EventType     `json:"type"`
	Sender    ParticipantID `json:"sender,omitempty"`
	Sequence  uint64        `json:"sequence,omitempty"`
	Timestamp int64         `json:"timestamp"`
	Camera    *Camera       `json:"camera,omitempty"`
	Scene     *ScenePath    `json:"scene,omitempty"`
	Tool      string        `json:"tool,omitempty"`
}

func SessionEndedEvent(sender ParticipantID, at time.Time) Event {
	return Event{Type: EventSessionEnded, Sender: sender, Timestamp: at.UnixMilli()}
}

type ViewMode string

const (
	ViewModeBroadcaster ViewMode = "broadcaster"
	ViewModeFollower    ViewMode = "follower"
)

func ViewModeFor(authority Authority) ViewMode {
	if authority == AuthorityBroadcaster {
		return ViewModeBroadcaster
	}
	return ViewModeFollower
}

// ViewState is what a rendering surface currently shows.
type ViewState struct {
	Camera       Camera    `json:"camera"`
	Scene        ScenePath `json:"scene"`
	Tool         string    `json:"tool,omitempty"`
	Mode         ViewMode  `json:"mode"`
	InputBlocked bool      `json:"inputBlocked"`
	Bound        bool      `json:"bound"`
}

// Matches compares the synchronized parts of two view states.
func (v ViewState) Matches(other ViewState) bool {
	return v.Camera == other.Camera &&
		v.Scene == other.Scene &&
		v.Tool == other.Tool &&
		v.Mode == other.Mode &&
		v.InputBlocked == other.InputBlocked
}
