package domain

import (
	"fmt"
	"strings"
	"time"
)

type SessionID string

// Session is one live class instance. The shared channel UUID is fixed at
// creation so every participant joining the same session binds to the same
// channel.
type Session struct {
	ID           SessionID
	ChannelUUID  string
	Participants []Participant
	CurrentScene ScenePath
	Terminated   bool
	CreatedAt    time.Time
}

func (s Session) Validate() error {
	if strings.TrimSpace(string(s.ID)) == "" {
		return fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(s.ChannelUUID) == "" {
		return fmt.Errorf("channel uuid is required")
	}
	return nil
}

// Admit adds p to the session or replaces the entry with the same ID.
// A broadcaster is rejected with ErrRoleConflict while a different
// participant holds broadcaster authority; the existing entry is untouched.
func (s *Session) Admit(p Participant) error {
	if s.Terminated {
		return ErrSessionEnded
	}
	if p.Authority == AuthorityBroadcaster {
		if current, ok := s.Broadcaster(); ok && current.ID != p.ID {
			return fmt.Errorf("%w: %s holds broadcaster authority", ErrRoleConflict, current.ID)
		}
	}

	for i := range s.Participants {
		if s.Participants[i].ID == p.ID {
			if s.Participants[i].Authority != p.Authority {
				return fmt.Errorf("%w: %s already joined as %s", ErrRoleConflict, p.ID, s.Participants[i].Authority)
			}
			s.Participants[i] = p
			return nil
		}
	}
	s.Participants = append(s.Participants, p)
	return nil
}

// Replace overwrites the entry with p's ID. It reports false when no such
// participant is in the session.
func (s *Session) Replace(p Participant) bool {
	for i := range s.Participants {
		if s.Participants[i].ID == p.ID {
			s.Participants[i] = p
			return true
		}
	}
	return false
}

func (s *Session) Remove(id ParticipantID) bool {
	for i := range s.Participants {
		if s.Participants[i].ID == id {
			s.Participants = append(s.Participants[:i], s.Participants[i+1:]...)
			return true
		}
	}
	return false
}

func (s Session) Participant(id ParticipantID) (Participant, bool) {
	for _, p := range s.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

func (s *Session) SetConnection(id ParticipantID, state ConnectionState) bool {
	for i := range s.Participants {
		if s.Participants[i].ID == id {
			s.Participants[i].Connection = state
			return true
		}
	}
	return false
}

func (s Session) Broadcaster() (Participant, bool) {
	for _, p := range s.Participants {
		if p.Authority == AuthorityBroadcaster {
			return p, true
		}
	}
	return Participant{}, false
}

func (s Session) Followers() []Participant {
	followers := make([]Participant, 0, len(s.Participants))
	for _, p := range s.Participants {
		if p.Authority == AuthorityFollower {
			followers = append(followers, p)
		}
	}
	return followers
}

func (s Session) Empty() bool {
	return len(s.Participants) == 0
}

// Clone returns a copy that shares no slices with s.
func (s Session) Clone() Session {
	clone := s
	clone.Participants = append([]Participant(nil), s.Participants...)
	return clone
}
