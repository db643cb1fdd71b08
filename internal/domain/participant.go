package domain

import (
	"fmt"
	"time"
)

type ParticipantID string

type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

func (r Role) Valid() bool {
	switch r {
	case RoleTeacher, RoleStudent:
		return true
	default:
		return false
	}
}

// Authority is derived 1:1 from Role. Teachers broadcast, students follow.
type Authority string

const (
	AuthorityBroadcaster Authority = "broadcaster"
	AuthorityFollower    Authority = "follower"
)

func AuthorityFor(role Role) Authority {
	if role == RoleTeacher {
		return AuthorityBroadcaster
	}
	return AuthorityFollower
}

func RoleFor(authority Authority) Role {
	if authority == AuthorityBroadcaster {
		return RoleTeacher
	}
	return RoleStudent
}

func (a Authority) Valid() bool {
	switch a {
	case AuthorityBroadcaster, AuthorityFollower:
		return true
	default:
		return false
	}
}

func ParseRole(raw string) (Role, error) {
	role := Role(raw)
	if !role.Valid() {
		return "", fmt.Errorf("unsupported role %q", raw)
	}
	return role, nil
}

type ConnectionState string

const (
	ConnectionConnecting   ConnectionState = "connecting"
	ConnectionConnected    ConnectionState = "connected"
	ConnectionDisconnected ConnectionState = "disconnected"
)

type Participant struct {
	ID         ParticipantID
	Role       Role
	Authority  Authority
	Readiness  ReadinessRecord
	Connection ConnectionState
	JoinedAt   time.Time
}

func NewParticipant(id ParticipantID, role Role, joinedAt time.Time) Participant {
	return Participant{
		ID:         id,
		Role:       role,
		Authority:  AuthorityFor(role),
		Connection: ConnectionConnecting,
		JoinedAt:   joinedAt,
	}
}
