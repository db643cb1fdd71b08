package domain

import "fmt"

type GateState string

const (
	GateInitializing      GateState = "initializing"
	GateAwaitingReadiness GateState = "awaiting_readiness"
	GateReadyToEnter      GateState = "ready_to_enter"
	GateEntering          GateState = "entering"
	GateEntered           GateState = "entered"
	GateActive            GateState = "active"
	GateDisconnected      GateState = "disconnected"
	GateLeft              GateState = "left"
)

var gateTransitions = map[GateState][]GateState{
	GateInitializing:      {GateAwaitingReadiness},
	GateAwaitingReadiness: {GateReadyToEnter},
	GateReadyToEnter:      {GateEntering},
	GateEntering:          {GateEntered, GateReadyToEnter},
	GateEntered:           {GateActive},
	GateDisconnected:      {GateEntering},
}

func (s GateState) Terminal() bool {
	return s == GateLeft
}

// CanTransitionTo reports whether next is reachable from s in one step.
// Every non-terminal state may drop to disconnected or leave.
func (s GateState) CanTransitionTo(next GateState) bool {
	if s.Terminal() {
		return false
	}
	if next == GateLeft {
		return true
	}
	if next == GateDisconnected {
		return s != GateDisconnected
	}
	for _, candidate := range gateTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

func (s GateState) Transition(next GateState) (GateState, error) {
	if !s.CanTransitionTo(next) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return next, nil
}

// InRoom reports whether the participant currently holds a room connection.
func (s GateState) InRoom() bool {
	return s == GateEntered || s == GateActive
}
