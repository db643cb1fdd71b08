package domain

import "fmt"

type TerminationState string

const (
	TerminationActive       TerminationState = "active"
	TerminationEndRequested TerminationState = "end_requested"
	TerminationEnded        TerminationState = "ended"
)

func (s TerminationState) Transition(next TerminationState) (TerminationState, error) {
	switch {
	case s == TerminationActive && next == TerminationEndRequested,
		s == TerminationEndRequested && next == TerminationEnded,
		s == TerminationEndRequested && next == TerminationActive:
		return next, nil
	default:
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
}
