package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/classroom/internal/domain"
	"github.com/bnema/classroom/internal/ports"
)

// EvictionReport lists the followers still present when the verification
// deadline passed.
type EvictionReport struct {
	SessionID domain.SessionID
	Deadline  time.Duration
	Remaining []domain.ParticipantID
}

func (r EvictionReport) Clean() bool {
	return len(r.Remaining) == 0
}

// FollowerWatch is anything that signals a follower has left, usually a
// SessionGate's Done channel.
type FollowerWatch struct {
	Participant domain.ParticipantID
	Done        <-chan struct{}
}

// TerminationCoordinator runs the broadcaster's two-step end of session.
type TerminationCoordinator struct {
	engine   *ViewSyncEngine
	rooms    *RoomManager
	clock    ports.Clock
	deadline time.Duration
	logger   *slog.Logger

	confirmMu sync.Mutex
	mu        sync.Mutex
	state     domain.TerminationState
}

func NewTerminationCoordinator(engine *ViewSyncEngine, rooms *RoomManager, clock ports.Clock, policy Policy, logger *slog.Logger) *TerminationCoordinator {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &TerminationCoordinator{
		engine:   engine,
		rooms:    rooms,
		clock:    clock,
		deadline: policy.SyncDeadline,
		logger:   loggerOrDefault(logger).With("component", "termination"),
		state:    domain.TerminationActive,
	}
}

func (c *TerminationCoordinator) State() domain.TerminationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *TerminationCoordinator) RequestEnd() error {
	if c.engine.Handle().Authority() != domain.AuthorityBroadcaster {
		return fmt.Errorf("request end: %w", domain.ErrNotBroadcaster)
	}
	return c.transition(domain.TerminationEndRequested)
}

func (c *TerminationCoordinator) CancelEnd() error {
	return c.transition(domain.TerminationActive)
}

func (c *TerminationCoordinator) transition(next domain.TerminationState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.state.Transition(next)
	if err != nil {
		return err
	}
	c.state = state
	return nil
}

// ConfirmEnd commits the end of session and publishes session_ended exactly
// once. Calling it again after success is a no-op.
func (c *TerminationCoordinator) ConfirmEnd(ctx context.Context) error {
	c.confirmMu.Lock()
	defer c.confirmMu.Unlock()

	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state == domain.TerminationEnded {
		return nil
	}
	if state != domain.TerminationEndRequested {
		return fmt.Errorf("confirm end: %w: %s -> %s", domain.ErrInvalidTransition, state, domain.TerminationEnded)
	}

	handle := c.engine.Handle()
	if err := c.rooms.MarkTerminated(handle.SessionID); err != nil {
		return fmt.Errorf("confirm end: %w", err)
	}
	if err := c.engine.send(ctx, domain.SessionEndedEvent(handle.Participant.ID, c.clock.Now())); err != nil {
		return fmt.Errorf("confirm end: %w", err)
	}

	if err := c.transition(domain.TerminationEnded); err != nil {
		return err
	}
	c.logger.Info("session ended", "session", handle.SessionID)
	return nil
}

// Verify waits up to the sync deadline for every follower to leave. The
// error matches domain.ErrSyncTimeout when some are still present.
func (c *TerminationCoordinator) Verify(ctx context.Context) (EvictionReport, error) {
	sessionID := c.engine.Handle().SessionID
	report := EvictionReport{SessionID: sessionID, Deadline: c.deadline}

	waitCtx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	err := c.rooms.WaitFollowersGone(waitCtx, sessionID)
	if err == nil {
		return report, nil
	}
	if ctx.Err() != nil {
		return report, ctx.Err()
	}

	report.Remaining = c.rooms.RemainingFollowers(sessionID)
	if len(report.Remaining) == 0 {
		return report, nil
	}
	c.logger.Warn("followers still present after deadline", "session", sessionID, "remaining", report.Remaining)
	return report, fmt.Errorf("verify eviction of session %s: %w", sessionID, errors.Join(domain.ErrSyncTimeout, err))
}

// VerifyEviction waits until every watch is done or the deadline passes.
func VerifyEviction(ctx context.Context, sessionID domain.SessionID, deadline time.Duration, watches []FollowerWatch) (EvictionReport, error) {
	report := EvictionReport{SessionID: sessionID, Deadline: deadline}

	waitCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	for _, watch := range watches {
		select {
		case <-watch.Done:
		case <-waitCtx.Done():
		}
	}

	if ctx.Err() != nil {
		return report, ctx.Err()
	}

	for _, watch := range watches {
		select {
		case <-watch.Done:
		default:
			report.Remaining = append(report.Remaining, watch.Participant)
		}
	}
	if len(report.Remaining) > 0 {
		return report, fmt.Errorf("verify eviction of session %s: %d followers remain: %w", sessionID, len(report.Remaining), domain.ErrSyncTimeout)
	}
	return report, nil
}
