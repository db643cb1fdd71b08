package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bnema/classroom/internal/domain"
	"github.com/bnema/classroom/internal/ports"
)

const (
	LeaveReasonVoluntary     = "voluntary"
	LeaveReasonSessionEnded  = "session_ended"
	LeaveReasonAbandoned     = "abandoned"
	LeaveReasonTransportLost = "transport_lost"
)

type GateStatus struct {
	SessionID   domain.SessionID
	Participant domain.ParticipantID
	Authority   domain.Authority
	State       domain.GateState
	Readiness   domain.ReadinessRecord
	Forced      bool
	Reconnects  int
	LeaveReason string
}

// SessionGate walks one participant from readiness checks into the live room
// and back out. Teachers and students use the same gate; only the authority
// handed to the room manager differs.
type SessionGate struct {
	participantID domain.ParticipantID
	authority     domain.Authority
	rooms         *RoomManager
	readiness     *DeviceReadinessTracker
	clock         ports.Clock
	reconnect     ReconnectPolicy
	logger        *slog.Logger

	mu          sync.Mutex
	state       domain.GateState
	sessionID   domain.SessionID
	forced      bool
	handle      *RoomHandle
	cancelEnter context.CancelFunc
	reconnects  int
	leaveReason string
	done        chan struct{}
	onChange    func(GateStatus)
}

func NewSessionGate(
	participantID domain.ParticipantID,
	authority domain.Authority,
	rooms *RoomManager,
	readiness *DeviceReadinessTracker,
	clock ports.Clock,
	reconnect ReconnectPolicy,
	logger *slog.Logger,
) *SessionGate {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	gate := &SessionGate{
		participantID: participantID,
		authority:     authority,
		rooms:         rooms,
		readiness:     readiness,
		clock:         clock,
		reconnect:     reconnect,
		logger:        loggerOrDefault(logger).With("component", "gate"),
		state:         domain.GateInitializing,
		done:          make(chan struct{}),
	}
	readiness.OnChange(func(domain.ReadinessRecord) { gate.emit() })

	return gate
}

// OnChange registers a hook called with the status after every change.
func (g *SessionGate) OnChange(fn func(GateStatus)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onChange = fn
}

func (g *SessionGate) Resolve(sessionID domain.SessionID) error {
	if sessionID == "" {
		return fmt.Errorf("resolve session: session id is required")
	}

	g.mu.Lock()
	if err := g.transitionLocked(domain.GateAwaitingReadiness); err != nil {
		g.mu.Unlock()
		return fmt.Errorf("resolve session: %w", err)
	}
	g.sessionID = sessionID
	g.mu.Unlock()

	g.emit()
	return nil
}

// ConfirmReady confirms readiness through the tracker. Once the gate is past
// awaiting_readiness it is a no-op.
func (g *SessionGate) ConfirmReady() error {
	g.mu.Lock()
	state := g.state
	g.mu.Unlock()

	if state != domain.GateAwaitingReadiness {
		if state.Terminal() || state == domain.GateInitializing {
			return fmt.Errorf("confirm ready: %w: state %s", domain.ErrInvalidTransition, state)
		}
		return nil
	}

	if _, err := g.readiness.ConfirmReady(); err != nil {
		return err
	}

	return g.advanceToReady(false)
}

// ForceJoin skips readiness confirmation.
func (g *SessionGate) ForceJoin() error {
	return g.advanceToReady(true)
}

func (g *SessionGate) advanceToReady(forced bool) error {
	g.mu.Lock()
	switch g.state {
	case domain.GateAwaitingReadiness:
	case domain.GateReadyToEnter, domain.GateEntering, domain.GateEntered, domain.GateActive, domain.GateDisconnected:
		g.mu.Unlock()
		return nil
	}
	if err := g.transitionLocked(domain.GateReadyToEnter); err != nil {
		g.mu.Unlock()
		return err
	}
	g.forced = g.forced || forced
	g.mu.Unlock()

	if forced {
		g.logger.Info("readiness skipped, forcing join")
	}
	g.emit()
	return nil
}

// Enter joins the room. A failed join returns the gate to ready_to_enter so
// the caller can retry.
func (g *SessionGate) Enter(ctx context.Context) (*RoomHandle, error) {
	g.mu.Lock()
	if g.state != domain.GateReadyToEnter {
		state := g.state
		g.mu.Unlock()
		return nil, fmt.Errorf("enter session: %w: state %s", domain.ErrInvalidTransition, state)
	}
	if !g.readiness.Record().CanEnter(g.forced) {
		g.mu.Unlock()
		return nil, fmt.Errorf("enter session: %w", domain.ErrPermissionsRequired)
	}
	enterCtx, cancel := context.WithCancel(ctx)
	g.cancelEnter = cancel
	_ = g.transitionLocked(domain.GateEntering)
	sessionID := g.sessionID
	g.mu.Unlock()
	g.emit()

	handle, err := g.rooms.Join(enterCtx, sessionID, g.participantID, g.authority, g.readiness.Record())

	g.mu.Lock()
	g.cancelEnter = nil
	cancel()
	if g.state != domain.GateEntering {
		g.mu.Unlock()
		g.releaseHandle(handle)
		return nil, fmt.Errorf("enter session %s: gate left during entry: %w", sessionID, context.Canceled)
	}
	if err != nil {
		_ = g.transitionLocked(domain.GateReadyToEnter)
		g.mu.Unlock()
		g.emit()
		return nil, fmt.Errorf("enter session %s: %w", sessionID, err)
	}
	g.handle = handle
	_ = g.transitionLocked(domain.GateEntered)
	g.mu.Unlock()

	g.emit()
	return handle, nil
}

// MarkSynced records the first successful view synchronization.
func (g *SessionGate) MarkSynced() error {
	g.mu.Lock()
	if g.state == domain.GateActive {
		g.mu.Unlock()
		return nil
	}
	if err := g.transitionLocked(domain.GateActive); err != nil {
		g.mu.Unlock()
		return fmt.Errorf("mark synced: %w", err)
	}
	g.mu.Unlock()

	g.emit()
	return nil
}

// HandleTransportLoss re-joins the same session with the same authority,
// waiting a capped exponential backoff between attempts. When every attempt
// fails the gate leaves and the error matches domain.ErrTransportLoss.
func (g *SessionGate) HandleTransportLoss(ctx context.Context) (*RoomHandle, error) {
	g.mu.Lock()
	if err := g.transitionLocked(domain.GateDisconnected); err != nil {
		g.mu.Unlock()
		return nil, fmt.Errorf("handle transport loss: %w", err)
	}
	lost := g.handle
	g.handle = nil
	sessionID := g.sessionID
	g.mu.Unlock()
	g.emit()

	g.rooms.MarkDisconnected(sessionID, g.participantID)
	if lost != nil {
		lost.release()
		_ = lost.Surface.Unbind()
	}

	var lastErr error
	for attempt := 1; attempt <= g.reconnect.MaxRetries; attempt++ {
		delay := g.reconnect.Backoff(attempt)
		g.logger.Warn("transport lost, reconnecting", "session", sessionID, "attempt", attempt, "max_retries", g.reconnect.MaxRetries, "delay", delay)

		select {
		case <-ctx.Done():
			g.leave(ctx, LeaveReasonTransportLost)
			return nil, fmt.Errorf("reconnect to session %s: %w", sessionID, errors.Join(domain.ErrTransportLoss, ctx.Err()))
		case <-g.clock.After(delay):
		}

		g.mu.Lock()
		if g.state != domain.GateDisconnected {
			g.mu.Unlock()
			return nil, fmt.Errorf("reconnect to session %s: gate left: %w", sessionID, domain.ErrTransportLoss)
		}
		_ = g.transitionLocked(domain.GateEntering)
		g.reconnects++
		g.mu.Unlock()
		g.emit()

		handle, err := g.rooms.Join(ctx, sessionID, g.participantID, g.authority, g.readiness.Record())

		g.mu.Lock()
		if g.state != domain.GateEntering {
			g.mu.Unlock()
			g.releaseHandle(handle)
			return nil, fmt.Errorf("reconnect to session %s: gate left: %w", sessionID, domain.ErrTransportLoss)
		}
		if err != nil {
			_ = g.transitionLocked(domain.GateDisconnected)
			g.mu.Unlock()
			g.emit()

			lastErr = err
			g.logger.Warn("reconnect attempt failed", "session", sessionID, "attempt", attempt, "error", err)
			if errors.Is(err, domain.ErrSessionEnded) || errors.Is(err, domain.ErrRoleConflict) {
				break
			}
			continue
		}
		g.handle = handle
		_ = g.transitionLocked(domain.GateEntered)
		g.mu.Unlock()
		g.emit()

		g.logger.Info("reconnected", "session", sessionID, "attempt", attempt)
		return handle, nil
	}

	g.leave(ctx, LeaveReasonTransportLost)
	return nil, fmt.Errorf("reconnect to session %s: %w", sessionID, errors.Join(domain.ErrTransportLoss, lastErr))
}

// Abandon leaves before the room was fully entered. An in-flight Enter is
// cancelled and whatever it acquired is released.
func (g *SessionGate) Abandon(_ context.Context) error {
	g.mu.Lock()
	switch g.state {
	case domain.GateInitializing, domain.GateAwaitingReadiness, domain.GateReadyToEnter, domain.GateEntering:
	default:
		state := g.state
		g.mu.Unlock()
		return fmt.Errorf("abandon: %w: state %s", domain.ErrInvalidTransition, state)
	}
	cancel := g.cancelEnter
	g.leaveReason = LeaveReasonAbandoned
	_ = g.transitionLocked(domain.GateLeft)
	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	g.logger.Info("gate abandoned")
	g.emit()
	return nil
}

// Leave exits the room. Leaving an already left gate is a no-op.
func (g *SessionGate) Leave(ctx context.Context, reason string) error {
	g.mu.Lock()
	switch g.state {
	case domain.GateLeft:
		g.mu.Unlock()
		return nil
	case domain.GateEntered, domain.GateActive, domain.GateDisconnected:
	default:
		state := g.state
		g.mu.Unlock()
		return fmt.Errorf("leave: %w: state %s", domain.ErrInvalidTransition, state)
	}
	g.mu.Unlock()

	g.leave(ctx, reason)
	return nil
}

func (g *SessionGate) leave(ctx context.Context, reason string) {
	g.mu.Lock()
	if g.state.Terminal() {
		g.mu.Unlock()
		return
	}
	handle := g.handle
	g.handle = nil
	sessionID := g.sessionID
	g.leaveReason = reason
	_ = g.transitionLocked(domain.GateLeft)
	g.mu.Unlock()

	if handle != nil {
		handle.release()
		_ = handle.Surface.Unbind()
	}
	if err := g.rooms.Leave(ctx, sessionID, g.participantID); err != nil && !errors.Is(err, domain.ErrParticipantNotFound) {
		g.logger.Warn("leave room failed", "session", sessionID, "error", err)
	}

	g.logger.Info("left session", "session", sessionID, "reason", reason)
	g.emit()
}

func (g *SessionGate) releaseHandle(handle *RoomHandle) {
	if handle == nil {
		return
	}
	handle.release()
	_ = handle.Surface.Unbind()
	g.rooms.LeaveBinding(handle.SessionID, g.participantID, handle.Binding)
}

func (g *SessionGate) Done() <-chan struct{} {
	return g.done
}

func (g *SessionGate) State() domain.GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *SessionGate) Handle() *RoomHandle {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.handle
}

func (g *SessionGate) Status() GateStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statusLocked()
}

func (g *SessionGate) statusLocked() GateStatus {
	return GateStatus{
		SessionID:   g.sessionID,
		Participant: g.participantID,
		Authority:   g.authority,
		State:       g.state,
		Readiness:   g.readiness.Record(),
		Forced:      g.forced,
		Reconnects:  g.reconnects,
		LeaveReason: g.leaveReason,
	}
}

func (g *SessionGate) transitionLocked(next domain.GateState) error {
	state, err := g.state.Transition(next)
	if err != nil {
		return err
	}
	g.state = state
	if state.Terminal() {
		close(g.done)
	}
	return nil
}

func (g *SessionGate) emit() {
	g.mu.Lock()
	hook := g.onChange
	status := g.statusLocked()
	g.mu.Unlock()

	if hook != nil {
		hook(status)
	}
}
