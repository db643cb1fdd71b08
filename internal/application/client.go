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

type ClientConfig struct {
	SessionID     domain.SessionID
	ParticipantID domain.ParticipantID
	Role          domain.Role
	Policy        Policy
}

type ParticipantStatus struct {
	Gate        GateStatus
	View        domain.ViewState
	Synced      bool
	Termination domain.TerminationState
}

// Client is everything one participant runs: readiness, gate, view sync and,
// for the broadcaster, termination. Clients share nothing but the transport
// behind the room manager.
type Client struct {
	cfg       ClientConfig
	authority domain.Authority
	rooms     *RoomManager
	clock     ports.Clock
	logger    *slog.Logger
	tracker   *DeviceReadinessTracker
	gate      *SessionGate

	mu         sync.Mutex
	engine     *ViewSyncEngine
	terminator *TerminationCoordinator
	cancel     context.CancelFunc
	runErr     error
	onRedirect func(domain.Event)
	wg         sync.WaitGroup
}

func NewClient(cfg ClientConfig, rooms *RoomManager, devices ports.DeviceTester, clock ports.Clock, logger *slog.Logger) (*Client, error) {
	if !cfg.Role.Valid() {
		return nil, fmt.Errorf("new client: unsupported role %q", cfg.Role)
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	authority := domain.AuthorityFor(cfg.Role)
	logger = loggerOrDefault(logger).With("participant", cfg.ParticipantID, "authority", authority)
	tracker := NewDeviceReadinessTracker(devices, logger)
	gate := NewSessionGate(cfg.ParticipantID, authority, rooms, tracker, clock, cfg.Policy.Reconnect, logger)
	if err := gate.Resolve(cfg.SessionID); err != nil {
		return nil, err
	}

	return &Client{
		cfg:       cfg,
		authority: authority,
		rooms:     rooms,
		clock:     clock,
		logger:    logger,
		tracker:   tracker,
		gate:      gate,
	}, nil
}

func (c *Client) ParticipantID() domain.ParticipantID { return c.cfg.ParticipantID }
func (c *Client) Authority() domain.Authority         { return c.authority }
func (c *Client) Tracker() *DeviceReadinessTracker    { return c.tracker }
func (c *Client) Gate() *SessionGate                  { return c.gate }

func (c *Client) Engine() *ViewSyncEngine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine
}

func (c *Client) Terminator() *TerminationCoordinator {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminator
}

// OnRedirect registers the hook a follower fires after leaving an ended
// session.
func (c *Client) OnRedirect(fn func(domain.Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRedirect = fn
}

// Join runs the device checks and confirms readiness, or skips both when
// forced, then enters the room.
func (c *Client) Join(ctx context.Context, force bool) error {
	if force {
		if err := c.gate.ForceJoin(); err != nil {
			return err
		}
	} else {
		if _, err := c.tracker.RunChecks(ctx); err != nil {
			return err
		}
		if err := c.gate.ConfirmReady(); err != nil {
			return err
		}
	}
	return c.Enter(ctx)
}

// Enter joins the room and starts synchronizing in the background.
func (c *Client) Enter(ctx context.Context) error {
	handle, err := c.gate.Enter(ctx)
	if err != nil {
		return err
	}

	engine := NewViewSyncEngine(handle, c.rooms, c.clock, c.cfg.Policy, c.logger)
	terminator := NewTerminationCoordinator(engine, c.rooms, c.clock, c.cfg.Policy, c.logger)

	runCtx, cancel := context.WithCancel(context.Background())
	engine.OnFirstSync(func() {
		if err := c.gate.MarkSynced(); err != nil {
			c.logger.Warn("mark synced failed", "error", err)
		}
	})
	engine.OnSessionEnded(func(event domain.Event) { c.handleSessionEnded(runCtx, event) })

	c.mu.Lock()
	c.engine = engine
	c.terminator = terminator
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.supervise(runCtx, engine)
	}()

	if interval := c.cfg.Policy.HealthCheckInterval; interval > 0 {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			_ = engine.RunHealthChecks(runCtx, interval)
		}()
	}

	if err := engine.Start(ctx); err != nil {
		c.logger.Warn("initial sync failed, waiting for reconnect", "error", err)
	}
	return nil
}

// supervise runs the engine and reconnects it after a transport loss.
func (c *Client) supervise(ctx context.Context, engine *ViewSyncEngine) {
	for {
		err := engine.Run(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}
		if !errors.Is(err, domain.ErrTransportLoss) || c.gate.State().Terminal() {
			c.setErr(err)
			return
		}

		c.logger.Warn("transport lost", "error", err)
		handle, err := c.gate.HandleTransportLoss(ctx)
		if err != nil {
			c.setErr(err)
			return
		}
		if err := engine.Reattach(ctx, handle); err != nil {
			c.logger.Warn("reattach after reconnect failed", "error", err)
		}
	}
}

func (c *Client) handleSessionEnded(ctx context.Context, event domain.Event) {
	if c.authority == domain.AuthorityBroadcaster {
		return
	}

	c.logger.Info("session ended by broadcaster", "from", event.Sender)
	if err := c.gate.Leave(ctx, LeaveReasonSessionEnded); err != nil {
		c.logger.Warn("leave after session end failed", "error", err)
	}

	// Runs on the sync goroutine: cancel only, stop would wait on itself.
	c.mu.Lock()
	hook := c.onRedirect
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if hook != nil {
		hook(event)
	}
}

// EndSession requests and confirms the end of session, waits for followers
// to leave and then leaves itself.
func (c *Client) EndSession(ctx context.Context) (EvictionReport, error) {
	terminator := c.Terminator()
	if terminator == nil {
		return EvictionReport{}, fmt.Errorf("end session: %w: not in room", domain.ErrInvalidTransition)
	}
	if terminator.State() == domain.TerminationActive {
		if err := terminator.RequestEnd(); err != nil {
			return EvictionReport{}, err
		}
	}
	if err := terminator.ConfirmEnd(ctx); err != nil {
		return EvictionReport{}, err
	}

	report, err := terminator.Verify(ctx)
	if leaveErr := c.gate.Leave(ctx, LeaveReasonSessionEnded); leaveErr != nil {
		err = errors.Join(err, leaveErr)
	}
	c.stop()
	return report, err
}

func (c *Client) Leave(ctx context.Context) error {
	err := c.gate.Leave(ctx, LeaveReasonVoluntary)
	c.stop()
	return err
}

func (c *Client) Abandon(ctx context.Context) error {
	err := c.gate.Abandon(ctx)
	c.stop()
	return err
}

// Wait blocks until the background synchronization stopped and returns the
// error that stopped it, if any.
func (c *Client) Wait() error {
	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runErr
}

func (c *Client) Done() <-chan struct{} {
	return c.gate.Done()
}

func (c *Client) Status() ParticipantStatus {
	status := ParticipantStatus{Gate: c.gate.Status()}
	if engine := c.Engine(); engine != nil {
		status.View = engine.Snapshot()
		status.Synced = engine.Synced()
	}
	if terminator := c.Terminator(); terminator != nil {
		status.Termination = terminator.State()
	}
	return status
}

func (c *Client) stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

func (c *Client) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runErr == nil {
		c.runErr = err
	}
}
