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

// ViewSyncEngine keeps one participant's surface in step with the shared
// view. Broadcasters publish their camera, scene and tool; followers apply
// whatever arrives last.
type ViewSyncEngine struct {
	rooms       *RoomManager
	clock       ports.Clock
	rebindDelay time.Duration
	logger      *slog.Logger

	sendMu   sync.Mutex
	rebindMu sync.Mutex

	mu             sync.Mutex
	handle         *RoomHandle
	expected       domain.ViewState
	sequence       uint64
	synced         bool
	onFirstSync    func()
	onSessionEnded func(domain.Event)
}

func NewViewSyncEngine(handle *RoomHandle, rooms *RoomManager, clock ports.Clock, policy Policy, logger *slog.Logger) *ViewSyncEngine {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &ViewSyncEngine{
		rooms:       rooms,
		clock:       clock,
		rebindDelay: policy.RebindDelay,
		logger:      loggerOrDefault(logger).With("component", "viewsync"),
		handle:      handle,
		expected:    initialViewState(handle),
	}
}

func initialViewState(handle *RoomHandle) domain.ViewState {
	authority := handle.Authority()
	return domain.ViewState{
		Camera:       domain.CanonicalCamera(),
		Scene:        handle.InitialScene,
		Mode:         domain.ViewModeFor(authority),
		InputBlocked: authority == domain.AuthorityFollower,
		Bound:        true,
	}
}

// OnFirstSync registers a hook fired once per handle, when the surface first
// shows the shared view.
func (e *ViewSyncEngine) OnFirstSync(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onFirstSync = fn
}

func (e *ViewSyncEngine) OnSessionEnded(fn func(domain.Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onSessionEnded = fn
}

func (e *ViewSyncEngine) Handle() *RoomHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handle
}

// Snapshot returns the view state the surface is expected to show.
func (e *ViewSyncEngine) Snapshot() domain.ViewState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.expected
}

func (e *ViewSyncEngine) Synced() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.synced
}

func (e *ViewSyncEngine) MoveCamera(ctx context.Context, camera domain.Camera) (domain.Camera, error) {
	camera = camera.Normalize()
	err := e.broadcast(ctx, func(state *domain.ViewState) domain.Event {
		state.Camera = camera
		return domain.Event{Type: domain.EventCameraMoved, Camera: &camera}
	})
	if err != nil {
		return domain.Camera{}, fmt.Errorf("move camera: %w", err)
	}
	return camera, nil
}

// ChangeScene switches the session's current scene and publishes it.
func (e *ViewSyncEngine) ChangeScene(ctx context.Context, path domain.ScenePath) error {
	handle := e.Handle()
	if handle.Authority() != domain.AuthorityBroadcaster {
		return fmt.Errorf("change scene: %w", domain.ErrFollowerReadOnly)
	}
	if err := e.rooms.SetCurrentScene(ctx, handle, path); err != nil {
		return fmt.Errorf("change scene: %w", err)
	}

	err := e.broadcast(ctx, func(state *domain.ViewState) domain.Event {
		state.Scene = path
		return domain.Event{Type: domain.EventSceneChanged, Scene: &path}
	})
	if err != nil {
		return fmt.Errorf("change scene: %w", err)
	}
	return nil
}

func (e *ViewSyncEngine) ChangeTool(ctx context.Context, tool string) error {
	err := e.broadcast(ctx, func(state *domain.ViewState) domain.Event {
		state.Tool = tool
		return domain.Event{Type: domain.EventToolChanged, Tool: tool}
	})
	if err != nil {
		return fmt.Errorf("change tool: %w", err)
	}
	return nil
}

// Start announces the participant on the channel. A broadcaster publishes its
// view state and is synced at once; a follower asks for the current state.
func (e *ViewSyncEngine) Start(ctx context.Context) error {
	if e.Handle().Authority() == domain.AuthorityBroadcaster {
		if err := e.publishViewState(ctx); err != nil {
			return fmt.Errorf("start view sync: %w", err)
		}
		e.markSynced()
		return nil
	}

	if err := e.send(ctx, domain.Event{Type: domain.EventSyncRequest}); err != nil {
		return fmt.Errorf("start view sync: %w", err)
	}
	return nil
}

// Run consumes channel events until ctx ends or the binding closes. A dropped
// binding returns an error matching domain.ErrTransportLoss; a binding closed
// by the participant returns nil.
func (e *ViewSyncEngine) Run(ctx context.Context) error {
	for {
		binding := e.Handle().Binding

		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-binding.Events():
			if ok {
				e.handleEvent(ctx, event)
				continue
			}
			if e.Handle().Binding != binding {
				continue
			}
			err := binding.Err()
			if err == nil {
				return nil
			}
			if !errors.Is(err, domain.ErrTransportLoss) {
				err = errors.Join(domain.ErrTransportLoss, err)
			}
			return fmt.Errorf("view sync: %w", err)
		}
	}
}

func (e *ViewSyncEngine) handleEvent(ctx context.Context, event domain.Event) {
	authority := e.Handle().Authority()

	switch event.Type {
	case domain.EventSyncRequest:
		if authority != domain.AuthorityBroadcaster {
			return
		}
		if err := e.publishViewState(ctx); err != nil {
			e.logger.Warn("answer sync request failed", "from", event.Sender, "error", err)
		}
	case domain.EventSessionEnded:
		e.mu.Lock()
		hook := e.onSessionEnded
		e.mu.Unlock()
		if hook != nil {
			hook(event)
		}
	case domain.EventCameraMoved, domain.EventSceneChanged, domain.EventToolChanged, domain.EventViewState:
		if authority == domain.AuthorityBroadcaster {
			e.logger.Warn("ignoring view event sent to broadcaster", "from", event.Sender, "type", event.Type)
			return
		}
		e.apply(event)
	default:
		e.logger.Warn("ignoring unknown event", "from", event.Sender, "type", event.Type)
	}
}

// apply is last-write-wins in arrival order.
func (e *ViewSyncEngine) apply(event domain.Event) {
	e.mu.Lock()
	if event.Camera != nil {
		e.expected.Camera = event.Camera.Normalize()
	}
	if event.Scene != nil {
		e.expected.Scene = *event.Scene
	}
	if event.Type == domain.EventToolChanged || event.Type == domain.EventViewState {
		e.expected.Tool = event.Tool
	}
	state := e.expected
	surface := e.handle.Surface
	e.mu.Unlock()

	e.render(surface, state)
	e.markSynced()
}

func (e *ViewSyncEngine) render(surface ports.Surface, state domain.ViewState) {
	if err := surface.SetCamera(state.Camera); err != nil {
		e.logger.Warn("apply camera failed", "error", err)
	}
	if !state.Scene.IsZero() {
		if err := surface.SetScene(state.Scene); err != nil {
			e.logger.Warn("apply scene failed", "scene", state.Scene.String(), "error", err)
		}
	}
	if err := surface.SetTool(state.Tool); err != nil {
		e.logger.Warn("apply tool failed", "error", err)
	}
}

func (e *ViewSyncEngine) markSynced() {
	e.mu.Lock()
	if e.synced {
		e.mu.Unlock()
		return
	}
	e.synced = true
	hook := e.onFirstSync
	e.mu.Unlock()

	e.logger.Info("view synchronized")
	if hook != nil {
		hook()
	}
}

func (e *ViewSyncEngine) publishViewState(ctx context.Context) error {
	return e.broadcast(ctx, func(state *domain.ViewState) domain.Event {
		camera := state.Camera
		event := domain.Event{Type: domain.EventViewState, Camera: &camera, Tool: state.Tool}
		if !state.Scene.IsZero() {
			scene := state.Scene
			event.Scene = &scene
		}
		return event
	})
}

// broadcast mutates the expected view, renders it locally and publishes the
// event built from it. Only the broadcaster may call it.
func (e *ViewSyncEngine) broadcast(ctx context.Context, build func(state *domain.ViewState) domain.Event) error {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	e.mu.Lock()
	if e.handle.Authority() != domain.AuthorityBroadcaster {
		e.mu.Unlock()
		return domain.ErrFollowerReadOnly
	}
	event := build(&e.expected)
	state := e.expected
	surface := e.handle.Surface
	e.mu.Unlock()

	e.render(surface, state)
	return e.sendLocked(ctx, event)
}

func (e *ViewSyncEngine) send(ctx context.Context, event domain.Event) error {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()
	return e.sendLocked(ctx, event)
}

func (e *ViewSyncEngine) sendLocked(ctx context.Context, event domain.Event) error {
	e.mu.Lock()
	e.sequence++
	event.Sequence = e.sequence
	event.Sender = e.handle.Participant.ID
	event.Timestamp = e.clock.Now().UnixMilli()
	binding := e.handle.Binding
	e.mu.Unlock()

	if err := binding.Publish(ctx, event); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Healthy reports whether the surface is bound and shows the expected view.
func (e *ViewSyncEngine) Healthy() bool {
	e.mu.Lock()
	surface := e.handle.Surface
	expected := e.expected
	e.mu.Unlock()

	snapshot := surface.Snapshot()
	return snapshot.Bound && snapshot.Matches(expected)
}

// Rebind unbinds and rebinds the surface, resets it to the canonical camera
// and resynchronizes. It does nothing on a healthy surface unless forced, and
// nothing at all once the handle is released.
func (e *ViewSyncEngine) Rebind(ctx context.Context, force bool) error {
	e.rebindMu.Lock()
	defer e.rebindMu.Unlock()

	e.mu.Lock()
	handle := e.handle
	e.mu.Unlock()

	if handle.Released() || (!force && e.Healthy()) {
		return nil
	}

	e.logger.Info("rebinding surface", "channel", handle.Channel.UUID, "forced", force)

	surface := handle.Surface
	if err := surface.Unbind(); err != nil {
		e.logger.Warn("unbind surface failed", "error", err)
	}

	if e.rebindDelay > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("rebind surface: %w", ctx.Err())
		case <-e.clock.After(e.rebindDelay):
		}
	}

	if err := surface.Bind(handle.Channel.UUID); err != nil {
		return fmt.Errorf("rebind surface: %w", err)
	}
	if handle.Released() {
		_ = surface.Unbind()
		return nil
	}

	authority := handle.Authority()
	e.mu.Lock()
	e.expected.Camera = domain.CanonicalCamera()
	e.expected.Mode = domain.ViewModeFor(authority)
	e.expected.InputBlocked = authority == domain.AuthorityFollower
	e.expected.Bound = true
	state := e.expected
	e.mu.Unlock()

	if err := surface.SetViewMode(state.Mode); err != nil {
		return fmt.Errorf("rebind surface: %w", err)
	}
	if err := surface.SetInputBlocked(state.InputBlocked); err != nil {
		return fmt.Errorf("rebind surface: %w", err)
	}
	e.render(surface, state)

	if authority == domain.AuthorityBroadcaster {
		if err := e.publishViewState(ctx); err != nil {
			return fmt.Errorf("resync after rebind: %w", err)
		}
		e.markSynced()
		return nil
	}
	if err := e.send(ctx, domain.Event{Type: domain.EventSyncRequest}); err != nil {
		return fmt.Errorf("resync after rebind: %w", err)
	}
	return nil
}

// CheckHealth rebinds an unhealthy surface. It reports whether the surface
// was healthy before the check. The surface of a released handle is left
// alone.
func (e *ViewSyncEngine) CheckHealth(ctx context.Context) (bool, error) {
	if e.Handle().Released() {
		return false, nil
	}
	if e.Healthy() {
		return true, nil
	}

	e.logger.Warn("surface out of sync")
	return false, e.Rebind(ctx, false)
}

func (e *ViewSyncEngine) RunHealthChecks(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.clock.After(interval):
		}

		if _, err := e.CheckHealth(ctx); err != nil {
			e.logger.Warn("health check rebind failed", "error", err)
		}
	}
}

// Reattach switches to the handle of a fresh join and forces a full rebind and
// resync. Nothing missed while disconnected is replayed.
func (e *ViewSyncEngine) Reattach(ctx context.Context, handle *RoomHandle) error {
	e.mu.Lock()
	e.handle = handle
	e.synced = false
	scene := e.expected.Scene
	if !handle.InitialScene.IsZero() {
		scene = handle.InitialScene
	}
	e.expected = initialViewState(handle)
	e.expected.Scene = scene
	e.mu.Unlock()

	return e.Rebind(ctx, true)
}
