package application

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bnema/classroom/internal/domain"
	"github.com/bnema/classroom/internal/ports"
	"github.com/google/uuid"
)

type JoinRequest struct {
	SessionID     string                 `json:"sessionId" validate:"required,max=128"`
	ParticipantID string                 `json:"participantId" validate:"required,max=128"`
	Role          string                 `json:"role" validate:"required,oneof=teacher student"`
	Readiness     domain.ReadinessRecord `json:"readiness"`
}

type JoinResponse struct {
	OK           bool             `json:"ok"`
	Authority    domain.Authority `json:"authority"`
	ChannelUUID  string           `json:"channelUuid"`
	ChannelToken string           `json:"channelToken"`
}

type Admission struct {
	SessionID   domain.SessionID
	Participant domain.Participant
	Channel     ports.ChannelInfo
}

func (a Admission) Response() JoinResponse {
	return JoinResponse{
		OK:           true,
		Authority:    a.Participant.Authority,
		ChannelUUID:  a.Channel.UUID,
		ChannelToken: a.Channel.Token,
	}
}

// RoomHandle is a participant's live connection to a session: the bound
// channel and the bound local rendering surface.
type RoomHandle struct {
	SessionID    domain.SessionID
	Participant  domain.Participant
	Channel      ports.ChannelInfo
	Binding      ports.Binding
	Surface      ports.Surface
	InitialScene domain.ScenePath

	released atomic.Bool
}

func (h *RoomHandle) Authority() domain.Authority {
	return h.Participant.Authority
}

// Released reports whether the gate gave the handle up. A released surface
// must stay unbound.
func (h *RoomHandle) Released() bool {
	return h.released.Load()
}

func (h *RoomHandle) release() {
	h.released.Store(true)
}

// admittedEntry is what an admission replaced: the participant's previous
// session entry and channel token.
type admittedEntry struct {
	participant domain.Participant
	token       string
}

type roomSession struct {
	session  domain.Session
	tokens   map[domain.ParticipantID]string
	bindings map[domain.ParticipantID]ports.Binding
}

// RoomManager admits participants to sessions and owns every session's
// channel subscription list.
type RoomManager struct {
	transport ports.Transport
	surfaces  ports.SurfaceFactory
	scenes    ports.SceneStore
	clock     ports.Clock
	logger    *slog.Logger
	validator *requestValidator

	mu       sync.Mutex
	sessions map[domain.SessionID]*roomSession
	changed  chan struct{}
}

// NewRoomManager builds a room manager. Scene paths are checked against
// scenes; without a store only the empty path can be set.
func NewRoomManager(transport ports.Transport, surfaces ports.SurfaceFactory, scenes ports.SceneStore, clock ports.Clock, logger *slog.Logger) *RoomManager {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &RoomManager{
		transport: transport,
		surfaces:  surfaces,
		scenes:    scenes,
		clock:     clock,
		logger:    loggerOrDefault(logger).With("component", "rooms"),
		validator: newRequestValidator(),
		sessions:  map[domain.SessionID]*roomSession{},
		changed:   make(chan struct{}),
	}
}

// Admit registers a participant in a session without binding anything. The
// session is created on first admission; every later admission gets the same
// channel UUID.
func (m *RoomManager) Admit(ctx context.Context, req JoinRequest) (Admission, error) {
	admission, _, err := m.admit(ctx, req)
	return admission, err
}

// admit is Admit that also returns the entry the admission replaced, nil for
// a participant new to the session.
func (m *RoomManager) admit(ctx context.Context, req JoinRequest) (Admission, *admittedEntry, error) {
	if err := ctx.Err(); err != nil {
		return Admission{}, nil, err
	}
	if err := m.validator.Struct(req); err != nil {
		return Admission{}, nil, err
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return Admission{}, nil, err
	}

	token, err := newChannelToken()
	if err != nil {
		return Admission{}, nil, fmt.Errorf("generate channel token: %w", err)
	}

	sessionID := domain.SessionID(req.SessionID)
	participant := domain.NewParticipant(domain.ParticipantID(req.ParticipantID), role, m.clock.Now())
	participant.Readiness = req.Readiness

	m.mu.Lock()
	defer m.mu.Unlock()

	room, created := m.sessions[sessionID], false
	if room == nil {
		room = &roomSession{
			session: domain.Session{
				ID:          sessionID,
				ChannelUUID: uuid.NewString(),
				CreatedAt:   m.clock.Now(),
			},
			tokens:   map[domain.ParticipantID]string{},
			bindings: map[domain.ParticipantID]ports.Binding{},
		}
		created = true
	}

	var previous *admittedEntry
	if existing, ok := room.session.Participant(participant.ID); ok {
		participant.JoinedAt = existing.JoinedAt
		previous = &admittedEntry{participant: existing, token: room.tokens[participant.ID]}
	}

	if err := room.session.Admit(participant); err != nil {
		if errors.Is(err, domain.ErrRoleConflict) {
			m.logger.Warn("join rejected", "session", sessionID, "participant", participant.ID, "error", err)
		}
		return Admission{}, nil, fmt.Errorf("admit %s to session %s: %w", participant.ID, sessionID, err)
	}

	if created {
		m.sessions[sessionID] = room
		m.logger.Info("session created", "session", sessionID, "channel", room.session.ChannelUUID)
	}
	room.tokens[participant.ID] = token
	m.notifyLocked()

	return Admission{
		SessionID:   sessionID,
		Participant: participant,
		Channel:     ports.ChannelInfo{UUID: room.session.ChannelUUID, Token: token},
	}, previous, nil
}

// Join admits the participant with its readiness record, binds the shared
// channel and a fresh rendering surface, and puts the surface on the
// canonical camera.
func (m *RoomManager) Join(ctx context.Context, sessionID domain.SessionID, participantID domain.ParticipantID, authority domain.Authority, readiness domain.ReadinessRecord) (*RoomHandle, error) {
	if !authority.Valid() {
		return nil, fmt.Errorf("unsupported authority %q", authority)
	}

	admission, previous, err := m.admit(ctx, JoinRequest{
		SessionID:     string(sessionID),
		ParticipantID: string(participantID),
		Role:          string(domain.RoleFor(authority)),
		Readiness:     readiness,
	})
	if err != nil {
		return nil, err
	}

	binding, err := m.transport.Bind(ctx, admission.Channel, participantID)
	if err != nil {
		m.rollback(admission, previous)
		return nil, fmt.Errorf("bind channel %s: %w", admission.Channel.UUID, errors.Join(domain.ErrTransportLoss, err))
	}

	surface, err := m.bindSurface(admission)
	if err != nil {
		_ = binding.Close()
		m.rollback(admission, previous)
		return nil, err
	}

	m.mu.Lock()
	room := m.sessions[sessionID]
	if room == nil || room.session.Terminated {
		m.mu.Unlock()
		_ = binding.Close()
		_ = surface.Unbind()
		return nil, fmt.Errorf("join session %s: %w", sessionID, domain.ErrSessionEnded)
	}
	previousBinding := room.bindings[participantID]
	room.bindings[participantID] = binding
	room.session.SetConnection(participantID, domain.ConnectionConnected)
	currentScene := room.session.CurrentScene
	participant, _ := room.session.Participant(participantID)
	m.notifyLocked()
	m.mu.Unlock()

	if previousBinding != nil && previousBinding != binding {
		_ = previousBinding.Close()
	}

	if !currentScene.IsZero() {
		if err := surface.SetScene(currentScene); err != nil {
			m.logger.Warn("apply current scene failed", "session", sessionID, "participant", participantID, "error", err)
		}
	}

	m.logger.Info("participant joined", "session", sessionID, "participant", participantID, "authority", authority)

	return &RoomHandle{
		SessionID:    sessionID,
		Participant:  participant,
		Channel:      admission.Channel,
		Binding:      binding,
		Surface:      surface,
		InitialScene: currentScene,
	}, nil
}

// rollback undoes an admission whose join failed. A participant that was
// already in the session keeps its entry and token, so the session and its
// channel survive a failed reconnect attempt.
func (m *RoomManager) rollback(admission Admission, previous *admittedEntry) {
	participantID := admission.Participant.ID
	issued := func(room *roomSession) bool {
		return room.tokens[participantID] == admission.Channel.Token
	}

	if previous == nil {
		m.release(admission.SessionID, participantID, issued)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	room := m.sessions[admission.SessionID]
	if room == nil || !issued(room) {
		return
	}
	room.session.Replace(previous.participant)
	room.tokens[participantID] = previous.token
	m.notifyLocked()
}

func (m *RoomManager) bindSurface(admission Admission) (ports.Surface, error) {
	surface, err := m.surfaces.NewSurface(admission.Participant.ID)
	if err != nil {
		return nil, fmt.Errorf("create surface: %w", err)
	}

	authority := admission.Participant.Authority
	steps := []func() error{
		func() error { return surface.Bind(admission.Channel.UUID) },
		func() error { return surface.SetCamera(domain.CanonicalCamera()) },
		func() error { return surface.SetViewMode(domain.ViewModeFor(authority)) },
		func() error { return surface.SetInputBlocked(authority == domain.AuthorityFollower) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			_ = surface.Unbind()
			return nil, fmt.Errorf("bind surface: %w", err)
		}
	}

	return surface, nil
}

// Leave removes the participant and closes its binding. The session is
// destroyed once empty.
func (m *RoomManager) Leave(_ context.Context, sessionID domain.SessionID, participantID domain.ParticipantID) error {
	if !m.release(sessionID, participantID, nil) {
		return fmt.Errorf("leave session %s: %w", sessionID, domain.ErrParticipantNotFound)
	}
	m.logger.Info("participant left", "session", sessionID, "participant", participantID)
	return nil
}

// LeaveBinding is Leave for a specific binding: a participant that already
// reconnected on a newer binding stays in the session.
func (m *RoomManager) LeaveBinding(sessionID domain.SessionID, participantID domain.ParticipantID, binding ports.Binding) bool {
	return m.release(sessionID, participantID, func(room *roomSession) bool {
		current := room.bindings[participantID]
		return current == nil || current == binding
	})
}

// Depart removes a participant whose remote connection closed. A participant
// admitted again since then holds a newer token and stays in the session.
func (m *RoomManager) Depart(channelUUID string, participantID domain.ParticipantID, token string) bool {
	admission, err := m.Authorize(channelUUID, participantID, token)
	if err != nil {
		return false
	}

	departed := m.release(admission.SessionID, participantID, func(room *roomSession) bool {
		return room.tokens[participantID] == token
	})
	if departed {
		m.logger.Info("participant departed", "session", admission.SessionID, "participant", participantID)
	}
	return departed
}

func (m *RoomManager) release(sessionID domain.SessionID, participantID domain.ParticipantID, current func(room *roomSession) bool) bool {
	m.mu.Lock()
	room := m.sessions[sessionID]
	if room == nil || (current != nil && !current(room)) {
		m.mu.Unlock()
		return false
	}

	binding := room.bindings[participantID]

	removed := room.session.Remove(participantID)
	delete(room.bindings, participantID)
	delete(room.tokens, participantID)
	if room.session.Empty() {
		delete(m.sessions, sessionID)
		m.logger.Info("session destroyed", "session", sessionID)
	}
	m.notifyLocked()
	m.mu.Unlock()

	if binding != nil {
		_ = binding.Close()
	}
	return removed
}

func (m *RoomManager) MarkDisconnected(sessionID domain.SessionID, participantID domain.ParticipantID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room := m.sessions[sessionID]; room != nil {
		room.session.SetConnection(participantID, domain.ConnectionDisconnected)
		m.notifyLocked()
	}
}

// Authorize checks a channel token issued by Admit.
func (m *RoomManager) Authorize(channelUUID string, participantID domain.ParticipantID, token string) (Admission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, room := range m.sessions {
		if room.session.ChannelUUID != channelUUID {
			continue
		}
		expected, ok := room.tokens[participantID]
		if !ok || subtle.ConstantTimeCompare([]byte(expected), []byte(token)) != 1 {
			return Admission{}, domain.ErrInvalidToken
		}
		participant, _ := room.session.Participant(participantID)
		return Admission{
			SessionID:   room.session.ID,
			Participant: participant,
			Channel:     ports.ChannelInfo{UUID: channelUUID, Token: expected},
		}, nil
	}

	return Admission{}, domain.ErrInvalidToken
}

// SetCurrentScene switches the session's current scene path in one step.
// The path must name an existing scene; the empty path clears the scene.
func (m *RoomManager) SetCurrentScene(ctx context.Context, handle *RoomHandle, path domain.ScenePath) error {
	if handle.Authority() != domain.AuthorityBroadcaster {
		return domain.ErrNotBroadcaster
	}
	if err := m.resolveScene(ctx, path); err != nil {
		return fmt.Errorf("set current scene %s: %w", path, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	room := m.sessions[handle.SessionID]
	if room == nil {
		return fmt.Errorf("set current scene: %w", domain.ErrSessionNotFound)
	}
	if room.session.Terminated {
		return fmt.Errorf("set current scene: %w", domain.ErrSessionEnded)
	}
	room.session.CurrentScene = path
	m.notifyLocked()
	return nil
}

func (m *RoomManager) resolveScene(ctx context.Context, path domain.ScenePath) error {
	if path.IsZero() {
		return nil
	}
	if m.scenes == nil {
		return domain.ErrSceneDirectoryNotFound
	}

	dir, err := m.scenes.GetDirectory(ctx, path.Directory)
	if err != nil {
		return err
	}
	_, err = dir.Path(path.Index)
	return err
}

func (m *RoomManager) MarkTerminated(sessionID domain.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room := m.sessions[sessionID]
	if room == nil {
		return fmt.Errorf("terminate session %s: %w", sessionID, domain.ErrSessionNotFound)
	}
	room.session.Terminated = true
	m.notifyLocked()
	return nil
}

func (m *RoomManager) Session(sessionID domain.SessionID) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room := m.sessions[sessionID]
	if room == nil {
		return domain.Session{}, fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionNotFound)
	}
	return room.session.Clone(), nil
}

// RemainingFollowers lists the followers still in the session.
func (m *RoomManager) RemainingFollowers(sessionID domain.SessionID) []domain.ParticipantID {
	m.mu.Lock()
	defer m.mu.Unlock()

	room := m.sessions[sessionID]
	if room == nil {
		return nil
	}

	followers := room.session.Followers()
	ids := make([]domain.ParticipantID, 0, len(followers))
	for _, follower := range followers {
		ids = append(ids, follower.ID)
	}
	return ids
}

// WaitFollowersGone blocks until the session has no followers left or ctx ends.
func (m *RoomManager) WaitFollowersGone(ctx context.Context, sessionID domain.SessionID) error {
	for {
		m.mu.Lock()
		room := m.sessions[sessionID]
		if room == nil || len(room.session.Followers()) == 0 {
			m.mu.Unlock()
			return nil
		}
		changed := m.changed
		m.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *RoomManager) notifyLocked() {
	close(m.changed)
	m.changed = make(chan struct{})
}

func newChannelToken() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}
