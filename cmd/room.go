package cmd

import (
	"context"
	"fmt"
	"time"

	channelmemory "github.com/bnema/classroom/internal/adapters/channel/memory"
	"github.com/bnema/classroom/internal/adapters/devices/static"
	surfacememory "github.com/bnema/classroom/internal/adapters/surface/memory"
	"github.com/bnema/classroom/internal/application"
	"github.com/bnema/classroom/internal/domain"
)

const pollInterval = 10 * time.Millisecond

// localRoom hosts participants in this process over the in-memory hub.
type localRoom struct {
	app      *app
	hub      *channelmemory.Hub
	surfaces *surfacememory.Factory
	rooms    *application.RoomManager
	clients  []*application.Client
}

func newLocalRoom(app *app) *localRoom {
	hub := channelmemory.NewHub(app.logger)
	surfaces := surfacememory.NewFactory(app.viewport)
	return &localRoom{
		app:      app,
		hub:      hub,
		surfaces: surfaces,
		rooms:    application.NewRoomManager(hub, surfaces, app.scenes, app.clock, app.logger),
	}
}

func (r *localRoom) client(sessionID domain.SessionID, participantID domain.ParticipantID, role domain.Role, failing ...domain.DeviceCheck) (*application.Client, error) {
	client, err := application.NewClient(application.ClientConfig{
		SessionID:     sessionID,
		ParticipantID: participantID,
		Role:          role,
		Policy:        r.app.policy,
	}, r.rooms, static.NewDevices(failing...), r.app.clock, r.app.logger)
	if err != nil {
		return nil, err
	}
	r.clients = append(r.clients, client)
	return client, nil
}

func (r *localRoom) surface(participantID domain.ParticipantID) (*surfacememory.Surface, bool) {
	return r.surfaces.Surface(participantID)
}

// Close makes every participant still in the room leave.
func (r *localRoom) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), r.app.policy.SyncDeadline)
	defer cancel()

	for _, client := range r.clients {
		if client.Gate().State() == domain.GateLeft {
			continue
		}
		_ = client.Leave(ctx)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(ctx context.Context, deadline time.Duration, what string, cond func() bool) error {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for !cond() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s after %s: %w", what, deadline, domain.ErrSyncTimeout)
		case <-ticker.C:
		}
	}
	return nil
}
