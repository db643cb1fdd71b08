package memory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bnema/classroom/internal/domain"
	"github.com/bnema/classroom/internal/ports"
)

var ErrUnbound = errors.New("surface is not bound")

// Surface is a headless rendering surface. It records what a real whiteboard
// would show.
type Surface struct {
	participant domain.ParticipantID
	viewport    domain.Size

	mu      sync.Mutex
	state   domain.ViewState
	channel string
	binds   int
}

var _ ports.Surface = (*Surface)(nil)

func NewSurface(participant domain.ParticipantID, viewport domain.Size) *Surface {
	return &Surface{participant: participant, viewport: viewport}
}

func (s *Surface) Bind(channelUUID string) error {
	if channelUUID == "" {
		return fmt.Errorf("bind surface: channel uuid is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Bound = true
	s.channel = channelUUID
	s.binds++
	return nil
}

// Unbind drops everything the surface showed.
func (s *Surface) Unbind() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = domain.ViewState{}
	s.channel = ""
	return nil
}

func (s *Surface) SetCamera(camera domain.Camera) error {
	return s.update(func(state *domain.ViewState) { state.Camera = camera })
}

func (s *Surface) SetScene(path domain.ScenePath) error {
	return s.update(func(state *domain.ViewState) { state.Scene = path })
}

func (s *Surface) SetTool(tool string) error {
	return s.update(func(state *domain.ViewState) { state.Tool = tool })
}

func (s *Surface) SetViewMode(mode domain.ViewMode) error {
	return s.update(func(state *domain.ViewState) { state.Mode = mode })
}

func (s *Surface) SetInputBlocked(blocked bool) error {
	return s.update(func(state *domain.ViewState) { state.InputBlocked = blocked })
}

func (s *Surface) update(fn func(state *domain.ViewState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Bound {
		return ErrUnbound
	}
	fn(&s.state)
	return nil
}

func (s *Surface) Snapshot() domain.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Surface) Viewport() domain.Size {
	return s.viewport
}

func (s *Surface) Channel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

func (s *Surface) BindCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.binds
}

// Drift moves the camera without going through synchronization, the way a
// rendering engine desyncs on its own.
func (s *Surface) Drift(camera domain.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Camera = camera
}

// Factory hands out surfaces with a fixed viewport and remembers the latest
// one per participant.
type Factory struct {
	viewport domain.Size

	mu       sync.Mutex
	surfaces map[domain.ParticipantID]*Surface
}

var _ ports.SurfaceFactory = (*Factory)(nil)

func NewFactory(viewport domain.Size) *Factory {
	return &Factory{viewport: viewport, surfaces: map[domain.ParticipantID]*Surface{}}
}

func (f *Factory) NewSurface(participant domain.ParticipantID) (ports.Surface, error) {
	surface := NewSurface(participant, f.viewport)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.surfaces[participant] = surface
	return surface, nil
}

func (f *Factory) Surface(participant domain.ParticipantID) (*Surface, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	surface, ok := f.surfaces[participant]
	return surface, ok
}
