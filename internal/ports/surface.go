package ports

import "github.com/bnema/classroom/internal/domain"

// Surface is the local rendering capability a participant draws the shared
// whiteboard on.
type Surface interface {
	Bind(channelUUID string) error
	Unbind() error
	SetCamera(camera domain.Camera) error
	SetScene(path domain.ScenePath) error
	SetTool(tool string) error
	SetViewMode(mode domain.ViewMode) error
	SetInputBlocked(blocked bool) error
	Snapshot() domain.ViewState
	Viewport() domain.Size
}

type SurfaceFactory interface {
	NewSurface(participant domain.ParticipantID) (Surface, error)
}
