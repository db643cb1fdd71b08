package ports

import (
	"context"

	"github.com/bnema/classroom/internal/domain"
)

type SceneStore interface {
	// CreateDirectory registers an empty directory. Names are unique per store.
	CreateDirectory(ctx context.Context, dir domain.SceneDirectory) error
	AppendScene(ctx context.Context, directory string, scene domain.Scene) error
	GetDirectory(ctx context.Context, name string) (domain.SceneDirectory, error)
	ListDirectories(ctx context.Context, sessionID domain.SessionID) ([]domain.SceneDirectory, error)
}
