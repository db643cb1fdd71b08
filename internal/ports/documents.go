package ports

import (
	"context"
	"image"

	"github.com/bnema/classroom/internal/domain"
)

// Document is an opened paginated document. Pages are numbered from 1.
type Document interface {
	PageCount() int
	PageSize(page int) (domain.Size, error)
	RenderPage(ctx context.Context, page int, scale float64) (image.Image, error)
	Close() error
}

type DocumentSource interface {
	Open(ctx context.Context, url string) (Document, error)
}
