package imagepack

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/bnema/classroom/internal/domain"
	"github.com/bnema/classroom/internal/ports"
	"golang.org/x/image/draw"
)

const (
	// maxRenderEdge bounds the rendered raster on either axis.
	maxRenderEdge = 8192
	// maxSourcePixels bounds the decoded source image.
	maxSourcePixels = 64 << 20
)

var ErrPageTooLarge = errors.New("page image too large to decode")

type page struct {
	name string
	open func() (io.ReadCloser, error)
}

// Document is a sequence of page images. Page sizes are the source images'
// pixel dimensions.
type Document struct {
	pages  []page
	closer io.Closer
}

var _ ports.Document = (*Document)(nil)

func newDocument(pages []page, closer io.Closer) (*Document, error) {
	if len(pages) == 0 {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, ErrNoPages
	}
	sortPages(pages)
	return &Document{pages: pages, closer: closer}, nil
}

func (d *Document) PageCount() int {
	return len(d.pages)
}

// PageName returns the file name backing a page.
func (d *Document) PageName(pageNumber int) (string, error) {
	p, err := d.page(pageNumber)
	if err != nil {
		return "", err
	}
	return p.name, nil
}

func (d *Document) PageSize(pageNumber int) (domain.Size, error) {
	p, err := d.page(pageNumber)
	if err != nil {
		return domain.Size{}, err
	}

	r, err := p.open()
	if err != nil {
		return domain.Size{}, fmt.Errorf("open page %d: %w", pageNumber, err)
	}
	defer r.Close()

	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return domain.Size{}, fmt.Errorf("read page %d size: %w", pageNumber, err)
	}
	return domain.Size{Width: float64(cfg.Width), Height: float64(cfg.Height)}, nil
}

// RenderPage decodes the page image and resamples it by scale.
func (d *Document) RenderPage(ctx context.Context, pageNumber int, scale float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("render page %d: invalid scale %g", pageNumber, scale)
	}

	p, err := d.page(pageNumber)
	if err != nil {
		return nil, err
	}

	if err := checkSourceSize(p, pageNumber); err != nil {
		return nil, err
	}

	r, err := p.open()
	if err != nil {
		return nil, fmt.Errorf("open page %d: %w", pageNumber, err)
	}
	defer r.Close()

	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode page %d (%s): %w", pageNumber, p.name, err)
	}

	bounds := src.Bounds()
	width, height := scaledEdge(bounds.Dx(), scale), scaledEdge(bounds.Dy(), scale)
	if width > maxRenderEdge || height > maxRenderEdge {
		shrink := float64(maxRenderEdge) / float64(max(width, height))
		width, height = scaledEdge(width, shrink), scaledEdge(height, shrink)
	}
	if width == bounds.Dx() && height == bounds.Dy() {
		return src, nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
	return dst, nil
}

// checkSourceSize reads only the image header so an oversized page is
// rejected before its pixels are allocated.
func checkSourceSize(p page, pageNumber int) error {
	r, err := p.open()
	if err != nil {
		return fmt.Errorf("open page %d: %w", pageNumber, err)
	}
	defer r.Close()

	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return fmt.Errorf("decode page %d (%s): %w", pageNumber, p.name, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxSourcePixels {
		return fmt.Errorf("page %d (%s) is %dx%d: %w", pageNumber, p.name, cfg.Width, cfg.Height, ErrPageTooLarge)
	}
	return nil
}

func (d *Document) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

func (d *Document) page(pageNumber int) (page, error) {
	if pageNumber < 1 || pageNumber > len(d.pages) {
		return page{}, fmt.Errorf("page %d out of range 1..%d", pageNumber, len(d.pages))
	}
	return d.pages[pageNumber-1], nil
}

func scaledEdge(edge int, scale float64) int {
	return max(1, int(math.Round(float64(edge)*scale)))
}
