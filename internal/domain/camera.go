package domain

import "math"

// MinCameraScale keeps zoomed-out views readable. There is no maximum.
const MinCameraScale = 0.2

type Camera struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

func CanonicalCamera() Camera {
	return Camera{X: 0, Y: 0, Scale: 1}
}

func ClampScale(scale float64) float64 {
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale < MinCameraScale {
		return MinCameraScale
	}
	return scale
}

func (c Camera) Normalize() Camera {
	if math.IsNaN(c.X) || math.IsInf(c.X, 0) {
		c.X = 0
	}
	if math.IsNaN(c.Y) || math.IsInf(c.Y, 0) {
		c.Y = 0
	}
	c.Scale = ClampScale(c.Scale)
	return c
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0 && !math.IsInf(s.Width, 0) && !math.IsInf(s.Height, 0)
}

// FitMargins are the per-side margins left around a fitted page. Viewports
// narrower than NarrowBreakpoint use NarrowMargin.
type FitMargins struct {
	NarrowMargin     float64
	WideMargin       float64
	NarrowBreakpoint float64
}

func DefaultFitMargins() FitMargins {
	return FitMargins{NarrowMargin: 16, WideMargin: 64, NarrowBreakpoint: 768}
}

func (m FitMargins) marginFor(viewport Size) float64 {
	if viewport.Width < m.NarrowBreakpoint {
		return m.NarrowMargin
	}
	return m.WideMargin
}

// FitScale returns the camera scale that fits page inside viewport, never
// below MinCameraScale.
func FitScale(page, viewport Size, margins FitMargins) float64 {
	if !page.Valid() || !viewport.Valid() {
		return ClampScale(1)
	}

	margin := math.Max(margins.marginFor(viewport), 0)
	usableWidth := math.Max(viewport.Width-2*margin, 1)
	usableHeight := math.Max(viewport.Height-2*margin, 1)

	return ClampScale(math.Min(usableWidth/page.Width, usableHeight/page.Height))
}
