package render

import (
	"math"

	"github.com/twpayne/go-geom"
)

const (
	// MaxLatitude is the Web-Mercator latitude limit in degrees.
	MaxLatitude = 85.0511
	// ZoomPadding is the margin in pixels kept around a zoomed-in country.
	ZoomPadding = 40
)

// Projection maps lon/lat degrees onto an SVG canvas using Web-Mercator,
// scaled uniformly so a bounding box fits inside the padded canvas.
type Projection struct {
	scale  float64
	cx, cy float64 // projected center of the fitted bounds
	width  float64
	height float64
}

// NewProjection fits bounds into a width x height canvas leaving padding on
// every side. Empty or degenerate bounds center on the origin at unit scale.
func NewProjection(bounds *geom.Bounds, width, height, padding int) Projection {
	p := Projection{scale: 1, width: float64(width), height: float64(height)}
	if bounds == nil || bounds.IsEmpty() {
		return p
	}

	x0, y0 := mercator(bounds.Min(0), bounds.Min(1))
	x1, y1 := mercator(bounds.Max(0), bounds.Max(1))
	p.cx, p.cy = (x0+x1)/2, (y0+y1)/2

	dx, dy := x1-x0, y1-y0
	innerW := p.width - 2*float64(padding)
	innerH := p.height - 2*float64(padding)
	if innerW <= 0 || innerH <= 0 {
		return p
	}

	switch {
	case dx > 0 && dy > 0:
		p.scale = math.Min(innerW/dx, innerH/dy)
	case dx > 0:
		p.scale = innerW / dx
	case dy > 0:
		p.scale = innerH / dy
	}
	return p
}

// Scale returns canvas pixels per projected radian.
func (p Projection) Scale() float64 {
	return p.scale
}

// ZoomTo fits target on the same canvas with ZoomPadding and returns that
// projection when it is closer than p. Otherwise p is returned unchanged, so
// a zoom never pulls the view back out.
func (p Projection) ZoomTo(target *geom.Bounds) Projection {
	if target == nil || target.IsEmpty() {
		return p
	}
	z := NewProjection(target, int(p.width), int(p.height), ZoomPadding)
	if z.scale <= p.scale {
		return p
	}
	return z
}

// Point projects a lon/lat pair to canvas coordinates. Y grows downward.
func (p Projection) Point(lon, lat float64) (float64, float64) {
	x, y := mercator(lon, lat)
	return p.width/2 + (x-p.cx)*p.scale, p.height/2 - (y-p.cy)*p.scale
}

// mercator returns unscaled Web-Mercator coordinates in radians.
func mercator(lon, lat float64) (float64, float64) {
	lat = math.Max(-MaxLatitude, math.Min(MaxLatitude, lat))
	phi := lat * math.Pi / 180
	return lon * math.Pi / 180, math.Log(math.Tan(math.Pi/4 + phi/2))
}
