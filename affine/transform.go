// Package affine derives and applies the 6-parameter affine map from image pixel space to Web Mercator
// meters:
//
//	X = A·px + B·py + C
//	Y = D·px + E·py + F
//
// A Transform is an immutable value. It is independent of the basemap zoom level.
package affine

import (
	"math"

	"github.com/ONSdigital/dp-map-georeferencer/projection"
)

// Transform maps image pixels to Web Mercator meters
type Transform struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
	D float64 `json:"d"`
	E float64 `json:"e"`
	F float64 `json:"f"`
}

// Accuracy describes the residuals of a solved transform, in projected meters.
// It is derived from the transform that produced it and never stored on its own.
type Accuracy struct {
	MeanErrorMeters float64   `json:"mean_error_meters"`
	MaxErrorMeters  float64   `json:"max_error_meters"`
	MinErrorMeters  float64   `json:"min_error_meters"`
	PerPointErrors  []float64 `json:"per_point_errors"`
}

// Apply maps a pixel to Web Mercator x, y
func (t Transform) Apply(px, py float64) (x, y float64) {
	return t.A*px + t.B*py + t.C, t.D*px + t.E*py + t.F
}

// ToLatLon maps a pixel to a geographic position
func (t Transform) ToLatLon(px, py float64) (lat, lon float64) {
	return projection.Unproject(t.Apply(px, py))
}

// Translate returns a copy of t shifted by dx, dy meters
func (t Transform) Translate(dx, dy float64) Transform {
	t.C += dx
	t.F += dy
	return t
}

// MetersPerPixel is the projected length covered by one image pixel (square root of the area scale)
func (t Transform) MetersPerPixel() float64 {
	return math.Sqrt(math.Abs(t.A*t.E - t.B*t.D))
}

// IsFinite reports whether every coefficient is finite
func (t Transform) IsFinite() bool {
	return projection.IsFinite(t.A, t.B, t.C, t.D, t.E, t.F)
}

// Similarity builds a rotation-free transform with a uniform scale of metersPerPixel that maps the
// pixel (px, py) exactly onto the geographic position (lat, lon). Pixel y grows downwards, so it is
// inverted against Mercator y.
func Similarity(metersPerPixel, px, py, lat, lon float64) Transform {
	x, y := projection.Project(lat, lon)
	return Transform{
		A: metersPerPixel, B: 0, C: x - metersPerPixel*px,
		D: 0, E: -metersPerPixel, F: y + metersPerPixel*py,
	}
}
