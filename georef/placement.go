package georef

import (
	"math"

	"github.com/ONSdigital/dp-map-georeferencer/affine"
	"github.com/ONSdigital/dp-map-georeferencer/models"
	"github.com/ONSdigital/dp-map-georeferencer/projection"
	jsoniter "github.com/json-iterator/go"
	"github.com/paulmach/orb"
)

// Placement is where the image sits on the basemap. Scale is image pixels to screen pixels at the
// view's zoom level.
type Placement struct {
	Center models.LatLon
	Scale  float64
	Bounds orb.Bound
}

// MarshalJSON writes the bounds in their wire form
func (p Placement) MarshalJSON() ([]byte, error) {
	return jsoniter.Marshal(struct {
		Center models.LatLon  `json:"center"`
		Scale  float64        `json:"scale"`
		Bounds *models.Bounds `json:"bounds"`
	}{p.Center, p.Scale, models.BoundsFrom(p.Bounds)})
}

// PlacementChange is emitted whenever the image placement changes. Generation only increases when the
// mapping from pixels to geography changes, so a view change keeps the generation of the transform.
type PlacementChange struct {
	Generation  uint64            `json:"generation"`
	Strategy    Strategy          `json:"strategy"`
	Transform   *affine.Transform `json:"transform,omitempty"`
	Placement   Placement         `json:"placement"`
	ImageWidth  float64           `json:"image_width"`
	ImageHeight float64           `json:"image_height"`
}

func validDimensions(width, height float64) bool {
	return projection.IsFinite(width, height) && width > 0 && height > 0
}

// placeWithTransform maps the image centre and corners through t
func placeWithTransform(t affine.Transform, width, height float64, zoom int) (Placement, error) {
	lat, lon := t.ToLatLon(width/2, height/2)

	corners := orb.MultiPoint{}
	for _, c := range [][2]float64{{0, 0}, {width, 0}, {0, height}, {width, height}} {
		clat, clon := t.ToLatLon(c[0], c[1])
		corners = append(corners, orb.Point{clon, clat})
	}
	bounds := corners.Bound()

	scale := t.MetersPerPixel() / projection.MercatorMetersPerPixel(zoom)
	if !projection.IsFinite(lat, lon, scale, bounds.Min.X(), bounds.Min.Y(), bounds.Max.X(), bounds.Max.Y()) {
		return Placement{}, ErrNonFinitePlacement
	}
	return Placement{Center: models.LatLon{Lat: lat, Lon: lon}, Scale: scale, Bounds: bounds}, nil
}

// placeWithBounds places the image by its geographic bounds alone, without rotation
func placeWithBounds(bounds orb.Bound, width float64, zoom int) (Placement, error) {
	center := bounds.Center()
	projectedWidth := projection.LonToX(bounds.Max.X()) - projection.LonToX(bounds.Min.X())
	scale := projectedWidth / width / projection.MercatorMetersPerPixel(zoom)
	if !projection.IsFinite(center.X(), center.Y(), scale) || math.Abs(center.Y()) >= 90 {
		return Placement{}, ErrNonFinitePlacement
	}
	return Placement{Center: models.LatLon{Lat: center.Y(), Lon: center.X()}, Scale: scale, Bounds: bounds}, nil
}
