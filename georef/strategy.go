package georef

import (
	"math"

	"github.com/ONSdigital/dp-map-georeferencer/affine"
	"github.com/ONSdigital/dp-map-georeferencer/models"
	"github.com/ONSdigital/dp-map-georeferencer/projection"
)

// Strategy is the way the image is currently georeferenced
type Strategy string

// possible strategies, from least to most constrained
const (
	StrategyUnset           Strategy = "unset"
	StrategyImageBoundsOnly Strategy = "image_bounds_only"
	StrategyCenterOnly      Strategy = "center_only"
	StrategyTwoPoint        Strategy = "two_point"
	StrategyAffine          Strategy = "affine"
)

// SelectStrategy picks the strategy for the given number of usable matched pairs.
// Three or more pairs always use the affine solver.
func SelectStrategy(matched int) Strategy {
	switch {
	case matched >= affine.MinimumPairs:
		return StrategyAffine
	case matched == 2:
		return StrategyTwoPoint
	case matched == 1:
		return StrategyCenterOnly
	default:
		return StrategyImageBoundsOnly
	}
}

// IsDegraded reports whether s is one of the fallbacks used with fewer than 3 pairs
func (s Strategy) IsDegraded() bool {
	return s == StrategyImageBoundsOnly || s == StrategyCenterOnly || s == StrategyTwoPoint
}

// centerOnly translates the image so the pair's pixel lands on its geographic position at the given
// Mercator meters per image pixel, with no rotation.
func centerOnly(p models.MatchedPair, metersPerPixel float64) affine.Transform {
	return affine.Similarity(metersPerPixel, p.ControlPoint.PixelX, p.ControlPoint.PixelY, p.GeoPoint.Lat, p.GeoPoint.Lon)
}

// twoPoint derives a uniform scale from the ratio of the ground distance to the pixel distance between
// the two pairs, anchored on the first. It reports false when the pairs are coincident in either space.
func twoPoint(p0, p1 models.MatchedPair) (affine.Transform, bool) {
	pixelDistance := math.Hypot(p1.ControlPoint.PixelX-p0.ControlPoint.PixelX, p1.ControlPoint.PixelY-p0.ControlPoint.PixelY)
	groundDistance := projection.GreatCircleDistance(p0.GeoPoint.Lat, p0.GeoPoint.Lon, p1.GeoPoint.Lat, p1.GeoPoint.Lon)
	if pixelDistance == 0 || groundDistance == 0 || !projection.IsFinite(pixelDistance, groundDistance) {
		return affine.Transform{}, false
	}

	// ground meters to Mercator meters at the mid latitude
	midLat := (p0.GeoPoint.Lat + p1.GeoPoint.Lat) / 2
	mpp := groundDistance / math.Cos(midLat*math.Pi/180) / pixelDistance

	t := affine.Similarity(mpp, p0.ControlPoint.PixelX, p0.ControlPoint.PixelY, p0.GeoPoint.Lat, p0.GeoPoint.Lon)
	return t, t.IsFinite()
}
