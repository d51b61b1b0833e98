// Package projection converts between WGS84 geographic coordinates and spherical Web Mercator
// (EPSG:3857) meters, and provides the ground-distance helpers used when georeferencing an image.
//
// All functions are pure. Invalid input (NaN, ±Inf) propagates through the result rather than
// failing; callers check finiteness with IsFinite before acting on a result.
package projection

import "math"

// EarthRadius is the WGS84 semi-major axis in meters, used as the sphere radius for Web Mercator.
const EarthRadius = 6378137.0

// metersPerPixelAtEquator is the ground resolution of a 256px tile at zoom 0 on the equator.
const metersPerPixelAtEquator = 156543.03392

const (
	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi
)

// LonToX converts a longitude in degrees to a Web Mercator x coordinate in meters.
func LonToX(lon float64) float64 {
	return EarthRadius * lon * degToRad
}

// LatToY converts a latitude in degrees to a Web Mercator y coordinate in meters.
// Latitudes of exactly ±90 return ±Inf.
func LatToY(lat float64) float64 {
	if lat == 90 {
		return math.Inf(1)
	}
	if lat == -90 {
		return math.Inf(-1)
	}
	return EarthRadius * math.Log(math.Tan(math.Pi/4+lat*degToRad/2))
}

// XToLon converts a Web Mercator x coordinate in meters to a longitude in degrees.
func XToLon(x float64) float64 {
	return x / EarthRadius * radToDeg
}

// YToLat converts a Web Mercator y coordinate in meters to a latitude in degrees.
func YToLat(y float64) float64 {
	return (2*math.Atan(math.Exp(y/EarthRadius)) - math.Pi/2) * radToDeg
}

// Project converts lat/lon to Web Mercator x, y.
func Project(lat, lon float64) (x, y float64) {
	return LonToX(lon), LatToY(lat)
}

// Unproject converts Web Mercator x, y to lat/lon.
func Unproject(x, y float64) (lat, lon float64) {
	return YToLat(y), XToLon(x)
}

// MetersPerPixel returns the ground distance covered by one screen pixel of the basemap at the given
// latitude and zoom level.
func MetersPerPixel(lat float64, zoom int) float64 {
	return metersPerPixelAtEquator * math.Cos(lat*degToRad) / math.Pow(2, float64(zoom))
}

// MercatorMetersPerPixel returns the number of projected meters covered by one screen pixel at the
// given zoom. Unlike MetersPerPixel it does not depend on latitude.
func MercatorMetersPerPixel(zoom int) float64 {
	return MetersPerPixel(0, zoom)
}

// GreatCircleDistance returns the haversine distance in meters between two lat/lon positions.
func GreatCircleDistance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lon2 - lon1) * degToRad

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadius * c
}

// IsFinite reports whether every value is neither NaN nor infinite.
func IsFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
