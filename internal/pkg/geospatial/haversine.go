package geospatial

import "math"

const earthRadiusKm = 6371.0

// MetersPerDegree is the fixed latitude approximation used for every
// meters-to-degrees conversion. Accurate near the equator and mid-latitudes only.
const MetersPerDegree = 111320.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / MetersPerDegree
	lonDelta := radiusMeters / (MetersPerDegree * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

// Square returns a box whose half-width is radiusMeters/MetersPerDegree degrees on
// both axes. Unlike BoundingBox it does not correct longitude for latitude.
// A non-positive radius yields a degenerate (zero-area) box.
func Square(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	offset := math.Max(radiusMeters, 0) / MetersPerDegree
	return lat - offset, lon - offset, lat + offset, lon + offset
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
