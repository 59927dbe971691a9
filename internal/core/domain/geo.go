package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samirrijal/greenroute/internal/pkg/geospatial"
)

// Coordinate represents a geographic coordinate (WGS 84), in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate lies inside the WGS 84 value ranges.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// LngLat returns the coordinate in GeoJSON axis order.
func (c Coordinate) LngLat() [2]float64 {
	return [2]float64{c.Lng, c.Lat}
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%g,%g", c.Lat, c.Lng)
}

// DistanceTo returns the great-circle distance to other in meters.
func (c Coordinate) DistanceTo(other Coordinate) float64 {
	return geospatial.Haversine(c.Lat, c.Lng, other.Lat, other.Lng)
}

// ExclusionZone is a circular area, given by center and radius, that a route must avoid.
type ExclusionZone struct {
	Center       Coordinate `json:"center"`
	RadiusMeters float64    `json:"radius_meters"`
}

// ParseExclusionZone parses the "lat,lng,radiusMeters" wire form.
func ParseExclusionZone(raw string) (ExclusionZone, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 3 {
		return ExclusionZone{}, fmt.Errorf("%w: exclusion zone %q must be lat,lng,radius", ErrInput, raw)
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return ExclusionZone{}, fmt.Errorf("%w: exclusion zone %q: %v", ErrInput, raw, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ExclusionZone{}, fmt.Errorf("%w: exclusion zone %q is not finite", ErrInput, raw)
		}
		vals[i] = v
	}
	return ExclusionZone{
		Center:       Coordinate{Lat: vals[0], Lng: vals[1]},
		RadiusMeters: vals[2],
	}, nil
}

// Polygon returns the closed square ring approximating the zone.
// The ring always has 5 vertices and the first equals the last.
func (z ExclusionZone) Polygon() Polygon {
	minLat, minLon, maxLat, maxLon := geospatial.Square(z.Center.Lat, z.Center.Lng, z.RadiusMeters)
	return Polygon{
		{Lat: minLat, Lng: minLon},
		{Lat: minLat, Lng: maxLon},
		{Lat: maxLat, Lng: maxLon},
		{Lat: maxLat, Lng: minLon},
		{Lat: minLat, Lng: minLon},
	}
}

// Polygon is a closed ring of coordinates.
type Polygon []Coordinate

// Closed reports whether the ring has at least 4 vertices and ends where it starts.
func (p Polygon) Closed() bool {
	return len(p) >= 4 && p[0] == p[len(p)-1]
}

// LngLatRing returns the ring in GeoJSON axis order.
func (p Polygon) LngLatRing() [][2]float64 {
	ring := make([][2]float64, len(p))
	for i, c := range p {
		ring[i] = c.LngLat()
	}
	return ring
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// BoundsAround returns the box of the given half-width centered on c.
func BoundsAround(c Coordinate, halfWidthMeters float64) Bounds {
	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(c.Lat, c.Lng, halfWidthMeters)
	return Bounds{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}
}
