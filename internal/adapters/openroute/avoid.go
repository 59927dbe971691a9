package openroute

import "github.com/samirrijal/greenroute/internal/core/domain"

// Geometry is a GeoJSON geometry object as accepted by options.avoid_polygons.
type Geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

// AvoidGeometry builds the avoidance geometry for zones: nil for none, a
// Polygon for exactly one and a MultiPolygon with one polygon per zone otherwise.
func AvoidGeometry(zones []domain.ExclusionZone) *Geometry {
	switch len(zones) {
	case 0:
		return nil
	case 1:
		return &Geometry{
			Type:        "Polygon",
			Coordinates: [][][2]float64{zones[0].Polygon().LngLatRing()},
		}
	}

	polys := make([][][][2]float64, len(zones))
	for i, z := range zones {
		polys[i] = [][][2]float64{z.Polygon().LngLatRing()}
	}
	return &Geometry{Type: "MultiPolygon", Coordinates: polys}
}
