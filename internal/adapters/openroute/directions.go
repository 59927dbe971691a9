package openroute

import (
	"context"
	"fmt"

	"github.com/twpayne/go-polyline"

	"github.com/samirrijal/greenroute/internal/core/domain"
	"github.com/samirrijal/greenroute/internal/pkg/logging"
)

type directionsRequest struct {
	Coordinates  [][2]float64       `json:"coordinates"`
	Instructions bool               `json:"instructions"`
	Preference   string             `json:"preference"`
	Options      *directionsOptions `json:"options,omitempty"`
}

type directionsOptions struct {
	AvoidPolygons *Geometry `json:"avoid_polygons,omitempty"`
}

type summary struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}

type step struct {
	Distance    float64 `json:"distance"`
	Duration    float64 `json:"duration"`
	Instruction string  `json:"instruction"`
}

type segment struct {
	Steps []step `json:"steps"`
}

// geoJSONResponse is the /geojson directions response.
type geoJSONResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Summary  summary   `json:"summary"`
			Segments []segment `json:"segments"`
		} `json:"properties"`
	} `json:"features"`
}

// jsonResponse is the /json directions response with an encoded polyline geometry.
type jsonResponse struct {
	Routes []struct {
		Summary  summary   `json:"summary"`
		Segments []segment `json:"segments"`
		Geometry string    `json:"geometry"`
	} `json:"routes"`
}

// BuildDirectionsRequest shapes the request body for one origin/destination pair.
func BuildDirectionsRequest(origin, destination domain.Coordinate, zones []domain.ExclusionZone) any {
	body := directionsRequest{
		Coordinates:  [][2]float64{origin.LngLat(), destination.LngLat()},
		Instructions: true,
		Preference:   "recommended",
	}
	if avoid := AvoidGeometry(zones); avoid != nil {
		body.Options = &directionsOptions{AvoidPolygons: avoid}
	}
	return body
}

// Directions computes a route and normalises it into a CanonicalRoute.
func (c *Client) Directions(ctx context.Context, origin, destination domain.Coordinate, profile domain.TravelProfile, zones []domain.ExclusionZone) (*domain.CanonicalRoute, error) {
	url := fmt.Sprintf("%s/v2/directions/%s/%s", c.baseURL, ProfileID(profile), c.format)
	logging.FromContext(ctx).Debug("calling directions", "url", url, "zones", len(zones))

	req, err := c.newJSONRequest(ctx, url, BuildDirectionsRequest(origin, destination, zones))
	if err != nil {
		return nil, fmt.Errorf("build directions request: %w", err)
	}

	var route *domain.CanonicalRoute
	if c.format == FormatJSON {
		var resp jsonResponse
		if err := c.do(req, &resp); err != nil {
			return nil, err
		}
		route, err = normalizeJSON(&resp)
	} else {
		var resp geoJSONResponse
		if err := c.do(req, &resp); err != nil {
			return nil, err
		}
		route, err = normalizeGeoJSON(&resp)
	}
	if err != nil {
		return nil, err
	}
	if len(route.Points) < 2 {
		return nil, &domain.UpstreamError{Provider: ProviderName, Body: fmt.Sprintf("invalid geometry: %d points", len(route.Points))}
	}
	return route, nil
}

func normalizeGeoJSON(resp *geoJSONResponse) (*domain.CanonicalRoute, error) {
	if len(resp.Features) == 0 {
		return nil, &domain.UpstreamError{Provider: ProviderName, Body: "no route in response"}
	}
	f := resp.Features[0]

	points := make([]domain.Coordinate, 0, len(f.Geometry.Coordinates))
	for _, c := range f.Geometry.Coordinates {
		// [lng, lat] or [lng, lat, ele]
		if len(c) < 2 {
			return nil, &domain.UpstreamError{Provider: ProviderName, Body: "malformed coordinate"}
		}
		points = append(points, domain.Coordinate{Lat: c[1], Lng: c[0]})
	}

	return &domain.CanonicalRoute{
		DistanceMeters:  f.Properties.Summary.Distance,
		DurationSeconds: f.Properties.Summary.Duration,
		Points:          points,
		Instructions:    instructions(f.Properties.Segments),
	}, nil
}

func normalizeJSON(resp *jsonResponse) (*domain.CanonicalRoute, error) {
	if len(resp.Routes) == 0 {
		return nil, &domain.UpstreamError{Provider: ProviderName, Body: "no route in response"}
	}
	r := resp.Routes[0]

	coords, _, err := polyline.DecodeCoords([]byte(r.Geometry))
	if err != nil {
		return nil, &domain.UpstreamError{Provider: ProviderName, Body: "undecodable geometry", Err: err}
	}
	points := make([]domain.Coordinate, len(coords))
	for i, c := range coords {
		// encoded polylines are [lat, lng]
		points[i] = domain.Coordinate{Lat: c[0], Lng: c[1]}
	}

	return &domain.CanonicalRoute{
		DistanceMeters:  r.Summary.Distance,
		DurationSeconds: r.Summary.Duration,
		Points:          points,
		Instructions:    instructions(r.Segments),
	}, nil
}

func instructions(segments []segment) []domain.Instruction {
	out := make([]domain.Instruction, 0)
	for _, seg := range segments {
		for _, s := range seg.Steps {
			out = append(out, domain.Instruction{
				Text:            s.Instruction,
				DistanceMeters:  s.Distance,
				DurationSeconds: s.Duration,
			})
		}
	}
	return out
}
