package http

import "github.com/samirrijal/greenroute/internal/core/domain"

type routeResponse struct {
	Paths []pathJSON `json:"paths"`
}

type pathJSON struct {
	Distance     float64           `json:"distance"`
	Time         float64           `json:"time"`
	Points       pointsJSON        `json:"points"`
	Instructions []instructionJSON `json:"instructions"`
}

// pointsJSON carries the geometry in GeoJSON [lng, lat] order.
type pointsJSON struct {
	Coordinates [][2]float64 `json:"coordinates"`
}

type instructionJSON struct {
	Text     string  `json:"text"`
	Distance float64 `json:"distance"`
	Time     float64 `json:"time"`
}

type obstacleReportJSON struct {
	ImageURL  *string  `json:"image_url"`
	Obstacles []string `json:"obstacles"`
	Source    string   `json:"source"`
}

type annotationJSON struct {
	Point [2]float64 `json:"point"`
	obstacleReportJSON
}

type annotatedRouteResponse struct {
	Paths       []pathJSON       `json:"paths"`
	Annotations []annotationJSON `json:"annotations"`
}

func newRouteResponse(r *domain.CanonicalRoute) routeResponse {
	return routeResponse{Paths: []pathJSON{newPath(r)}}
}

func newPath(r *domain.CanonicalRoute) pathJSON {
	coords := make([][2]float64, len(r.Points))
	for i, p := range r.Points {
		coords[i] = p.LngLat()
	}
	steps := make([]instructionJSON, len(r.Instructions))
	for i, in := range r.Instructions {
		steps[i] = instructionJSON{Text: in.Text, Distance: in.DistanceMeters, Time: in.DurationSeconds}
	}
	return pathJSON{
		Distance:     r.DistanceMeters,
		Time:         r.DurationSeconds,
		Points:       pointsJSON{Coordinates: coords},
		Instructions: steps,
	}
}

func newObstacleReport(r domain.ObstacleReport) obstacleReportJSON {
	return obstacleReportJSON{
		ImageURL:  r.ImageURL,
		Obstacles: r.Labels(),
		Source:    string(r.Source),
	}
}

func newAnnotatedRouteResponse(a *domain.AnnotatedRoute) annotatedRouteResponse {
	out := annotatedRouteResponse{
		Paths:       []pathJSON{newPath(a.Route)},
		Annotations: make([]annotationJSON, len(a.Annotations)),
	}
	for i, pa := range a.Annotations {
		out.Annotations[i] = annotationJSON{
			Point:              pa.Point.LngLat(),
			obstacleReportJSON: newObstacleReport(pa.Report),
		}
	}
	return out
}
