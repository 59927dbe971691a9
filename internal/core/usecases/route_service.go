package usecases

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/greenroute/internal/core/domain"
	"github.com/samirrijal/greenroute/internal/core/ports"
	"github.com/samirrijal/greenroute/internal/pkg/gpx"
	"github.com/samirrijal/greenroute/internal/pkg/logging"
	"github.com/samirrijal/greenroute/internal/pkg/metrics"
	"github.com/samirrijal/greenroute/internal/pkg/telemetry"
)

const (
	gpxCreator   = "GreenRouteAI"
	gpxTrackName = "GreenRouteAI Path"
)

// RouteConfig bounds the annotate fan-out.
type RouteConfig struct {
	Workers   int
	MaxPoints int
}

// RouteService orchestrates endpoint resolution, the distance guard, routing
// and obstacle annotation.
type RouteService struct {
	resolver  *LocationResolver
	routes    ports.RouteProvider
	obstacles *ObstacleService
	workers   int
	maxPoints int
}

// NewRouteService creates a new RouteService.
func NewRouteService(resolver *LocationResolver, routes ports.RouteProvider, obstacles *ObstacleService, cfg RouteConfig) *RouteService {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxPoints < 2 {
		cfg.MaxPoints = 2
	}
	return &RouteService{
		resolver:  resolver,
		routes:    routes,
		obstacles: obstacles,
		workers:   cfg.Workers,
		maxPoints: cfg.MaxPoints,
	}
}

func tracer() trace.Tracer {
	return otel.Tracer(telemetry.TracerName)
}

// ComputeRoute resolves both endpoints, rejects pairs further apart than
// MaxRouteDistanceMeters and routes around every parsable exclusion zone.
func (s *RouteService) ComputeRoute(ctx context.Context, req domain.RouteRequest) (*domain.CanonicalRoute, error) {
	ctx, span := tracer().Start(ctx, telemetry.SpanComputeRoute,
		trace.WithAttributes(attribute.String(telemetry.AttrProfile, string(req.Profile))))
	defer span.End()

	origin, destination, err := s.resolveEndpoints(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	zones := ParseZones(ctx, req.BlockAreas)
	span.SetAttributes(attribute.Int(telemetry.AttrZones, len(zones)))

	route, err := s.routes.Directions(ctx, origin, destination, req.Profile, zones)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return route, nil
}

// ExportGPX recomputes the route without exclusion zones and serialises it as GPX 1.1.
func (s *RouteService) ExportGPX(ctx context.Context, req domain.RouteRequest) ([]byte, error) {
	ctx, span := tracer().Start(ctx, telemetry.SpanExportGPX,
		trace.WithAttributes(attribute.String(telemetry.AttrProfile, string(req.Profile))))
	defer span.End()

	origin, destination, err := s.resolveEndpoints(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	route, err := s.routes.Directions(ctx, origin, destination, req.Profile, nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return EncodeGPX(route)
}

// EncodeGPX serialises a canonical route as a single GPX track.
func EncodeGPX(route *domain.CanonicalRoute) ([]byte, error) {
	if route == nil {
		return nil, fmt.Errorf("%w: no route", domain.ErrExport)
	}
	pts := make([]gpx.Point, len(route.Points))
	for i, p := range route.Points {
		pts[i] = gpx.Point{Lat: p.Lat, Lon: p.Lng}
	}
	out, err := gpx.Encode(gpxCreator, gpxTrackName, pts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExport, err)
	}
	return out, nil
}

// AnalyzePoint runs the obstacle pipeline for one coordinate.
func (s *RouteService) AnalyzePoint(ctx context.Context, point domain.Coordinate) domain.ObstacleReport {
	return s.obstacles.Detect(ctx, point)
}

// AnnotateRoute computes the route and detects obstacles at up to samples
// evenly spaced points, first and last included. Detection runs in parallel,
// bounded by the configured worker count; results keep route order.
func (s *RouteService) AnnotateRoute(ctx context.Context, req domain.RouteRequest, samples int) (*domain.AnnotatedRoute, error) {
	ctx, span := tracer().Start(ctx, telemetry.SpanAnnotateRoute)
	defer span.End()

	route, err := s.ComputeRoute(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if samples <= 0 || samples > s.maxPoints {
		samples = s.maxPoints
	}
	points := SamplePoints(route.Points, samples)
	span.SetAttributes(attribute.Int(telemetry.AttrSamples, len(points)))

	annotations := make([]domain.PointAnnotation, len(points))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, p := range points {
		g.Go(func() error {
			annotations[i] = domain.PointAnnotation{Point: p, Report: s.obstacles.Detect(ctx, p)}
			return nil
		})
	}
	_ = g.Wait() // Detect never fails

	return &domain.AnnotatedRoute{Route: route, Annotations: annotations}, nil
}

func (s *RouteService) resolveEndpoints(ctx context.Context, req domain.RouteRequest) (domain.Coordinate, domain.Coordinate, error) {
	origin, err := s.resolver.Resolve(ctx, req.Origin)
	if err != nil {
		return domain.Coordinate{}, domain.Coordinate{}, err
	}
	destination, err := s.resolver.Resolve(ctx, req.Destination)
	if err != nil {
		return domain.Coordinate{}, domain.Coordinate{}, err
	}

	dist := origin.DistanceTo(destination)
	trace.SpanFromContext(ctx).SetAttributes(attribute.Float64(telemetry.AttrDistanceMeters, dist))
	logging.FromContext(ctx).Debug("resolved endpoints",
		"origin", origin.String(), "destination", destination.String(), "distance_m", dist)

	if dist > domain.MaxRouteDistanceMeters {
		metrics.RoutesRejected.Inc()
		return domain.Coordinate{}, domain.Coordinate{}, &domain.RouteTooLongError{
			DistanceMeters: dist,
			LimitMeters:    domain.MaxRouteDistanceMeters,
		}
	}
	return origin, destination, nil
}

// ParseZones parses "lat,lng,radius" strings. Bad entries are logged and dropped
// so the remaining zones still apply.
func ParseZones(ctx context.Context, raw []string) []domain.ExclusionZone {
	zones := make([]domain.ExclusionZone, 0, len(raw))
	for _, r := range raw {
		z, err := domain.ParseExclusionZone(r)
		if err != nil {
			metrics.ZonesDropped.Inc()
			logging.FromContext(ctx).Warn("dropping exclusion zone", "zone", r, "error", err)
			continue
		}
		zones = append(zones, z)
	}
	return zones
}

// SamplePoints picks n evenly spaced points, always keeping the first and last.
// Routes with n or fewer points are returned whole.
func SamplePoints(points []domain.Coordinate, n int) []domain.Coordinate {
	if n < 2 || len(points) <= n {
		out := make([]domain.Coordinate, len(points))
		copy(out, points)
		return out
	}
	out := make([]domain.Coordinate, n)
	last := len(points) - 1
	for i := 0; i < n; i++ {
		out[i] = points[i*last/(n-1)]
	}
	return out
}
