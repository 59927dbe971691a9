package ports

import (
	"context"

	"github.com/samirrijal/greenroute/internal/core/domain"
)

// Geocoder turns free text into its highest-ranked coordinate.
// Implementations return domain.ErrNotFound for zero results and a
// *domain.UpstreamError when the provider call fails.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (domain.Coordinate, error)
}

// RouteProvider computes a route and normalises the provider response.
type RouteProvider interface {
	Directions(ctx context.Context, origin, destination domain.Coordinate, profile domain.TravelProfile, zones []domain.ExclusionZone) (*domain.CanonicalRoute, error)
}

// ImageryProvider is one strategy of the imagery chain.
type ImageryProvider interface {
	Name() domain.ImagerySource
	// Configured reports whether the provider has the credentials it needs.
	Configured() bool
	// FindImage returns (nil, nil) when the provider is reachable but has no coverage.
	FindImage(ctx context.Context, point domain.Coordinate) (*domain.StreetImage, error)
}

// VisionModel classifies images with a remote multimodal model.
type VisionModel interface {
	Configured() bool
	ListModels(ctx context.Context) ([]domain.VisionModelInfo, error)
	// Generate sends one instruction plus image to model and returns the raw text answer.
	Generate(ctx context.Context, model, instruction string, image *domain.ImageData) (string, error)
}

// ImageFetcher downloads an image so it can be sent to a vision model.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (*domain.ImageData, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishObstacles(ctx context.Context, event *domain.ObstacleEvent) error
}

// EventSubscriber delivers published obstacle events to live listeners.
type EventSubscriber interface {
	// SubscribeObstacles listens for tag, or every tag when tag is empty.
	// The returned func cancels the subscription.
	SubscribeObstacles(tag domain.ObstacleTag, handler func(*domain.ObstacleEvent)) (unsubscribe func() error, err error)
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
