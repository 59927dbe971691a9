package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/greenroute/internal/core/domain"
)

// --- Mock Geocoder ---

type mockGeocoder struct {
	mu        sync.Mutex
	calls     []string
	geocodeFn func(ctx context.Context, query string) (domain.Coordinate, error)
}

func (m *mockGeocoder) Geocode(ctx context.Context, query string) (domain.Coordinate, error) {
	m.mu.Lock()
	m.calls = append(m.calls, query)
	m.mu.Unlock()
	if m.geocodeFn != nil {
		return m.geocodeFn(ctx, query)
	}
	return domain.Coordinate{}, domain.ErrNotFound
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock RouteProvider ---

type mockRouteProvider struct {
	mu           sync.Mutex
	calls        int
	lastZones    []domain.ExclusionZone
	directionsFn func(ctx context.Context, origin, destination domain.Coordinate, profile domain.TravelProfile, zones []domain.ExclusionZone) (*domain.CanonicalRoute, error)
}

func (m *mockRouteProvider) Directions(ctx context.Context, origin, destination domain.Coordinate, profile domain.TravelProfile, zones []domain.ExclusionZone) (*domain.CanonicalRoute, error) {
	m.mu.Lock()
	m.calls++
	m.lastZones = zones
	m.mu.Unlock()
	if m.directionsFn != nil {
		return m.directionsFn(ctx, origin, destination, profile, zones)
	}
	return &domain.CanonicalRoute{
		DistanceMeters:  1000,
		DurationSeconds: 720,
		Points:          []domain.Coordinate{origin, destination},
	}, nil
}

// --- Mock ImageryProvider ---

type mockImagery struct {
	name        domain.ImagerySource
	configured  bool
	mu          sync.Mutex
	calls       int
	findImageFn func(ctx context.Context, point domain.Coordinate) (*domain.StreetImage, error)
}

func (m *mockImagery) Name() domain.ImagerySource { return m.name }
func (m *mockImagery) Configured() bool           { return m.configured }

func (m *mockImagery) FindImage(ctx context.Context, point domain.Coordinate) (*domain.StreetImage, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.findImageFn != nil {
		return m.findImageFn(ctx, point)
	}
	return &domain.StreetImage{URL: "https://img.example/" + string(m.name), Source: m.name}, nil
}

// --- Mock VisionModel ---

type mockVision struct {
	configured   bool
	mu           sync.Mutex
	tried        []string
	listModelsFn func(ctx context.Context) ([]domain.VisionModelInfo, error)
	generateFn   func(ctx context.Context, model, instruction string, image *domain.ImageData) (string, error)
}

func (m *mockVision) Configured() bool { return m.configured }

func (m *mockVision) ListModels(ctx context.Context) ([]domain.VisionModelInfo, error) {
	if m.listModelsFn != nil {
		return m.listModelsFn(ctx)
	}
	return nil, errors.New("catalog unavailable")
}

func (m *mockVision) Generate(ctx context.Context, model, instruction string, image *domain.ImageData) (string, error) {
	m.mu.Lock()
	m.tried = append(m.tried, model)
	m.mu.Unlock()
	if m.generateFn != nil {
		return m.generateFn(ctx, model, instruction, image)
	}
	return "[]", nil
}

// --- Mock ImageFetcher ---

type mockFetcher struct {
	calls   int
	fetchFn func(ctx context.Context, url string) (*domain.ImageData, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (*domain.ImageData, error) {
	m.calls++
	if m.fetchFn != nil {
		return m.fetchFn(ctx, url)
	}
	return &domain.ImageData{MIMEType: "image/jpeg", Bytes: []byte{0xff, 0xd8}}, nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu     sync.Mutex
	events []*domain.ObstacleEvent
	err    error
	block  bool // wait for ctx like an unacknowledged JetStream publish
}

func (m *mockPublisher) PublishObstacles(ctx context.Context, event *domain.ObstacleEvent) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.err
}
