package usecases

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/samirrijal/greenroute/internal/core/domain"
	"github.com/samirrijal/greenroute/internal/core/ports"
	"github.com/samirrijal/greenroute/internal/pkg/logging"
	"github.com/samirrijal/greenroute/internal/pkg/metrics"
	"github.com/samirrijal/greenroute/internal/pkg/telemetry"
)

// classificationInstruction is sent verbatim with every image.
const classificationInstruction = `Analyze this street view image for accessibility obstacles for a wheelchair user.
Identify if any of the following are present and clearly blocking the path:
- stairs
- steep_slope
- construction
- narrow_sidewalk
- pole_blocking_path

Return ONLY a JSON list of strings, e.g., ["stairs", "construction"].
If no obstacles are found, return [].
Do not include markdown formatting.`

// DefaultVisionModels is the static candidate list tried after the catalog pick.
var DefaultVisionModels = []string{
	"gemini-1.5-flash",
	"gemini-1.5-pro",
	"gemini-2.0-flash-exp",
	"gemini-pro-vision",
}

const (
	// standInStairsChance is the probability the stand-in classifier reports stairs.
	standInStairsChance = 0.3
	// DefaultPublishTimeout bounds the best-effort obstacle event publish.
	DefaultPublishTimeout = 2 * time.Second
)

// ObstacleConfig tunes the obstacle pipeline.
type ObstacleConfig struct {
	// Models overrides DefaultVisionModels when non-empty.
	Models []string
	// RatePerSecond throttles vision calls process-wide; zero disables throttling.
	RatePerSecond float64
	Burst         int
	// Random feeds the stand-in classifier; defaults to math/rand.
	Random func() float64
	// PublishTimeout defaults to DefaultPublishTimeout.
	PublishTimeout time.Duration
}

// ObstacleService detects accessibility obstacles at a single point.
// It never returns an error: every stage ends in a terminal report.
type ObstacleService struct {
	imagery []ports.ImageryProvider
	vision  ports.VisionModel
	fetcher ports.ImageFetcher
	events  ports.EventPublisher
	limiter *rate.Limiter
	models  []string
	random  func() float64

	publishTimeout time.Duration
}

// NewObstacleService creates a new ObstacleService. imagery is tried in order.
// vision, fetcher and events may be nil.
func NewObstacleService(imagery []ports.ImageryProvider, vision ports.VisionModel, fetcher ports.ImageFetcher, events ports.EventPublisher, cfg ObstacleConfig) *ObstacleService {
	s := &ObstacleService{
		imagery: imagery,
		vision:  vision,
		fetcher: fetcher,
		events:  events,
		models:  cfg.Models,
		random:  cfg.Random,

		publishTimeout: cfg.PublishTimeout,
	}
	if s.publishTimeout <= 0 {
		s.publishTimeout = DefaultPublishTimeout
	}
	if len(s.models) == 0 {
		s.models = DefaultVisionModels
	}
	if s.random == nil {
		s.random = rand.Float64
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return s
}

// Detect runs the imagery stage and, when it yields an image, the classification stage.
func (s *ObstacleService) Detect(ctx context.Context, point domain.Coordinate) domain.ObstacleReport {
	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, telemetry.SpanDetectObstacle)
	defer span.End()

	img := s.findImage(ctx, point)
	if img == nil {
		metrics.ImageryOutcomes.WithLabelValues(string(domain.SourceNone)).Inc()
		span.SetAttributes(attribute.String(telemetry.AttrImagerySource, string(domain.SourceNone)))
		return domain.ObstacleReport{Obstacles: []domain.ObstacleTag{}, Source: domain.SourceNone}
	}
	metrics.ImageryOutcomes.WithLabelValues(string(img.Source)).Inc()
	span.SetAttributes(attribute.String(telemetry.AttrImagerySource, string(img.Source)))

	url := img.URL
	report := domain.ObstacleReport{
		ImageURL:  &url,
		Obstacles: s.classify(ctx, url),
		Source:    img.Source,
	}
	s.publish(ctx, point, report)
	return report
}

// findImage walks the imagery chain. Unconfigured providers are skipped and
// failing ones fall through; a configured provider without coverage ends the chain.
func (s *ObstacleService) findImage(ctx context.Context, point domain.Coordinate) *domain.StreetImage {
	log := logging.FromContext(ctx)
	for _, p := range s.imagery {
		if !p.Configured() {
			continue
		}
		img, err := p.FindImage(ctx, point)
		if err != nil {
			log.Warn("imagery provider failed", "provider", p.Name(), "point", point.String(), "error", err)
			continue
		}
		if img == nil {
			log.Info("no imagery coverage", "provider", p.Name(), "point", point.String())
			return nil
		}
		if img.Source == "" {
			img.Source = p.Name()
		}
		return img
	}
	return nil
}

func (s *ObstacleService) classify(ctx context.Context, imageURL string) []domain.ObstacleTag {
	log := logging.FromContext(ctx)

	if !s.visionConfigured() {
		metrics.ClassificationOutcomes.WithLabelValues("stand-in", "ok").Inc()
		if s.random() < standInStairsChance {
			return []domain.ObstacleTag{domain.ObstacleStairs}
		}
		return []domain.ObstacleTag{}
	}

	if s.fetcher == nil {
		return []domain.ObstacleTag{domain.ObstacleUndetermined}
	}
	image, err := s.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		log.Warn("image download failed", "url", imageURL, "error", err)
		return []domain.ObstacleTag{domain.ObstacleUndetermined}
	}

	for _, model := range s.candidates(ctx) {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				log.Warn("vision rate limiter", "error", err)
				break
			}
		}
		text, err := s.vision.Generate(ctx, model, classificationInstruction, image)
		if err != nil {
			metrics.ClassificationOutcomes.WithLabelValues(model, "error").Inc()
			log.Warn("vision model failed", "model", model, "error", err)
			continue
		}
		tags, err := ParseObstacleTags(text)
		if err != nil {
			metrics.ClassificationOutcomes.WithLabelValues(model, "malformed").Inc()
			log.Warn("vision model answer unparsable", "model", model, "error", err)
			continue
		}
		metrics.ClassificationOutcomes.WithLabelValues(model, "ok").Inc()
		return tags
	}

	log.Warn("all vision models failed", "url", imageURL)
	return []domain.ObstacleTag{domain.ObstacleUndetermined}
}

// candidates returns the catalog pick, if any, followed by the static list without duplicates.
func (s *ObstacleService) candidates(ctx context.Context) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(name string) {
		name = strings.TrimPrefix(name, "models/")
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}

	catalog, err := s.vision.ListModels(ctx)
	if err != nil {
		logging.FromContext(ctx).Warn("vision model catalog unavailable", "error", err)
	}
	if pick := pickCatalogModel(catalog); pick != "" {
		add(pick)
	}
	for _, m := range s.models {
		add(m)
	}
	return out
}

// pickCatalogModel returns the first model that can generate content and looks vision capable.
func pickCatalogModel(catalog []domain.VisionModelInfo) string {
	for _, m := range catalog {
		if !supports(m.SupportedGenerationMethods, "generateContent") {
			continue
		}
		if strings.Contains(m.Name, "flash") || strings.Contains(m.Name, "pro") || strings.Contains(m.Name, "vision") {
			return m.Name
		}
	}
	return ""
}

func supports(methods []string, method string) bool {
	for _, m := range methods {
		if m == method {
			return true
		}
	}
	return false
}

// ParseObstacleTags parses a model answer into vocabulary tags.
// Code fences are stripped; unknown tags are dropped; duplicates collapse.
func ParseObstacleTags(text string) ([]domain.ObstacleTag, error) {
	text = stripCodeFence(text)

	var raw []string
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, err
	}

	tags := make([]domain.ObstacleTag, 0, len(raw))
	seen := make(map[domain.ObstacleTag]bool)
	for _, r := range raw {
		t := domain.ObstacleTag(strings.ToLower(strings.TrimSpace(r)))
		if !domain.KnownObstacle(t) || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	// Drop the opening fence line, which may carry a language tag.
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func (s *ObstacleService) visionConfigured() bool {
	return s.vision != nil && s.vision.Configured()
}

// publish announces real detections only. Placeholder imagery and stand-in
// classifications are never published.
func (s *ObstacleService) publish(ctx context.Context, point domain.Coordinate, report domain.ObstacleReport) {
	if s.events == nil || report.ImageURL == nil {
		return
	}
	if report.Source == domain.SourcePlaceholder || !s.visionConfigured() {
		return
	}
	found := report.RealObstacles()
	if len(found) == 0 {
		return
	}
	event := &domain.ObstacleEvent{
		Point:     point,
		ImageURL:  *report.ImageURL,
		Obstacles: found,
		Source:    report.Source,
	}
	pubCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	if err := s.events.PublishObstacles(pubCtx, event); err != nil {
		logging.FromContext(ctx).Warn("publish obstacle event", "error", err)
	}
}
