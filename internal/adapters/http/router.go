package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/greenroute/internal/pkg/metrics"
)

// defaultHandlerTimeout bounds route handlers when Dependencies.HandlerTimeout is unset.
const defaultHandlerTimeout = 55 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Every request may fan out to paid providers: 60 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "too many requests, please try again later")
		},
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(CachingMiddleware())

	app.Get("/", RootHandler())
	app.Get("/health", HealthHandler())
	app.Get("/ready", ReadyHandler(deps))

	limit := deps.HandlerTimeout
	if limit <= 0 {
		limit = defaultHandlerTimeout
	}

	api := app.Group("/api")
	api.Post("/route", timeout.NewWithContext(RouteHandler(deps), limit))
	api.Post("/route/gpx", timeout.NewWithContext(RouteGPXHandler(deps), limit))
	api.Post("/route/annotate", timeout.NewWithContext(AnnotateHandler(deps), limit))
	api.Post("/analyze", timeout.NewWithContext(AnalyzeHandler(deps), limit))

	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), limit))

	SetupDocs(app)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if deps.Events == nil {
			return errServiceUnavailable(c, "event stream not configured")
		}
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	if deps.Events != nil {
		app.Get("/ws", websocket.New(WebSocketHandler(deps.Events)))
	}
}
