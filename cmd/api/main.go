package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/greenroute/internal/adapters/gemini"
	"github.com/samirrijal/greenroute/internal/adapters/googlemaps"
	"github.com/samirrijal/greenroute/internal/adapters/http"
	"github.com/samirrijal/greenroute/internal/adapters/mapillary"
	natsadapter "github.com/samirrijal/greenroute/internal/adapters/nats"
	"github.com/samirrijal/greenroute/internal/adapters/openroute"
	"github.com/samirrijal/greenroute/internal/adapters/placeholder"
	"github.com/samirrijal/greenroute/internal/adapters/valkey"
	"github.com/samirrijal/greenroute/internal/core/ports"
	"github.com/samirrijal/greenroute/internal/core/usecases"
	"github.com/samirrijal/greenroute/internal/pkg/config"
	"github.com/samirrijal/greenroute/internal/pkg/logging"
	"github.com/samirrijal/greenroute/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("greenroute-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	creds := cfg.Credentials()

	// Cache (optional). Interfaces stay nil unless the backend is up.
	var geocodeCache ports.CacheService
	var cachePinger http.Pinger
	if cfg.Valkey.Addr != "" {
		cache, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer cache.Close()
			geocodeCache = cache
			cachePinger = cache
		}
	}

	// NATS (optional)
	var events ports.EventPublisher
	var subscriber ports.EventSubscriber
	var broker http.Broker
	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			events = pub
			broker = pub
		}

		// Separate connection for the WebSocket relay
		natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats ws conn unavailable", "error", err)
		} else {
			defer natsConn.Close()
			subscriber = natsadapter.NewSubscriber(natsConn)
		}
	}

	// Routing and geocoding
	ors := openroute.New(openroute.Config{
		APIKey:  creds.OpenRoute,
		BaseURL: cfg.Providers.OpenRoute.BaseURL,
		Format:  cfg.Routing.Format,
	})

	var geocoder ports.Geocoder = ors
	if cfg.Geocoding.Provider == "google" {
		g, err := googlemaps.NewGeocoder(creds.GoogleMaps, cfg.Providers.GoogleMaps.BaseURL)
		if err != nil {
			log.Fatalf("google geocoder: %v", err)
		}
		geocoder = g
	}

	// Imagery chain: crowdsourced, then commercial, then placeholder
	imagery := []ports.ImageryProvider{
		mapillary.New(mapillary.Config{
			AccessToken:     creds.Mapillary,
			BaseURL:         cfg.Providers.Mapillary.BaseURL,
			Timeout:         cfg.Imagery.Timeout,
			HalfWidthMeters: cfg.Imagery.HalfWidthM,
			Limit:           cfg.Imagery.SearchLimit,
		}),
		googlemaps.NewStreetView(creds.GoogleMaps, cfg.Providers.GoogleMaps.BaseURL, cfg.Imagery.Timeout),
		placeholder.New(nil),
	}

	vision, err := gemini.New(ctx, creds.Gemini, cfg.Providers.Gemini.BaseURL)
	if err != nil {
		log.Fatalf("gemini client: %v", err)
	}
	fetcher := gemini.NewFetcher(cfg.Imagery.Timeout)

	// Use cases
	obstacleSvc := usecases.NewObstacleService(imagery, vision, fetcher, events, usecases.ObstacleConfig{
		Models:        cfg.Vision.Models,
		RatePerSecond: cfg.Vision.RatePerSecond,
		Burst:         cfg.Vision.Burst,
	})
	routeSvc := usecases.NewRouteService(
		usecases.NewLocationResolver(geocoder, geocodeCache),
		ors,
		obstacleSvc,
		usecases.RouteConfig{Workers: cfg.Annotate.Workers, MaxPoints: cfg.Annotate.MaxPoints},
	)

	slog.Info("providers configured",
		"geocoder", cfg.Geocoding.Provider,
		"mapillary", creds.Mapillary != "",
		"streetview", creds.GoogleMaps != "",
		"gemini", creds.Gemini != "",
	)

	deps := &http.Dependencies{
		Routes: routeSvc,
		Events: subscriber,
		Broker: broker,
		Cache:  cachePinger,
		Credentials: map[string]bool{
			openroute.ProviderName: creds.OpenRoute != "",
			"mapillary":            creds.Mapillary != "",
			"googlemaps":           creds.GoogleMaps != "",
			"gemini":               creds.Gemini != "",
		},
		HandlerTimeout: time.Duration(cfg.Server.HandlerTimeout) * time.Second,
		AllowOrigins:   cfg.Server.AllowOrigins,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "GreenRoute API",
		ErrorHandler: http.ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     deps.AllowOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
