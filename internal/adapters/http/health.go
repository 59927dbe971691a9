package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// requiredCredentials must be present for the service to be ready.
// The remaining providers only degrade the imagery and vision chains.
var requiredCredentials = []string{"openrouteservice"}

// HealthHandler returns a basic liveness check.
func HealthHandler() fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": "dev",
		})
	}
}

// ReadyHandler checks the cache, the broker and credential presence.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		allOK := true

		if deps.Cache != nil {
			if err := deps.Cache.Ping(ctx); err != nil {
				checks["cache"] = "error: " + err.Error()
				allOK = false
			} else {
				checks["cache"] = "ok"
			}
		} else {
			checks["cache"] = "not configured"
		}

		if deps.Broker != nil {
			if deps.Broker.Connected() {
				checks["nats"] = "ok"
			} else {
				checks["nats"] = "disconnected"
				allOK = false
			}
		} else {
			checks["nats"] = "not configured"
		}

		for name, present := range deps.Credentials {
			if present {
				checks["credential:"+name] = "ok"
			} else {
				checks["credential:"+name] = "missing"
			}
		}
		for _, name := range requiredCredentials {
			if !deps.Credentials[name] {
				checks["credential:"+name] = "missing"
				allOK = false
			}
		}

		status := "ready"
		code := fiber.StatusOK
		if !allOK {
			status = "not ready"
			code = fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
