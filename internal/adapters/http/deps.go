package http

import (
	"context"
	"time"

	"github.com/samirrijal/greenroute/internal/core/ports"
	"github.com/samirrijal/greenroute/internal/core/usecases"
)

// Pinger is implemented by backing stores that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Broker reports whether the event broker connection is up.
type Broker interface {
	Connected() bool
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Routes *usecases.RouteService
	Events ports.EventSubscriber // nil disables /ws
	Broker Broker
	Cache  Pinger
	// Credentials maps provider name to whether a credential is configured.
	Credentials    map[string]bool
	HandlerTimeout time.Duration
	AllowOrigins   string
}
