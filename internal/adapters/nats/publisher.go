package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/greenroute/internal/core/domain"
)

const (
	// ObstacleSubjectPrefix is followed by one obstacle tag per published event.
	ObstacleSubjectPrefix = "accessibility.obstacles."
	// ObstacleSubjectAll matches every obstacle subject.
	ObstacleSubjectAll = ObstacleSubjectPrefix + ">"

	obstacleStream = "ACCESSIBILITY_OBSTACLES"
)

// ObstacleSubject returns the subject for tag, or the wildcard for an empty tag.
func ObstacleSubject(tag domain.ObstacleTag) string {
	if tag == "" {
		return ObstacleSubjectAll
	}
	return ObstacleSubjectPrefix + string(tag)
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure stream exists
	cfg := &nats.StreamConfig{
		Name:      obstacleStream,
		Subjects:  []string{ObstacleSubjectAll},
		Retention: nats.InterestPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishObstacles publishes event once per obstacle tag it carries.
func (p *Publisher) PublishObstacles(ctx context.Context, event *domain.ObstacleEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	for _, tag := range event.Obstacles {
		if _, err := p.js.Publish(ObstacleSubject(tag), data, nats.Context(ctx)); err != nil {
			return fmt.Errorf("publish %s: %w", tag, err)
		}
	}
	return nil
}

// Connected reports whether the underlying connection is up.
func (p *Publisher) Connected() bool {
	return p.conn.IsConnected()
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection, e.g. for the WebSocket relay.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
