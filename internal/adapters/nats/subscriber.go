package natsadapter

import (
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/greenroute/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber with plain NATS subscriptions.
// Relay clients only want live events, so no durable consumer is created.
type Subscriber struct {
	conn *nats.Conn
}

// NewSubscriber creates a subscriber sharing conn.
func NewSubscriber(conn *nats.Conn) *Subscriber {
	return &Subscriber{conn: conn}
}

// SubscribeObstacles delivers events for tag, or for every tag when tag is empty.
// The wildcard subscription delivers each event once even though it is
// published under every tag it carries. The returned func cancels the subscription.
func (s *Subscriber) SubscribeObstacles(tag domain.ObstacleTag, handler func(*domain.ObstacleEvent)) (func() error, error) {
	sub, err := s.conn.Subscribe(ObstacleSubject(tag), func(msg *nats.Msg) {
		var event domain.ObstacleEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.Warn("dropping malformed obstacle event", "subject", msg.Subject, "error", err)
			return
		}
		if tag == "" && !primaryCopy(msg.Subject, &event) {
			return
		}
		handler(&event)
	})
	if err != nil {
		return nil, err
	}
	return sub.Unsubscribe, nil
}

// Connected reports whether the underlying connection is up.
func (s *Subscriber) Connected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

// primaryCopy reports whether subject is the first of the subjects event was published on.
func primaryCopy(subject string, event *domain.ObstacleEvent) bool {
	if len(event.Obstacles) == 0 {
		return true
	}
	return subject == ObstacleSubject(event.Obstacles[0])
}
