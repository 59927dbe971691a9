package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/greenroute/internal/core/domain"
	"github.com/samirrijal/greenroute/internal/core/ports"
	"github.com/samirrijal/greenroute/internal/pkg/metrics"
)

const (
	wsPingInterval = 30 * time.Second
	wsAllTags      = "*"
)

// wsMessage is sent from client to subscribe/unsubscribe to obstacle tags.
type wsMessage struct {
	Action   string `json:"action"`   // "subscribe" | "unsubscribe"
	Obstacle string `json:"obstacle"` // obstacle tag, "" or "*" = all
}

// WebSocketHandler relays obstacle events to connected clients.
// Clients start subscribed to every tag. Subscribing to a tag narrows the feed
// to the subscribed tags; subscribing to "*" widens it again.
func WebSocketHandler(events ports.EventSubscriber) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		log := slog.Default().With("remote_addr", c.RemoteAddr().String())
		log.Info("ws client connected")

		var writeMu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			writeMu.Lock()
			defer writeMu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		// subs is read from NATS callbacks, so guard it separately from writes.
		var subsMu sync.RWMutex
		subs := make(map[string]func() error) // tag -> unsubscribe
		subscribed := func(tag domain.ObstacleTag) bool {
			_, ok := subs[string(tag)]
			return ok
		}

		subscribe := func(key string) error {
			tag := domain.ObstacleTag(key)
			if key == wsAllTags {
				tag = ""
			}
			unsub, err := events.SubscribeObstacles(tag, func(ev *domain.ObstacleEvent) {
				subsMu.RLock()
				relay := shouldRelay(key, ev, subscribed)
				subsMu.RUnlock()
				if relay {
					_ = writeJSON(ev)
				}
			})
			if err != nil {
				return err
			}
			subsMu.Lock()
			subs[key] = unsub
			subsMu.Unlock()
			return nil
		}

		// drop cancels every subscription except keep.
		drop := func(keep string) {
			subsMu.Lock()
			defer subsMu.Unlock()
			for k, unsub := range subs {
				if k == keep {
					continue
				}
				_ = unsub()
				delete(subs, k)
			}
		}

		if err := subscribe(wsAllTags); err != nil {
			log.Error("ws default subscribe failed", "error", err)
			return
		}

		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					writeMu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					writeMu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			key := m.Obstacle
			if key == "" {
				key = wsAllTags
			}
			if key != wsAllTags && !domain.KnownObstacle(domain.ObstacleTag(key)) {
				_ = writeJSON(map[string]string{"error": "unknown obstacle: " + key})
				continue
			}

			subsMu.RLock()
			_, exists := subs[key]
			_, all := subs[wsAllTags]
			subsMu.RUnlock()

			switch m.Action {
			case "subscribe":
				if exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "obstacle": key})
					continue
				}
				if err := subscribe(key); err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				if key == wsAllTags {
					drop(wsAllTags)
				} else if all {
					subsMu.Lock()
					if unsub, ok := subs[wsAllTags]; ok {
						_ = unsub()
						delete(subs, wsAllTags)
					}
					subsMu.Unlock()
				}
				_ = writeJSON(map[string]string{"status": "subscribed", "obstacle": key})

			case "unsubscribe":
				if !exists {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + key})
					continue
				}
				subsMu.Lock()
				_ = subs[key]()
				delete(subs, key)
				subsMu.Unlock()
				_ = writeJSON(map[string]string{"status": "unsubscribed", "obstacle": key})

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		drop("")
		log.Info("ws client disconnected")
	}
}

// shouldRelay reports whether the subscription for key forwards ev. An event
// carrying several subscribed tags is forwarded by the first of them only.
func shouldRelay(key string, ev *domain.ObstacleEvent, subscribed func(domain.ObstacleTag) bool) bool {
	if key == wsAllTags {
		return true
	}
	for _, tag := range ev.Obstacles {
		if subscribed(tag) {
			return string(tag) == key
		}
	}
	return false
}
