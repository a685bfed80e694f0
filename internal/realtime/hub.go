// Package realtime pushes committed notifications to connected websocket
// clients. Delivery is best effort; the notifications table stays the source
// of truth.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Publisher publishes per-user events for every API instance.
type Publisher interface {
	PublishUserEvent(ctx context.Context, userID uuid.UUID, event string, payload []byte) (int64, error)
}

// Subscriber subscribes to a user's channel and invokes handler for incoming events.
type Subscriber interface {
	SubscribeUser(userID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains user_id -> set of connections. With a Subscriber it listens
// to a user's Redis channel while that user has at least one connection.
type Hub struct {
	users  map[uuid.UUID]map[string]*Client
	subs   map[uuid.UUID]func()
	mu     sync.RWMutex
	logger *zap.Logger
	sub    Subscriber
}

// NewHub creates a new WebSocket hub. sub may be nil for single-instance use.
func NewHub(logger *zap.Logger, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		users:  make(map[uuid.UUID]map[string]*Client),
		subs:   make(map[uuid.UUID]func()),
		logger: logger,
		sub:    sub,
	}
}

// Register adds a client. Starts the Redis subscription for the user on the first connection.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[c.UserID] == nil {
		h.users[c.UserID] = make(map[string]*Client)
		if h.sub != nil {
			userID := c.UserID
			cancel, err := h.sub.SubscribeUser(userID, func(event string, payload []byte) {
				h.BroadcastToUser(userID, event, json.RawMessage(payload))
			})
			if err != nil {
				h.logger.Warn("subscribe user channel failed", zap.Error(err), zap.String("user_id", userID.String()))
			} else {
				h.subs[userID] = cancel
			}
		}
	}
	h.users[c.UserID][c.ID] = c
	h.logger.Debug("client connected", zap.String("client_id", c.ID), zap.String("user_id", c.UserID.String()))
}

// Unregister removes a client. Cancels the Redis subscription when the user's last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.users[c.UserID]
	if !ok {
		return
	}
	if _, ok := m[c.ID]; !ok {
		return
	}
	delete(m, c.ID)
	close(c.send)
	if len(m) == 0 {
		delete(h.users, c.UserID)
		if cancel, ok := h.subs[c.UserID]; ok {
			cancel()
			delete(h.subs, c.UserID)
		}
	}
	h.logger.Debug("client disconnected", zap.String("client_id", c.ID), zap.String("user_id", c.UserID.String()))
}

// BroadcastToUser sends a message to every local connection of userID and
// returns how many connections accepted it.
func (h *Hub) BroadcastToUser(userID uuid.UUID, event string, payload interface{}) int {
	data, err := encode(payload)
	if err != nil {
		h.logger.Warn("encode event failed", zap.Error(err), zap.String("event", event))
		return 0
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for _, c := range h.users[userID] {
		select {
		case c.send <- msg:
			sent++
		default:
			h.logger.Debug("client buffer full, dropping event", zap.String("client_id", c.ID))
		}
	}
	return sent
}

// ConnectionCount returns the number of live connections for userID.
func (h *Hub) ConnectionCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// Close drops every subscription. Connections close as their pumps exit.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, cancel := range h.subs {
		cancel()
		delete(h.subs, id)
	}
}

func encode(payload interface{}) (json.RawMessage, error) {
	switch v := payload.(type) {
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(payload)
	}
}
