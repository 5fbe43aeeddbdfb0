// Package realtime streams sync-progress events to dashboard clients over
// WebSocket, with Redis pub/sub fan-out across server instances.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat (seconds).
	PingInterval = 30
	PongWait     = 60
)

// RedisPublisher publishes to Redis for cross-instance broadcast. origin
// identifies the publishing hub instance so its own subscription can ignore
// the echo.
type RedisPublisher interface {
	PublishSyncEvent(userID uuid.UUID, origin, event string, payload []byte) error
}

// RedisSubscriber subscribes to a user's sync channel and invokes handler for
// incoming events.
type RedisSubscriber interface {
	SubscribeSync(userID uuid.UUID, handler func(origin, event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains user_id -> set of connections and broadcasts sync progress.
// Uses Redis pub/sub for horizontal scaling: local broadcast + publish to
// Redis. Messages echoing back from this instance's own publishes are
// dropped by origin id, so local clients see each frame exactly once.
type Hub struct {
	// userID -> map[clientID]*Client
	users      map[uuid.UUID]map[string]*Client
	subs       map[uuid.UUID]func() // cancel Redis subscription per user
	mu         sync.RWMutex
	logger     *zap.Logger
	redis      RedisPublisher
	redisSub   RedisSubscriber
	instanceID string
}

// NewHub creates a sync-progress hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		users:      make(map[uuid.UUID]map[string]*Client),
		subs:       make(map[uuid.UUID]func()),
		logger:     logger,
		redis:      redisPub,
		redisSub:   redisSub,
		instanceID: uuid.NewString(),
	}
}

// Register adds a client. Starts the Redis subscription for this user on the
// first connection.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.users[c.UserID] == nil {
		h.users[c.UserID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeSync(c.UserID, func(origin, event string, payload []byte) {
				if origin == h.instanceID {
					// Our own publish; local clients already got it.
					return
				}
				h.broadcastLocal(c.UserID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.UserID] = cancel
			} else {
				h.logger.Warn("sync channel subscribe failed", zap.Error(err))
			}
		}
	}
	h.users[c.UserID][c.ID] = c
	h.mu.Unlock()
}

// Unregister removes a client, dropping the Redis subscription when the last
// connection for the user closes.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if clients, ok := h.users[c.UserID]; ok {
		if _, ok := clients[c.ID]; ok {
			delete(clients, c.ID)
			close(c.send)
		}
		if len(clients) == 0 {
			delete(h.users, c.UserID)
			if cancel, ok := h.subs[c.UserID]; ok {
				cancel()
				delete(h.subs, c.UserID)
			}
		}
	}
	h.mu.Unlock()
}

// PublishProgress implements sync.ProgressPublisher: broadcast locally and
// publish to Redis for other instances.
func (h *Hub) PublishProgress(userID uuid.UUID, stage string, detail map[string]interface{}) {
	payload, err := json.Marshal(map[string]interface{}{"stage": stage, "detail": detail})
	if err != nil {
		return
	}
	h.broadcastLocal(userID, "sync.progress", payload)
	if h.redis != nil {
		if err := h.redis.PublishSyncEvent(userID, h.instanceID, "sync.progress", payload); err != nil {
			h.logger.Debug("sync event publish failed", zap.Error(err))
		}
	}
}

func (h *Hub) broadcastLocal(userID uuid.UUID, event string, payload json.RawMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.users[userID] {
		select {
		case c.send <- WSMessage{Event: event, Data: payload}:
		default:
			// Slow consumer: drop the frame rather than stall a sync run.
		}
	}
}
