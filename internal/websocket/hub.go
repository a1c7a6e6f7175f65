package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"docuchat-be/internal/model"
	"docuchat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Event is the wire envelope for everything pushed to a client: progress
// lines, chat messages, notifications.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// DisconnectListener is invoked when a user's LAST client unregisters,
// i.e. the user has fully left. Used to tear down their session indexes.
type DisconnectListener func(userID uuid.UUID)

type Hub struct {
	// Registered clients: UserID -> connections (multi-device).
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis connection for cross-instance fanout; nil for single instance.
	rdb *redis.Client

	logger logger.ILogger

	onDisconnect DisconnectListener
}

// dropClient queues a slow client for removal without blocking the caller.
// Only Run's unregister branch closes Send, so a client hit from several
// send paths at once is still closed exactly once.
func (h *Hub) dropClient(client *Client) {
	go func() {
		h.unregister <- client
	}()
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

// SetDisconnectListener must be called before Run.
func (h *Hub) SetDisconnectListener(fn DisconnectListener) {
	h.onDisconnect = fn
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			lastGone := false
			if clients, ok := h.clients[client.UserID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.UserID]) == 0 {
					delete(h.clients, client.UserID)
					lastGone = true
					h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
				}
			}
			h.mu.Unlock()

			if lastGone && h.onDisconnect != nil {
				// Teardown can take a while (store deletes); never block the
				// hub loop on it.
				go h.onDisconnect(client.UserID)
			}
		}
	}
}

// IsConnected reports whether the user has at least one live connection on
// this instance.
func (h *Hub) IsConnected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// SendEvent delivers a typed event to every connection of one user, locally
// and via Redis for sibling instances.
func (h *Hub) SendEvent(userID uuid.UUID, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Hub", "Event marshal failed", map[string]interface{}{"type": event.Type, "error": err.Error()})
		return
	}
	h.sendRaw(userID, data)
}

// Send delivers a notification row to one user (NotificationDelivery contract).
func (h *Hub) Send(userID uuid.UUID, notification model.Notification) {
	h.SendEvent(userID, Event{Type: "notification", Data: notification})
}

// Broadcast sends a notification to every connected client.
func (h *Hub) Broadcast(notification model.Notification) {
	data, _ := json.Marshal(Event{Type: "notification", Data: notification})

	h.mu.RLock()
	for _, clients := range h.clients {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
				h.dropClient(client)
			}
		}
	}
	h.mu.RUnlock()

	if h.rdb != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"target_user_id": "*",
			"message":        json.RawMessage(data),
		})
		h.rdb.Publish(context.Background(), "cluster_events", payload)
	}
}

func (h *Hub) sendRaw(userID uuid.UUID, data []byte) {
	// Send under the read lock: Run cannot close a channel while we hold it.
	h.mu.RLock()
	for _, client := range h.clients[userID] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping message", map[string]interface{}{"user_id": userID})
			h.dropClient(client)
		}
	}
	h.mu.RUnlock()

	// Always publish for multi-device delivery across instances.
	if h.rdb != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"target_user_id": userID.String(),
			"message":        json.RawMessage(data),
		})
		h.rdb.Publish(context.Background(), "cluster_events", payload)
	}
}

// subscribeToRedis delivers frames published by sibling instances: every
// instance subscribes to cluster_events and forwards to the users it holds
// locally.
func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "cluster_events")
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		var payload struct {
			TargetUserID string          `json:"target_user_id"`
			Message      json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}

		if payload.TargetUserID == "*" {
			h.mu.RLock()
			for _, clients := range h.clients {
				for _, client := range clients {
					select {
					case client.Send <- payload.Message:
					default:
						h.dropClient(client)
					}
				}
			}
			h.mu.RUnlock()
			continue
		}

		uid, err := uuid.Parse(payload.TargetUserID)
		if err != nil {
			continue
		}

		h.mu.RLock()
		for _, client := range h.clients[uid] {
			select {
			case client.Send <- payload.Message:
			default:
				h.dropClient(client)
			}
		}
		h.mu.RUnlock()
	}
}
