package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Message is a change notification. It names the entity that changed and
// nothing else, so clients re-fetch their view instead of patching it.
type Message struct {
	Type   string `json:"type"`
	Entity string `json:"entity"`
	ID     string `json:"id,omitempty"`
}

// Changed builds the notification for a change to one entity.
func Changed(entity, id string) Message {
	return Message{
		Type:   entity + "_changed",
		Entity: entity,
		ID:     id,
	}
}

// Hub tracks connected clients per user and routes notifications to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.userID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()
}

// Subscribe attaches a connectionless listener for userID. The returned
// cancel func detaches it and closes the channel.
func (h *Hub) Subscribe(userID int64) (<-chan []byte, func()) {
	c := NewClient(h, nil, userID)
	h.Register(c)

	var once sync.Once
	return c.send, func() {
		once.Do(func() { h.Unregister(c) })
	}
}

// Notify delivers msg to every client of the given users. Duplicate ids
// receive the message once.
func (h *Hub) Notify(msg Message, userIDs ...int64) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal notification", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[int64]bool, len(userIDs))
	for _, uid := range userIDs {
		if uid == 0 || seen[uid] {
			continue
		}
		seen[uid] = true
		for c := range h.clients[uid] {
			select {
			case c.send <- data:
			default:
				// Client buffer full, drop message to avoid blocking
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}
