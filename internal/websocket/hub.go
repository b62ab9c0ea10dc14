package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Event is a sync notification pushed to a family's connected devices after
// a committed mutation.
type Event struct {
	Type    string         `json:"type"`
	Entity  string         `json:"entity"`
	Action  string         `json:"action"`
	ID      int64          `json:"id,omitempty"`
	ChildID int64          `json:"child_id,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// NewEvent creates an Event with the Type derived from entity and action.
func NewEvent(entity, action string, id, childID int64, extra map[string]any) Event {
	return Event{
		Type:    fmt.Sprintf("%s_%s", entity, action),
		Entity:  entity,
		Action:  action,
		ID:      id,
		ChildID: childID,
		Extra:   extra,
	}
}

// Hub tracks connected devices grouped by family (parent account) and fans
// events out to the right family only.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client under its family.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	family := h.clients[c.familyID]
	if family == nil {
		family = make(map[*Client]struct{})
		h.clients[c.familyID] = family
	}
	family[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if family, ok := h.clients[c.familyID]; ok {
		if _, ok := family[c]; ok {
			delete(family, c)
			close(c.send)
		}
		if len(family) == 0 {
			delete(h.clients, c.familyID)
		}
	}
	h.mu.Unlock()
}

// Broadcast sends an event to every device of one family.
func (h *Hub) Broadcast(familyID int64, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[familyID] {
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop rather than block the caller
		}
	}
}

// ClientCount returns the number of connected clients across all families.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, family := range h.clients {
		n += len(family)
	}
	return n
}
