package app

import (
	"sync"

	"github.com/LajoLouis/lajospacesbackend-sub000/pkg/logger"

	"go.uber.org/zap"
)

// Client one live connection bound to a user. Frames queue on Send and
// a writer pump owned by the transport drains them, so broadcasts never
// block on a slow socket.
type Client struct {
	ID     string
	UserID string
	Send   chan []byte

	closeOnce sync.Once
}

// NewClient create a Client with a buffered outbound queue
func NewClient(id, userID string, buffer int) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		Send:   make(chan []byte, buffer),
	}
}

// Close shuts the outbound queue exactly once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

// Hub indexes live connections by connection id, by user id, and by
// conversation room, and fans frames out to them.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]*Client
	userConns map[string]map[string]*Client
	rooms     map[string]map[string]*Client
}

// NewHub create a Hub
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[string]*Client),
		userConns: make(map[string]map[string]*Client),
		rooms:     make(map[string]map[string]*Client),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c.ID] = c
	if h.userConns[c.UserID] == nil {
		h.userConns[c.UserID] = make(map[string]*Client)
	}
	h.userConns[c.UserID][c.ID] = c
}

// Unregister removes a client from the hub and every room, closing its
// outbound queue.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connID]
	if !ok {
		return
	}
	delete(h.clients, connID)
	if conns := h.userConns[c.UserID]; conns != nil {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.userConns, c.UserID)
		}
	}
	for roomID, members := range h.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	c.Close()
}

// Join subscribes a connection to a conversation room.
func (h *Hub) Join(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connID]
	if !ok {
		return
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][connID] = c
}

// Leave unsubscribes a connection from a conversation room.
func (h *Hub) Leave(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members := h.rooms[roomID]; members != nil {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// BroadcastToRoom sends payload to every connection subscribed to
// roomID, skipping connections owned by excludeUserID when set.
func (h *Hub) BroadcastToRoom(roomID string, payload []byte, excludeUserID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.rooms[roomID] {
		if excludeUserID != "" && c.UserID == excludeUserID {
			continue
		}
		h.push(c, payload)
	}
}

// BroadcastToAll sends payload to every live connection. Presence
// changes go out this wide so peers without a shared conversation yet
// still see them.
func (h *Hub) BroadcastToAll(payload []byte, excludeUserID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if excludeUserID != "" && c.UserID == excludeUserID {
			continue
		}
		h.push(c, payload)
	}
}

// BroadcastToUser sends payload to every connection userID holds.
func (h *Hub) BroadcastToUser(userID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.userConns[userID] {
		h.push(c, payload)
	}
}

// BroadcastToParticipants sends payload once per connection across the
// union of the conversation room and each participant's connections.
func (h *Hub) BroadcastToParticipants(roomID string, userIDs []string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, c := range h.rooms[roomID] {
		seen[c.ID] = struct{}{}
		h.push(c, payload)
	}
	for _, userID := range userIDs {
		for _, c := range h.userConns[userID] {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			h.push(c, payload)
		}
	}
}

// SendTo sends payload to one connection.
func (h *Hub) SendTo(connID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if c, ok := h.clients[connID]; ok {
		h.push(c, payload)
	}
}

// RoomSize returns how many connections are subscribed to roomID.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// push queues without blocking; a full queue means the client is too
// slow to keep up and the frame is dropped.
func (h *Hub) push(c *Client, payload []byte) {
	select {
	case c.Send <- payload:
	default:
		logger.Log.Warn("dropping frame for slow client",
			zap.String("connID", c.ID), zap.String("userID", c.UserID))
	}
}
