// Package hub owns the live connection registry and the broadcast
// engine: which (room, user) pairs have an outbound write handle, and
// fan-out of one payload to every handle in a room.
package hub

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/Shaytris/Obsidian/internal/config"
	"github.com/Shaytris/Obsidian/pkg/log"
)

// Hub maps client IDs and (room, user) pairs to live clients. An entry
// in a room's connection map exists if and only if the same user is a
// member of that room in the store; callers keep the two in sync by
// performing both updates inside one store critical section.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client            // clientID -> client
	rooms   map[string]map[string]*Client // roomID -> user -> client
	onEvict func(*Client)
	config  config.WebSocketConfig
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		config:  cfg,
	}
}

// SetEvictHandler installs the dead-peer callback. The handler is
// responsible for membership cleanup and peer notification; the hub
// then drops the connection itself. Set once at wiring time.
func (h *Hub) SetEvictHandler(fn func(*Client)) {
	h.onEvict = fn
}

// Register adds a connection to the registry.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	c.closed = false
	h.mu.Unlock()
	log.L().Debug().Str(log.FieldClientID, c.ID).Msg("client registered")
}

// Unregister removes a connection from the registry and every room,
// closing its send queue exactly once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)
	for roomID, conns := range h.rooms {
		for user, rc := range conns {
			if rc == c {
				delete(conns, user)
			}
		}
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
	c.closed = true
	h.mu.Unlock()

	close(c.Send)
	log.L().Debug().Str(log.FieldClientID, c.ID).Msg("client unregistered")
}

// JoinRoom binds the (room, user) pair to the client's write handle.
func (h *Hub) JoinRoom(roomID, user string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][user] = c
}

// LeaveRoom drops the (room, user) binding if present.
func (h *Hub) LeaveRoom(roomID, user string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, user)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// Snapshot returns a point-in-time copy of a room's connections,
// ordered by user, safe to iterate while the registry keeps moving.
func (h *Hub) Snapshot(roomID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns, ok := h.rooms[roomID]
	if !ok {
		return nil
	}
	users := make([]string, 0, len(conns))
	for u := range conns {
		users = append(users, u)
	}
	sort.Strings(users)
	out := make([]*Client, 0, len(users))
	for _, u := range users {
		out = append(out, conns[u])
	}
	return out
}

// ClientInRoom returns the live connection bound to (room, user).
func (h *Hub) ClientInRoom(roomID, user string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.rooms[roomID][user]
	return c, ok
}

// RoomClientCount reports how many connections a room currently has.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Broadcast delivers payload to every connection in the snapshot taken
// at call time. A failed handle does not abort the loop; the dead peer
// is evicted on its own goroutine and the remaining recipients still
// get the payload. An empty room is a no-op.
func (h *Hub) Broadcast(roomID string, payload []byte) {
	h.BroadcastExcept(roomID, "", payload)
}

// BroadcastExcept is Broadcast minus one user, used when the
// triggering client must not be notified about itself.
func (h *Hub) BroadcastExcept(roomID, exclude string, payload []byte) {
	snapshot := h.Snapshot(roomID)
	for _, c := range snapshot {
		if exclude != "" && c.Session.User() == exclude {
			continue
		}
		if !h.trySend(c, payload) {
			go h.evict(c)
		}
	}
}

// BroadcastEvent marshals v once and broadcasts it.
func (h *Hub) BroadcastEvent(roomID string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(roomID, data)
	return nil
}

// BroadcastEventExcept marshals v and broadcasts it to everyone but
// the excluded user.
func (h *Hub) BroadcastEventExcept(roomID, exclude string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.BroadcastExcept(roomID, exclude, data)
	return nil
}

// trySend queues payload for one client without blocking. Reports
// failure when the client is gone or its queue is full.
func (h *Hub) trySend(c *Client, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// evict tears down a dead peer: the handler removes room membership
// and notifies remaining members, then the connection is dropped.
func (h *Hub) evict(c *Client) {
	log.L().Info().Str(log.FieldClientID, c.ID).Msg("evicting unresponsive client")
	if h.onEvict != nil {
		h.onEvict(c)
	}
	h.Unregister(c)
	if c.Conn != nil {
		c.Conn.Close()
	}
}
