package ws

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

const (
	// maxDroppedMessagesBeforeDisconnect is the threshold for disconnecting slow clients
	maxDroppedMessagesBeforeDisconnect = 100
)

// Hub tracks live connections and their game-scoped room memberships.
// Rooms scope broadcasts to the participants of one game; membership is
// pruned automatically when a connection goes away.
type Hub struct {
	clients     map[*Client]bool
	rooms       map[string]map[*Client]bool
	memberships map[*Client]map[string]bool
	unregister  chan *Client
	shutdown    chan struct{}
	mu          sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		rooms:       make(map[string]map[*Client]bool),
		memberships: make(map[*Client]map[string]bool),
		unregister:  make(chan *Client),
		shutdown:    make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.shutdown:
			h.mu.Lock()
			for client := range h.clients {
				h.removeClientLocked(client)
				client.CloseSend()
			}
			h.mu.Unlock()
			slog.Info("shutdown complete", "component", "hub")
			return

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.removeClientLocked(client)
				client.CloseSend()
			}
			h.mu.Unlock()
		}
	}
}

// removeClientLocked deletes the client and prunes every room membership
// it holds. Caller must hold h.mu.
func (h *Hub) removeClientLocked(client *Client) {
	delete(h.clients, client)
	for room := range h.memberships[client] {
		if members, ok := h.rooms[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	delete(h.memberships, client)
}

// JoinRoom adds the connection to a room. Re-joining a room the connection
// already belongs to is a no-op.
func (h *Hub) JoinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
	if h.memberships[client] == nil {
		h.memberships[client] = make(map[string]bool)
	}
	h.memberships[client][room] = true
}

// InRoom reports whether the connection currently belongs to the room.
func (h *Hub) InRoom(client *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.memberships[client][room]
}

// RoomSize returns how many connections belong to the room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// MembershipCount returns how many rooms the connection belongs to.
func (h *Hub) MembershipCount(client *Client) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.memberships[client])
}

// BroadcastToRoom sends an event to every connection in the room.
func (h *Hub) BroadcastToRoom(room, eventType string, data any) {
	msg := &OutboundMessage{Type: eventType, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[room] {
		h.sendToClientLocked(client, msg)
	}
}

// Caller must hold at least a read lock on h.mu.
func (h *Hub) sendToClientLocked(client *Client, msg *OutboundMessage) {
	select {
	case client.send <- msg:
		// Message sent successfully
	default:
		// Client buffer full - track the drop
		dropped := atomic.AddInt64(&client.DroppedMessages, 1)

		// Log warning periodically (every 10 drops)
		if dropped%10 == 1 {
			slog.Warn("dropped messages for slow client", "component", "hub", "dropped", dropped, "session_id", client.sessionID)
		}

		// Disconnect clients that fall too far behind
		if dropped >= maxDroppedMessagesBeforeDisconnect {
			slog.Warn("disconnecting slow client", "component", "hub", "session_id", client.sessionID, "dropped", dropped)
			// Close will be handled by the client's pumps
			client.Close()
		}
	}
}

// Register adds a connection to the hub. It runs synchronously so the
// connection can join rooms as soon as its pumps start.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

func (h *Hub) Shutdown() {
	close(h.shutdown)
}
