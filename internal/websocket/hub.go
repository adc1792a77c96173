package websocket

import (
	"sync"

	"realtime-chat-be/internal/pkg/logger"

	"github.com/google/uuid"
)

// Hub owns all live connection state: which clients belong to which user
// and which clients subscribe to which room. Room subscriptions are
// transient; they exist only while the connection lives.
type Hub struct {
	// Registered clients per user (multi-device).
	clients map[uuid.UUID][]*Client

	// Live subscriber sets per room.
	rooms map[string]map[*Client]struct{}

	// Reverse index so unregister can drop all subscriptions cheaply.
	clientRooms map[*Client]map[string]struct{}

	// Register requests from authenticated connections.
	register chan *Client

	// Unregister requests from closing connections.
	unregister chan *Client

	mu sync.RWMutex

	logger logger.ILogger

	// Presence hooks fire on a user's first connection and after their
	// last connection drops. Set before Run is started.
	onUserOnline  func(userID uuid.UUID)
	onUserOffline func(userID uuid.UUID)
}

func NewHub(log logger.ILogger) *Hub {
	return &Hub{
		clients:     make(map[uuid.UUID][]*Client),
		rooms:       make(map[string]map[*Client]struct{}),
		clientRooms: make(map[*Client]map[string]struct{}),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		logger:      log,
	}
}

// SetPresenceHooks installs the online/offline callbacks. A user is
// online iff they hold at least one live connection.
func (h *Hub) SetPresenceHooks(online, offline func(userID uuid.UUID)) {
	h.onUserOnline = online
	h.onUserOffline = offline
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			first := len(h.clients[client.UserID]) == 0
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()

			h.logger.Info("Hub", "Client registered", map[string]interface{}{
				"user_id":       client.UserID,
				"connection_id": client.ID,
			})
			if first && h.onUserOnline != nil {
				h.onUserOnline(client.UserID)
			}

		case client := <-h.unregister:
			h.mu.Lock()
			last := h.removeClientLocked(client)
			h.mu.Unlock()

			if last && h.onUserOffline != nil {
				h.onUserOffline(client.UserID)
			}
		}
	}
}

// removeClientLocked drops the client from the user index and every room
// it subscribed to, and closes its send channel. Returns true when this
// was the user's last connection. Caller holds h.mu.
func (h *Hub) removeClientLocked(client *Client) bool {
	clients, ok := h.clients[client.UserID]
	if !ok {
		return false
	}

	found := false
	for i, c := range clients {
		if c == client {
			h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return false
	}

	client.closeSend()

	for roomID := range h.clientRooms[client] {
		if subscribers, ok := h.rooms[roomID]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	delete(h.clientRooms, client)

	if len(h.clients[client.UserID]) == 0 {
		delete(h.clients, client.UserID)
		h.logger.Info("Hub", "User completely disconnected", map[string]interface{}{
			"user_id": client.UserID,
		})
		return true
	}
	return false
}

// JoinRoom adds the client to the room's live subscriber set.
func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][client] = struct{}{}

	if h.clientRooms[client] == nil {
		h.clientRooms[client] = make(map[string]struct{})
	}
	h.clientRooms[client][roomID] = struct{}{}
}

// LeaveRoom removes the client from the room's live subscriber set.
func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subscribers, ok := h.rooms[roomID]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.rooms, roomID)
		}
	}
	if roomsOfClient, ok := h.clientRooms[client]; ok {
		delete(roomsOfClient, roomID)
	}
}

// BroadcastToRoom delivers a frame to every live subscriber of the room.
// A room with no subscribers is a no-op. Clients that cannot keep up are
// scheduled for disconnect rather than blocking the broadcast.
func (h *Hub) BroadcastToRoom(roomID string, data []byte) {
	h.mu.RLock()
	subscribers := make([]*Client, 0, len(h.rooms[roomID]))
	for client := range h.rooms[roomID] {
		subscribers = append(subscribers, client)
	}
	h.mu.RUnlock()

	for _, client := range subscribers {
		if !client.trySend(data) {
			h.logger.Warn("Hub", "Dropping slow or closed subscriber", map[string]interface{}{
				"user_id": client.UserID,
				"room_id": roomID,
			})
			h.unregister <- client
		}
	}
}

// SendToUser delivers a frame to every live connection of the user.
func (h *Hub) SendToUser(userID uuid.UUID, data []byte) {
	h.mu.RLock()
	clients := append([]*Client(nil), h.clients[userID]...)
	h.mu.RUnlock()

	for _, client := range clients {
		if !client.trySend(data) {
			h.unregister <- client
		}
	}
}

// RoomSubscriberCount reports the size of a room's live subscriber set.
func (h *Hub) RoomSubscriberCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// UserConnectionCount reports how many live connections a user holds.
func (h *Hub) UserConnectionCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
