package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"realtime-chat-be/internal/dto"
	"realtime-chat-be/internal/pkg/logger"
	"realtime-chat-be/internal/pkg/serverutils"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// TokenVerifier validates the handshake access token.
type TokenVerifier interface {
	VerifyAccessToken(tokenStr string) (uuid.UUID, error)
}

// ChatRegistry finds or creates rooms and reports a user's room list.
type ChatRegistry interface {
	FindOrCreateChat(ctx context.Context, participantIds []string) (*dto.ChatResponse, bool, error)
	GetUserChats(ctx context.Context, userID uuid.UUID) ([]dto.ChatResponse, error)
}

// MessageStore persists and retrieves room messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, senderID uuid.UUID, req *dto.CreateMessageRequest) (*dto.MessageResponse, error)
	GetChatMessages(ctx context.Context, roomID string) ([]dto.MessageResponse, error)
}

// PresencePublisher hands presence transitions to the presence worker.
type PresencePublisher interface {
	PublishPresenceChange(userID uuid.UUID, online bool) error
}

// Admitter decides whether an inbound event is within the caller's
// rate budget.
type Admitter interface {
	Admit(key string) (allowed bool, retryAfter time.Duration)
}

type handlerFunc func(ctx context.Context, c *Client, data json.RawMessage)

// Gateway authenticates connections and routes inbound events to their
// handlers. Every event runs on its own goroutine; anything a handler
// produces for a connection that closed in the meantime is dropped.
type Gateway struct {
	hub      *Hub
	tokens   TokenVerifier
	chats    ChatRegistry
	messages MessageStore
	limiter  Admitter
	logger   logger.ILogger

	// Static event table; no reflection, one switch point.
	handlers map[string]handlerFunc

	// Per-room locks serialize persist+broadcast so a room's broadcast
	// order matches submission order.
	roomLocks sync.Map
}

func NewGateway(
	hub *Hub,
	tokens TokenVerifier,
	chats ChatRegistry,
	messages MessageStore,
	limiter Admitter,
	log logger.ILogger,
) *Gateway {
	g := &Gateway{
		hub:      hub,
		tokens:   tokens,
		chats:    chats,
		messages: messages,
		limiter:  limiter,
		logger:   log,
	}
	g.handlers = map[string]handlerFunc{
		EventJoin:               g.handleJoin,
		EventLeave:              g.handleLeave,
		EventSendMessage:        g.handleSendMessage,
		EventRequestAllMessages: g.handleRequestAllMessages,
		EventCreateChat:         g.handleCreateChat,
		EventRequestAllChats:    g.handleRequestAllChats,
	}
	return g
}

// HandleConnection drives one websocket connection from handshake to
// close. The access token travels as the "accessToken" query parameter;
// a failed verification emits an error event and closes the transport.
func (g *Gateway) HandleConnection(conn *websocket.Conn) {
	accessToken := conn.Query("accessToken")

	userID, err := g.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		g.logger.Warn("Gateway", "Rejected connection: token verification failed", map[string]interface{}{
			"error": err.Error(),
		})
		if frame, frameErr := NewFrame(EventError, ErrorPayload{Message: "authentication failed"}); frameErr == nil {
			conn.WriteMessage(websocket.TextMessage, frame)
		}
		conn.Close()
		return
	}

	client := newClient(g.hub, conn, userID)
	g.hub.register <- client

	g.logger.Info("Gateway", "User connected", map[string]interface{}{
		"user_id":       userID,
		"connection_id": client.ID,
	})

	// Fresh room list on connect; later changes arrive through the
	// chat feed worker.
	go g.pushChatList(context.Background(), client)

	go client.writePump()
	client.readPump(g)
}

// dispatch routes one inbound frame. Mutating events pass through the
// rate limiter first; a denial is reported to the caller and the
// connection stays open.
func (g *Gateway) dispatch(c *Client, raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		g.logger.Warn("Gateway", "Discarding malformed frame", map[string]interface{}{
			"user_id": c.UserID,
			"error":   err.Error(),
		})
		return
	}

	handler, ok := g.handlers[frame.Event]
	if !ok {
		g.logger.Warn("Gateway", "Unknown event", map[string]interface{}{
			"user_id": c.UserID,
			"event":   frame.Event,
		})
		return
	}

	if rateLimited(frame.Event) {
		if allowed, retryAfter := g.limiter.Admit(c.UserID.String()); !allowed {
			g.sendError(c, fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", int(retryAfter.Seconds())))
			return
		}
	}

	go handler(context.Background(), c, frame.Data)
}

func rateLimited(event string) bool {
	return event == EventSendMessage || event == EventCreateChat
}

func (g *Gateway) handleJoin(ctx context.Context, c *Client, data json.RawMessage) {
	roomID := decodeRoomID(data)
	if roomID == "" {
		g.logger.Warn("Gateway", "User tried to join a room without roomId", map[string]interface{}{
			"user_id": c.UserID,
		})
		return
	}

	g.hub.JoinRoom(c, roomID)

	frame, err := NewFrame(EventUserJoined, UserPayload{UserId: c.UserID.String()})
	if err != nil {
		g.logger.Error("Gateway", "Failed to encode user-joined", map[string]interface{}{"error": err.Error()})
		return
	}
	// The joiner is already subscribed, so it receives the event too.
	g.hub.BroadcastToRoom(roomID, frame)
}

func (g *Gateway) handleLeave(ctx context.Context, c *Client, data json.RawMessage) {
	roomID := decodeRoomID(data)
	if roomID == "" {
		g.logger.Warn("Gateway", "User tried to leave a room without roomId", map[string]interface{}{
			"user_id": c.UserID,
		})
		return
	}

	g.hub.LeaveRoom(c, roomID)

	frame, err := NewFrame(EventUserLeft, UserPayload{UserId: c.UserID.String()})
	if err != nil {
		g.logger.Error("Gateway", "Failed to encode user-left", map[string]interface{}{"error": err.Error()})
		return
	}
	g.hub.BroadcastToRoom(roomID, frame)
}

func (g *Gateway) handleSendMessage(ctx context.Context, c *Client, data json.RawMessage) {
	var req dto.CreateMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		g.sendError(c, "Malformed send-message payload")
		return
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		g.sendError(c, err.Error())
		return
	}

	// Serialize per room so broadcast order matches submission order.
	lock := g.roomLock(req.RoomId)
	lock.Lock()
	defer lock.Unlock()

	saved, err := g.messages.CreateMessage(ctx, c.UserID, &req)
	if err != nil {
		// Message loss must be visible to the sender.
		g.logger.Error("Gateway", "Failed to persist message", map[string]interface{}{
			"user_id": c.UserID,
			"room_id": req.RoomId,
			"error":   err.Error(),
		})
		g.sendError(c, "Failed to send message")
		return
	}

	frame, err := NewFrame(EventMessageReceived, saved)
	if err != nil {
		g.logger.Error("Gateway", "Failed to encode message-received", map[string]interface{}{"error": err.Error()})
		return
	}
	g.hub.BroadcastToRoom(req.RoomId, frame)
}

func (g *Gateway) handleRequestAllMessages(ctx context.Context, c *Client, data json.RawMessage) {
	roomID := decodeRoomID(data)
	if roomID == "" {
		g.logger.Warn("Gateway", "User requested all messages without roomId", map[string]interface{}{
			"user_id": c.UserID,
		})
		return
	}

	messages, err := g.messages.GetChatMessages(ctx, roomID)
	if err != nil {
		g.logger.Error("Gateway", "Failed to load message history", map[string]interface{}{
			"user_id": c.UserID,
			"room_id": roomID,
			"error":   err.Error(),
		})
		g.sendError(c, "Failed to load messages")
		return
	}

	g.sendEvent(c, EventSendAllMessages, messages)
}

func (g *Gateway) handleCreateChat(ctx context.Context, c *Client, data json.RawMessage) {
	var req dto.CreateChatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		g.sendError(c, "Malformed create-chat payload")
		return
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		g.sendError(c, err.Error())
		return
	}

	chat, wasCreated, err := g.chats.FindOrCreateChat(ctx, req.Participants)
	if err != nil {
		g.logger.Error("Gateway", "Failed to create chat", map[string]interface{}{
			"user_id": c.UserID,
			"error":   err.Error(),
		})
		g.sendError(c, err.Error())
		return
	}

	// An existing room is reported to the requester only. A new room is
	// announced through the chat feed, not here, and the requester is
	// not auto-subscribed either way.
	if !wasCreated {
		g.sendEvent(c, EventChatAlreadyExists, chat)
	}
}

func (g *Gateway) handleRequestAllChats(ctx context.Context, c *Client, data json.RawMessage) {
	g.pushChatList(ctx, c)
}

func (g *Gateway) pushChatList(ctx context.Context, c *Client) {
	chats, err := g.chats.GetUserChats(ctx, c.UserID)
	if err != nil {
		g.logger.Error("Gateway", "Failed to load chat list", map[string]interface{}{
			"user_id": c.UserID,
			"error":   err.Error(),
		})
		g.sendError(c, "Failed to load chats")
		return
	}
	g.sendEvent(c, EventSendAllChats, chats)
}

func (g *Gateway) sendEvent(c *Client, event string, data interface{}) {
	frame, err := NewFrame(event, data)
	if err != nil {
		g.logger.Error("Gateway", "Failed to encode event", map[string]interface{}{
			"event": event,
			"error": err.Error(),
		})
		return
	}
	c.trySend(frame)
}

func (g *Gateway) sendError(c *Client, message string) {
	g.sendEvent(c, EventError, ErrorPayload{Message: message})
}

func (g *Gateway) roomLock(roomID string) *sync.Mutex {
	lock, _ := g.roomLocks.LoadOrStore(roomID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// decodeRoomID accepts the room id either as a bare JSON string or as
// an object with a roomId field; both shapes are in the wild.
func decodeRoomID(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var roomID string
	if err := json.Unmarshal(data, &roomID); err == nil {
		return roomID
	}
	var wrapped struct {
		RoomId string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil {
		return wrapped.RoomId
	}
	return ""
}
