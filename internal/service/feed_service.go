package service

import (
	"context"
	"fmt"

	"realtime-chat-be/internal/pkg/logger"
	"realtime-chat-be/internal/websocket"
	"realtime-chat-be/pkg/events"
	pktNats "realtime-chat-be/pkg/nats"

	"github.com/google/uuid"
)

// ChatListDelivery pushes a frame to every live connection of a user.
// Implemented by the websocket Hub.
type ChatListDelivery interface {
	SendToUser(userID uuid.UUID, data []byte)
}

// FeedService keeps connected clients' room lists fresh without
// polling: whenever a chat is created it pushes the refreshed list to
// every participant.
type FeedService struct {
	subscriber  *pktNats.Subscriber
	chatService IChatService
	delivery    ChatListDelivery
	logger      logger.ILogger
}

func NewFeedService(sub *pktNats.Subscriber, chatService IChatService, delivery ChatListDelivery, log logger.ILogger) *FeedService {
	return &FeedService{
		subscriber:  sub,
		chatService: chatService,
		delivery:    delivery,
		logger:      log,
	}
}

// Start begins listening to the event bus.
func (s *FeedService) Start() {
	err := s.subscriber.Subscribe("events."+events.TypeChatCreated, "chat-feed-worker", s.handleChatCreated)
	if err != nil {
		s.logger.Error("FeedService", "Failed to start chat feed subscriber", map[string]interface{}{"error": err.Error()})
		return
	}
	s.logger.Info("FeedService", "Chat feed started", nil)
}

func (s *FeedService) handleChatCreated(ctx context.Context, event events.Event) error {
	rawParticipants, ok := event.Payload()["participants"].([]interface{})
	if !ok {
		s.logger.Warn("FeedService", "CHAT_CREATED event without participants", nil)
		return nil
	}

	for _, raw := range rawParticipants {
		idStr, ok := raw.(string)
		if !ok {
			continue
		}
		userID, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		if err := s.pushChatList(ctx, userID); err != nil {
			// Returning the error would redeliver the whole event; a
			// single participant's failed refresh is not worth that.
			s.logger.Warn("FeedService", "Failed to push chat list", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}
	return nil
}

func (s *FeedService) pushChatList(ctx context.Context, userID uuid.UUID) error {
	chats, err := s.chatService.GetUserChats(ctx, userID)
	if err != nil {
		return err
	}

	frame, err := websocket.NewFrame(websocket.EventSendAllChats, chats)
	if err != nil {
		return fmt.Errorf("failed to encode chat list: %w", err)
	}

	s.delivery.SendToUser(userID, frame)
	return nil
}
