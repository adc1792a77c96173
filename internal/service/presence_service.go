package service

import (
	"context"
	"encoding/json"

	"realtime-chat-be/internal/dto"
	"realtime-chat-be/internal/pkg/logger"
	"realtime-chat-be/pkg/events"
	pktNats "realtime-chat-be/pkg/nats"
	"realtime-chat-be/pkg/presence"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IPresenceService interface {
	Consume(ctx context.Context) error
}

// presenceService drains the presence bus: it flips the durable online
// flag, updates the Redis presence store, and emits the domain event.
type presenceService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	chatService    IChatService
	presenceStore  *presence.Store
	eventPublisher *pktNats.Publisher
	logger         logger.ILogger
}

func NewPresenceService(
	pubSub *gochannel.GoChannel,
	topicName string,
	chatService IChatService,
	presenceStore *presence.Store,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IPresenceService {
	return &presenceService{
		pubSub:         pubSub,
		topicName:      topicName,
		chatService:    chatService,
		presenceStore:  presenceStore,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

func (s *presenceService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *presenceService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PresenceChangedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.logger.Error("PresenceService", "Failed to unmarshal presence message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // drop malformed messages, retrying cannot fix them
		return
	}

	if err := s.chatService.UpdateUserOnlineStatus(ctx, payload.UserId, payload.Online); err != nil {
		s.logger.Error("PresenceService", "Failed to update online status", map[string]interface{}{
			"user_id": payload.UserId,
			"online":  payload.Online,
			"error":   err.Error(),
		})
	}

	if s.presenceStore != nil {
		var err error
		if payload.Online {
			err = s.presenceStore.SetOnline(ctx, payload.UserId)
		} else {
			err = s.presenceStore.SetOffline(ctx, payload.UserId)
		}
		if err != nil {
			s.logger.Warn("PresenceService", "Failed to update presence store", map[string]interface{}{
				"user_id": payload.UserId,
				"error":   err.Error(),
			})
		}
	}

	if s.eventPublisher != nil {
		eventType := events.TypeUserOffline
		if payload.Online {
			eventType = events.TypeUserOnline
		}
		event := events.New(eventType, map[string]interface{}{
			"user_id": payload.UserId.String(),
			"at":      payload.At,
		})
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("PresenceService", "Failed to publish presence event", map[string]interface{}{
				"user_id": payload.UserId,
				"error":   err.Error(),
			})
		}
	}

	msg.Ack()
}
