package service

import (
	"context"
	"fmt"

	"realtime-chat-be/internal/dto"
	"realtime-chat-be/internal/entity"
	"realtime-chat-be/internal/pkg/logger"
	"realtime-chat-be/internal/repository/specification"
	"realtime-chat-be/internal/repository/unitofwork"
	"realtime-chat-be/pkg/events"
	pktNats "realtime-chat-be/pkg/nats"

	"github.com/google/uuid"
)

type IMessageService interface {
	CreateMessage(ctx context.Context, senderID uuid.UUID, req *dto.CreateMessageRequest) (*dto.MessageResponse, error)
	GetChatMessages(ctx context.Context, roomID string) ([]dto.MessageResponse, error)
}

type messageService struct {
	uowFactory     unitofwork.RepositoryFactory
	eventPublisher *pktNats.Publisher
	logger         logger.ILogger
}

func NewMessageService(uowFactory unitofwork.RepositoryFactory, eventPublisher *pktNats.Publisher, log logger.ILogger) IMessageService {
	return &messageService{
		uowFactory:     uowFactory,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

// CreateMessage appends to the room's history. The store assigns id and
// timestamp. There is deliberately no room existence check: appends
// succeed unconditionally for any well-formed room id.
func (s *messageService) CreateMessage(ctx context.Context, senderID uuid.UUID, req *dto.CreateMessageRequest) (*dto.MessageResponse, error) {
	chatID, err := uuid.Parse(req.RoomId)
	if err != nil {
		return nil, fmt.Errorf("invalid room id %q", req.RoomId)
	}

	message := &entity.Message{
		Id:       uuid.New(),
		ChatId:   chatID,
		SenderId: senderID,
		Body:     req.Body,
		Metadata: req.Metadata,
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.MessageRepository().Create(ctx, message); err != nil {
		return nil, err
	}

	s.publishMessageCreated(ctx, message)

	return toMessageResponse(message), nil
}

func (s *messageService) GetChatMessages(ctx context.Context, roomID string) ([]dto.MessageResponse, error) {
	chatID, err := uuid.Parse(roomID)
	if err != nil {
		return nil, fmt.Errorf("invalid room id %q", roomID)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByChatID{ChatID: chatID},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.MessageResponse, len(messages))
	for i, message := range messages {
		responses[i] = *toMessageResponse(message)
	}
	return responses, nil
}

func (s *messageService) publishMessageCreated(ctx context.Context, message *entity.Message) {
	if s.eventPublisher == nil {
		return
	}

	event := events.New(events.TypeMessageCreated, map[string]interface{}{
		"message_id": message.Id.String(),
		"chat_id":    message.ChatId.String(),
		"sender_id":  message.SenderId.String(),
	})
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Warn("MessageService", "Failed to publish MESSAGE_CREATED", map[string]interface{}{
			"message_id": message.Id,
			"error":      err.Error(),
		})
	}
}

func toMessageResponse(message *entity.Message) *dto.MessageResponse {
	return &dto.MessageResponse{
		Id:        message.Id.String(),
		RoomId:    message.ChatId.String(),
		SenderId:  message.SenderId.String(),
		Body:      message.Body,
		Metadata:  message.Metadata,
		CreatedAt: message.CreatedAt,
	}
}
