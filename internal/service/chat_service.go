package service

import (
	"context"
	"fmt"

	"realtime-chat-be/internal/dto"
	"realtime-chat-be/internal/entity"
	"realtime-chat-be/internal/mapper"
	"realtime-chat-be/internal/pkg/logger"
	"realtime-chat-be/internal/repository/specification"
	"realtime-chat-be/internal/repository/unitofwork"
	"realtime-chat-be/pkg/events"
	pktNats "realtime-chat-be/pkg/nats"

	"github.com/google/uuid"
)

type IChatService interface {
	FindOrCreateChat(ctx context.Context, participantIds []string) (*dto.ChatResponse, bool, error)
	GetUserChats(ctx context.Context, userID uuid.UUID) ([]dto.ChatResponse, error)
	UpdateUserOnlineStatus(ctx context.Context, userID uuid.UUID, online bool) error
}

type chatService struct {
	uowFactory     unitofwork.RepositoryFactory
	eventPublisher *pktNats.Publisher
	logger         logger.ILogger
}

func NewChatService(uowFactory unitofwork.RepositoryFactory, eventPublisher *pktNats.Publisher, log logger.ILogger) IChatService {
	return &chatService{
		uowFactory:     uowFactory,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

// FindOrCreateChat resolves the participant set to its chat, creating it
// when absent. The second return value reports whether a new chat was
// created. Repeated calls with any ordering or duplication of the same
// ids return the same chat.
func (s *chatService) FindOrCreateChat(ctx context.Context, participantIds []string) (*dto.ChatResponse, bool, error) {
	ids, err := parseParticipantIds(participantIds)
	if err != nil {
		return nil, false, err
	}

	normalized := mapper.NormalizeParticipants(ids)
	key := mapper.ParticipantsKey(normalized)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ChatRepository()

	existing, err := repo.FindOne(ctx, specification.ByParticipantsKey{Key: key})
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return toChatResponse(existing), false, nil
	}

	chat := &entity.Chat{
		Id:             uuid.New(),
		ParticipantIds: normalized,
	}
	if createErr := repo.Create(ctx, chat); createErr != nil {
		// A concurrent request may have won the race on the unique
		// participants key; resolve to its chat instead of failing.
		existing, err = repo.FindOne(ctx, specification.ByParticipantsKey{Key: key})
		if err == nil && existing != nil {
			return toChatResponse(existing), false, nil
		}
		return nil, false, createErr
	}

	s.publishChatCreated(ctx, chat)

	return toChatResponse(chat), true, nil
}

func (s *chatService) GetUserChats(ctx context.Context, userID uuid.UUID) ([]dto.ChatResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	chats, err := uow.ChatRepository().FindAll(ctx,
		specification.HasParticipant{UserID: userID},
		specification.OrderBy{Field: "chats.created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ChatResponse, len(chats))
	for i, chat := range chats {
		responses[i] = *toChatResponse(chat)
	}
	return responses, nil
}

func (s *chatService) UpdateUserOnlineStatus(ctx context.Context, userID uuid.UUID, online bool) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.UserRepository().SetOnlineStatus(ctx, userID, online)
}

func (s *chatService) publishChatCreated(ctx context.Context, chat *entity.Chat) {
	if s.eventPublisher == nil {
		return
	}

	participants := make([]string, len(chat.ParticipantIds))
	for i, id := range chat.ParticipantIds {
		participants[i] = id.String()
	}

	event := events.New(events.TypeChatCreated, map[string]interface{}{
		"chat_id":      chat.Id.String(),
		"participants": participants,
	})
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Warn("ChatService", "Failed to publish CHAT_CREATED", map[string]interface{}{
			"chat_id": chat.Id,
			"error":   err.Error(),
		})
	}
}

func parseParticipantIds(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(raw))
	for i, idStr := range raw {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid participant id %q", idStr)
		}
		ids[i] = id
	}
	return ids, nil
}

func toChatResponse(chat *entity.Chat) *dto.ChatResponse {
	participants := make([]string, len(chat.ParticipantIds))
	for i, id := range chat.ParticipantIds {
		participants[i] = id.String()
	}
	return &dto.ChatResponse{
		Id:           chat.Id.String(),
		Participants: participants,
		CreatedAt:    chat.CreatedAt,
	}
}
