package mapper

import (
	"sort"
	"strings"

	"realtime-chat-be/internal/entity"
	"realtime-chat-be/internal/model"

	"github.com/google/uuid"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// NormalizeParticipants collapses duplicates and sorts the ids so that
// any ordering of the same set yields the same slice and key.
func NormalizeParticipants(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

// ParticipantsKey builds the idempotency key for a participant set.
// Callers must pass a normalized slice.
func ParticipantsKey(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func (m *ChatMapper) ToModel(e *entity.Chat) *model.Chat {
	normalized := NormalizeParticipants(e.ParticipantIds)
	participants := make([]model.ChatParticipant, len(normalized))
	for i, id := range normalized {
		participants[i] = model.ChatParticipant{ChatId: e.Id, UserId: id}
	}
	return &model.Chat{
		Id:              e.Id,
		ParticipantsKey: ParticipantsKey(normalized),
		Participants:    participants,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func (m *ChatMapper) ToEntity(c *model.Chat) *entity.Chat {
	ids := make([]uuid.UUID, len(c.Participants))
	for i, p := range c.Participants {
		ids[i] = p.UserId
	}
	return &entity.Chat{
		Id:             c.Id,
		ParticipantIds: ids,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
