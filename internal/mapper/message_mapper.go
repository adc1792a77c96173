package mapper

import (
	"encoding/json"

	"realtime-chat-be/internal/entity"
	"realtime-chat-be/internal/model"

	"gorm.io/datatypes"
)

type MessageMapper struct{}

func NewMessageMapper() *MessageMapper {
	return &MessageMapper{}
}

func (m *MessageMapper) ToModel(e *entity.Message) *model.Message {
	var meta datatypes.JSON
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err == nil {
			meta = datatypes.JSON(raw)
		}
	}
	return &model.Message{
		Id:        e.Id,
		ChatId:    e.ChatId,
		SenderId:  e.SenderId,
		Body:      e.Body,
		Metadata:  meta,
		CreatedAt: e.CreatedAt,
	}
}

func (m *MessageMapper) ToEntity(msg *model.Message) *entity.Message {
	var meta map[string]interface{}
	if len(msg.Metadata) > 0 {
		// Corrupt metadata is dropped rather than failing the read.
		_ = json.Unmarshal(msg.Metadata, &meta)
	}
	return &entity.Message{
		Id:        msg.Id,
		ChatId:    msg.ChatId,
		SenderId:  msg.SenderId,
		Body:      msg.Body,
		Metadata:  meta,
		CreatedAt: msg.CreatedAt,
	}
}

func (m *MessageMapper) ToEntities(models []*model.Message) []*entity.Message {
	entities := make([]*entity.Message, len(models))
	for i, msg := range models {
		entities[i] = m.ToEntity(msg)
	}
	return entities
}
