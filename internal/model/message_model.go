package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Message carries no foreign key to chats: appends succeed without a chat
// existence check, matching the store contract.
type Message struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatId    uuid.UUID      `gorm:"type:uuid;not null;index:idx_messages_chat_created,priority:1"`
	SenderId  uuid.UUID      `gorm:"type:uuid;not null"`
	Body      string         `gorm:"type:text;not null"`
	Metadata  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index:idx_messages_chat_created,priority:2"`
}

func (Message) TableName() string {
	return "messages"
}
