package model

import (
	"time"

	"github.com/google/uuid"
)

// Chat rows are unique per participant set. ParticipantsKey is the sorted,
// de-duplicated participant id list joined with commas; the unique index on
// it makes find-or-create idempotent even under concurrent creation.
type Chat struct {
	Id              uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ParticipantsKey string            `gorm:"type:text;uniqueIndex;not null"`
	Participants    []ChatParticipant `gorm:"foreignKey:ChatId"`
	CreatedAt       time.Time         `gorm:"autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime"`
}

func (Chat) TableName() string {
	return "chats"
}

type ChatParticipant struct {
	ChatId    uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ChatParticipant) TableName() string {
	return "chat_participants"
}
