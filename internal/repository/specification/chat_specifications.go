package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByParticipantsKey matches the chat whose normalized participant set
// produced the given key.
type ByParticipantsKey struct {
	Key string
}

func (s ByParticipantsKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("participants_key = ?", s.Key)
}

// HasParticipant matches chats the given user belongs to.
type HasParticipant struct {
	UserID uuid.UUID
}

func (s HasParticipant) Apply(db *gorm.DB) *gorm.DB {
	return db.Joins("JOIN chat_participants cp ON cp.chat_id = chats.id").
		Where("cp.user_id = ?", s.UserID)
}

// ByChatID filters messages by their chat.
type ByChatID struct {
	ChatID uuid.UUID
}

func (s ByChatID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_id = ?", s.ChatID)
}
