package entity

import (
	"time"

	"github.com/google/uuid"
)

// Message is immutable once persisted. CreatedAt is assigned by the store
// and defines per-chat ordering.
type Message struct {
	Id        uuid.UUID
	ChatId    uuid.UUID
	SenderId  uuid.UUID
	Body      string
	Metadata  map[string]interface{}
	CreatedAt time.Time
}
