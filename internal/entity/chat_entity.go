package entity

import (
	"time"

	"github.com/google/uuid"
)

// Chat is a room identified by its unordered participant set. The set is
// the idempotency key for creation: the same participants always resolve
// to the same chat.
type Chat struct {
	Id             uuid.UUID
	ParticipantIds []uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
