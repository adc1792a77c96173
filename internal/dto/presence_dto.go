package dto

import (
	"time"

	"github.com/google/uuid"
)

// PresenceChangedMessage travels over the in-process presence bus from
// the gateway to the presence worker.
type PresenceChangedMessage struct {
	UserId uuid.UUID `json:"user_id"`
	Online bool      `json:"online"`
	At     time.Time `json:"at"`
}
