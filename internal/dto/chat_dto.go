package dto

import "time"

// CreateChatRequest is the create-chat payload. Participant ids must be
// non-empty strings; set semantics (ordering, duplicates) are handled by
// the registry, not validation.
type CreateChatRequest struct {
	Participants []string `json:"participants" validate:"required,min=1,dive,required"`
}

type ChatResponse struct {
	Id           string    `json:"id"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"createdAt"`
}
