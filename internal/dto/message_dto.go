package dto

import "time"

// CreateMessageRequest is the send-message payload. The sender is taken
// from the authenticated session, never from the payload.
type CreateMessageRequest struct {
	RoomId   string                 `json:"roomId" validate:"required"`
	Body     string                 `json:"body" validate:"required"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type MessageResponse struct {
	Id        string                 `json:"id"`
	RoomId    string                 `json:"roomId"`
	SenderId  string                 `json:"senderId"`
	Body      string                 `json:"body"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}
