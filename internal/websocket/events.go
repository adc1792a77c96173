package websocket

import "encoding/json"

// Inbound event names (client -> server) on the chat namespace.
const (
	EventJoin               = "join"
	EventLeave              = "leave"
	EventSendMessage        = "send-message"
	EventRequestAllMessages = "request-all-messages"
	EventCreateChat         = "create-chat"
	EventRequestAllChats    = "request-all-chats"
)

// Outbound event names (server -> client).
const (
	EventUserJoined        = "user-joined"
	EventUserLeft          = "user-left"
	EventMessageReceived   = "message-received"
	EventSendAllMessages   = "send-all-messages"
	EventChatAlreadyExists = "chat-already-exists"
	EventSendAllChats      = "send-all-chats"
	EventError             = "error"
)

// Frame is the wire envelope for every event on the connection.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ErrorPayload is the body of an "error" event.
type ErrorPayload struct {
	Message string `json:"message"`
}

// UserPayload is the body of "user-joined" and "user-left" events.
type UserPayload struct {
	UserId string `json:"userId"`
}

// NewFrame marshals an event with its payload into a wire frame.
func NewFrame(event string, data interface{}) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = encoded
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}
