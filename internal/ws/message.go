package ws

import "time"

type EventType string

const (
	EventNewMessage          EventType = "new_message"
	EventMessageEdited       EventType = "message_edited"
	EventMessageDeleted      EventType = "message_deleted"
	EventConversationRead    EventType = "conversation_read"
	EventTyping              EventType = "typing"
	EventUserOnline          EventType = "user_online"
	EventUserOffline         EventType = "user_offline"
	EventConversationCreated EventType = "conversation_created"
	EventConversationDeleted EventType = "conversation_deleted"
	EventNotification        EventType = "notification"
	EventError               EventType = "error"
)

// IncomingMessage is what the client sends to the server.
type IncomingMessage struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Content        string    `json:"content,omitempty"`

	// For edit/delete
	MessageID string `json:"message_id,omitempty"`
}

// OutgoingMessage is what the server sends to the client.
// Payload uses typed structs to avoid heap-heavy map[string]any.
type OutgoingMessage struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// MessageEditedPayload is broadcast when a message is edited.
type MessageEditedPayload struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	EditedAt       time.Time `json:"edited_at"`
}

// MessageDeletedPayload is broadcast when a message is deleted.
type MessageDeletedPayload struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
}

// ConversationReadPayload is broadcast when a participant's read cursor
// advances; clients recompute read receipts from it.
type ConversationReadPayload struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	LastReadAt     time.Time `json:"last_read_at"`
}

// TypingPayload is broadcast while a user is typing.
type TypingPayload struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

// UserStatusPayload is broadcast for online/offline transitions.
type UserStatusPayload struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}

// ConversationDeletedPayload is broadcast when a conversation is removed.
type ConversationDeletedPayload struct {
	ConversationID string `json:"conversation_id"`
	DeletedBy      string `json:"deleted_by"`
}
