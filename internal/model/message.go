package model

import "time"

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeFile   MessageType = "file"
	MessageTypeSystem MessageType = "system"
)

type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	SenderID       string      `json:"sender_id"`
	Content        string      `json:"content"`
	MessageType    MessageType `json:"message_type"`
	AttachmentURL  string      `json:"attachment_url,omitempty"`
	ReplyToID      *string     `json:"reply_to_id,omitempty"`
	IsEdited       bool        `json:"is_edited"`
	EditedAt       *time.Time  `json:"edited_at,omitempty"`
	IsDeleted      bool        `json:"is_deleted"`
	DeletedAt      *time.Time  `json:"deleted_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	Sender         *UserPublic `json:"sender,omitempty"`
	ReplyTo        *Message    `json:"reply_to,omitempty"`
}

// AllReadBy reports whether a message sent by senderID at createdAt has been
// seen by every other active participant: their last_read_at must be at or
// past the message's created_at. Recomputed from current participant state on
// every call, never cached.
func AllReadBy(participants []Participant, senderID string, createdAt time.Time) bool {
	for i := range participants {
		p := &participants[i]
		if p.UserID == senderID || !p.IsActive {
			continue
		}
		if p.LastReadAt.Before(createdAt) {
			return false
		}
	}
	return true
}

// UnreadFor reports whether the message arrived after the viewing
// participant's read cursor. Own messages never count as unread.
func (m *Message) UnreadFor(p *Participant) bool {
	if m == nil || p == nil || m.SenderID == p.UserID {
		return false
	}
	return m.CreatedAt.After(p.LastReadAt)
}
