package model

import "time"

type ConversationType string

const (
	ConversationTypeDirect ConversationType = "direct"
	ConversationTypeGroup  ConversationType = "group"
)

type ParticipantRole string

const (
	RoleMember    ParticipantRole = "member"
	RoleModerator ParticipantRole = "moderator"
)

type Conversation struct {
	ID            string           `json:"id"`
	Type          ConversationType `json:"type"`
	Name          string           `json:"name,omitempty"`
	Description   string           `json:"description,omitempty"`
	CreatedBy     string           `json:"created_by"`
	LastMessageAt *time.Time       `json:"last_message_at,omitempty"`
	IsActive      bool             `json:"is_active"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type Participant struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	UserID         string          `json:"user_id"`
	Role           ParticipantRole `json:"role"`
	JoinedAt       time.Time       `json:"joined_at"`
	LastReadAt     time.Time       `json:"last_read_at"`
	IsActive       bool            `json:"is_active"`
}

// ConversationView is a conversation enriched for the caller's list:
// last message, participants as public profiles, unread flag and count.
type ConversationView struct {
	Conversation Conversation `json:"conversation"`
	LastMessage  *Message     `json:"last_message,omitempty"`
	Participants []UserPublic `json:"participants"`
	Unread       bool         `json:"unread"`
	UnreadCount  int          `json:"unread_count"`
}

// ConversationDetail carries the full participant records so clients can
// compute read receipts from each participant's last_read_at.
type ConversationDetail struct {
	Conversation Conversation  `json:"conversation"`
	Participants []Participant `json:"participants"`
	LastMessage  *Message      `json:"last_message,omitempty"`
	UnreadCount  int           `json:"unread_count"`
}
