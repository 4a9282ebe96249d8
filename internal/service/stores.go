package service

import (
	"context"
	"time"

	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/model"
)

// Store interfaces consumed by the services. The pgx repositories satisfy
// them; tests use in-memory fakes.

type ConversationStore interface {
	Create(ctx context.Context, c *model.Conversation) error
	GetByID(ctx context.Context, id string) (*model.Conversation, error)
	FindDirect(ctx context.Context, userID1, userID2 string) (*model.Conversation, error)
	Deactivate(ctx context.Context, id string, at time.Time) error
	TouchLastMessage(ctx context.Context, id string, at time.Time) error
	AddParticipant(ctx context.Context, p *model.Participant) error
	GetParticipants(ctx context.Context, conversationID string) ([]model.Participant, error)
	GetParticipant(ctx context.Context, conversationID, userID string) (*model.Participant, error)
	IsActiveParticipant(ctx context.Context, conversationID, userID string) (bool, error)
	UpdateLastRead(ctx context.Context, conversationID, userID string, t time.Time) error
	ListForUser(ctx context.Context, userID string) ([]model.Conversation, error)
	UnreadCount(ctx context.Context, conversationID, userID string) (int, error)
}

type MessageStore interface {
	Create(ctx context.Context, m *model.Message) error
	GetByID(ctx context.Context, id string) (*model.Message, error)
	ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error)
	GetLast(ctx context.Context, conversationID string) (*model.Message, error)
	UpdateContent(ctx context.Context, id, content string, editedAt time.Time) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	GetByID(ctx context.Context, id string) (*model.Notification, error)
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

type UserStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

type PlanStore interface {
	GetByUser(ctx context.Context, userID string) (*model.MembershipPlan, error)
}

// SendLimiter is the Redis-backed messaging flood control. Nil disables it.
type SendLimiter interface {
	CheckSendRateLimit(ctx context.Context, userID string) (bool, error)
}

// DedupeStore claims notification dedupe keys. Nil disables deduplication,
// preserving at-least-once fan-out.
type DedupeStore interface {
	AcquireDedupeKey(ctx context.Context, key string) (bool, error)
}

// PushSender delivers a native (Web Push) notification. Nil disables pushes.
type PushSender interface {
	Notify(ctx context.Context, userID, title, body string, data map[string]string)
}

// EmailSender sends a notification copy by email. Nil disables email.
type EmailSender interface {
	SendNotification(ctx context.Context, to, title, message string) error
}

// EventSink receives realtime events for connected clients (the ws hub).
// Nil means clients rely on polling alone.
type EventSink interface {
	NotificationCreated(userID string, n *model.Notification)
}
