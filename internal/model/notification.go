package model

import "time"

type NotificationType string

const (
	NotificationLike                NotificationType = "like"
	NotificationComment             NotificationType = "comment"
	NotificationConnectionRequest   NotificationType = "connection_request"
	NotificationConnectionAccepted  NotificationType = "connection_accepted"
	NotificationMessage             NotificationType = "message"
	NotificationApplicationApproved NotificationType = "application_approved"
	NotificationApplicationRejected NotificationType = "application_rejected"
	NotificationPostMention         NotificationType = "post_mention"
	NotificationCommentMention      NotificationType = "comment_mention"
	NotificationWelcome             NotificationType = "welcome"
)

type Notification struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	Type              NotificationType  `json:"type"`
	Title             string            `json:"title"`
	Message           string            `json:"message"`
	ActionURL         string            `json:"action_url,omitempty"`
	RelatedEntityID   string            `json:"related_entity_id,omitempty"`
	RelatedEntityType string            `json:"related_entity_type,omitempty"`
	ActorID           string            `json:"actor_id,omitempty"`
	IsRead            bool              `json:"is_read"`
	IsDeleted         bool              `json:"is_deleted"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Icon maps a notification type to its display icon name. Unknown types fall
// back to the generic bell.
func (t NotificationType) Icon() string {
	switch t {
	case NotificationLike:
		return "heart"
	case NotificationComment:
		return "message-circle"
	case NotificationConnectionRequest, NotificationConnectionAccepted:
		return "user-plus"
	case NotificationMessage:
		return "mail"
	case NotificationApplicationApproved:
		return "check-circle"
	case NotificationApplicationRejected:
		return "x-circle"
	case NotificationPostMention, NotificationCommentMention:
		return "at-sign"
	case NotificationWelcome:
		return "hand"
	default:
		return "bell"
	}
}
