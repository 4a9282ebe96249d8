package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/apperr"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/logger"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/model"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/repository"
)

const notifListLimit = 50

// Notifier is the durable inbox of cross-cutting events. Message sends are
// one producer among several (likes, comments, connections, application
// review all call Notify through the same path).
type Notifier struct {
	notifs NotificationStore
	users  UserStore
	dedupe DedupeStore
	push   PushSender
	email  EmailSender
	events EventSink
}

func NewNotifier(notifs NotificationStore, users UserStore) *Notifier {
	return &Notifier{notifs: notifs, users: users}
}

// WithDedupe enables minute-bucket deduplication of equivalent notifications.
func (s *Notifier) WithDedupe(d DedupeStore) *Notifier { s.dedupe = d; return s }

// WithPush enables Web Push delivery alongside the inbox row.
func (s *Notifier) WithPush(p PushSender) *Notifier { s.push = p; return s }

// WithEmail enables email copies for application status notifications.
func (s *Notifier) WithEmail(e EmailSender) *Notifier { s.email = e; return s }

// WithEvents enables realtime delivery to connected clients.
func (s *Notifier) WithEvents(e EventSink) *Notifier { s.events = e; return s }

// NotifyOptions carries the optional notification fields.
type NotifyOptions struct {
	ActionURL         string
	RelatedEntityID   string
	RelatedEntityType string
	ActorID           string
	Metadata          map[string]string
}

// Notify creates one inbox row and triggers the configured side channels.
// Returns (nil, nil) when the notification is suppressed: users never receive
// notifications about their own actions, and deduped repeats are dropped.
func (s *Notifier) Notify(ctx context.Context, userID string, typ model.NotificationType, title, message string, opts *NotifyOptions) (*model.Notification, error) {
	if userID == "" || title == "" {
		return nil, apperr.Validation("user_id and title are required")
	}
	if opts == nil {
		opts = &NotifyOptions{}
	}
	if opts.ActorID != "" && opts.ActorID == userID {
		return nil, nil
	}

	now := time.Now().UTC()
	if s.dedupe != nil && opts.RelatedEntityID != "" {
		key := dedupeKey(userID, typ, opts.RelatedEntityID, now)
		acquired, err := s.dedupe.AcquireDedupeKey(ctx, key)
		if err != nil {
			// Dedupe is best-effort: on store failure fall back to
			// at-least-once creation rather than dropping the event.
			logger.Errorf("notify dedupe key %s: %v", key, err)
		} else if !acquired {
			return nil, nil
		}
	}

	n := &model.Notification{
		ID:                uuid.New().String(),
		UserID:            userID,
		Type:              typ,
		Title:             title,
		Message:           message,
		ActionURL:         opts.ActionURL,
		RelatedEntityID:   opts.RelatedEntityID,
		RelatedEntityType: opts.RelatedEntityType,
		ActorID:           opts.ActorID,
		Metadata:          opts.Metadata,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.notifs.Create(ctx, n); err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.NotificationCreated(userID, n)
	}
	if s.push != nil {
		data := map[string]string{"notification_id": n.ID}
		if n.ActionURL != "" {
			data["action_url"] = n.ActionURL
		}
		go s.push.Notify(context.Background(), userID, title, truncate(message, 120), data)
	}
	if s.email != nil && (typ == model.NotificationApplicationApproved || typ == model.NotificationApplicationRejected) {
		if u, err := s.users.GetByID(ctx, userID); err == nil && u.Email != "" {
			email := u.Email
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				if err := s.email.SendNotification(ctx, email, title, message); err != nil {
					logger.Errorf("notify email to=%s: %v", email, err)
				}
			}()
		}
	}
	return n, nil
}

// dedupeKey buckets equivalent notifications by minute, so a double-clicked
// like produces one row while a like an hour later produces another.
func dedupeKey(userID string, typ model.NotificationType, relatedID string, at time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%d", userID, typ, relatedID, at.Unix()/60)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// List returns the user's non-deleted notifications, newest first.
func (s *Notifier) List(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error) {
	if limit <= 0 || limit > notifListLimit {
		limit = notifListLimit
	}
	return s.notifs.ListForUser(ctx, userID, limit, offset)
}

func (s *Notifier) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.notifs.UnreadCount(ctx, userID)
}

// MarkRead transitions one notification to read. Owner-only.
func (s *Notifier) MarkRead(ctx context.Context, notificationID, userID string) error {
	n, err := s.owned(ctx, notificationID, userID)
	if err != nil {
		return err
	}
	if n.IsRead {
		return nil
	}
	return s.notifs.MarkRead(ctx, notificationID, time.Now().UTC())
}

// MarkAllRead bulk-transitions every unread notification of the user.
func (s *Notifier) MarkAllRead(ctx context.Context, userID string) error {
	return s.notifs.MarkAllRead(ctx, userID, time.Now().UTC())
}

// Delete soft-deletes one notification. Owner-only.
func (s *Notifier) Delete(ctx context.Context, notificationID, userID string) error {
	if _, err := s.owned(ctx, notificationID, userID); err != nil {
		return err
	}
	return s.notifs.SoftDelete(ctx, notificationID, time.Now().UTC())
}

func (s *Notifier) owned(ctx context.Context, notificationID, userID string) (*model.Notification, error) {
	n, err := s.notifs.GetByID(ctx, notificationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("notification not found")
	}
	if err != nil {
		return nil, err
	}
	if n.IsDeleted {
		return nil, apperr.NotFound("notification not found")
	}
	if n.UserID != userID {
		return nil, apperr.Forbidden("notification belongs to another user")
	}
	return n, nil
}
