package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/logger"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/model"
)

const notifCols = `id, user_id, notif_type, title, message, COALESCE(action_url,''),
	 COALESCE(related_entity_id,''), COALESCE(related_entity_type,''), COALESCE(actor_id,''),
	 is_read, is_deleted, metadata, created_at, updated_at`

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func scanNotification(s interface{ Scan(dest ...any) error }, n *model.Notification) error {
	return s.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.ActionURL,
		&n.RelatedEntityID, &n.RelatedEntityType, &n.ActorID,
		&n.IsRead, &n.IsDeleted, &n.Metadata, &n.CreatedAt, &n.UpdatedAt)
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	defer logger.DeferLogDuration("notif.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO notifications (id, user_id, notif_type, title, message, action_url, related_entity_id, related_entity_type, actor_id, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.ActionURL, n.RelatedEntityID, n.RelatedEntityType, n.ActorID, n.Metadata, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("notifRepo.Create: %w", err)
	}
	return nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	defer logger.DeferLogDuration("notif.GetByID", time.Now())()
	n := &model.Notification{}
	row := r.pool.QueryRow(ctx, `SELECT `+notifCols+` FROM notifications WHERE id = $1`, id)
	err := scanNotification(row, n)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("notifRepo.GetByID: %w", err)
	}
	return n, nil
}

// ListForUser returns the user's non-deleted notifications, newest first.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error) {
	defer logger.DeferLogDuration("notif.ListForUser", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+notifCols+` FROM notifications
		 WHERE user_id = $1 AND is_deleted = false
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("notifRepo.ListForUser query: %w", err)
	}
	defer rows.Close()

	notifs := make([]model.Notification, 0, limit)
	for rows.Next() {
		var n model.Notification
		if err := scanNotification(rows, &n); err != nil {
			return nil, fmt.Errorf("notifRepo.ListForUser scan: %w", err)
		}
		notifs = append(notifs, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notifRepo.ListForUser rows: %w", err)
	}
	return notifs, nil
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	defer logger.DeferLogDuration("notif.UnreadCount", time.Now())()
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false AND is_deleted = false`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("notifRepo.UnreadCount: %w", err)
	}
	return count, nil
}

// MarkRead flips is_read to true. The transition never reverts.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string, at time.Time) error {
	defer logger.DeferLogDuration("notif.MarkRead", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET is_read = true, updated_at = $1 WHERE id = $2 AND is_read = false`,
		at, id,
	)
	if err != nil {
		return fmt.Errorf("notifRepo.MarkRead: %w", err)
	}
	return nil
}

// MarkAllRead bulk-transitions every unread notification of the user in one
// statement, atomic from the caller's perspective.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) error {
	defer logger.DeferLogDuration("notif.MarkAllRead", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET is_read = true, updated_at = $1
		 WHERE user_id = $2 AND is_read = false AND is_deleted = false`,
		at, userID,
	)
	if err != nil {
		return fmt.Errorf("notifRepo.MarkAllRead: %w", err)
	}
	return nil
}

func (r *NotificationRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	defer logger.DeferLogDuration("notif.SoftDelete", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET is_deleted = true, updated_at = $1 WHERE id = $2`,
		at, id,
	)
	if err != nil {
		return fmt.Errorf("notifRepo.SoftDelete: %w", err)
	}
	return nil
}
