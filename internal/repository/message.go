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

const msgCols = `m.id, m.conversation_id, m.sender_id, m.content, m.message_type, COALESCE(m.attachment_url,''),
	        m.reply_to_id, m.is_edited, m.edited_at, m.is_deleted, m.deleted_at, m.created_at, m.updated_at,
	        u.id, u.username, u.full_name, u.avatar_url, u.plan_tier, u.is_online, u.last_seen_at`

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func scanMessage(s interface{ Scan(dest ...any) error }) (*model.Message, error) {
	m := &model.Message{}
	sender := &model.UserPublic{}
	err := s.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.MessageType, &m.AttachmentURL,
		&m.ReplyToID, &m.IsEdited, &m.EditedAt, &m.IsDeleted, &m.DeletedAt, &m.CreatedAt, &m.UpdatedAt,
		&sender.ID, &sender.Username, &sender.FullName, &sender.AvatarURL, &sender.PlanTier, &sender.IsOnline, &sender.LastSeenAt)
	if err != nil {
		return nil, err
	}
	m.Sender = sender
	return m, nil
}

func (r *MessageRepository) Create(ctx context.Context, m *model.Message) error {
	defer logger.DeferLogDuration("msg.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, content, message_type, attachment_url, reply_to_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.ConversationID, m.SenderID, m.Content, m.MessageType, m.AttachmentURL, m.ReplyToID, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("msgRepo.Create: %w", err)
	}
	return nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.GetByID", time.Now())()
	row := r.pool.QueryRow(ctx,
		`SELECT `+msgCols+`
		 FROM messages m
		 JOIN users u ON u.id = m.sender_id
		 WHERE m.id = $1`, id,
	)
	m, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("msgRepo.GetByID: %w", err)
	}
	return m, nil
}

// ListByConversation returns non-deleted messages in chronological order
// (created_at ascending), the only ordering guarantee the API gives.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error) {
	defer logger.DeferLogDuration("msg.ListByConversation", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+msgCols+`
		 FROM messages m
		 JOIN users u ON u.id = m.sender_id
		 WHERE m.conversation_id = $1 AND m.is_deleted = false
		 ORDER BY m.created_at ASC
		 LIMIT $2 OFFSET $3`, conversationID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.ListByConversation query: %w", err)
	}
	defer rows.Close()

	messages := make([]model.Message, 0, limit)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("msgRepo.ListByConversation scan: %w", err)
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("msgRepo.ListByConversation rows: %w", err)
	}
	return messages, nil
}

func (r *MessageRepository) GetLast(ctx context.Context, conversationID string) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.GetLast", time.Now())()
	row := r.pool.QueryRow(ctx,
		`SELECT `+msgCols+`
		 FROM messages m
		 JOIN users u ON u.id = m.sender_id
		 WHERE m.conversation_id = $1 AND m.is_deleted = false
		 ORDER BY m.created_at DESC
		 LIMIT 1`, conversationID,
	)
	m, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("msgRepo.GetLast: %w", err)
	}
	return m, nil
}

// UpdateContent replaces a message's content and records the edit.
// created_at is untouched: ordering is by created_at, never edited_at.
func (r *MessageRepository) UpdateContent(ctx context.Context, id, content string, editedAt time.Time) error {
	defer logger.DeferLogDuration("msg.UpdateContent", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE messages SET content = $1, is_edited = true, edited_at = $2, updated_at = $2 WHERE id = $3`,
		content, editedAt, id,
	)
	if err != nil {
		return fmt.Errorf("msgRepo.UpdateContent: %w", err)
	}
	return nil
}

// SoftDelete marks a message deleted. The row stays for audit; listings
// exclude it, so clients see a hard removal with no tombstone.
func (r *MessageRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	defer logger.DeferLogDuration("msg.SoftDelete", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE messages SET is_deleted = true, deleted_at = $1, updated_at = $1 WHERE id = $2`,
		at, id,
	)
	if err != nil {
		return fmt.Errorf("msgRepo.SoftDelete: %w", err)
	}
	return nil
}
