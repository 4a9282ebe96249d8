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

const convCols = `id, conversation_type, COALESCE(name,''), COALESCE(description,''), created_by, last_message_at, is_active, created_at, updated_at`

type ConversationRepository struct {
	pool *pgxpool.Pool
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

func scanConversation(s interface{ Scan(dest ...any) error }, c *model.Conversation) error {
	return s.Scan(&c.ID, &c.Type, &c.Name, &c.Description, &c.CreatedBy, &c.LastMessageAt, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
}

func (r *ConversationRepository) Create(ctx context.Context, c *model.Conversation) error {
	defer logger.DeferLogDuration("conv.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO conversations (id, conversation_type, name, description, created_by, last_message_at, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.Type, c.Name, c.Description, c.CreatedBy, c.LastMessageAt, c.IsActive, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("convRepo.Create: %w", err)
	}
	return nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	defer logger.DeferLogDuration("conv.GetByID", time.Now())()
	c := &model.Conversation{}
	row := r.pool.QueryRow(ctx, `SELECT `+convCols+` FROM conversations WHERE id = $1`, id)
	err := scanConversation(row, c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("convRepo.GetByID: %w", err)
	}
	return c, nil
}

// FindDirect returns the active direct conversation between the unordered
// pair (userID1, userID2), if one exists.
func (r *ConversationRepository) FindDirect(ctx context.Context, userID1, userID2 string) (*model.Conversation, error) {
	defer logger.DeferLogDuration("conv.FindDirect", time.Now())()
	c := &model.Conversation{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+convCols+` FROM conversations c
		 WHERE c.conversation_type = 'direct' AND c.is_active = true
		   AND EXISTS (SELECT 1 FROM conversation_participants WHERE conversation_id = c.id AND user_id = $1 AND is_active = true)
		   AND EXISTS (SELECT 1 FROM conversation_participants WHERE conversation_id = c.id AND user_id = $2 AND is_active = true)`,
		userID1, userID2,
	)
	err := scanConversation(row, c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("convRepo.FindDirect: %w", err)
	}
	return c, nil
}

// Deactivate soft-deletes a conversation. Message rows are kept.
func (r *ConversationRepository) Deactivate(ctx context.Context, id string, at time.Time) error {
	defer logger.DeferLogDuration("conv.Deactivate", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE conversations SET is_active = false, updated_at = $1 WHERE id = $2`,
		at, id,
	)
	if err != nil {
		return fmt.Errorf("convRepo.Deactivate: %w", err)
	}
	return nil
}

// TouchLastMessage advances last_message_at; it never moves backwards so
// conversation-list ordering stays stable under concurrent sends.
func (r *ConversationRepository) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	defer logger.DeferLogDuration("conv.TouchLastMessage", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE conversations
		 SET last_message_at = GREATEST(COALESCE(last_message_at, 'epoch'::timestamptz), $1), updated_at = $1
		 WHERE id = $2`,
		at, id,
	)
	if err != nil {
		return fmt.Errorf("convRepo.TouchLastMessage: %w", err)
	}
	return nil
}

func (r *ConversationRepository) AddParticipant(ctx context.Context, p *model.Participant) error {
	defer logger.DeferLogDuration("conv.AddParticipant", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO conversation_participants (id, conversation_id, user_id, role, joined_at, last_read_at, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (conversation_id, user_id) DO UPDATE SET is_active = true`,
		p.ID, p.ConversationID, p.UserID, p.Role, p.JoinedAt, p.LastReadAt, p.IsActive,
	)
	if err != nil {
		return fmt.Errorf("convRepo.AddParticipant: %w", err)
	}
	return nil
}

func (r *ConversationRepository) RemoveParticipant(ctx context.Context, conversationID, userID string) error {
	defer logger.DeferLogDuration("conv.RemoveParticipant", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE conversation_participants SET is_active = false WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, userID,
	)
	if err != nil {
		return fmt.Errorf("convRepo.RemoveParticipant: %w", err)
	}
	return nil
}

func (r *ConversationRepository) GetParticipants(ctx context.Context, conversationID string) ([]model.Participant, error) {
	defer logger.DeferLogDuration("conv.GetParticipants", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, conversation_id, user_id, role, joined_at, last_read_at, is_active
		 FROM conversation_participants
		 WHERE conversation_id = $1 AND is_active = true
		 ORDER BY joined_at`, conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("convRepo.GetParticipants query: %w", err)
	}
	defer rows.Close()

	parts := make([]model.Participant, 0, 8)
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.ConversationID, &p.UserID, &p.Role, &p.JoinedAt, &p.LastReadAt, &p.IsActive); err != nil {
			return nil, fmt.Errorf("convRepo.GetParticipants scan: %w", err)
		}
		parts = append(parts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("convRepo.GetParticipants rows: %w", err)
	}
	return parts, nil
}

func (r *ConversationRepository) GetParticipant(ctx context.Context, conversationID, userID string) (*model.Participant, error) {
	defer logger.DeferLogDuration("conv.GetParticipant", time.Now())()
	p := &model.Participant{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, conversation_id, user_id, role, joined_at, last_read_at, is_active
		 FROM conversation_participants
		 WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, userID,
	).Scan(&p.ID, &p.ConversationID, &p.UserID, &p.Role, &p.JoinedAt, &p.LastReadAt, &p.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("convRepo.GetParticipant: %w", err)
	}
	return p, nil
}

func (r *ConversationRepository) IsActiveParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	defer logger.DeferLogDuration("conv.IsActiveParticipant", time.Now())()
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM conversation_participants
		 WHERE conversation_id = $1 AND user_id = $2 AND is_active = true)`,
		conversationID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("convRepo.IsActiveParticipant: %w", err)
	}
	return exists, nil
}

// UpdateLastRead advances the participant's read cursor. GREATEST keeps it
// monotonic under concurrent mark-read calls from multiple devices.
func (r *ConversationRepository) UpdateLastRead(ctx context.Context, conversationID, userID string, t time.Time) error {
	defer logger.DeferLogDuration("conv.UpdateLastRead", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE conversation_participants
		 SET last_read_at = GREATEST(last_read_at, $1)
		 WHERE conversation_id = $2 AND user_id = $3`,
		t, conversationID, userID,
	)
	if err != nil {
		return fmt.Errorf("convRepo.UpdateLastRead: %w", err)
	}
	return nil
}

// ListForUser returns the caller's active conversations ordered by
// last_message_at descending (conversations without messages sort last).
func (r *ConversationRepository) ListForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	defer logger.DeferLogDuration("conv.ListForUser", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+convCols+` FROM conversations c
		 JOIN conversation_participants cp ON cp.conversation_id = c.id
		 WHERE cp.user_id = $1 AND cp.is_active = true AND c.is_active = true
		 ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("convRepo.ListForUser query: %w", err)
	}
	defer rows.Close()

	convs := make([]model.Conversation, 0, 16)
	for rows.Next() {
		var c model.Conversation
		if err := scanConversation(rows, &c); err != nil {
			return nil, fmt.Errorf("convRepo.ListForUser scan: %w", err)
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("convRepo.ListForUser rows: %w", err)
	}
	return convs, nil
}

// UnreadCount counts messages from other senders created after the caller's
// read cursor, excluding soft-deleted rows.
func (r *ConversationRepository) UnreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	defer logger.DeferLogDuration("conv.UnreadCount", time.Now())()
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages m
		 JOIN conversation_participants cp ON cp.conversation_id = m.conversation_id AND cp.user_id = $2
		 WHERE m.conversation_id = $1 AND m.sender_id != $2
		   AND m.created_at > cp.last_read_at AND m.is_deleted = false`,
		conversationID, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("convRepo.UnreadCount: %w", err)
	}
	return count, nil
}
