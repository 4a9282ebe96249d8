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

// SessionRepository reads session rows issued by the membership back office.
// The API only validates and touches them.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// GetByID returns the session if it exists and is not revoked.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.Session, error) {
	defer logger.DeferLogDuration("session.GetByID", time.Now())()
	s := &model.Session{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, COALESCE(device_id,''), COALESCE(device_name,''), secret_hash, last_seen_at, created_at, revoked_at
		 FROM sessions WHERE id = $1 AND revoked_at IS NULL`, id,
	).Scan(&s.ID, &s.UserID, &s.DeviceID, &s.DeviceName, &s.SecretHash, &s.LastSeenAt, &s.CreatedAt, &s.RevokedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sessionRepo.GetByID: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) UpdateLastSeen(ctx context.Context, id string, t time.Time) error {
	defer logger.DeferLogDuration("session.UpdateLastSeen", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions SET last_seen_at = $1 WHERE id = $2`, t, id,
	)
	if err != nil {
		return fmt.Errorf("sessionRepo.UpdateLastSeen: %w", err)
	}
	return nil
}

// SetSessionSecret stores the session secret in the row (used by -dev so
// sessions survive a restart without Redis).
func (r *SessionRepository) SetSessionSecret(ctx context.Context, id, secret string) error {
	defer logger.DeferLogDuration("session.SetSessionSecret", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions SET session_secret = $1 WHERE id = $2 AND revoked_at IS NULL`, secret, id,
	)
	if err != nil {
		return fmt.Errorf("sessionRepo.SetSessionSecret: %w", err)
	}
	return nil
}

// GetSessionSecret returns the stored secret, empty if the column is NULL.
func (r *SessionRepository) GetSessionSecret(ctx context.Context, id string) (string, error) {
	defer logger.DeferLogDuration("session.GetSessionSecret", time.Now())()
	var secret *string
	err := r.pool.QueryRow(ctx,
		`SELECT session_secret FROM sessions WHERE id = $1 AND revoked_at IS NULL`, id,
	).Scan(&secret)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("sessionRepo.GetSessionSecret: %w", err)
	}
	if secret == nil {
		return "", nil
	}
	return *secret, nil
}

func (r *SessionRepository) ClearSessionSecret(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("session.ClearSessionSecret", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions SET session_secret = NULL WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("sessionRepo.ClearSessionSecret: %w", err)
	}
	return nil
}
