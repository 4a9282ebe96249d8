package devstore

import (
	"context"

	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/repository"
	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/storage/memory"
)

// Client implements SessionStore for -dev mode: rate limit and dedupe keys in
// memory, session secrets in Postgres so sessions survive a restart.
type Client struct {
	mem  *memory.Client
	repo *repository.SessionRepository
}

func New(repo *repository.SessionRepository) *Client {
	return &Client{mem: memory.New(), repo: repo}
}

func (c *Client) Close() error { return c.mem.Close() }

func (c *Client) SetSessionSecret(ctx context.Context, sessionID, secret string) error {
	return c.repo.SetSessionSecret(ctx, sessionID, secret)
}

func (c *Client) GetSessionSecret(ctx context.Context, sessionID string) (string, error) {
	return c.repo.GetSessionSecret(ctx, sessionID)
}

func (c *Client) DeleteSessionSecret(ctx context.Context, sessionID string) error {
	return c.repo.ClearSessionSecret(ctx, sessionID)
}

func (c *Client) CheckSendRateLimit(ctx context.Context, userID string) (bool, error) {
	return c.mem.CheckSendRateLimit(ctx, userID)
}

func (c *Client) AcquireDedupeKey(ctx context.Context, key string) (bool, error) {
	return c.mem.AcquireDedupeKey(ctx, key)
}
