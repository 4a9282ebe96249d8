package memory

import (
	"context"
	"sync"
	"time"
)

const (
	sendRateLimitWindow = 60 * time.Second
	sendRateLimitMax    = 30
	dedupeKeyTTL        = 120 * time.Second
	sessionSecretTTL    = 30 * 24 * time.Hour
)

type item struct {
	val string
	exp time.Time
}

// Client is the in-memory SessionStore used in -dev mode and in tests.
type Client struct {
	mu      sync.RWMutex
	secrets map[string]item
	sends   map[string][]time.Time
	dedupe  map[string]time.Time
}

func New() *Client {
	return &Client{
		secrets: make(map[string]item),
		sends:   make(map[string][]time.Time),
		dedupe:  make(map[string]time.Time),
	}
}

func (c *Client) Close() error { return nil }

func (c *Client) SetSessionSecret(ctx context.Context, sessionID, secret string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.secrets[sessionID] = item{val: secret, exp: time.Now().Add(sessionSecretTTL)}
	return nil
}

func (c *Client) GetSessionSecret(ctx context.Context, sessionID string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.secrets[sessionID]
	if !ok || time.Now().After(v.exp) {
		return "", nil
	}
	return v.val, nil
}

func (c *Client) DeleteSessionSecret(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.secrets, sessionID)
	return nil
}

func (c *Client) CheckSendRateLimit(ctx context.Context, userID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	cutoff := now.Add(-sendRateLimitWindow)
	slice := c.sends[userID]
	i := 0
	for _, t := range slice {
		if t.After(cutoff) {
			slice[i] = t
			i++
		}
	}
	slice = slice[:i]
	if len(slice) >= sendRateLimitMax {
		c.sends[userID] = slice
		return false, nil
	}
	c.sends[userID] = append(slice, now)
	return true, nil
}

func (c *Client) AcquireDedupeKey(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if exp, ok := c.dedupe[key]; ok && now.Before(exp) {
		return false, nil
	}
	c.dedupe[key] = now.Add(dedupeKeyTTL)
	return true, nil
}
