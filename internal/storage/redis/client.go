package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Send rate limit: 30 messages per minute per user. Dedupe keys outlive
// their minute bucket slightly so late duplicates are still caught.
const (
	SendRateLimitWindow = 60
	SendRateLimitMax    = 30
	DedupeKeyTTL        = 120
	SessionSecretTTL    = 30 * 24 * 3600
)

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

func (c *Client) SetSessionSecret(ctx context.Context, sessionID, secret string) error {
	return c.cli.Set(ctx, "session_secret:"+sessionID, secret, SessionSecretTTL*time.Second).Err()
}

func (c *Client) GetSessionSecret(ctx context.Context, sessionID string) (string, error) {
	val, err := c.cli.Get(ctx, "session_secret:"+sessionID).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (c *Client) DeleteSessionSecret(ctx context.Context, sessionID string) error {
	return c.cli.Del(ctx, "session_secret:"+sessionID).Err()
}

// CheckSendRateLimit counts sends in send_limit:{userID}: at most
// SendRateLimitMax per window. The delivery engine rejects over-limit sends.
func (c *Client) CheckSendRateLimit(ctx context.Context, userID string) (bool, error) {
	key := "send_limit:" + userID
	n, err := c.cli.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		c.cli.Expire(ctx, key, SendRateLimitWindow*time.Second)
	}
	return n <= int64(SendRateLimitMax), nil
}

// AcquireDedupeKey claims notif_dedupe:{key} with SETNX. A second claim
// within the TTL fails, suppressing a duplicate notification.
func (c *Client) AcquireDedupeKey(ctx context.Context, key string) (bool, error) {
	return c.cli.SetNX(ctx, "notif_dedupe:"+key, "1", DedupeKeyTTL*time.Second).Result()
}
