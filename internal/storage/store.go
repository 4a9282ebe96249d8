package storage

import "context"

// SessionStore holds session secrets (for request-signature validation),
// per-user send rate limiting, and notification dedupe keys.
// Implementations: redis.Client, memory.Client (for -dev without Redis),
// devstore.Client (secrets in Postgres, the rest in memory).
type SessionStore interface {
	SetSessionSecret(ctx context.Context, sessionID, secret string) error
	GetSessionSecret(ctx context.Context, sessionID string) (string, error)
	DeleteSessionSecret(ctx context.Context, sessionID string) error

	// CheckSendRateLimit reports whether the user may send another message
	// within the current window (messaging flood control).
	CheckSendRateLimit(ctx context.Context, userID string) (allowed bool, err error)

	// AcquireDedupeKey claims a notification dedupe key. It returns false
	// when the key is already held, meaning an equivalent notification was
	// created in the same time bucket.
	AcquireDedupeKey(ctx context.Context, key string) (acquired bool, err error)

	Close() error
}
