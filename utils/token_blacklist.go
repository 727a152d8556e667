package utils

import (
	"context"
	"time"
)

const blacklistPrefix = "jwt:blacklist:"

// BlacklistToken revokes a token until its natural expiration.
func BlacklistToken(ctx context.Context, store Store, token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	store.Set(ctx, blacklistPrefix+token, []byte("1"), ttl)
}

// IsTokenBlacklisted checks if a token was revoked before natural expiration.
func IsTokenBlacklisted(ctx context.Context, store Store, token string) bool {
	return store.Exists(ctx, blacklistPrefix+token)
}
