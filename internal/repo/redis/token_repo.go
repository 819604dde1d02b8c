package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/relun/backend/internal/domain/errs"
)

const revokedPrefix = "revoked:"

// TokenRepo remembers revoked token ids until the token would have expired.
type TokenRepo struct {
	client *goredis.Client
}

func NewTokenRepo(client *goredis.Client) *TokenRepo {
	return &TokenRepo{client: client}
}

func (r *TokenRepo) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(tokenID) == "" {
		return fmt.Errorf("token id is required")
	}

	if err := r.client.Set(ctx, revokedPrefix+tokenID, 1, ttlFor(expiresAt)).Err(); err != nil {
		return fmt.Errorf("revoke token: %w: %w", errs.ErrUnavailable, err)
	}
	return nil
}

func (r *TokenRepo) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	n, err := r.client.Exists(ctx, revokedPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w: %w", errs.ErrUnavailable, err)
	}
	return n > 0, nil
}

func ttlFor(expiresAt time.Time) time.Duration {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return time.Second
	}
	return ttl
}
