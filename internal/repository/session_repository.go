package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sistec/enquiry-backend/internal/config"
)

// SessionRepository keeps live session IDs in Redis so logout can revoke a signed token early.
type SessionRepository struct {
	rdb *redis.Client
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(rdb *redis.Client) *SessionRepository {
	return &SessionRepository{rdb: rdb}
}

// Save registers a session for ttl.
func (r *SessionRepository) Save(ctx context.Context, jti string, userID int, ttl time.Duration) error {
	return r.rdb.Set(ctx, config.CacheKey.SessionKey(jti), userID, ttl).Err()
}

// Owner returns the user ID a live session belongs to, or ok=false when it is unknown or expired.
func (r *SessionRepository) Owner(ctx context.Context, jti string) (userID int, ok bool, err error) {
	val, err := r.rdb.Get(ctx, config.CacheKey.SessionKey(jti)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get session: %w", err)
	}
	id, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt session value: %w", err)
	}
	return id, true, nil
}

// Delete revokes a session.
func (r *SessionRepository) Delete(ctx context.Context, jti string) error {
	return r.rdb.Del(ctx, config.CacheKey.SessionKey(jti)).Err()
}
