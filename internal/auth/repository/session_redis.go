package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/medflow/medstock/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const redisSessionPrefix = "medstock:sess:"

// RedisSessionStore keeps sessions in Redis with a TTL matching their expiry
type RedisSessionStore struct {
	rdb *redis.Client
}

// NewRedisSessionStore creates a new Redis-backed session store
func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb}
}

func sessionKey(id string) string { return redisSessionPrefix + hashID(id) }

// Create stores a new session
func (r *RedisSessionStore) Create(ctx context.Context, s *Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired at %s", s.ExpiresAt.Format(time.RFC3339))
	}

	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := r.rdb.Set(ctx, sessionKey(s.ID), b, ttl).Err(); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Get returns an unexpired session or NotFound
func (r *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	b, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("session")
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	if s.Expired(time.Now()) {
		return nil, apperrors.NotFound("session")
	}

	s.ID = id
	return &s, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Health reports the store's reachability
func (r *RedisSessionStore) Health(ctx context.Context) map[string]string {
	status := map[string]string{"status": "up", "store": "redis"}

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := r.rdb.Ping(ctx).Err(); err != nil {
		status["status"] = "down"
		status["error"] = err.Error()
	}
	return status
}
