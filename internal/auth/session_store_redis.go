package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisSessionPrefix = "session:"

// RedisSessionStore keeps sessions in Redis, letting the server expire them.
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore builds a session store talking to the given Redis server.
func NewRedisSessionStore(addr, password string) *RedisSessionStore {
	return &RedisSessionStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
	}
}

// Save writes the token -> user mapping with a TTL matching the session expiry.
func (s *RedisSessionStore) Save(ctx context.Context, session Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session for user %s already expired", session.UserID)
	}
	key := redisSessionPrefix + session.Token
	if err := s.client.Set(ctx, key, session.UserID, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Find resolves a token to its session. Redis owns expiry, so the returned
// ExpiresAt reflects the remaining TTL.
func (s *RedisSessionStore) Find(ctx context.Context, token string) (Session, error) {
	key := redisSessionPrefix + token

	userID, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("find session: %w", err)
	}

	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return Session{}, fmt.Errorf("session ttl: %w", err)
	}

	return Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}, nil
}

// Delete removes the token mapping.
func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, redisSessionPrefix+token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Close releases the underlying Redis client.
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}
