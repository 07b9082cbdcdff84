package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"sessionclock-backend/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps signed-in sessions and their refresh tokens.
type SessionStore interface {
	Save(ctx context.Context, s models.Session, ttl time.Duration) error
	Get(ctx context.Context, sessionID uuid.UUID) (models.Session, error)
	SessionIDForRefresh(ctx context.Context, refreshToken string) (uuid.UUID, error)
	DeleteRefresh(ctx context.Context, refreshToken string) error
	Delete(ctx context.Context, sessionID uuid.UUID) error
}

// RedisSessionStore stores "session:<id>" as JSON and "refresh:<token>" as
// the owning session id. Both keys share the refresh token TTL.
type RedisSessionStore struct {
	redis *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{redis: client}
}

func sessionKey(id uuid.UUID) string { return "session:" + id.String() }

func refreshKey(token string) string { return "refresh:" + token }

func (s *RedisSessionStore) Save(ctx context.Context, session models.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, sessionKey(session.ID), data, ttl)
	pipe.Set(ctx, refreshKey(session.RefreshToken), session.ID.String(), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, sessionID uuid.UUID) (models.Session, error) {
	data, err := s.redis.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to load session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return models.Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return session, nil
}

func (s *RedisSessionStore) SessionIDForRefresh(ctx context.Context, refreshToken string) (uuid.UUID, error) {
	raw, err := s.redis.Get(ctx, refreshKey(refreshToken)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrSessionNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to load refresh token: %w", err)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid session ID in refresh token: %w", err)
	}
	return id, nil
}

func (s *RedisSessionStore) DeleteRefresh(ctx context.Context, refreshToken string) error {
	return s.redis.Del(ctx, refreshKey(refreshToken)).Err()
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.Get(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.redis.Del(ctx, sessionKey(sessionID), refreshKey(session.RefreshToken)).Err()
}
