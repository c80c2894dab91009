package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 24 * time.Hour

// Store keeps the single active session per user in Redis. The arena core
// only ever asks IsValid; Bind/Clear exist for the auth collaborator and
// for tests.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore connects to Redis at redisURL and pings it once.
func NewStore(redisURL string) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for session store")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb, ttl: defaultTTL}, nil
}

// NewStoreWithClient wraps an existing client. Used by tests.
func NewStoreWithClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, ttl: defaultTTL}
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func sessionKey(userID string) string { return "session:user:" + strings.TrimSpace(userID) }

// IsValid reports whether sessionID is the currently recorded session for
// userID. An absent record means no valid session.
func (s *Store) IsValid(ctx context.Context, userID, sessionID string) (bool, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(sessionID) == "" {
		return false, nil
	}
	cur, err := s.rdb.Get(ctx, sessionKey(userID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return cur == sessionID, nil
}

// Bind records sessionID as the single active session for userID,
// replacing any previous one.
func (s *Store) Bind(ctx context.Context, userID, sessionID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("invalid session binding")
	}
	return s.rdb.Set(ctx, sessionKey(userID), sessionID, s.ttl).Err()
}

// Clear removes the active session for userID.
func (s *Store) Clear(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, sessionKey(userID)).Err()
}
