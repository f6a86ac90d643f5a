// Package session holds the active task handle per flow in redis so an
// interrupted session can re-attach its poll loop. Results are never stored.
package session

import (
	"context"
	"fmt"
	"time"

	"dishscout/internal/common/config"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "dishscout:active_task:"

// Tasks older than this are considered abandoned on the server side anyway.
const defaultTTL = 1 * time.Hour

// Store wraps the redis client behind the two operations the controller needs.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a session store from configuration.
func New(cfg config.SessionConfig) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	return &Store{client: rdb, ttl: defaultTTL}, nil
}

// NewWithClient wraps an existing redis client (used by tests).
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client, ttl: defaultTTL}
}

// Ping tests the redis connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("session store ping failed: %w", err)
	}
	return nil
}

// Close closes the redis connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// SaveActiveTask records the handle of the in-flight task for a flow.
func (s *Store) SaveActiveTask(ctx context.Context, flow, handle string) error {
	return s.client.Set(ctx, keyPrefix+flow, handle, s.ttl).Err()
}

// ActiveTask returns the recorded handle for a flow, or "" when none exists.
func (s *Store) ActiveTask(ctx context.Context, flow string) (string, error) {
	val, err := s.client.Get(ctx, keyPrefix+flow).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// ClearActiveTask removes the recorded handle once the task is terminal.
func (s *Store) ClearActiveTask(ctx context.Context, flow string) error {
	return s.client.Del(ctx, keyPrefix+flow).Err()
}
