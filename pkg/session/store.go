package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vitaltrace-ai/platform/pkg/common/models"
)

var ErrNotFound = errors.New("session checkpoint not found")

// Store checkpoints the final SessionState of each thread in Redis so a
// follow-up query on the same thread can reuse the last fetched bundle.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func key(threadID string) string {
	return fmt.Sprintf("session:%s", threadID)
}

func (s *Store) Save(ctx context.Context, threadID string, state models.SessionState) error {
	if threadID == "" {
		return nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}
	return s.client.Set(ctx, key(threadID), data, s.ttl).Err()
}

func (s *Store) Load(ctx context.Context, threadID string) (models.SessionState, error) {
	var state models.SessionState
	if threadID == "" {
		return state, ErrNotFound
	}
	data, err := s.client.Get(ctx, key(threadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return state, ErrNotFound
	}
	if err != nil {
		return state, err
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("unmarshal session state: %w", err)
	}
	return state, nil
}
