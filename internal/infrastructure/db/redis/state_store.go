package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const stateTTL = 10 * time.Minute

// stateClient is the slice of the Redis API the state store uses.
// Satisfied by *redis.Client; tests substitute a fake.
type stateClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// StateStore hands out single-use OAuth anti-forgery state tokens
// backed by Redis. Key format: oauth_state:<token>
type StateStore struct {
	client stateClient
}

// NewStateStore creates a StateStore wrapping the given Redis client.
func NewStateStore(client *redis.Client) *StateStore {
	return &StateStore{client: client}
}

// Issue generates a random state token and records it with a bounded
// lifetime. A token that is never consumed simply expires.
func (s *StateStore) Issue(ctx context.Context) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("state generate: %w", err)
	}
	state := hex.EncodeToString(buf)

	if err := s.client.Set(ctx, s.key(state), "1", stateTTL).Err(); err != nil {
		return "", fmt.Errorf("state store: %w", err)
	}
	return state, nil
}

// Consume atomically removes state and reports whether it was
// outstanding. Replayed or forged states read as not outstanding.
func (s *StateStore) Consume(ctx context.Context, state string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(state)).Result()
	if err != nil {
		return false, fmt.Errorf("state consume: %w", err)
	}
	return n > 0, nil
}

func (s *StateStore) key(state string) string {
	return "oauth_state:" + state
}
