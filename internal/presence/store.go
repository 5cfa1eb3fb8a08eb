// Package presence tracks which users are currently online. The set lives in
// Redis so it survives application restarts, but it is cleared unconditionally
// at process startup: a cold start resets everyone to offline and connected
// clients re-declare identity.
package presence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// OnlineKey is the Redis key holding the set of online user identifiers.
const OnlineKey = "online_users"

// Store manages the online-users set in Redis. The raw set is never exposed;
// all access goes through the add/remove/query operations below. Each
// mutation is a single Redis command, so adds and removes for different
// users never lose updates when they interleave.
type Store struct {
	client *redis.Client
}

// NewStore creates a presence store using the provided Redis client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Add marks a user as online. Adding an already-online user is a no-op at
// the set level.
func (s *Store) Add(ctx context.Context, userID string) error {
	if err := s.client.SAdd(ctx, OnlineKey, userID).Err(); err != nil {
		return fmt.Errorf("presence: add %s: %w", userID, err)
	}
	return nil
}

// Remove marks a user as offline.
func (s *Store) Remove(ctx context.Context, userID string) error {
	if err := s.client.SRem(ctx, OnlineKey, userID).Err(); err != nil {
		return fmt.Errorf("presence: remove %s: %w", userID, err)
	}
	return nil
}

// IsOnline reports whether the user is currently in the online set.
func (s *Store) IsOnline(ctx context.Context, userID string) (bool, error) {
	online, err := s.client.SIsMember(ctx, OnlineKey, userID).Result()
	if err != nil {
		return false, fmt.Errorf("presence: is online %s: %w", userID, err)
	}
	return online, nil
}

// Statuses checks set membership for a batch of user identifiers in a single
// pipelined round trip. The result preserves the input order. The answer is
// a snapshot; presence is best-effort and may be stale by the time the
// caller acts on it.
func (s *Store) Statuses(ctx context.Context, userIDs []string) (map[string]bool, error) {
	if len(userIDs) == 0 {
		return map[string]bool{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.BoolCmd, len(userIDs))
	for i, id := range userIDs {
		cmds[i] = pipe.SIsMember(ctx, OnlineKey, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("presence: batch status: %w", err)
	}

	statuses := make(map[string]bool, len(userIDs))
	for i, id := range userIDs {
		statuses[id] = cmds[i].Val()
	}
	return statuses, nil
}

// Count returns the number of users currently online.
func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.client.SCard(ctx, OnlineKey).Result()
	if err != nil {
		return 0, fmt.Errorf("presence: count: %w", err)
	}
	return n, nil
}

// Clear deletes the whole online set. Called once at process startup so
// stale entries from a previous run do not show users as online.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, OnlineKey).Err(); err != nil {
		return fmt.Errorf("presence: clear: %w", err)
	}
	return nil
}
