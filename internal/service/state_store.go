package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sgml/firebase-steam-login/internal/domain"
	"github.com/sgml/firebase-steam-login/pkg/database"
)

// StateStore persists one authentication round trip in Redis, keyed by the
// opaque state value that travels through the provider redirect. Entries are
// consumed exactly once; a replayed or expired state reads as invalid.
type StateStore struct {
	redis *database.Redis
	ttl   time.Duration
}

// NewStateStore creates a new state store with the given round-trip TTL
func NewStateStore(redis *database.Redis, ttl time.Duration) *StateStore {
	return &StateStore{
		redis: redis,
		ttl:   ttl,
	}
}

// Create stores the session context under a fresh random state value and
// returns the state
func (s *StateStore) Create(ctx context.Context, session domain.SessionContext) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(buf)

	payload, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("failed to encode session context: %w", err)
	}

	key := fmt.Sprintf("authstate:%s", state)
	if err := s.redis.Client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session context: %w", err)
	}

	return state, nil
}

// Consume atomically fetches and deletes the session context for a state.
// Unknown states and second reads fail with a session error.
func (s *StateStore) Consume(ctx context.Context, state string) (*domain.SessionContext, error) {
	key := fmt.Sprintf("authstate:%s", state)

	payload, err := s.redis.Client.GetDel(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: unknown or expired state", domain.ErrSessionInvalid)
		}
		return nil, fmt.Errorf("failed to consume session context: %w", err)
	}

	var session domain.SessionContext
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session context: %w", err)
	}

	return &session, nil
}
