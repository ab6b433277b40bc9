package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"social-hub/domain/model"
	"social-hub/domain/repository"
	"social-hub/infrastructure/logger"
)

// ErrStateNotFound is returned when a state token is unknown, expired or
// already consumed. Callers must treat the callback as unauthenticated.
var ErrStateNotFound = errors.New("oauth state not found")

const stateKeyPrefix = "oauth_state:"

// StateStore holds short-lived, single-use anti-CSRF state entries. Every
// entry is written to the primary cache and mirrored to a durable backend
// so a cache restart does not strand in-flight authorization attempts.
type StateStore struct {
	store   Store
	durable repository.IOAuthState
	ttl     time.Duration
}

func NewStateStore(store Store, durable repository.IOAuthState, ttl time.Duration) *StateStore {
	return &StateStore{store: store, durable: durable, ttl: ttl}
}

// Create generates a random state token bound to (platform, userID) and
// writes it to both backends. It fails only when neither backend accepted
// the entry.
func (s *StateStore) Create(ctx context.Context, platform, userID string) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)

	now := time.Now().UTC()
	state := &model.OAuthState{
		Token:     token,
		Platform:  platform,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	primaryErr := s.store.Set(ctx, stateKeyPrefix+token, string(raw), s.ttl)
	var durableErr error
	if s.durable != nil {
		durableErr = s.durable.Save(ctx, state)
	}
	if primaryErr != nil && (s.durable == nil || durableErr != nil) {
		return "", fmt.Errorf("state write failed: %w", primaryErr)
	}
	if primaryErr != nil {
		logger.GetLogger().WithField("error", primaryErr).Warn("oauth state primary write failed; durable copy only")
	}
	if durableErr != nil {
		logger.GetLogger().WithField("error", durableErr).Warn("oauth state durable write failed; cache copy only")
	}
	return token, nil
}

// Consume retrieves and destroys a state entry. Primary first, durable on
// miss; on a hit in either the entry is deleted from both, so a second
// Consume with the same token always fails. Unknown tokens fail closed.
func (s *StateStore) Consume(ctx context.Context, token string) (*model.OAuthState, error) {
	key := stateKeyPrefix + token

	raw, err := s.store.Get(ctx, key)
	if err == nil {
		var state model.OAuthState
		if jerr := json.Unmarshal([]byte(raw), &state); jerr != nil {
			return nil, fmt.Errorf("corrupt oauth state: %w", jerr)
		}
		s.deleteBoth(ctx, token)
		return &state, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		logger.GetLogger().WithField("error", err).Warn("oauth state primary read failed; trying durable copy")
	}

	if s.durable == nil {
		return nil, ErrStateNotFound
	}
	state, derr := s.durable.Get(ctx, token)
	if derr != nil || state == nil {
		return nil, ErrStateNotFound
	}
	// The durable row carries no TTL of its own; enforce expiry here.
	if time.Now().After(state.ExpiresAt) {
		s.deleteBoth(ctx, token)
		return nil, ErrStateNotFound
	}
	s.deleteBoth(ctx, token)
	return state, nil
}

func (s *StateStore) deleteBoth(ctx context.Context, token string) {
	if err := s.store.Delete(ctx, stateKeyPrefix+token); err != nil {
		logger.GetLogger().WithField("error", err).Warn("oauth state primary delete failed")
	}
	if s.durable != nil {
		if err := s.durable.Delete(ctx, token); err != nil {
			logger.GetLogger().WithField("error", err).Warn("oauth state durable delete failed")
		}
	}
}
