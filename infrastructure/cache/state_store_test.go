package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-hub/domain/model"
)

// memoryStateRepo is an in-memory durable fallback for tests.
type memoryStateRepo struct {
	mu     sync.Mutex
	states map[string]*model.OAuthState
}

func newMemoryStateRepo() *memoryStateRepo {
	return &memoryStateRepo{states: map[string]*model.OAuthState{}}
}

func (r *memoryStateRepo) Save(ctx context.Context, s *model.OAuthState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[s.Token] = s
	return nil
}

func (r *memoryStateRepo) Get(ctx context.Context, token string) (*model.OAuthState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[token], nil
}

func (r *memoryStateRepo) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, token)
	return nil
}

func TestStateStore_CreateAndConsume(t *testing.T) {
	ctx := context.Background()
	durable := newMemoryStateRepo()
	store := NewStateStore(NewMemoryStore(), durable, time.Minute)

	token, err := store.Create(ctx, "facebook", "user-1")
	require.NoError(t, err)
	assert.Len(t, token, 32, "16 random bytes hex encoded")

	state, err := store.Consume(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "facebook", state.Platform)
	assert.Equal(t, "user-1", state.UserID)

	// Single use: a second consume of the same token fails.
	_, err = store.Consume(ctx, token)
	assert.ErrorIs(t, err, ErrStateNotFound)

	// The durable copy is gone too.
	s, _ := durable.Get(ctx, token)
	assert.Nil(t, s)
}

func TestStateStore_UnknownTokenFailsClosed(t *testing.T) {
	store := NewStateStore(NewMemoryStore(), newMemoryStateRepo(), time.Minute)
	_, err := store.Consume(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestStateStore_DurableFallbackOnCacheMiss(t *testing.T) {
	ctx := context.Background()
	durable := newMemoryStateRepo()
	primary := NewMemoryStore()
	store := NewStateStore(primary, durable, time.Minute)

	token, err := store.Create(ctx, "twitter", "user-2")
	require.NoError(t, err)

	// Simulate a cache restart wiping the primary copy.
	require.NoError(t, primary.Delete(ctx, "oauth_state:"+token))

	state, err := store.Consume(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "twitter", state.Platform)
}

func TestStateStore_ExpiredDurableRowRejected(t *testing.T) {
	ctx := context.Background()
	durable := newMemoryStateRepo()
	primary := NewMemoryStore()
	store := NewStateStore(primary, durable, time.Minute)

	// Durable row past its expiry, no primary copy.
	expired := &model.OAuthState{
		Token:     "stale",
		Platform:  "youtube",
		UserID:    "user-3",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, durable.Save(ctx, expired))

	_, err := store.Consume(ctx, "stale")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestStateStore_TokensAreUnique(t *testing.T) {
	ctx := context.Background()
	store := NewStateStore(NewMemoryStore(), nil, time.Minute)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token, err := store.Create(ctx, "facebook", "user")
		require.NoError(t, err)
		assert.False(t, seen[token])
		seen[token] = true
	}
}
