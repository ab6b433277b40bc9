package repository

import (
	"context"

	"social-hub/domain/model"
)

// IOAuthState is the durable fallback behind the state store. The primary
// copy lives in the cache; this one survives cache restarts.
type IOAuthState interface {
	Save(ctx context.Context, state *model.OAuthState) error
	Get(ctx context.Context, token string) (*model.OAuthState, error)
	Delete(ctx context.Context, token string) error
}
