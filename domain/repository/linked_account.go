package repository

import (
	"context"
	"time"

	"social-hub/domain/model"
)

// ILinkedAccount persists per-platform linked accounts. Implementations
// must be safe for concurrent use.
type ILinkedAccount interface {
	// Upsert inserts or updates by (user_id, platform, provider_user_id)
	// and fills in the generated ID.
	Upsert(ctx context.Context, account *model.LinkedAccount) error
	GetByID(ctx context.Context, id int64) (*model.LinkedAccount, error)
	ListByUser(ctx context.Context, userID string) ([]*model.LinkedAccount, error)
	// UpdateTokens persists a refreshed token pair and expiry.
	UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt *time.Time) error
	// MarkRevoked soft-invalidates every account on the platform holding
	// the given access token.
	MarkRevoked(ctx context.Context, platform, accessToken string) error
}
