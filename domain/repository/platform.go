package repository

import (
	"context"

	"social-hub/domain/model"
)

// IPlatformClient is the uniform per-provider contract. Each provider
// implements the same surface regardless of how it encodes the token
// exchange or what it calls its tokens; quirks are declared in Spec().
type IPlatformClient interface {
	Name() string
	Spec() model.PlatformSpec

	BuildAuthorizationURL(state string) (string, error)
	ExchangeCode(ctx context.Context, code string) (*model.TokenRecord, error)
	Refresh(ctx context.Context, refreshToken string) (*model.TokenRecord, error)
	Revoke(ctx context.Context, token string) error
	FetchUserInfo(ctx context.Context, accessToken string) (*model.ProviderProfile, error)

	Post(ctx context.Context, account *model.LinkedAccount, content string, media []model.MediaItem, params map[string]string) (*model.PlatformPost, error)
	GetPostMetrics(ctx context.Context, account *model.LinkedAccount, postID string) (*model.PostMetrics, error)
	GetAccountMetrics(ctx context.Context, account *model.LinkedAccount) (*model.AccountMetrics, error)
}
