package model

import "time"

// TokenRecord is the normalized token shape shared by every platform.
// Provider responses are mapped into this before anything is cached or
// persisted; provider quirks live in PlatformSpec, not here.
type TokenRecord struct {
	AccessToken    string    `json:"access_token"`
	RefreshToken   string    `json:"refresh_token,omitempty"`
	ExpiresIn      int64     `json:"expires_in"`
	ExpiresAt      time.Time `json:"expires_at"`
	TokenType      string    `json:"token_type"`
	Scopes         []string  `json:"scopes,omitempty"`
	ProviderUserID string    `json:"provider_user_id,omitempty"`
}

// OAuthState binds a random anti-CSRF token to the flow that created it.
// Single-use: consumed exactly once or expired by TTL.
type OAuthState struct {
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ProviderProfile carries the per-provider profile fields fetched right
// after a code exchange. Extra holds provider-specific fields (page id,
// channel id, username) assembled by the provider's own mapping.
type ProviderProfile struct {
	ProviderUserID string            `json:"provider_user_id"`
	DisplayName    string            `json:"display_name"`
	AvatarURL      string            `json:"avatar_url,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// PlatformSpec declares a provider's quirks as data instead of scattered
// conditionals. The orchestrators consult it; they never switch on the
// platform name.
type PlatformSpec struct {
	// RefreshReusesAccessToken marks providers that issue a single
	// long-lived token serving as both access and refresh token.
	RefreshReusesAccessToken bool
	// ScopeDelimiter is "," or " " depending on the provider.
	ScopeDelimiter string
	// MinMediaItems is the minimum media count a post must carry.
	// Publishing fails fast locally when the request has fewer.
	MinMediaItems int
	// SupportsRevoke is false for providers without a revocation endpoint;
	// revoke then only clears local state.
	SupportsRevoke bool
}

// PlatformPost is the result of a successful provider post call.
type PlatformPost struct {
	PlatformPostID string    `json:"platform_post_id"`
	PostedAt       time.Time `json:"posted_at"`
}

// PostMetrics is a normalized per-post metrics snapshot.
type PostMetrics struct {
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
	Views    int64 `json:"views"`
}

// AccountMetrics is a normalized per-account metrics snapshot.
type AccountMetrics struct {
	Followers int64 `json:"followers"`
	Posts     int64 `json:"posts"`
}
