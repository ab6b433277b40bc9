package model

import "time"

// Linked account statuses.
const (
	AccountStatusActive  = "active"
	AccountStatusRevoked = "revoked"
)

// LinkedAccount stores the per-platform connection for a user: the current
// token pair, expiry and provider profile fields. Created on first code
// exchange, updated on every refresh, soft-invalidated on revoke.
type LinkedAccount struct {
	ID             int64      `json:"id"`
	UserID         string     `json:"user_id"`
	Platform       string     `json:"platform"`
	ProviderUserID string     `json:"provider_user_id"`
	DisplayName    string     `json:"display_name"`
	AvatarURL      *string    `json:"avatar_url,omitempty"`
	AccessToken    string     `json:"-"`
	RefreshToken   string     `json:"-"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Scopes         string     `json:"scopes"`
	Status         string     `json:"status"` // active | revoked
	// Provider-specific extras, e.g. facebook page id/name or youtube channel id.
	PageID    *string   `json:"page_id,omitempty"`
	PageName  *string   `json:"page_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TokenExpired reports whether the stored access token is past (or within
// skew of) its expiry. A nil expiry means the provider issued a
// non-expiring token.
func (a *LinkedAccount) TokenExpired(skew time.Duration) bool {
	if a.ExpiresAt == nil {
		return false
	}
	return time.Now().Add(skew).After(*a.ExpiresAt)
}
