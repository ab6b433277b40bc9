package dto

// Res is the generic response envelope used across handlers.
type Res struct {
	ResponseCode    string      `json:"response_code"`
	ResponseMessage string      `json:"response_message"`
	Data            interface{} `json:"data,omitempty"`
}

// AuthorizeURLResponse is returned by GET /auth/:platform/authorize.
type AuthorizeURLResponse struct {
	URL string `json:"url"`
}

// RefreshTokenRequest identifies the linked account whose token should be
// refreshed.
type RefreshTokenRequest struct {
	AccountID int64 `json:"account_id" binding:"required"`
}

// RevokeTokenRequest identifies what to revoke: a linked account by id,
// or a raw token. At least one must be set.
type RevokeTokenRequest struct {
	AccountID int64  `json:"account_id,omitempty"`
	Token     string `json:"token,omitempty"`
}
