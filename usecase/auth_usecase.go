package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"social-hub/domain/model"
	"social-hub/domain/repository"
	"social-hub/infrastructure/cache"
	"social-hub/infrastructure/logger"

	"golang.org/x/sync/singleflight"
)

// expirySkew is how early a token counts as expired, so a token that
// would die mid-call gets refreshed up front.
const expirySkew = 60 * time.Second

// exchangeRecordTTL bounds the window in which a redelivered callback
// can reuse an already-exchanged code without hitting the provider.
const exchangeRecordTTL = 10 * time.Minute

type IAuth interface {
	GetAuthorizationURL(ctx context.Context, platform, userID string) (string, error)
	HandleCallback(ctx context.Context, platform, code, state string) (*model.LinkedAccount, error)
	RefreshToken(ctx context.Context, accountID int64) (*model.LinkedAccount, error)
	EnsureValidToken(ctx context.Context, account *model.LinkedAccount) (*model.LinkedAccount, error)
	RevokeToken(ctx context.Context, platform string, accountID int64, token string) error
	ListAccounts(ctx context.Context, userID string) ([]*model.LinkedAccount, error)
	GetAccountMetrics(ctx context.Context, userID string, accountID int64) (*model.AccountMetrics, error)
	GetPostMetrics(ctx context.Context, userID string, accountID int64, postID string) (*model.PostMetrics, error)
}

// AuthUsecase drives the token lifecycle: authorization URL issuance,
// callback exchange, refresh, revoke. Concurrent refreshes for the same
// account collapse into one provider call via singleflight.
type AuthUsecase struct {
	registry *PlatformRegistry
	states   *cache.StateStore
	tokens   *cache.TokenCache
	accounts repository.ILinkedAccount
	group    singleflight.Group
}

func NewAuthUsecase(registry *PlatformRegistry, states *cache.StateStore, tokens *cache.TokenCache, accounts repository.ILinkedAccount) *AuthUsecase {
	return &AuthUsecase{
		registry: registry,
		states:   states,
		tokens:   tokens,
		accounts: accounts,
	}
}

var _ IAuth = (*AuthUsecase)(nil)

// GetAuthorizationURL creates a single-use state entry and returns the
// provider's consent URL carrying it.
func (u *AuthUsecase) GetAuthorizationURL(ctx context.Context, platform, userID string) (string, error) {
	client, ok := u.registry.Get(platform)
	if !ok {
		return "", &model.ValidationError{Reason: fmt.Sprintf("unsupported platform: %s", platform)}
	}
	state, err := u.states.Create(ctx, platform, userID)
	if err != nil {
		return "", err
	}
	return client.BuildAuthorizationURL(state)
}

// HandleCallback validates the state, exchanges the code, fetches the
// provider profile and upserts the linked account. Unknown, expired or
// reused state fails closed before anything touches the provider.
func (u *AuthUsecase) HandleCallback(ctx context.Context, platform, code, stateToken string) (*model.LinkedAccount, error) {
	client, ok := u.registry.Get(platform)
	if !ok {
		return nil, &model.ValidationError{Reason: fmt.Sprintf("unsupported platform: %s", platform)}
	}

	state, err := u.states.Consume(ctx, stateToken)
	if err != nil {
		return nil, &model.AuthenticationError{Reason: "invalid or expired oauth state"}
	}
	if state.Platform != platform {
		return nil, &model.AuthenticationError{Reason: "oauth state platform mismatch"}
	}

	// A redelivered callback must not burn the one-time code at the
	// provider a second time. The normalized record from the first
	// exchange is kept under a code-derived key; on a hit the flow
	// skips the exchange and proceeds straight to linking.
	codeKey := exchangeKey(platform, code)
	token, err := u.tokens.Get(ctx, codeKey)
	if err != nil {
		return nil, err
	}
	if token == nil {
		token, err = client.ExchangeCode(ctx, code)
		if err != nil {
			return nil, &model.PlatformError{Platform: platform, Message: "code exchange failed", Err: err}
		}
		if err := u.tokens.Set(ctx, codeKey, token, exchangeRecordTTL); err != nil {
			logger.GetLogger().WithField("error", err).Warn("exchange record cache write failed")
		}
	} else {
		logger.GetLogger().
			WithField("platform", platform).
			Info("duplicate callback delivery, reusing exchanged token")
	}

	profile, err := client.FetchUserInfo(ctx, token.AccessToken)
	if err != nil {
		return nil, &model.PlatformError{Platform: platform, Message: "fetch user info failed", Err: err}
	}
	if token.ProviderUserID == "" {
		token.ProviderUserID = profile.ProviderUserID
	}

	account := &model.LinkedAccount{
		UserID:         state.UserID,
		Platform:       platform,
		ProviderUserID: profile.ProviderUserID,
		DisplayName:    profile.DisplayName,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		Scopes:         strings.Join(token.Scopes, client.Spec().ScopeDelimiter),
		Status:         model.AccountStatusActive,
	}
	if profile.AvatarURL != "" {
		account.AvatarURL = &profile.AvatarURL
	}
	if !token.ExpiresAt.IsZero() {
		t := token.ExpiresAt
		account.ExpiresAt = &t
	}
	if pageID, ok := profile.Extra["page_id"]; ok {
		account.PageID = &pageID
	}
	if pageName, ok := profile.Extra["page_name"]; ok {
		account.PageName = &pageName
	}

	if err := u.accounts.Upsert(ctx, account); err != nil {
		return nil, err
	}
	u.cacheTokens(ctx, platform, account.ID, token)

	logger.GetLogger().
		WithField("platform", platform).
		WithField("account_id", account.ID).
		Info("account linked")
	return account, nil
}

// RefreshToken obtains a fresh token pair for the account. Concurrent
// callers for the same account share one provider call; a still-fresh
// cached token short-circuits the provider entirely.
func (u *AuthUsecase) RefreshToken(ctx context.Context, accountID int64) (*model.LinkedAccount, error) {
	account, err := u.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, &model.NotFoundError{Entity: "account", ID: fmt.Sprintf("%d", accountID)}
	}

	key := fmt.Sprintf("%s:%d", account.Platform, account.ID)
	v, err, _ := u.group.Do(key, func() (interface{}, error) {
		// Queued callers wait on this result; the leader's request
		// being canceled must not fail the whole herd.
		return u.refresh(context.WithoutCancel(ctx), account)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.LinkedAccount), nil
}

func (u *AuthUsecase) refresh(ctx context.Context, account *model.LinkedAccount) (*model.LinkedAccount, error) {
	client, ok := u.registry.Get(account.Platform)
	if !ok {
		return nil, &model.ValidationError{Reason: fmt.Sprintf("unsupported platform: %s", account.Platform)}
	}

	// A caller that queued behind an in-flight refresh finds the new
	// token in the cache and skips the provider.
	id := fmt.Sprintf("%d", account.ID)
	if cached, err := u.tokens.Get(ctx, cache.Key(cache.TokenTypeAccess, account.Platform, id)); err == nil && cached != nil {
		if cached.ExpiresAt.IsZero() || time.Now().Add(expirySkew).Before(cached.ExpiresAt) {
			account.AccessToken = cached.AccessToken
			if cached.RefreshToken != "" {
				account.RefreshToken = cached.RefreshToken
			}
			if !cached.ExpiresAt.IsZero() {
				t := cached.ExpiresAt
				account.ExpiresAt = &t
			}
			return account, nil
		}
	}

	spec := client.Spec()
	credential := account.RefreshToken
	if credential == "" && spec.RefreshReusesAccessToken {
		credential = account.AccessToken
	}
	if credential == "" {
		return nil, &model.AuthenticationError{Reason: "no refresh credential; authorization required"}
	}

	token, err := client.Refresh(ctx, credential)
	if err != nil {
		return nil, &model.PlatformError{Platform: account.Platform, Message: "token refresh failed", Err: err}
	}
	if token.RefreshToken == "" {
		if spec.RefreshReusesAccessToken {
			token.RefreshToken = token.AccessToken
		} else {
			token.RefreshToken = credential
		}
	}

	var expiresAt *time.Time
	if !token.ExpiresAt.IsZero() {
		t := token.ExpiresAt
		expiresAt = &t
	}
	if err := u.accounts.UpdateTokens(ctx, account.ID, token.AccessToken, token.RefreshToken, expiresAt); err != nil {
		return nil, err
	}
	u.cacheTokens(ctx, account.Platform, account.ID, token)

	account.AccessToken = token.AccessToken
	account.RefreshToken = token.RefreshToken
	account.ExpiresAt = expiresAt
	logger.GetLogger().
		WithField("platform", account.Platform).
		WithField("account_id", account.ID).
		Info("token refreshed")
	return account, nil
}

// EnsureValidToken returns the account with a usable access token,
// refreshing first when the stored one is expired or about to expire.
func (u *AuthUsecase) EnsureValidToken(ctx context.Context, account *model.LinkedAccount) (*model.LinkedAccount, error) {
	if account.Status == model.AccountStatusRevoked {
		return nil, &model.AuthenticationError{Reason: "account revoked; authorization required"}
	}
	if account.AccessToken != "" && !account.TokenExpired(expirySkew) {
		return account, nil
	}
	return u.RefreshToken(ctx, account.ID)
}

// RevokeToken revokes at the provider when supported and always clears
// local state: cached tokens and the persisted account rows. A provider
// failure never blocks the local invalidation, but it is still returned
// so the caller knows the remote side may hold a live grant.
func (u *AuthUsecase) RevokeToken(ctx context.Context, platform string, accountID int64, token string) error {
	client, ok := u.registry.Get(platform)
	if !ok {
		return &model.ValidationError{Reason: fmt.Sprintf("unsupported platform: %s", platform)}
	}

	if accountID > 0 {
		account, err := u.accounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return &model.NotFoundError{Entity: "account", ID: fmt.Sprintf("%d", accountID)}
		}
		token = account.AccessToken
		id := fmt.Sprintf("%d", account.ID)
		if err := u.tokens.Delete(ctx, cache.Key(cache.TokenTypeAccess, platform, id)); err != nil {
			logger.GetLogger().WithField("error", err).Warn("access token cache delete failed")
		}
		if err := u.tokens.Delete(ctx, cache.Key(cache.TokenTypeRefresh, platform, id)); err != nil {
			logger.GetLogger().WithField("error", err).Warn("refresh token cache delete failed")
		}
	}
	if token == "" {
		return &model.ValidationError{Reason: "account_id or token is required"}
	}

	var revokeErr error
	if client.Spec().SupportsRevoke {
		if err := client.Revoke(ctx, token); err != nil {
			logger.GetLogger().
				WithField("platform", platform).
				WithField("error", err).
				Warn("provider revoke failed; local state cleared anyway")
			revokeErr = &model.PlatformError{Platform: platform, Message: "revoke failed", Err: err}
		}
	}
	if err := u.accounts.MarkRevoked(ctx, platform, token); err != nil {
		return err
	}
	return revokeErr
}

func (u *AuthUsecase) ListAccounts(ctx context.Context, userID string) ([]*model.LinkedAccount, error) {
	return u.accounts.ListByUser(ctx, userID)
}

func (u *AuthUsecase) GetAccountMetrics(ctx context.Context, userID string, accountID int64) (*model.AccountMetrics, error) {
	account, client, err := u.ownedAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	metrics, err := client.GetAccountMetrics(ctx, account)
	if err != nil {
		return nil, &model.PlatformError{Platform: account.Platform, Message: "account metrics failed", Err: err}
	}
	return metrics, nil
}

func (u *AuthUsecase) GetPostMetrics(ctx context.Context, userID string, accountID int64, postID string) (*model.PostMetrics, error) {
	account, client, err := u.ownedAccount(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	metrics, err := client.GetPostMetrics(ctx, account, postID)
	if err != nil {
		return nil, &model.PlatformError{Platform: account.Platform, Message: "post metrics failed", Err: err}
	}
	return metrics, nil
}

func (u *AuthUsecase) ownedAccount(ctx context.Context, userID string, accountID int64) (*model.LinkedAccount, repository.IPlatformClient, error) {
	account, err := u.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	// Accounts of other users are indistinguishable from missing ones.
	if account == nil || account.UserID != userID {
		return nil, nil, &model.NotFoundError{Entity: "account", ID: fmt.Sprintf("%d", accountID)}
	}
	client, ok := u.registry.Get(account.Platform)
	if !ok {
		return nil, nil, &model.ValidationError{Reason: fmt.Sprintf("unsupported platform: %s", account.Platform)}
	}
	account, err = u.EnsureValidToken(ctx, account)
	if err != nil {
		return nil, nil, err
	}
	return account, client, nil
}

func (u *AuthUsecase) cacheTokens(ctx context.Context, platform string, accountID int64, token *model.TokenRecord) {
	id := fmt.Sprintf("%d", accountID)
	if err := u.tokens.Set(ctx, cache.Key(cache.TokenTypeAccess, platform, id), token, 0); err != nil {
		logger.GetLogger().WithField("error", err).Warn("access token cache write failed")
	}
	if token.RefreshToken == "" {
		return
	}
	refreshOnly := *token
	if err := u.tokens.Set(ctx, cache.Key(cache.TokenTypeRefresh, platform, id), &refreshOnly, 0); err != nil {
		logger.GetLogger().WithField("error", err).Warn("refresh token cache write failed")
	}
}

func exchangeKey(platform, code string) string {
	sum := sha256.Sum256([]byte(code))
	return fmt.Sprintf("exchange_code:%s:%s", platform, hex.EncodeToString(sum[:]))
}
