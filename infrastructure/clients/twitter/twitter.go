package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"social-hub/domain/model"
	"social-hub/domain/repository"
	"social-hub/infrastructure/configuration"

	"golang.org/x/oauth2"
)

const defaultAPIHost = "https://api.twitter.com"

// Client implements the platform contract against the X (Twitter) v2 API
// using the standard authorization-code flow with PKCE-less confidential
// clients. Twitter rotates the refresh token on every refresh, so callers
// must always persist the returned pair.
type Client struct {
	cfg        configuration.OAuthClient
	oauth      *oauth2.Config
	apiHost    string
	httpClient *http.Client
}

func New(cfg configuration.OAuthClient) *Client {
	apiHost := defaultAPIHost
	if cfg.TokenHost != "" {
		apiHost = strings.TrimRight(cfg.TokenHost, "/")
	}
	tokenPath := cfg.TokenPath
	if tokenPath == "" {
		tokenPath = "/2/oauth2/token"
	}
	authURL := "https://twitter.com/i/oauth2/authorize"
	if cfg.AuthorizePath != "" {
		authURL = "https://twitter.com" + cfg.AuthorizePath
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"tweet.read", "tweet.write", "users.read", "offline.access"}
	}
	return &Client{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  apiHost + tokenPath,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		apiHost:    apiHost,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

var _ repository.IPlatformClient = (*Client)(nil)

func (c *Client) Name() string { return "twitter" }

func (c *Client) Spec() model.PlatformSpec {
	return model.PlatformSpec{
		RefreshReusesAccessToken: false,
		ScopeDelimiter:           " ",
		MinMediaItems:            0,
		SupportsRevoke:           true,
	}
}

func (c *Client) BuildAuthorizationURL(state string) (string, error) {
	if c.oauth.ClientID == "" || c.oauth.RedirectURL == "" {
		return "", fmt.Errorf("twitter oauth not configured")
	}
	return c.oauth.AuthCodeURL(state), nil
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (*model.TokenRecord, error) {
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return fromOAuth2Token(tok, c.oauth.Scopes), nil
}

// Refresh trades the refresh token for a new pair. The returned refresh
// token replaces the old one.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*model.TokenRecord, error) {
	src := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, err
	}
	rec := fromOAuth2Token(tok, c.oauth.Scopes)
	if rec.RefreshToken == "" {
		rec.RefreshToken = refreshToken
	}
	return rec, nil
}

func fromOAuth2Token(tok *oauth2.Token, scopes []string) *model.TokenRecord {
	rec := &model.TokenRecord{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Scopes:       scopes,
	}
	if !tok.Expiry.IsZero() {
		rec.ExpiresAt = tok.Expiry.UTC()
		rec.ExpiresIn = int64(time.Until(tok.Expiry).Seconds())
	}
	return rec
}

func (c *Client) Revoke(ctx context.Context, token string) error {
	path := c.cfg.RevokePath
	if path == "" {
		path = "/2/oauth2/revoke"
	}
	form := url.Values{}
	form.Set("token", token)
	form.Set("token_type_hint", "access_token")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiHost+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("revoke failed (%d): %s", resp.StatusCode, string(body))
	}
	return nil
}

func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (*model.ProviderProfile, error) {
	body, err := c.authedGet(ctx, accessToken, "/2/users/me?user.fields=profile_image_url,public_metrics")
	if err != nil {
		return nil, err
	}
	var me struct {
		Data struct {
			ID              string `json:"id"`
			Name            string `json:"name"`
			Username        string `json:"username"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &me); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	return &model.ProviderProfile{
		ProviderUserID: me.Data.ID,
		DisplayName:    me.Data.Name,
		AvatarURL:      me.Data.ProfileImageURL,
		Extra:          map[string]string{"username": me.Data.Username},
	}, nil
}

// Post creates a tweet. Media upload needs the separate v1.1 chunked
// endpoint, so media items ride along as trailing links for now.
func (c *Client) Post(ctx context.Context, account *model.LinkedAccount, content string, media []model.MediaItem, params map[string]string) (*model.PlatformPost, error) {
	text := content
	for _, m := range media {
		text += "\n" + m.URL
	}
	payload, err := json.Marshal(map[string]any{"text": text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiHost+"/2/tweets", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+account.AccessToken)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &model.RateLimitError{Platform: "twitter"}
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tweet failed (%d): %s", resp.StatusCode, string(body))
	}
	var posted struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &posted); err != nil {
		return nil, fmt.Errorf("parse tweet response: %w", err)
	}
	return &model.PlatformPost{PlatformPostID: posted.Data.ID, PostedAt: time.Now().UTC()}, nil
}

func (c *Client) GetPostMetrics(ctx context.Context, account *model.LinkedAccount, postID string) (*model.PostMetrics, error) {
	body, err := c.authedGet(ctx, account.AccessToken,
		"/2/tweets/"+url.PathEscape(postID)+"?tweet.fields=public_metrics")
	if err != nil {
		return nil, err
	}
	var m struct {
		Data struct {
			PublicMetrics struct {
				LikeCount    int64 `json:"like_count"`
				ReplyCount   int64 `json:"reply_count"`
				RetweetCount int64 `json:"retweet_count"`
				ViewCount    int64 `json:"impression_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("parse metrics: %w", err)
	}
	return &model.PostMetrics{
		Likes:    m.Data.PublicMetrics.LikeCount,
		Comments: m.Data.PublicMetrics.ReplyCount,
		Shares:   m.Data.PublicMetrics.RetweetCount,
		Views:    m.Data.PublicMetrics.ViewCount,
	}, nil
}

func (c *Client) GetAccountMetrics(ctx context.Context, account *model.LinkedAccount) (*model.AccountMetrics, error) {
	body, err := c.authedGet(ctx, account.AccessToken, "/2/users/me?user.fields=public_metrics")
	if err != nil {
		return nil, err
	}
	var m struct {
		Data struct {
			PublicMetrics struct {
				FollowersCount int64 `json:"followers_count"`
				TweetCount     int64 `json:"tweet_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("parse metrics: %w", err)
	}
	return &model.AccountMetrics{
		Followers: m.Data.PublicMetrics.FollowersCount,
		Posts:     m.Data.PublicMetrics.TweetCount,
	}, nil
}

func (c *Client) authedGet(ctx context.Context, token, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiHost+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &model.RateLimitError{Platform: "twitter"}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twitter call failed (%d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
