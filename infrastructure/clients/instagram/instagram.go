package instagram

import (
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

	"github.com/google/go-querystring/query"
)

const (
	defaultAPIHost   = "https://api.instagram.com"
	defaultGraphHost = "https://graph.instagram.com"
)

// Client talks to the Instagram API. Publishing is the two-step container
// flow: create a media container, then publish it. Instagram requires at
// least one media item per post and refreshes long-lived tokens with the
// token itself, so Spec() flags both.
type Client struct {
	cfg        configuration.OAuthClient
	apiHost    string
	graphHost  string
	httpClient *http.Client
}

func New(cfg configuration.OAuthClient) *Client {
	apiHost := defaultAPIHost
	if cfg.TokenHost != "" {
		apiHost = strings.TrimRight(cfg.TokenHost, "/")
	}
	return &Client{
		cfg:        cfg,
		apiHost:    apiHost,
		graphHost:  defaultGraphHost,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

var _ repository.IPlatformClient = (*Client)(nil)

func (c *Client) Name() string { return "instagram" }

func (c *Client) Spec() model.PlatformSpec {
	return model.PlatformSpec{
		RefreshReusesAccessToken: true,
		ScopeDelimiter:           ",",
		MinMediaItems:            1,
		SupportsRevoke:           false,
	}
}

func (c *Client) scopes() string {
	if len(c.cfg.Scopes) > 0 {
		return strings.Join(c.cfg.Scopes, ",")
	}
	return "user_profile,user_media"
}

func (c *Client) BuildAuthorizationURL(state string) (string, error) {
	if c.cfg.ClientID == "" || c.cfg.RedirectURI == "" {
		return "", fmt.Errorf("instagram oauth not configured")
	}
	path := c.cfg.AuthorizePath
	if path == "" {
		path = "/oauth/authorize"
	}
	u, err := url.Parse(c.apiHost + path)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", c.cfg.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", c.scopes())
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ExchangeCode posts the code as a form to get a short-lived token, then
// upgrades it to a long-lived one via the graph host.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*model.TokenRecord, error) {
	path := c.cfg.TokenPath
	if path == "" {
		path = "/oauth/access_token"
	}
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", c.cfg.RedirectURI)
	form.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiHost+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var short struct {
		AccessToken string `json:"access_token"`
		UserID      int64  `json:"user_id"`
	}
	if err := json.Unmarshal(body, &short); err != nil {
		return nil, fmt.Errorf("parse token response: %w", err)
	}
	if short.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}

	long, err := c.longLived(ctx, short.AccessToken)
	if err != nil {
		return nil, err
	}
	long.ProviderUserID = fmt.Sprintf("%d", short.UserID)
	return long, nil
}

type longLivedQuery struct {
	GrantType    string `url:"grant_type"`
	ClientSecret string `url:"client_secret,omitempty"`
	AccessToken  string `url:"access_token"`
}

func (c *Client) longLived(ctx context.Context, token string) (*model.TokenRecord, error) {
	v, err := query.Values(longLivedQuery{
		GrantType:    "ig_exchange_token",
		ClientSecret: c.cfg.ClientSecret,
		AccessToken:  token,
	})
	if err != nil {
		return nil, err
	}
	return c.tokenCall(ctx, c.graphHost+"/access_token?"+v.Encode())
}

// Refresh extends a long-lived token. Instagram refreshes with the token
// itself, not a separate refresh token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*model.TokenRecord, error) {
	v, err := query.Values(longLivedQuery{
		GrantType:   "ig_refresh_token",
		AccessToken: refreshToken,
	})
	if err != nil {
		return nil, err
	}
	return c.tokenCall(ctx, c.graphHost+"/refresh_access_token?"+v.Encode())
}

func (c *Client) tokenCall(ctx context.Context, rawURL string) (*model.TokenRecord, error) {
	body, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("parse token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}
	rec := &model.TokenRecord{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.AccessToken,
		ExpiresIn:    tok.ExpiresIn,
		TokenType:    tok.TokenType,
		Scopes:       c.cfg.Scopes,
	}
	if tok.ExpiresIn > 0 {
		rec.ExpiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second).UTC()
	}
	return rec, nil
}

// Revoke is not offered by Instagram; callers drop local state instead.
func (c *Client) Revoke(ctx context.Context, token string) error {
	return fmt.Errorf("instagram does not support token revocation")
}

func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (*model.ProviderProfile, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/me?fields=id,username&access_token=%s",
		c.graphHost, url.QueryEscape(accessToken)))
	if err != nil {
		return nil, err
	}
	var me struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(body, &me); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	return &model.ProviderProfile{
		ProviderUserID: me.ID,
		DisplayName:    me.Username,
	}, nil
}

// Post runs the container flow: create the media container from the first
// media URL, then publish it with the caption.
func (c *Client) Post(ctx context.Context, account *model.LinkedAccount, content string, media []model.MediaItem, params map[string]string) (*model.PlatformPost, error) {
	if len(media) == 0 {
		return nil, &model.ValidationError{Reason: "instagram requires at least one media item"}
	}

	form := url.Values{}
	form.Set("caption", content)
	form.Set("access_token", account.AccessToken)
	if strings.HasPrefix(media[0].MimeType, "video/") {
		form.Set("media_type", "REELS")
		form.Set("video_url", media[0].URL)
	} else {
		form.Set("image_url", media[0].URL)
	}

	containerURL := fmt.Sprintf("%s/%s/media", c.graphHost, url.PathEscape(account.ProviderUserID))
	body, err := c.postForm(ctx, containerURL, form)
	if err != nil {
		return nil, err
	}
	var container struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &container); err != nil || container.ID == "" {
		return nil, fmt.Errorf("create media container: %s", string(body))
	}

	publish := url.Values{}
	publish.Set("creation_id", container.ID)
	publish.Set("access_token", account.AccessToken)
	publishURL := fmt.Sprintf("%s/%s/media_publish", c.graphHost, url.PathEscape(account.ProviderUserID))
	body, err = c.postForm(ctx, publishURL, publish)
	if err != nil {
		return nil, err
	}
	var posted struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &posted); err != nil || posted.ID == "" {
		return nil, fmt.Errorf("publish media container: %s", string(body))
	}
	return &model.PlatformPost{PlatformPostID: posted.ID, PostedAt: time.Now().UTC()}, nil
}

func (c *Client) GetPostMetrics(ctx context.Context, account *model.LinkedAccount, postID string) (*model.PostMetrics, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/%s?fields=like_count,comments_count&access_token=%s",
		c.graphHost, url.PathEscape(postID), url.QueryEscape(account.AccessToken)))
	if err != nil {
		return nil, err
	}
	var m struct {
		LikeCount     int64 `json:"like_count"`
		CommentsCount int64 `json:"comments_count"`
	}
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("parse metrics: %w", err)
	}
	return &model.PostMetrics{Likes: m.LikeCount, Comments: m.CommentsCount}, nil
}

func (c *Client) GetAccountMetrics(ctx context.Context, account *model.LinkedAccount) (*model.AccountMetrics, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/%s?fields=followers_count,media_count&access_token=%s",
		c.graphHost, url.PathEscape(account.ProviderUserID), url.QueryEscape(account.AccessToken)))
	if err != nil {
		return nil, err
	}
	var m struct {
		FollowersCount int64 `json:"followers_count"`
		MediaCount     int64 `json:"media_count"`
	}
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("parse metrics: %w", err)
	}
	return &model.AccountMetrics{Followers: m.FollowersCount, Posts: m.MediaCount}, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) postForm(ctx context.Context, rawURL string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("instagram call failed (%d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
