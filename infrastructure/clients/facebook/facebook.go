package facebook

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
	defaultGraphHost     = "https://graph.facebook.com"
	defaultAuthorizeHost = "https://www.facebook.com"
	graphVersion         = "v19.0"
)

// Client implements the platform contract against the Facebook Graph API.
// Facebook exchanges the code via a query-string GET and issues a single
// long-lived token that serves as its own refresh token; both quirks are
// declared in Spec().
type Client struct {
	cfg        configuration.OAuthClient
	graphHost  string
	authHost   string
	httpClient *http.Client
}

func New(cfg configuration.OAuthClient) *Client {
	graphHost := cfg.TokenHost
	if graphHost == "" {
		graphHost = defaultGraphHost
	}
	return &Client{
		cfg:        cfg,
		graphHost:  strings.TrimRight(graphHost, "/"),
		authHost:   defaultAuthorizeHost,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

var _ repository.IPlatformClient = (*Client)(nil)

func (c *Client) Name() string { return "facebook" }

func (c *Client) Spec() model.PlatformSpec {
	return model.PlatformSpec{
		RefreshReusesAccessToken: true,
		ScopeDelimiter:           ",",
		MinMediaItems:            0,
		SupportsRevoke:           true,
	}
}

func (c *Client) scopes() string {
	if len(c.cfg.Scopes) > 0 {
		return strings.Join(c.cfg.Scopes, ",")
	}
	return "pages_show_list,pages_read_engagement,pages_manage_posts,public_profile"
}

func (c *Client) BuildAuthorizationURL(state string) (string, error) {
	if c.cfg.ClientID == "" || c.cfg.RedirectURI == "" {
		return "", fmt.Errorf("facebook oauth not configured")
	}
	path := c.cfg.AuthorizePath
	if path == "" {
		path = "/" + graphVersion + "/dialog/oauth"
	}
	u, err := url.Parse(c.authHost + path)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", c.cfg.RedirectURI)
	q.Set("state", state)
	q.Set("scope", c.scopes())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type exchangeQuery struct {
	ClientID     string `url:"client_id"`
	RedirectURI  string `url:"redirect_uri,omitempty"`
	ClientSecret string `url:"client_secret"`
	Code         string `url:"code,omitempty"`
	GrantType    string `url:"grant_type,omitempty"`
	FBExchange   string `url:"fb_exchange_token,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (c *Client) tokenPath() string {
	if c.cfg.TokenPath != "" {
		return c.cfg.TokenPath
	}
	return "/" + graphVersion + "/oauth/access_token"
}

// ExchangeCode swaps the code for a short-lived user token, then upgrades
// it to a long-lived one. The long-lived token is returned as both access
// and refresh token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*model.TokenRecord, error) {
	short, err := c.tokenCall(ctx, exchangeQuery{
		ClientID:     c.cfg.ClientID,
		RedirectURI:  c.cfg.RedirectURI,
		ClientSecret: c.cfg.ClientSecret,
		Code:         code,
	})
	if err != nil {
		return nil, err
	}
	return c.longLived(ctx, short.AccessToken)
}

// Refresh re-runs the long-lived exchange with the current token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*model.TokenRecord, error) {
	return c.longLived(ctx, refreshToken)
}

func (c *Client) longLived(ctx context.Context, token string) (*model.TokenRecord, error) {
	resp, err := c.tokenCall(ctx, exchangeQuery{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		GrantType:    "fb_exchange_token",
		FBExchange:   token,
	})
	if err != nil {
		return nil, err
	}
	rec := &model.TokenRecord{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.AccessToken, // facebook has no separate refresh token
		ExpiresIn:    resp.ExpiresIn,
		TokenType:    resp.TokenType,
		Scopes:       c.cfg.Scopes,
	}
	if resp.ExpiresIn > 0 {
		rec.ExpiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second).UTC()
	}
	return rec, nil
}

func (c *Client) tokenCall(ctx context.Context, params exchangeQuery) (*tokenResponse, error) {
	v, err := query.Values(params)
	if err != nil {
		return nil, err
	}
	body, err := c.get(ctx, c.graphHost+c.tokenPath()+"?"+v.Encode())
	if err != nil {
		return nil, err
	}
	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("parse token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}
	return &tok, nil
}

// Revoke deletes the app's permissions for the token's user.
func (c *Client) Revoke(ctx context.Context, token string) error {
	path := c.cfg.RevokePath
	if path == "" {
		path = "/" + graphVersion + "/me/permissions"
	}
	u := c.graphHost + path + "?access_token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
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

// FetchUserInfo returns the profile plus the first managed page, which is
// what posting targets. Accounts without a page stay linked but can only
// be posted to once a page is granted.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (*model.ProviderProfile, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/%s/me?fields=id,name,picture&access_token=%s",
		c.graphHost, graphVersion, url.QueryEscape(accessToken)))
	if err != nil {
		return nil, err
	}
	var me struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.Unmarshal(body, &me); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	profile := &model.ProviderProfile{
		ProviderUserID: me.ID,
		DisplayName:    me.Name,
		AvatarURL:      me.Picture.Data.URL,
		Extra:          map[string]string{},
	}

	pagesBody, err := c.get(ctx, fmt.Sprintf("%s/%s/me/accounts?access_token=%s",
		c.graphHost, graphVersion, url.QueryEscape(accessToken)))
	if err != nil {
		return profile, nil
	}
	var pages struct {
		Data []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(pagesBody, &pages); err == nil && len(pages.Data) > 0 {
		profile.Extra["page_id"] = pages.Data[0].ID
		profile.Extra["page_name"] = pages.Data[0].Name
		if pages.Data[0].AccessToken != "" {
			profile.Extra["page_access_token"] = pages.Data[0].AccessToken
		}
	}
	return profile, nil
}

// Post publishes to the linked page feed. An image media item becomes a
// photo post; otherwise the first media URL rides along as the link.
func (c *Client) Post(ctx context.Context, account *model.LinkedAccount, content string, media []model.MediaItem, params map[string]string) (*model.PlatformPost, error) {
	target := account.ProviderUserID
	if account.PageID != nil && *account.PageID != "" {
		target = *account.PageID
	}

	endpoint := fmt.Sprintf("%s/%s/%s/feed", c.graphHost, graphVersion, url.PathEscape(target))
	form := url.Values{}
	form.Set("message", content)
	form.Set("access_token", account.AccessToken)
	if len(media) > 0 {
		if strings.HasPrefix(media[0].MimeType, "image/") {
			endpoint = fmt.Sprintf("%s/%s/%s/photos", c.graphHost, graphVersion, url.PathEscape(target))
			form.Set("url", media[0].URL)
			form.Set("caption", content)
			form.Del("message")
		} else {
			form.Set("link", media[0].URL)
		}
	}
	if link, ok := params["link"]; ok {
		form.Set("link", link)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("post failed (%d): %s", resp.StatusCode, string(body))
	}
	var posted struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	if err := json.Unmarshal(body, &posted); err != nil {
		return nil, fmt.Errorf("parse post response: %w", err)
	}
	id := posted.PostID
	if id == "" {
		id = posted.ID
	}
	return &model.PlatformPost{PlatformPostID: id, PostedAt: time.Now().UTC()}, nil
}

func (c *Client) GetPostMetrics(ctx context.Context, account *model.LinkedAccount, postID string) (*model.PostMetrics, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/%s/%s?fields=likes.summary(true),comments.summary(true),shares&access_token=%s",
		c.graphHost, graphVersion, url.PathEscape(postID), url.QueryEscape(account.AccessToken)))
	if err != nil {
		return nil, err
	}
	var m struct {
		Likes struct {
			Summary struct {
				TotalCount int64 `json:"total_count"`
			} `json:"summary"`
		} `json:"likes"`
		Comments struct {
			Summary struct {
				TotalCount int64 `json:"total_count"`
			} `json:"summary"`
		} `json:"comments"`
		Shares struct {
			Count int64 `json:"count"`
		} `json:"shares"`
	}
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("parse metrics: %w", err)
	}
	return &model.PostMetrics{
		Likes:    m.Likes.Summary.TotalCount,
		Comments: m.Comments.Summary.TotalCount,
		Shares:   m.Shares.Count,
	}, nil
}

func (c *Client) GetAccountMetrics(ctx context.Context, account *model.LinkedAccount) (*model.AccountMetrics, error) {
	target := account.ProviderUserID
	if account.PageID != nil && *account.PageID != "" {
		target = *account.PageID
	}
	body, err := c.get(ctx, fmt.Sprintf("%s/%s/%s?fields=followers_count&access_token=%s",
		c.graphHost, graphVersion, url.PathEscape(target), url.QueryEscape(account.AccessToken)))
	if err != nil {
		return nil, err
	}
	var m struct {
		FollowersCount int64 `json:"followers_count"`
	}
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("parse metrics: %w", err)
	}
	return &model.AccountMetrics{Followers: m.FollowersCount}, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph call failed (%d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
