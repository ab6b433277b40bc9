package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"social-hub/domain/model"
	"social-hub/domain/repository"
	"social-hub/infrastructure/configuration"
	"social-hub/infrastructure/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"
)

// Client implements the platform contract against YouTube Data API v3.
// A "post" here is a video upload, so at least one media item is required
// and it must be a video the resolver can serve back to us.
type Client struct {
	cfg        configuration.OAuthClient
	oauth      *oauth2.Config
	httpClient *http.Client
}

func New(cfg configuration.OAuthClient) *Client {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{youtubeapi.YoutubeUploadScope, youtubeapi.YoutubeReadonlyScope}
	}
	return &Client{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint:     google.Endpoint,
		},
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

var _ repository.IPlatformClient = (*Client)(nil)

func (c *Client) Name() string { return "youtube" }

func (c *Client) Spec() model.PlatformSpec {
	return model.PlatformSpec{
		RefreshReusesAccessToken: false,
		ScopeDelimiter:           " ",
		MinMediaItems:            1,
		SupportsRevoke:           true,
	}
}

func (c *Client) BuildAuthorizationURL(state string) (string, error) {
	if c.oauth.ClientID == "" || c.oauth.RedirectURL == "" {
		return "", fmt.Errorf("youtube oauth not configured")
	}
	// Google only issues a refresh token for offline access with consent.
	return c.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (*model.TokenRecord, error) {
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return fromOAuth2Token(tok, c.oauth.Scopes), nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*model.TokenRecord, error) {
	src := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, err
	}
	rec := fromOAuth2Token(tok, c.oauth.Scopes)
	// Google keeps the refresh token stable; reuse it when omitted.
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
	endpoint := "https://oauth2.googleapis.com/revoke"
	if c.cfg.RevokePath != "" && c.cfg.TokenHost != "" {
		endpoint = strings.TrimRight(c.cfg.TokenHost, "/") + c.cfg.RevokePath
	}
	form := url.Values{}
	form.Set("token", token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke failed (%d)", resp.StatusCode)
	}
	return nil
}

func (c *Client) service(ctx context.Context, accessToken string) (*youtubeapi.Service, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	return youtubeapi.NewService(ctx, option.WithTokenSource(src))
}

// FetchUserInfo maps the user's own channel into a profile.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (*model.ProviderProfile, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	res, err := svc.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, fmt.Errorf("no channel for authorized user")
	}
	ch := res.Items[0]
	profile := &model.ProviderProfile{
		ProviderUserID: ch.Id,
		DisplayName:    ch.Snippet.Title,
		Extra:          map[string]string{"channel_id": ch.Id},
	}
	if ch.Snippet.Thumbnails != nil && ch.Snippet.Thumbnails.Default != nil {
		profile.AvatarURL = ch.Snippet.Thumbnails.Default.Url
	}
	return profile, nil
}

// Post uploads the first media item as a video. Content becomes the
// title (first line) and description.
func (c *Client) Post(ctx context.Context, account *model.LinkedAccount, content string, media []model.MediaItem, params map[string]string) (*model.PlatformPost, error) {
	if len(media) == 0 {
		return nil, &model.ValidationError{Reason: "youtube requires a video media item"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, media[0].URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch media returned %d", resp.StatusCode)
	}

	svc, err := c.service(ctx, account.AccessToken)
	if err != nil {
		return nil, err
	}

	title := content
	if i := strings.IndexByte(title, '\n'); i > 0 {
		title = title[:i]
	}
	if len(title) > 100 {
		title = title[:100]
	}
	privacy := params["privacy_status"]
	if privacy == "" {
		privacy = "private"
	}
	video := &youtubeapi.Video{
		Snippet: &youtubeapi.VideoSnippet{
			Title:       title,
			Description: content,
		},
		Status: &youtubeapi.VideoStatus{PrivacyStatus: privacy},
	}
	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(resp.Body).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	logger.GetLogger().WithField("video_id", uploaded.Id).Info("youtube upload complete")
	return &model.PlatformPost{PlatformPostID: uploaded.Id, PostedAt: time.Now().UTC()}, nil
}

func (c *Client) GetPostMetrics(ctx context.Context, account *model.LinkedAccount, postID string) (*model.PostMetrics, error) {
	svc, err := c.service(ctx, account.AccessToken)
	if err != nil {
		return nil, err
	}
	res, err := svc.Videos.List([]string{"statistics"}).Id(postID).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, &model.NotFoundError{Entity: "video", ID: postID}
	}
	st := res.Items[0].Statistics
	return &model.PostMetrics{
		Likes:    int64(st.LikeCount),
		Comments: int64(st.CommentCount),
		Views:    int64(st.ViewCount),
	}, nil
}

func (c *Client) GetAccountMetrics(ctx context.Context, account *model.LinkedAccount) (*model.AccountMetrics, error) {
	svc, err := c.service(ctx, account.AccessToken)
	if err != nil {
		return nil, err
	}
	res, err := svc.Channels.List([]string{"statistics"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, &model.NotFoundError{Entity: "channel", ID: account.ProviderUserID}
	}
	st := res.Items[0].Statistics
	return &model.AccountMetrics{
		Followers: int64(st.SubscriberCount),
		Posts:     int64(st.VideoCount),
	}, nil
}
