package facebook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-hub/infrastructure/configuration"
)

func testConfig(tokenHost string) configuration.OAuthClient {
	return configuration.OAuthClient{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://app.local/auth/facebook/callback",
		TokenHost:    tokenHost,
		Scopes:       []string{"pages_show_list", "pages_manage_posts"},
	}
}

func TestSpec_DeclaresQuirks(t *testing.T) {
	spec := New(testConfig("")).Spec()
	assert.True(t, spec.RefreshReusesAccessToken)
	assert.Equal(t, ",", spec.ScopeDelimiter)
	assert.Equal(t, 0, spec.MinMediaItems)
	assert.True(t, spec.SupportsRevoke)
}

func TestBuildAuthorizationURL(t *testing.T) {
	raw, err := New(testConfig("")).BuildAuthorizationURL("state-token")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "state-token", q.Get("state"))
	assert.Equal(t, "pages_show_list,pages_manage_posts", q.Get("scope"), "facebook scopes are comma separated")
}

func TestBuildAuthorizationURL_Unconfigured(t *testing.T) {
	_, err := New(configuration.OAuthClient{}).BuildAuthorizationURL("s")
	assert.Error(t, err)
}

func TestExchangeCode_LongLivedTokenDoublesAsRefreshToken(t *testing.T) {
	var calls []url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		switch len(calls) {
		case 1:
			_, _ = w.Write([]byte(`{"access_token":"short-lived","token_type":"bearer","expires_in":5184}`))
		default:
			_, _ = w.Write([]byte(`{"access_token":"long-lived","token_type":"bearer","expires_in":5184000}`))
		}
	}))
	defer srv.Close()

	client := New(testConfig(srv.URL))
	rec, err := client.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)

	require.Len(t, calls, 2, "code exchange then long-lived upgrade")
	assert.Equal(t, "the-code", calls[0].Get("code"))
	assert.Equal(t, "fb_exchange_token", calls[1].Get("grant_type"))
	assert.Equal(t, "short-lived", calls[1].Get("fb_exchange_token"))

	assert.Equal(t, "long-lived", rec.AccessToken)
	assert.Equal(t, "long-lived", rec.RefreshToken, "long-lived token serves as its own refresh token")
	assert.False(t, rec.ExpiresAt.IsZero())
}

func TestExchangeCode_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid verification code format."}}`))
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL)).ExchangeCode(context.Background(), "bad-code")
	assert.Error(t, err)
}

func TestRefresh_ReusesCurrentToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fb_exchange_token", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "current-token", r.URL.Query().Get("fb_exchange_token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"renewed","token_type":"bearer","expires_in":5184000}`))
	}))
	defer srv.Close()

	rec, err := New(testConfig(srv.URL)).Refresh(context.Background(), "current-token")
	require.NoError(t, err)
	assert.Equal(t, "renewed", rec.AccessToken)
	assert.Equal(t, "renewed", rec.RefreshToken)
}
