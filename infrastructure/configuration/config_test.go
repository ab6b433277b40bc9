package configuration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlatformOAuth(t *testing.T) {
	o := &OAuth{
		Facebook: OAuthClient{ClientID: "fb"},
		Twitter:  OAuthClient{ClientID: "tw"},
	}

	fb, ok := o.PlatformOAuth("facebook")
	assert.True(t, ok)
	assert.Equal(t, "fb", fb.ClientID)

	tw, ok := o.PlatformOAuth("Twitter")
	assert.True(t, ok, "lookup is case insensitive")
	assert.Equal(t, "tw", tw.ClientID)

	_, ok = o.PlatformOAuth("myspace")
	assert.False(t, ok)
}

func TestInitDefaults(t *testing.T) {
	var cfg Config
	initDefaults(&cfg)

	assert.Equal(t, 600, cfg.OAuth.StateTTLSeconds)
	assert.Equal(t, 30, cfg.Publish.CallTimeoutSeconds)
	assert.Equal(t, 15, cfg.Publish.SchedulerIntervalSeconds)
	assert.Equal(t, 10, cfg.Publish.SchedulerBatchSize)
	assert.Equal(t, 3600, cfg.OAuth.Facebook.CacheOptions.TokenTTLSeconds)
	assert.Equal(t, 30*24*3600, cfg.OAuth.Twitter.CacheOptions.RefreshTokenTTLSeconds)
}

func TestInitApp_DefaultPort(t *testing.T) {
	var cfg Config
	initApp(&cfg)
	assert.Equal(t, 10001, cfg.App.Port)
}
