package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"social-hub/domain/model"
	"social-hub/infrastructure/configuration"
)

// Token type namespaces used in cache keys.
const (
	TokenTypeAccess  = "access_token"
	TokenTypeRefresh = "refresh_token"
)

// Key builds the deterministic cache key for a token:
// "{access_token|refresh_token}:{platform}:{identifier}".
func Key(tokenType, platform, identifier string) string {
	return fmt.Sprintf("%s:%s:%s", tokenType, platform, identifier)
}

// TTLResolver returns the cache options for a platform. Wiring passes a
// closure over configuration.C; tests substitute fixed values.
type TTLResolver func(platform string) configuration.CacheOptions

// TokenCache stores normalized token records with per-token-type TTLs.
// Read/write errors from the backing store propagate to the caller:
// token loss is a correctness issue, not a soft failure.
type TokenCache struct {
	store Store
	ttls  TTLResolver
}

func NewTokenCache(store Store, ttls TTLResolver) *TokenCache {
	if ttls == nil {
		ttls = func(platform string) configuration.CacheOptions {
			if oc, ok := configuration.C.OAuth.PlatformOAuth(platform); ok {
				return oc.CacheOptions
			}
			return configuration.CacheOptions{TokenTTLSeconds: 3600, RefreshTokenTTLSeconds: 30 * 24 * 3600}
		}
	}
	return &TokenCache{store: store, ttls: ttls}
}

// Get returns the cached record or nil when the key is absent.
func (c *TokenCache) Get(ctx context.Context, key string) (*model.TokenRecord, error) {
	raw, err := c.store.Get(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec model.TokenRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("corrupt token record at %s: %w", key, err)
	}
	return &rec, nil
}

// Set writes the record. A zero ttl resolves the default for the key's
// token type and platform from configuration.
func (c *TokenCache) Set(ctx context.Context, key string, rec *model.TokenRecord, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL(key)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, key, string(raw), ttl)
}

// Delete removes the key; deleting a missing key is not an error.
func (c *TokenCache) Delete(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

func (c *TokenCache) defaultTTL(key string) time.Duration {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 3 {
		return time.Hour
	}
	opts := c.ttls(parts[1])
	if parts[0] == TokenTypeRefresh {
		return time.Duration(opts.RefreshTokenTTLSeconds) * time.Second
	}
	return time.Duration(opts.TokenTTLSeconds) * time.Second
}
