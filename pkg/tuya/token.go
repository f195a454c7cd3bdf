package tuya

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
)

const DefaultRefreshSkew = 60 * time.Second

type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	RefreshAt   time.Time `json:"refresh_at"`
}

func (t *Token) freshAt(now time.Time) bool {
	return t != nil && t.AccessToken != "" && now.Before(t.RefreshAt)
}

// TokenStore is a second tier behind the in-memory token, so a restarted
// process can reuse a token that has not expired yet.
type TokenStore interface {
	Load(ctx context.Context) (*Token, error)
	Save(ctx context.Context, token Token) error
	Clear(ctx context.Context) error
}

// FetchFunc asks the vendor for a new token valid for expiresIn.
type FetchFunc func(ctx context.Context) (accessToken string, expiresIn time.Duration, err error)

type TokenCache struct {
	mu    sync.Mutex
	token *Token
	group singleflight.Group

	skew  time.Duration
	now   func() time.Time
	store TokenStore

	fetches int64
}

type TokenCacheOption func(*TokenCache)

func WithRefreshSkew(skew time.Duration) TokenCacheOption {
	return func(c *TokenCache) {
		if skew >= 0 {
			c.skew = skew
		}
	}
}

func WithClock(now func() time.Time) TokenCacheOption {
	return func(c *TokenCache) {
		if now != nil {
			c.now = now
		}
	}
}

func WithTokenStore(store TokenStore) TokenCacheOption {
	return func(c *TokenCache) {
		c.store = store
	}
}

func NewTokenCache(opts ...TokenCacheOption) *TokenCache {
	c := &TokenCache{
		skew: DefaultRefreshSkew,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached token while it is fresh. Otherwise a single refresh
// runs and every concurrent caller waits for its result. Failed refreshes are
// not cached.
func (c *TokenCache) Get(ctx context.Context, fetch FetchFunc) (string, error) {
	if token, ok := c.cached(); ok {
		return token, nil
	}

	v, err, _ := c.group.Do("token", func() (any, error) {
		if token, ok := c.cached(); ok {
			return token, nil
		}
		if token := c.loadStored(ctx); token != nil {
			return token.AccessToken, nil
		}
		return c.refresh(ctx, fetch)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the token so the next Get refreshes it.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()

	if c.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.store.Clear(ctx); err != nil {
			vendorLogger().Warn("Failed to clear stored token", zap.Error(err))
		}
	}
}

// Fetches counts refreshes that reached the vendor.
func (c *TokenCache) Fetches() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

func (c *TokenCache) cached() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token.freshAt(c.now()) {
		return c.token.AccessToken, true
	}
	return "", false
}

func (c *TokenCache) loadStored(ctx context.Context) *Token {
	if c.store == nil {
		return nil
	}
	token, err := c.store.Load(ctx)
	if err != nil {
		vendorLogger().Warn("Failed to load stored token", zap.Error(err))
		return nil
	}
	if !token.freshAt(c.now()) {
		return nil
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return token
}

func (c *TokenCache) refresh(ctx context.Context, fetch FetchFunc) (string, error) {
	c.mu.Lock()
	c.fetches++
	c.mu.Unlock()

	accessToken, expiresIn, err := fetch(ctx)
	if err != nil {
		return "", err
	}
	if accessToken == "" {
		return "", common.NewAuthError("token", "empty access token", nil)
	}

	now := c.now()
	token := &Token{
		AccessToken: accessToken,
		ExpiresAt:   now.Add(expiresIn),
		RefreshAt:   now.Add(expiresIn - c.skew),
	}
	// a lifetime shorter than the skew would never be served from cache
	if expiresIn <= c.skew {
		token.RefreshAt = now.Add(expiresIn / 2)
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Save(ctx, *token); err != nil {
			vendorLogger().Warn("Failed to persist token", zap.Error(err))
		}
	}

	vendorLogger().Info("Vendor access token refreshed", zap.Time("expires_at", token.ExpiresAt))
	return token.AccessToken, nil
}

func vendorLogger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNameVendor)
}

type RedisTokenStore struct {
	client *redis.Client
	key    string
}

// NewRedisTokenStore keys the token by access id so two credentials sharing
// a Redis never read each other's token.
func NewRedisTokenStore(client *redis.Client, accessID string) *RedisTokenStore {
	return &RedisTokenStore{client: client, key: "tuya:token:" + accessID}
}

func (s *RedisTokenStore) Load(ctx context.Context) (*Token, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var token Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *RedisTokenStore) Save(ctx context.Context, token Token) error {
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, raw, ttl).Err()
}

func (s *RedisTokenStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
