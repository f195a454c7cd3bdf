package tuya

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
)

const (
	TokenPath = "/v1.0/token?grant_type=1"

	// vendor code for an expired or revoked access token
	CodeTokenInvalid = 1010
)

type DeviceInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Online      bool   `json:"online"`
	ProductName string `json:"product_name,omitempty"`
	Model       string `json:"model,omitempty"`
}

type DeviceClient interface {
	ListDevices(ctx context.Context) ([]DeviceInfo, error)
	GetDeviceStatus(ctx context.Context, deviceID string) ([]StatusItem, error)
	GetDeviceInfo(ctx context.Context, deviceID string) (*DeviceInfo, error)
}

type ClientOpts struct {
	Endpoint     string
	AccessID     string
	AccessSecret string
	AccountID    string
	HTTPTimeout  time.Duration
	Rate         float64
	Burst        int
	RefreshSkew  time.Duration
	TokenStore   TokenStore
	HTTPClient   *http.Client
	Now          func() time.Time
}

type Client struct {
	endpoint   string
	accountID  string
	signer     *Signer
	tokens     *TokenCache
	limiter    *rate.Limiter
	httpClient *http.Client
	now        func() time.Time
}

type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Msg     string          `json:"msg"`
	Code    int             `json:"code"`
	T       int64           `json:"t"`
}

type tokenResult struct {
	AccessToken  string `json:"access_token"`
	ExpireTime   int64  `json:"expire_time"`
	RefreshToken string `json:"refresh_token"`
	UID          string `json:"uid"`
}

func NewClient(opts ClientOpts) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.HTTPTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	cacheOpts := []TokenCacheOption{WithClock(now)}
	if opts.RefreshSkew > 0 {
		cacheOpts = append(cacheOpts, WithRefreshSkew(opts.RefreshSkew))
	}
	if opts.TokenStore != nil {
		cacheOpts = append(cacheOpts, WithTokenStore(opts.TokenStore))
	}

	return &Client{
		endpoint:   opts.Endpoint,
		accountID:  opts.AccountID,
		signer:     NewSigner(opts.AccessID, opts.AccessSecret),
		tokens:     NewTokenCache(cacheOpts...),
		limiter:    rate.NewLimiter(limit, burst),
		httpClient: httpClient,
		now:        now,
	}
}

func (c *Client) Tokens() *TokenCache {
	return c.tokens
}

// GetToken returns the cached access token, refreshing it when needed.
func (c *Client) GetToken(ctx context.Context) (string, error) {
	return c.tokens.Get(ctx, c.fetchToken)
}

func (c *Client) fetchToken(ctx context.Context) (string, time.Duration, error) {
	result, err := c.do(ctx, "token", http.MethodGet, TokenPath, "")
	if err != nil {
		var e *common.Error
		if errors.As(err, &e) && e.Kind == common.ErrorKindVendor {
			return "", 0, common.NewAuthError("token", e.Msg, nil)
		}
		return "", 0, err
	}

	var tr tokenResult
	if err := json.Unmarshal(result, &tr); err != nil {
		return "", 0, common.NewAuthError("token", "malformed token result", err)
	}
	return tr.AccessToken, time.Duration(tr.ExpireTime) * time.Second, nil
}

func (c *Client) ListDevices(ctx context.Context) ([]DeviceInfo, error) {
	if c.accountID == "" {
		return nil, common.NewConfigError(common.EnvKeyTuyaAccountID + " is not set")
	}

	path := "/v1.0/users/" + url.PathEscape(c.accountID) + "/devices"
	result, err := c.doWithToken(ctx, "list devices", path)
	if err != nil {
		return nil, err
	}

	var devices []DeviceInfo
	if isNull(result) {
		return devices, nil
	}
	if err := json.Unmarshal(result, &devices); err != nil {
		return nil, common.NewVendorError("list devices", "malformed device list: "+err.Error())
	}
	return devices, nil
}

// GetDeviceStatus returns an empty slice when the vendor result is missing or
// not an array.
func (c *Client) GetDeviceStatus(ctx context.Context, deviceID string) ([]StatusItem, error) {
	path := "/v1.0/devices/" + url.PathEscape(deviceID) + "/status"
	result, err := c.doWithToken(ctx, "device status", path)
	if err != nil {
		return nil, err
	}

	items := []StatusItem{}
	trimmed := bytes.TrimSpace(result)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return items, nil
	}
	if err := json.Unmarshal(trimmed, &items); err != nil {
		vendorLogger().Warn("Ignoring malformed status result",
			zap.String(common.LoggerFieldDeviceID, deviceID), zap.Error(err))
		return []StatusItem{}, nil
	}
	return items, nil
}

func (c *Client) GetDeviceInfo(ctx context.Context, deviceID string) (*DeviceInfo, error) {
	path := "/v1.0/devices/" + url.PathEscape(deviceID)
	result, err := c.doWithToken(ctx, "device info", path)
	if err != nil {
		return nil, err
	}

	var info DeviceInfo
	if err := json.Unmarshal(result, &info); err != nil {
		return nil, common.NewVendorError("device info", "malformed device info: "+err.Error())
	}
	return &info, nil
}

func (c *Client) doWithToken(ctx context.Context, op, path string) (json.RawMessage, error) {
	token, err := c.GetToken(ctx)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, op, http.MethodGet, path, token)
}

func (c *Client) do(ctx context.Context, op, method, path, token string) (json.RawMessage, error) {
	logger := vendorLogger().With(zap.String(common.LoggerFieldVendorPath, path))

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, common.NewTransportError(op, err)
	}

	timestamp := strconv.FormatInt(c.now().UnixMilli(), 10)
	sign := c.signer.Sign(method, path, "", timestamp, token)

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, nil)
	if err != nil {
		return nil, common.NewTransportError(op, err)
	}
	req.Header.Set("t", timestamp)
	req.Header.Set("sign_method", SignMethod)
	req.Header.Set("client_id", c.signer.AccessID())
	req.Header.Set("sign", sign)
	if token != "" {
		req.Header.Set("access_token", token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("Vendor request failed", zap.Error(err))
		return nil, common.NewTransportError(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.NewTransportError(op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn("Vendor answered with non-2xx", zap.Int("status", resp.StatusCode))
		return nil, common.NewTransportError(op, fmt.Errorf("unexpected http status %d", resp.StatusCode))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, common.NewTransportError(op, fmt.Errorf("decode envelope: %w", err))
	}
	if !env.Success {
		if env.Code == CodeTokenInvalid && token != "" {
			c.tokens.Invalidate()
		}
		logger.Warn("Vendor reported failure", zap.Int("code", env.Code), zap.String("msg", env.Msg))
		msg := env.Msg
		if msg == "" {
			msg = fmt.Sprintf("vendor code %d", env.Code)
		}
		return nil, common.NewVendorError(op, msg)
	}
	return env.Result, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
