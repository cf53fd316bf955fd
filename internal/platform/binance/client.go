// Package binance is the REST and websocket client for the exchange: signed
// request building, market data accessors, and order placement. Every
// outbound call passes through the shared rate limiter.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/alanyoungcy/basisbot/internal/crypto"
	"github.com/alanyoungcy/basisbot/internal/domain"
)

// Credentials is the immutable credential/environment context for one client.
// A configuration change produces a new Credentials value rather than
// mutating the one an in-flight cycle is using.
type Credentials struct {
	APIKey       string
	APISecret    string
	SpotBaseURL  string
	FutBaseURL   string
	RecvWindowMs int64
}

// Signature returns a stable identity for this credential context. Clients
// are cached by signature and rebuilt only when it changes.
func (c Credentials) Signature() string {
	// The secret participates hashed through the signer, never verbatim.
	auth := crypto.HMACAuth{Key: c.APIKey, Secret: c.APISecret}
	return fmt.Sprintf("%s|%s|%s|%d|%s",
		c.APIKey, c.SpotBaseURL, c.FutBaseURL, c.RecvWindowMs, auth.Sign("ctx"))
}

// Client is the venue REST client.
type Client struct {
	creds      Credentials
	auth       *crypto.HMACAuth
	httpClient *http.Client
	limiter    domain.RateLimiter
	now        func() time.Time
}

// NewClient creates a Client for the given credential context. All requests
// are paced through limiter.
func NewClient(creds Credentials, limiter domain.RateLimiter) *Client {
	if creds.SpotBaseURL == "" {
		creds.SpotBaseURL = "https://api.binance.com"
	}
	if creds.FutBaseURL == "" {
		creds.FutBaseURL = "https://fapi.binance.com"
	}
	if creds.RecvWindowMs <= 0 {
		creds.RecvWindowMs = 5000
	}
	return &Client{
		creds: creds,
		auth:  &crypto.HMACAuth{Key: creds.APIKey, Secret: creds.APISecret},
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: limiter,
		now:     time.Now,
	}
}

// apiError is the venue's JSON error envelope.
type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e apiError) Error() string {
	return fmt.Sprintf("venue error %d: %s", e.Code, e.Msg)
}

// doPublic issues an unsigned GET and decodes the JSON response into v.
func (c *Client) doPublic(ctx context.Context, baseURL, path string, params url.Values, v any) error {
	u := baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return c.do(ctx, http.MethodGet, u, nil, v)
}

// doSigned issues an authenticated request. The logical parameters are
// timestamped, signed, and sent as the query string; the API key travels in
// the X-MBX-APIKEY header.
func (c *Client) doSigned(ctx context.Context, baseURL, method, path string, params url.Values, v any) error {
	query := c.auth.SignQuery(params, c.now().UnixMilli(), c.creds.RecvWindowMs)
	u := baseURL + path + "?" + query

	headers := map[string]string{"X-MBX-APIKEY": c.creds.APIKey}
	return c.do(ctx, method, u, headers, v)
}

// do performs one rate-limited HTTP round trip and decodes the body into v.
func (c *Client) do(ctx context.Context, method, u string, headers map[string]string, v any) error {
	release, err := c.limiter.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("binance: create request: %w", err)
	}
	for k, val := range headers {
		req.Header.Set(k, val)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("binance: %s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("binance: read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusTeapot {
		return fmt.Errorf("binance: %s: %w", req.URL.Path, domain.ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Msg != "" {
			return fmt.Errorf("binance: %s: %w", req.URL.Path, apiErr)
		}
		return fmt.Errorf("binance: %s: unexpected status %d: %s", req.URL.Path, resp.StatusCode, string(body))
	}

	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("binance: decode response: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Credential-keyed client cache
// ---------------------------------------------------------------------------

// ClientCache hands out clients keyed by credential signature. Downstream
// callers always get the client matching the latest context; an unchanged
// context reuses the existing client.
type ClientCache struct {
	mu      sync.Mutex
	limiter domain.RateLimiter
	sig     string
	client  *Client
}

// NewClientCache creates an empty cache. All clients it builds share limiter.
func NewClientCache(limiter domain.RateLimiter) *ClientCache {
	return &ClientCache{limiter: limiter}
}

// Get returns the cached client for creds, rebuilding it only when the
// credential signature changed.
func (cc *ClientCache) Get(creds Credentials) *Client {
	sig := creds.Signature()

	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.client == nil || cc.sig != sig {
		cc.client = NewClient(creds, cc.limiter)
		cc.sig = sig
	}
	return cc.client
}
