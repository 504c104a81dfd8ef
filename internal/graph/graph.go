// Package graph is a minimal Microsoft Graph drive client: item lookup by
// path, drive enumeration, version history, and share-URL resolution.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/NichUK/onedrive-versions/internal/logging"
	"github.com/NichUK/onedrive-versions/internal/retry"
	"github.com/google/uuid"
)

// DefaultBaseURL is the production Graph REST base.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// maxErrorBody bounds how much of a failure response is kept for diagnostics.
const maxErrorBody = 8 << 10

// Client performs authenticated requests against the Graph drive API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig retry.Config

	mu    sync.RWMutex
	token string
}

// Config holds client configuration.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	RetryConfig retry.Config
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryConfig.MaxAttempts == 0 {
		cfg.RetryConfig = retry.DefaultConfig()
	}

	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		retryConfig: cfg.RetryConfig,
	}
}

// SetToken sets the bearer token for subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// applyAuth adds the auth header to a request if a token is set.
func (c *Client) applyAuth(req *http.Request) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// do executes one request against an API endpoint, retrying throttled and
// server-side failures. endpoint must start with "/" and be pre-encoded.
func (c *Client) do(ctx context.Context, method, endpoint string) ([]byte, error) {
	return retry.DoWithResult(ctx, c.retryConfig, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, nil)
		if err != nil {
			return nil, err
		}

		requestID := uuid.NewString()
		req.Header.Set("client-request-id", requestID)
		c.applyAuth(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, retry.Retryable(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return io.ReadAll(resp.Body)
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		kind, code, message := classify(resp.StatusCode, body)
		apiErr := &Error{
			Kind:      kind,
			Status:    resp.StatusCode,
			Endpoint:  method + " " + endpoint,
			Code:      code,
			Message:   message,
			RequestID: serverRequestID(resp, requestID),
			Body:      string(body),
		}

		logging.Debug("graph request failed",
			logging.String("endpoint", apiErr.Endpoint),
			logging.Int("status", resp.StatusCode),
			logging.String("kind", kind.String()),
			logging.String("request_id", apiErr.RequestID),
		)

		switch {
		case kind == KindThrottled:
			return nil, retry.RetryableAfter(apiErr, retryAfter(resp))
		case resp.StatusCode >= 500:
			return nil, retry.Retryable(apiErr)
		default:
			return nil, apiErr
		}
	})
}

// getJSON performs a GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	body, err := c.do(ctx, http.MethodGet, endpoint)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("graph: decoding %s: %w", endpoint, err)
	}
	return nil
}

// serverRequestID prefers the service's echoed correlation id over the
// client-generated one.
func serverRequestID(resp *http.Response, fallback string) string {
	if id := resp.Header.Get("request-id"); id != "" {
		return id
	}
	return fallback
}

// retryAfter reads the server's requested delay, zero when absent.
func retryAfter(resp *http.Response) time.Duration {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
