// Package gocardless implements the GoCardless API client core: an
// authenticated JSON client with transparent rate-limit backoff, cursor
// pagination with side-load caching, and cache-first object resolution.
package gocardless

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Config holds API client configuration.
type Config struct {
	BaseURL string        `envconfig:"GC_BASE_URL" default:"https://api.gocardless.com"`
	Version string        `envconfig:"GC_API_VERSION" default:"2015-07-06"`
	Timeout time.Duration `envconfig:"GC_TIMEOUT" default:"30s"`
}

// Client issues authenticated requests against the GoCardless API. It is
// safe to reuse across refreshes; all per-refresh state lives in the Cache.
type Client struct {
	config     Config
	token      string
	httpClient *http.Client
	logger     *slog.Logger

	// sleep is the backoff suspension. Swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewClient creates a client. An empty token is valid for the token-issuance
// call only; every other request requires a bearer token.
func NewClient(cfg Config, token string, logger *slog.Logger) *Client {
	return &Client{
		config: cfg,
		token:  token,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
		sleep:  sleepContext,
		now:    time.Now,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// get issues a GET request and returns the raw response body. Rate-limit
// rejections are retried after the server-declared reset time; any other
// remote error is returned as an *APIError.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, params, nil)
}

// post issues a POST request with a JSON body.
func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, nil, payload)
}

// do performs one logical request. The request is rebuilt on every attempt
// so a rate-limit retry re-issues it identically. The retry count is
// unbounded: the loop ends on success, a non-rate-limit error, or context
// cancellation during the backoff sleep.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body []byte) ([]byte, error) {
	endpoint := c.config.BaseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	for {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("GoCardless-Version", c.config.Version)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("http request: %w", err)
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode < 400 {
			return respBody, nil
		}

		apiErr := decodeAPIError(resp.StatusCode, respBody)
		if !apiErr.RateLimited() {
			return nil, apiErr
		}

		wait, err := c.rateLimitWait(resp.Header.Get("RateLimit-Reset"))
		if err != nil {
			return nil, err
		}

		c.logger.Warn("rate limited, backing off",
			"method", method,
			"path", path,
			"wait", wait,
		)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// rateLimitWait computes how long to suspend until the declared reset time
// has passed: resetTime - now + 1s.
func (c *Client) rateLimitWait(header string) (time.Duration, error) {
	if header == "" {
		// No reset declared; a single window is the best guess available.
		return time.Minute, nil
	}
	reset, err := ParseRFC5322(header)
	if err != nil {
		return 0, fmt.Errorf("rate limit reset header: %w", err)
	}
	wait := reset.Sub(c.now()) + time.Second
	if wait < time.Second {
		wait = time.Second
	}
	return wait, nil
}
