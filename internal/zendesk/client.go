// Package zendesk is a small client for the Zendesk Support REST API v2,
// covering the ticket reads and updates the triage engine needs.
package zendesk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimeout    = 30 * time.Second
	maxResponseBytes  = 8 << 20
	maxCommentPages   = 20
	defaultRetryAfter = 5 * time.Second
	maxRetryAfter     = 60 * time.Second
)

// Config holds configuration for creating a Client.
type Config struct {
	// Subdomain is the account name in https://<subdomain>.zendesk.com.
	Subdomain string
	// Email and APIToken authenticate as "<email>/token:<token>".
	Email    string
	APIToken string

	// BaseURL overrides the API root, mainly for tests.
	BaseURL string

	// HTTPClient is used for all requests. Defaults to a client with a 30s timeout.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a typed Zendesk REST client.
type Client struct {
	baseURL    string
	email      string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client from cfg.
func NewClient(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Subdomain == "" {
			return nil, errors.New("zendesk: subdomain is required")
		}
		baseURL = fmt.Sprintf("https://%s.zendesk.com/api/v2", cfg.Subdomain)
	}
	if cfg.Email == "" || cfg.APIToken == "" {
		return nil, errors.New("zendesk: email and API token are required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		email:      cfg.Email,
		token:      cfg.APIToken,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// do executes an authenticated request. path is relative to the base URL,
// or an absolute next_page URL under it. A 429 is retried once after the
// Retry-After delay. Non-2xx responses return *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	return c.doWithRetry(ctx, method, path, body, result, false)
}

func (c *Client) doWithRetry(ctx context.Context, method, path string, body, result any, isRetry bool) error {
	url := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		url = c.baseURL + path
	} else if !strings.HasPrefix(path, c.baseURL) {
		return fmt.Errorf("zendesk: refusing to follow %q outside %s", path, c.baseURL)
	}

	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("zendesk: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("zendesk: creating request: %w", err)
	}
	req.SetBasicAuth(c.email+"/token", c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("zendesk: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("zendesk: reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusTooManyRequests && !isRetry {
			wait := retryAfter(resp.Header)
			c.logger.Info("rate limited, backing off", "duration", wait, "method", method, "path", path)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
			return c.doWithRetry(ctx, method, path, body, result, true)
		}
		return parseAPIError(resp.StatusCode, raw)
	}

	if result == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("zendesk: decoding %s %s: %w", method, path, err)
	}
	return nil
}

func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(h.Get("Retry-After")))
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryAfter {
		return maxRetryAfter
	}
	return d
}
