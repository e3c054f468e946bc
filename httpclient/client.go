package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is an HTTP client for the remote collection service with
// bearer-token authentication. Requests are single-shot: submission
// failures are reported to the caller, never retried here (losing an
// occasional artifact is acceptable, blocking a capture cadence is not).
type Client struct {
	serverURL  string
	token      string
	httpClient *http.Client
}

// Config holds configuration for the HTTP client
type Config struct {
	ServerURL      string
	AuthToken      string
	TimeoutSeconds int
}

// NewClient creates a new HTTP client
func NewClient(cfg Config) *Client {
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = 30
	}

	return &Client{
		serverURL: cfg.ServerURL,
		token:     cfg.AuthToken,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// WithToken returns a copy of the client that authenticates with the
// given bearer token. Used when a fresh login replaces the session.
func (c *Client) WithToken(token string) *Client {
	copied := *c
	copied.token = token
	return &copied
}

// PostJSON sends a POST request with a JSON body. When out is non-nil
// the response body is decoded into it.
func (c *Client) PostJSON(ctx context.Context, endpoint string, payload, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.serverURL+endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// PostMultipart sends a multipart/form-data request (for file uploads)
func (c *Client) PostMultipart(ctx context.Context, endpoint string, body io.Reader, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, "POST", c.serverURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
