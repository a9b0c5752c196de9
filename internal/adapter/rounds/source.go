// Package rounds resolves the current lottery round from the draw
// schedule service.
package rounds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Source reports the latest known draw round. Lookups are best effort:
// generation callers fall back to round 1 when the lookup fails.
type Source interface {
	LatestRound(ctx context.Context) (int, error)
}

// Client fetches the latest round over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new round source client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ Source = (*Client)(nil)

// LatestRound returns the most recent completed draw round.
func (c *Client) LatestRound(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rounds/latest", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("round lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("round service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}
	var out struct {
		Round int `json:"round"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Round, nil
}

// Static is a fixed round source for tests and mock mode.
type Static struct {
	Round int
	Err   error
}

var _ Source = (*Static)(nil)

func (s *Static) LatestRound(ctx context.Context) (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	return s.Round, nil
}

// NewSource returns an HTTP client when a base URL is configured,
// otherwise a static fallback source.
func NewSource(baseURL string, timeout time.Duration) Source {
	if baseURL == "" {
		return &Static{Round: 0}
	}
	return NewClient(baseURL, timeout)
}
