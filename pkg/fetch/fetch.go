// Package fetch retrieves the remote launcher configuration. It runs as a
// background task started by the pipeline: the request is bounded, and the
// paired config-update step consumes the result later.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/systemstart/prelaunch/pkg/api"
)

const (
	requestTimeout = 5 * time.Second

	// maxConfigSize caps the remote payload; launcher configs are tiny.
	maxConfigSize = 1 << 20
)

// Client fetches and parses a remote config URL.
type Client struct {
	url  string
	http *http.Client
}

// New creates a client for the given config URL.
func New(url string) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: requestTimeout},
	}
}

// Fetch downloads and parses the remote config. A cancelled context
// surfaces as an error wrapping context.Canceled, which the pipeline treats
// as a silent teardown.
func (c *Client) Fetch(ctx context.Context) (*api.Config, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building config request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching config: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxConfigSize))
	if err != nil {
		return nil, fmt.Errorf("reading config response: %w", err)
	}

	cfg, err := api.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("remote config: %w", err)
	}

	return cfg, nil
}
