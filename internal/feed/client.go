package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bartdw-data/internal/common/logger"
)

const userAgent = "bartdw/1.0"

// Client fetches raw feed payloads over HTTP.
type Client struct {
	httpClient *http.Client
	logger     logger.Logger
}

func NewClient(timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		logger: log,
	}
}

// Fetch retrieves the raw protobuf payload from url. Any transport failure
// or non-2xx status wraps ErrFeedUnavailable.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/x-protobuf")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d from %s", ErrFeedUnavailable, resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", ErrFeedUnavailable, err)
	}

	c.logger.Debug("Fetched feed payload", "url", url, "bytes", len(body))
	return body, nil
}
