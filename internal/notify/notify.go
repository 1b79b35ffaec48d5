// Package notify delivers short user notifications over an ntfy-style
// HTTP endpoint.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client posts notifications to a fixed endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a Client. A nil httpClient uses http.DefaultClient.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpoint: endpoint, http: httpClient}
}

// Notify sends a title+message pair. The title travels in the ntfy Title
// header; the message is the plain-text body.
func (c *Client) Notify(ctx context.Context, title, message string) error {
	if c.endpoint == "" {
		return errors.New("notify: no endpoint configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	if title != "" {
		req.Header.Set("Title", title)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
