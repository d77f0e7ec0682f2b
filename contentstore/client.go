package contentstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/pkg/opaquekeys"
	"github.com/effective-security/xlog"
)

// DefaultTimeout of content requests
const DefaultTimeout = 10 * time.Second

// Doer performs HTTP requests
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a Store over the platform xblock API
type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient Doer
}

var _ Store = (*Client)(nil)

// NewClient returns a client for the base URL of the platform
func NewClient(baseURL, token string, timeout time.Duration, httpClient Doer) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid content store URL: %q", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		timeout:    timeout,
		httpClient: httpClient,
	}, nil
}

// GetUnit implements Store
func (c *Client) GetUnit(ctx context.Context, key *opaquekeys.UsageKey) (*Block, error) {
	return c.GetItem(ctx, key)
}

// GetItem implements Store
func (c *Client) GetItem(ctx context.Context, key *opaquekeys.UsageKey) (*Block, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + "/api/xblock/v1/" + url.PathEscape(key.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get %s", key.String())
	}
	defer resp.Body.Close()

	logger.ContextKV(ctx, xlog.DEBUG,
		"key", key.String(),
		"status", resp.StatusCode,
		"elapsed", time.Since(started).String(),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.WithMessagef(ErrNotFound, "%s", key.String())
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, errors.Errorf("content store returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var b Block
	if err = json.NewDecoder(resp.Body).Decode(&b); err != nil {
		return nil, errors.Wrap(err, "failed to decode block")
	}
	if b.ID == "" {
		b.ID = key.String()
	}
	return &b, nil
}

func (c *Client) String() string {
	return fmt.Sprintf("contentstore(%s)", c.baseURL)
}
