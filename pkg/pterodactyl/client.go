package pterodactyl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/cythro/cythrodash-core/pkg/errors"
)

const (
	applicationAPIPrefix       = "/api/application"
	errorBodyReadLimit   int64 = 1024
)

var errAPIKeyRequired = errors.New("panel api key is required")

var errBaseURLRequired = errors.New("panel base url is required")

// Client wraps the Pterodactyl application API calls the lifecycle
// controller performs. All failures are dependency errors: callers log
// them and keep going, they never block a database transition.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds a panel client for the given base URL and API key.
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	trimmedURL := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmedURL == "" {
		return nil, errBaseURLRequired
	}
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		baseURL:    trimmedURL,
		apiKey:     trimmedKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// SuspendServer suspends the server identified by the panel's own id.
func (c *Client) SuspendServer(ctx context.Context, panelServerID string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("%s/servers/%s/suspend", applicationAPIPrefix, panelServerID))
}

// UnsuspendServer lifts a suspension on the panel side.
func (c *Client) UnsuspendServer(ctx context.Context, panelServerID string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("%s/servers/%s/unsuspend", applicationAPIPrefix, panelServerID))
}

// DeleteServer removes the server from the panel.
func (c *Client) DeleteServer(ctx context.Context, panelServerID string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/servers/%s", applicationAPIPrefix, panelServerID))
}

func (c *Client) do(ctx context.Context, method, path string) error {
	if strings.TrimSpace(path) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "panel request path is required")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build panel request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "panel request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	return pkgerrors.New(pkgerrors.CodeDependency,
		fmt.Sprintf("panel returned %d for %s %s", resp.StatusCode, method, path)).
		WithDetails(strings.TrimSpace(string(body)))
}
