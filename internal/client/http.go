package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alfredjeanlab/adverthide/internal/updater"
)

const (
	requestTimeout = 2 * time.Minute
	userAgent      = "adverthide-cli"
	maxErrorBody   = 64 << 10
)

// HTTPClient talks to the /v1 API of an adverthide server.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient returns a client for the server at baseURL, for example
// "http://localhost:8080". token, when set, is sent as a bearer token.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

func (c *HTTPClient) Close() error { return nil }

func (c *HTTPClient) Health(ctx context.Context) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.call(ctx, http.MethodGet, "/v1/health", &body); err != nil {
		return err
	}
	if body.Status != "ok" {
		return fmt.Errorf("server unhealthy: status %q", body.Status)
	}
	return nil
}

func (c *HTTPClient) Status(ctx context.Context) (*updater.Status, error) {
	st := new(updater.Status)
	if err := c.call(ctx, http.MethodGet, "/v1/status", st); err != nil {
		return nil, err
	}
	return st, nil
}

func (c *HTTPClient) Tick(ctx context.Context) (*updater.Result, error) {
	res := new(updater.Result)
	if err := c.call(ctx, http.MethodPost, "/v1/tick", res); err != nil {
		return nil, err
	}
	return res, nil
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// newRequest builds a request for path carrying the client's credentials.
func (c *HTTPClient) newRequest(ctx context.Context, method, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// call sends a body-less request and decodes the JSON answer into out.
func (c *HTTPClient) call(ctx context.Context, method, path string, out any) error {
	req, err := c.newRequest(ctx, method, path)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return readAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// readAPIError turns an error response into an *APIError. The server sends
// {"error": "..."}; anything else is passed through as text.
func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
	}
	return apiErr
}
