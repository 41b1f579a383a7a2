package registry

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/registrypulse/registrypulse/internal/config"
)

// maxErrorBody bounds how much of an error response body is read for the
// detail message.
const maxErrorBody = 4 << 10

// Sentinel errors callers branch on with errors.Is.
var (
	// ErrNotFound is returned when a primary lookup targets a missing resource.
	ErrNotFound = errors.New("registry: not found")

	// ErrDuplicate is returned when an ingest conflicts with an existing artifact.
	ErrDuplicate = errors.New("registry: duplicate artifact")
)

// APIError is a non-2xx registry response. Detail carries the server's own
// message verbatim, so validation errors (unsafe regex, malformed ingest)
// surface to the user exactly as the registry phrased them.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("registry: server returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("registry: server returned HTTP %d: %s", e.StatusCode, e.Detail)
}

// Client issues requests against one registry instance. It is safe for
// concurrent use; build it once and share it.
type Client struct {
	baseURL    string
	metricsURL string
	http       *http.Client
}

// New constructs a Client from the registry configuration. The HTTP client,
// auth transport and TLS settings are built once and reused for every request.
func New(cfg config.RegistryConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("registry: base URL is required")
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		metricsURL: cfg.MetricsURL,
		http: &http.Client{
			Transport: &authRoundTripper{
				base: &http.Transport{
					TLSClientConfig: &tls.Config{
						InsecureSkipVerify: cfg.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
					},
				},
				auth: cfg.Auth,
			},
			Timeout: cfg.Timeout,
		},
	}, nil
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.auth.EffectiveHeader(), t.auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.auth.Username, t.auth.Password())
	}
	return t.base.RoundTrip(req)
}

// do issues one JSON request against the registry. A non-nil body is encoded
// as the JSON request body; a non-nil out receives the decoded response.
// Non-2xx responses become an *APIError via apiError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("registry: encode request: %w", err)
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("registry: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("registry: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}

	if out != nil {
		// An empty body (202 ingest acks have none) leaves out at its zero value.
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("registry: decode %s response: %w", path, err)
		}
	}
	return nil
}

// apiError builds an *APIError from a non-2xx response, extracting the detail
// message from a JSON error body or falling back to the raw text.
func apiError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	detail := strings.TrimSpace(string(data))
	var body struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		switch {
		case body.Error != "":
			detail = body.Error
		case body.Detail != "":
			detail = body.Detail
		}
	}

	return &APIError{StatusCode: resp.StatusCode, Detail: detail}
}

// statusOf extracts the HTTP status code from an *APIError, or 0.
func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
