// Raw HTTP access to the store API
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audx/internal/shared"
	"golang.org/x/time/rate"
)

const defaultBaseURL string = "http://127.0.0.1:8080"

// RequestIDHeader carries a per-request identifier for correlating client and server logs.
const RequestIDHeader = "X-Request-ID"

// APIService performs raw JSON requests against the store API.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// APIOption configures an [APIService].
type APIOption func(*APIService)

// WithRateLimit caps outgoing requests at rps per second. Zero or less disables limiting.
func WithRateLimit(rps float64) APIOption {
	return func(a *APIService) {
		if rps > 0 {
			a.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) APIOption {
	return func(a *APIService) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAPIService creates a new API service instance for the store at baseURL.
func NewAPIService(baseURL string, client *http.Client, opts ...APIOption) *APIService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	a := &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		logger:     shared.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BaseURL returns the store's base URL without a trailing slash.
func (a *APIService) BaseURL() string {
	return a.baseURL
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports whether the status is 2xx.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns nil for a 2xx response and a [*shared.RemoteError] otherwise.
func (r *APIResponse) Err() error {
	if r.OK() {
		return nil
	}
	return &shared.RemoteError{Status: r.StatusCode, Message: extractMessage(r.Body)}
}

// Decode unmarshals the body into v. An empty body leaves v untouched.
func (r *APIResponse) Decode(v any) error {
	if v == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Do sends a request with an optional JSON body and returns the raw response.
func (a *APIService) Do(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrNetworkFailure, err)
		}
	}

	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := shared.GenerateID()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Debug("request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return nil, fmt.Errorf("%w: %w", shared.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", shared.ErrNetworkFailure, err)
	}

	a.logger.Debug("request", "method", method, "path", path, "status", resp.StatusCode, "request_id", requestID)

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       raw,
	}

	var jsonData any
	if err := json.Unmarshal(raw, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// Get performs a GET request to path.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.Do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPost, path, data)
}

// Put performs a PUT request with the given JSON data.
func (a *APIService) Put(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPut, path, data)
}

// Delete performs a DELETE request to path.
func (a *APIService) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return a.Do(ctx, http.MethodDelete, path, nil)
}

// call marshals in (when non-nil), sends the request, converts non-2xx into a [*shared.RemoteError], and decodes into out.
func (a *APIService) call(ctx context.Context, method, path string, in, out any) error {
	var data []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		data = b
	}

	resp, err := a.Do(ctx, method, path, data)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	return resp.Decode(out)
}

// extractMessage pulls a displayable message out of an error body: a JSON string, a plain-text body,
// or a non-blank "message" then "error" field. Anything else yields "".
func extractMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return string(trimmed)
	}

	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		for _, field := range []string{"message", "error"} {
			if s, ok := t[field].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}
