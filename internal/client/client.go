// Package client provides a REST client for the document search backend's admin API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/raphaelgruber/onyx-admin/internal/metrics"
)

// UnknownErrorMessage is shown when a failure carries no backend detail.
const UnknownErrorMessage = "An unknown error occurred"

// Client is a JSON-over-HTTP client for the backend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	apiKey    string
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *metrics.Collector
	transport http.RoundTripper
}

// WithAPIKey sends the key as a bearer token on every request.
func WithAPIKey(key string) Option {
	return func(o *clientOptions) { o.apiKey = key }
}

// WithTimeout sets the per-request timeout (default 30s).
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithLogger logs every request through the given logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// WithMetrics records request timings in the collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *clientOptions) { o.metrics = c }
}

// WithTransport replaces the underlying round tripper (tests).
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.transport = rt }
}

// New creates a client for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	o := clientOptions{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	next := o.transport
	if next == nil {
		next = http.DefaultTransport
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  o.apiKey,
		httpClient: &http.Client{
			Timeout:   o.timeout,
			Transport: newLoggingTransport(next, o.logger, o.metrics),
		},
	}
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	// Detail is the backend's {"detail": ...} message, empty if absent.
	Detail string
	// Body is the raw response text.
	Body string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Text())
}

// Text returns the detail if the backend sent one, else the raw body.
func (e *APIError) Text() string {
	if e.Detail != "" {
		return e.Detail
	}
	return strings.TrimSpace(e.Body)
}

// DetailOf returns the backend detail carried by err verbatim, or
// UnknownErrorMessage when err is a transport failure or has no detail.
func DetailOf(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return UnknownErrorMessage
}

// TextOf is like DetailOf but falls back to the raw response text.
func TextOf(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if t := apiErr.Text(); t != "" {
			return t
		}
	}
	return UnknownErrorMessage
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Do sends a request and returns the response body. body may be nil, raw
// JSON ([]byte or json.RawMessage), or any value to be JSON-encoded.
func (c *Client) Do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	case json.RawMessage:
		reader = bytes.NewReader(b)
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Detail:     parseDetail(data),
			Body:       string(data),
		}
	}

	return data, nil
}

// parseDetail extracts the detail field of an error payload. FastAPI sends a
// string for handled errors and a list of {msg} objects for validation errors.
func parseDetail(data []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}

	if string(payload.Detail) == "null" {
		return ""
	}
	return string(payload.Detail)
}
