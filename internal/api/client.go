package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds every request so a non-responding backend cannot
// hang the caller indefinitely.
const DefaultTimeout = 15 * time.Second

// Client executes requests against a resolved base URL and normalizes
// responses into Envelopes. It carries no credentials itself; callers attach
// them per request via headers.
type Client struct {
	base string
	http *http.Client
	log  *slog.Logger
}

// NewClient creates a client for the given resolved base URL
// (host plus path prefix, no trailing slash required).
func NewClient(base string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimSuffix(base, "/"),
		http: &http.Client{Timeout: DefaultTimeout},
		log:  slog.Default().With("component", "api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger overrides the client logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// Base returns the resolved base URL the client was built with.
func (c *Client) Base() string {
	return c.base
}

// URL joins the base URL with a path and optional query parameters.
func (c *Client) URL(path string, query url.Values) string {
	u := c.base + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Do executes one request and returns the HTTP status plus the parsed
// envelope. A nil error means the transport round-trip completed; callers
// decide what the status and envelope mean (404 path fallback, 401 credential
// invalidation) before converting via EnvelopeError. Transport failures are
// returned as *TransportError.
func (c *Client) Do(ctx context.Context, method, path string, headers http.Header, payload any) (Envelope, int, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, 0, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	reqURL := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		reqURL = c.URL(path, nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return Envelope{}, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.New().String())
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed", "method", method, "url", reqURL, "error", err)
		return Envelope{}, 0, &TransportError{Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return Envelope{}, 0, &TransportError{Err: err}
	}

	env := decodeEnvelope(raw)
	c.log.Debug("request completed",
		"method", method,
		"url", reqURL,
		"status", res.StatusCode,
		"success", env.Success,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return env, res.StatusCode, nil
}

// DecodeData unmarshals an envelope's data payload into out. An empty data
// field is left as the zero value, not an error.
func DecodeData(env Envelope, out any) error {
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
