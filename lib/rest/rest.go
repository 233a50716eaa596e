// Package rest issues authenticated HTTP requests against the Deployment
// Manager API, retrying transient failures with exponential backoff.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRetries = 3
	maxBackoffUnit = 30 // cap, in backoff units
	userAgent      = "nosana-deployments-go/0.1.0"
)

// APIError is any non-2xx response from the Deployment Manager, or a network
// failure that survived the retry policy. It carries the status code and the
// parsed error body for diagnostics. Status is zero for network-level
// failures.
type APIError struct {
	Status int
	Method string
	Path   string
	Body   string
	Err    error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("api %s %s: %v", e.Method, e.Path, e.Err)
	}

	return fmt.Sprintf("api %s %s: %d: %s", e.Method, e.Path, e.Status, e.Body)
}

func (e *APIError) Unwrap() error { return e.Err }

// HeaderSource yields per-request headers. Implemented by lib/auth; the
// headers are regenerated on every attempt because they carry a timestamp.
type HeaderSource interface {
	Headers() (map[string]string, error)
}

// Client is an authenticated HTTP client with bounded retry.
type Client struct {
	base    string
	hc      *http.Client
	auth    HeaderSource
	retries int
	unit    time.Duration // backoff unit, one second outside tests
	log     *zap.Logger
}

// Option configures the client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.hc.Timeout = d }
}

// WithRetries sets how many times a transient failure is retried.
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithBackoffUnit scales the backoff schedule. Tests use a small unit to
// keep the retry path fast.
func WithBackoffUnit(d time.Duration) Option {
	return func(c *Client) { c.unit = d }
}

// New returns a client for the API at base.
func New(base string, auth HeaderSource, opts ...Option) *Client {
	c := &Client{
		base:    base,
		hc:      &http.Client{Timeout: defaultTimeout},
		auth:    auth,
		retries: defaultRetries,
		unit:    time.Second,
		log:     zap.NewNop(),
	}

	for _, o := range opts {
		o(c)
	}

	return c
}

// Close releases the underlying connection pool. The client must not be
// used afterwards.
func (c *Client) Close() {
	c.hc.CloseIdleConnections()
}

// Request performs an authenticated call and decodes the JSON response into
// out when out is non-nil. 4xx responses are returned immediately as an
// APIError; 5xx, 429 and network failures are retried with exponential
// backoff before surfacing as an APIError.
func (c *Client) Request(ctx context.Context, method, path string, body, out any) error {
	var payload []byte

	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			retryTotal.Inc()

			if err := c.sleep(ctx, attempt-1); err != nil {
				return err
			}
		}

		status, respBody, err := c.do(ctx, method, path, payload)
		if err != nil {
			// network-level failure, same policy as 5xx
			lastErr = &APIError{Method: method, Path: path, Err: err}
			c.log.Debug("request failed", zap.String("method", method), zap.String("path", path),
				zap.Int("attempt", attempt), zap.Error(err))

			continue
		}

		if status < 300 {
			if out == nil || len(respBody) == 0 {
				return nil
			}

			if err := json.Unmarshal(respBody, out); err != nil {
				return &APIError{Status: status, Method: method, Path: path, Err: fmt.Errorf("decode response: %w", err)}
			}

			return nil
		}

		apiErr := &APIError{Status: status, Method: method, Path: path, Body: string(respBody)}

		if status >= 500 || status == http.StatusTooManyRequests {
			lastErr = apiErr
			c.log.Debug("retryable status", zap.String("method", method), zap.String("path", path),
				zap.Int("status", status), zap.Int("attempt", attempt))

			continue
		}

		return apiErr // 4xx, never retried
	}

	return lastErr
}

// do runs one attempt with freshly generated auth headers.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return 0, nil, err
	}

	headers, err := c.auth.Headers()
	if err != nil {
		return 0, nil, err
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	req.Header.Set("User-Agent", userAgent)

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		reqTotal.WithLabelValues(method, "error").Inc()

		return 0, nil, err
	}
	defer resp.Body.Close()

	reqTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	return resp.StatusCode, body, nil
}

// sleep waits 2^attempt backoff units plus a little jitter, capped at 30
// units, honoring context cancellation.
func (c *Client) sleep(ctx context.Context, attempt int) error {
	units := int64(1) << uint(attempt)
	if units > maxBackoffUnit {
		units = maxBackoffUnit
	}

	jitter := time.Duration(rand.Int63n(int64(c.unit)/2 + 1))

	d := time.Duration(units)*c.unit + jitter
	if d > maxBackoffUnit*c.unit {
		d = maxBackoffUnit * c.unit
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
