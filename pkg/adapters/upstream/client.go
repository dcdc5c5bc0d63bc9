// Package upstream submits completed flows to the ledger service over HTTP.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/aretw0/ledgerchat/pkg/ports"
)

// Defaults for Client.
const (
	DefaultTimeout       = 10 * time.Second
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 500 * time.Millisecond
)

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 512

// Client implements ports.Upstream against the ledger HTTP API.
// Each flow is posted to {baseURL}/flows/{flow_id}.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	attempts   int
	delay      time.Duration
	logger     *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRetry sets the attempt budget and the fixed delay between attempts.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
		if delay >= 0 {
			c.delay = delay
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid upstream url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid upstream url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		attempts:   DefaultRetryAttempts,
		delay:      DefaultRetryDelay,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ ports.Upstream = (*Client)(nil)

// statusError is a non-2xx response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code >= 500 || e.code == http.StatusTooManyRequests
}

// decodeError is a 2xx response whose body is not JSON.
type decodeError struct {
	err error
}

func (e *decodeError) Error() string {
	return "failed to decode response: " + e.err.Error()
}

func (e *decodeError) Unwrap() error {
	return e.err
}

// Submit posts sub and returns the decoded response body, whatever its JSON
// shape. Transport errors and 5xx responses are retried within the fixed
// budget with the same Idempotency-Key. A 2xx is never retried, even when its
// body cannot be decoded. Failures are *domain.SystemError with service "api".
func (c *Client) Submit(ctx context.Context, sub ports.Submission) (any, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, c.fail(sub, fmt.Errorf("failed to marshal submission: %w", err))
	}
	key := sub.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	endpoint := c.baseURL.JoinPath("flows", sub.FlowID).String()

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		resp, err := c.post(ctx, endpoint, body, sub.Token, key)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			break
		}
		var de *decodeError
		if errors.As(err, &de) {
			break
		}
		if ctx.Err() != nil || attempt == c.attempts {
			break
		}
		c.logger.WarnContext(ctx, "upstream submit failed, retrying",
			"flow", sub.FlowID, "attempt", attempt, "err", err)

		if !c.wait(ctx) {
			lastErr = ctx.Err()
			break
		}
	}
	return nil, c.fail(sub, lastErr)
}

// wait sleeps for the retry delay. It returns false if ctx ends first.
func (c *Client) wait(ctx context.Context) bool {
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte, token, key string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Idempotency-Key", key)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(raw))}
	}

	var out any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &decodeError{err: err}
	}
	return out, nil
}

func (c *Client) fail(sub ports.Submission, err error) error {
	code := domain.CodeAPIRequest
	var netErr interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		code = domain.CodeAPITimeout
	}
	return &domain.SystemError{Code: code, Service: domain.ServiceAPI, Action: "submit " + sub.FlowID, Err: err}
}
