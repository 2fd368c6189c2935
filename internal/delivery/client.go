// Package delivery posts export payloads to webhook targets with bounded
// retries and exponential backoff.
package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// Kind classifies a delivery failure.
type Kind string

// Failure kinds carried by Error. Network, timeout, and server-error
// failures are the retryable ones; a client error spends a single attempt.
const (
	KindNetwork     Kind = "network"
	KindTimeout     Kind = "timeout"
	KindServerError Kind = "server_error"
	KindClientError Kind = "client_error"
)

// Error is the terminal outcome of a failed delivery. It carries the kind of
// the last failure and the number of attempts consumed. The client never
// panics past this boundary; the task executor converts it into a terminal
// task state.
type Error struct {
	Kind     Kind
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("webhook delivery failed (%s) after %d attempt(s): %v",
		e.Kind, e.Attempts, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// ErrorKind implements the failure-kind convention consumed by the task
// executor.
func (e *Error) ErrorKind() string { return "delivery_" + string(e.Kind) }

// Config holds the retry and timeout policy for webhook deliveries.
type Config struct {
	// MaxAttempts bounds the total number of HTTP attempts per delivery.
	MaxAttempts int

	// RetryWaitMin is the delay before the first retry; it doubles on each
	// subsequent retry up to RetryWaitMax.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// Timeout bounds each individual attempt.
	Timeout time.Duration
}

// DefaultConfig returns the production delivery policy: 3 attempts, backoff
// starting at 1s and doubling, 10s per attempt.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		RetryWaitMin: 1 * time.Second,
		RetryWaitMax: 30 * time.Second,
		Timeout:      10 * time.Second,
	}
}

// Client posts export payloads to webhook targets. Only transient failures
// (transport errors and 5xx responses) are retried; a 4xx response fails
// immediately since retrying would not change the outcome.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a delivery client with the given policy. Zero-valued
// config fields fall back to the defaults.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	defaults := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.RetryWaitMin <= 0 {
		cfg.RetryWaitMin = defaults.RetryWaitMin
	}
	if cfg.RetryWaitMax <= 0 {
		cfg.RetryWaitMax = defaults.RetryWaitMax
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = cfg.Timeout

	return &Client{cfg: cfg, http: hc, logger: logger}
}

// Deliver posts body as JSON to targetURL. onAttempt, if non-nil, fires
// before each attempt with the 1-based attempt number. The returned count is
// the number of attempts actually made; on failure the error is always a
// *Error.
func (c *Client) Deliver(ctx context.Context, targetURL string, body []byte, onAttempt func(attempt int)) (int, error) {
	// A fresh retryablehttp.Client per call keeps the attempt hooks bound
	// to this delivery while sharing the pooled transport underneath.
	rc := retryablehttp.NewClient()
	rc.HTTPClient = c.http
	rc.RetryMax = c.cfg.MaxAttempts - 1
	rc.RetryWaitMin = c.cfg.RetryWaitMin
	rc.RetryWaitMax = c.cfg.RetryWaitMax
	rc.Backoff = retryablehttp.DefaultBackoff
	rc.Logger = nil

	var lastStatus int
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			// The terminal error must reflect the last failure, so an
			// earlier 5xx status no longer counts once an attempt dies in
			// transport.
			lastStatus = 0
			return true, nil
		}
		lastStatus = resp.StatusCode
		return resp.StatusCode >= http.StatusInternalServerError, nil
	}

	attempts := 0
	rc.RequestLogHook = func(_ retryablehttp.Logger, _ *http.Request, attempt int) {
		attempts = attempt + 1
		if onAttempt != nil {
			onAttempt(attempts)
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(body))
	if err != nil {
		return 0, &Error{Kind: KindNetwork, Attempts: 0, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := rc.Do(req)
	if err != nil {
		return attempts, &Error{
			Kind:     classifyFailure(err, lastStatus),
			Attempts: attempts,
			Err:      err,
		}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusBadRequest {
		kind := KindClientError
		if resp.StatusCode >= http.StatusInternalServerError {
			kind = KindServerError
		}
		return attempts, &Error{
			Kind:     kind,
			Attempts: attempts,
			Err:      fmt.Errorf("webhook rejected payload with status %d", resp.StatusCode),
		}
	}

	c.logger.Debug("webhook delivery succeeded",
		"status", resp.StatusCode,
		"attempts", attempts,
		"payload_bytes", len(body))
	return attempts, nil
}

// classifyFailure maps the terminal error from the retry loop to a failure
// kind. lastStatus is the status of the most recent response, if any; it
// distinguishes an exhausted 5xx budget from a pure transport failure.
func classifyFailure(err error, lastStatus int) Kind {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if lastStatus >= http.StatusInternalServerError {
		return KindServerError
	}
	return KindNetwork
}
