package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// maxBodyBytes caps feed responses; the largest real payload (a full hotspot
// dump) is under 10 MB.
const maxBodyBytes = 32 << 20

// Client performs one-shot GETs against an upstream feed with a fixed per-call
// deadline and a circuit breaker. Each feed adapter owns its own Client so an
// outage on one feed cannot trip the breaker for another.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	timeout    time.Duration
	authHeader string
	authValue  string
	logger     *slog.Logger
}

// NewClient creates a feed client. name labels the circuit breaker in logs.
// authHeader/authValue are optional; pass empty strings for unauthenticated
// feeds.
func NewClient(name string, timeout time.Duration, authHeader, authValue string, logger *slog.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		breaker:    cb,
		timeout:    timeout,
		authHeader: authHeader,
		authValue:  authValue,
		logger:     logger,
	}
}

// Get fetches a URL and returns the response body. All failures come back as
// *FetchError; the caller never needs to classify transport errors itself.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.get(ctx, url)
	})
	if err == nil {
		return body, nil
	}

	var fe *FetchError
	if errors.As(err, &fe) {
		return nil, fe
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		// Open breaker: fail fast without a network call. Retryable so the
		// next scheduled cycle probes again once the breaker half-opens.
		return nil, &FetchError{Code: CodeBreaker, Retryable: true, Err: err}
	}
	return nil, &FetchError{Code: CodeNetwork, Retryable: true, Err: err}
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Code: CodeNetwork, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.authHeader != "" {
		req.Header.Set(c.authHeader, c.authValue)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		code := CodeNetwork
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			code = CodeTimeout
		}
		return nil, &FetchError{Code: code, Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, httpError(resp.StatusCode, fmt.Errorf("%s: %s", url, snippet))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{Code: CodeNetwork, Retryable: true, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
