// Package retry decorates a source connector with backoff on transient
// upstream failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"jobwatch/internal/model"
)

// Connector wraps another connector and retries transient failures with
// exponential backoff and jitter.
type Connector struct {
	inner      model.Connector
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// New wraps a connector with retry logic. maxRetries is the number of
// additional attempts after the first failure; baseDelay is the delay before
// the first retry, doubled each time.
func New(inner model.Connector, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Connector {
	return &Connector{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

func (c *Connector) Name() string {
	return c.inner.Name()
}

// Fetch attempts the inner fetch, retrying on transient errors.
func (c *Connector) Fetch(ctx context.Context, maxPages int) ([]model.Listing, error) {
	listings, err := c.inner.Fetch(ctx, maxPages)
	if err == nil {
		return listings, nil
	}
	if !isRetryable(err) {
		return nil, err
	}

	lastErr := err
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		delay := c.backoffDelay(attempt, lastErr)

		c.logger.Warn("retrying after transient error",
			"source", c.inner.Name(),
			"attempt", attempt,
			"max_retries", c.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		listings, err = c.inner.Fetch(ctx, maxPages)
		if err == nil {
			return listings, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// A Retry-After duration from an HTTP 429 takes precedence.
func (c *Connector) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// isRetryable reports whether the error is a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == 429 {
			return true
		}
		if httpErr.StatusCode >= 500 {
			return true
		}
		return false
	}

	// Non-HTTP errors (network, DNS) are worth retrying.
	return true
}
