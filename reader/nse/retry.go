package nse

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"oiflow/config"
	"oiflow/logger"
)

// RetryPolicy decides how data requests are retried. It is a plain value
// consumed by the session; the fetch call sites carry no retry control flow
// of their own.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  int
	// Retryable holds the HTTP status codes worth another attempt.
	// Connection-level failures are always retried.
	Retryable map[int]bool
}

// NewRetryPolicy builds a policy from configuration with the standard
// transient status set.
func NewRetryPolicy(cfg config.RetryConfig) *RetryPolicy {
	multiplier := cfg.BackoffMultiplier
	if multiplier < 2 {
		multiplier = 2
	}
	return &RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
		Multiplier:  multiplier,
		Retryable: map[int]bool{
			http.StatusTooManyRequests:     true,
			http.StatusInternalServerError: true,
			http.StatusBadGateway:          true,
			http.StatusServiceUnavailable:  true,
			http.StatusGatewayTimeout:      true,
		},
	}
}

func (p *RetryPolicy) retryable(status int) bool {
	return p.Retryable[status]
}

// Do runs the request function until it returns a non-retryable outcome or
// attempts are exhausted. Responses with retryable statuses are drained and
// closed before the next attempt. Exhaustion yields a FetchExhaustedError.
func (p *RetryPolicy) Do(ctx context.Context, log *logger.Entry, url string, do func() (*http.Response, error)) (*http.Response, error) {
	delay := p.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		resp, err := do()
		if err == nil && !p.retryable(resp.StatusCode) {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("http status %s", resp.Status)
			resp.Body.Close()
		}

		if attempt == p.MaxAttempts {
			break
		}

		log.WithFields(logger.Fields{
			"attempt": attempt,
			"delay":   delay.String(),
			"url":     url,
		}).WithError(lastErr).Warn("request failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		delay *= time.Duration(p.Multiplier)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return nil, &FetchExhaustedError{URL: url, Attempts: p.MaxAttempts, Err: lastErr}
}
