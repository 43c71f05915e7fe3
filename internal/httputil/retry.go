// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers for the extraction backend.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"
)

// RetryPolicy is an explicit retry configuration consumed by DoWithRetry.
// Modeled as a value so orchestration code passes policy, not control
// flow.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BaseDelay is the first backoff duration; it doubles each attempt.
	BaseDelay time.Duration
}

// DefaultRetryPolicy retries rate-limited calls 5 times starting at 10s:
// 10s, 20s, 40s, 80s, 160s.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 5, BaseDelay: 10 * time.Second}

// normalized fills zero fields from the default policy.
func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = DefaultRetryPolicy.MaxRetries
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultRetryPolicy.BaseDelay
	}
	return p
}

// Delay returns the backoff before retry attempt (0-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * p.BaseDelay
}

// DoWithRetry executes an HTTP request and retries on HTTP 429 (Too Many
// Requests) per the policy. On each 429 the response body is drained and
// closed before sleeping. If the context is cancelled during a backoff
// wait the function returns ctx.Err(). After exhausting retries the last
// 429 response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, policy RetryPolicy) (*http.Response, error) {
	policy = policy.normalized()

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		// Exhausted retries: return the 429 response as-is.
		if attempt >= policy.MaxRetries {
			return resp, nil
		}

		// Drain and close the body before retrying.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(policy.Delay(attempt)):
		}
	}
}
