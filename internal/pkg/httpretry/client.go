// Package httpretry wraps outbound HTTP calls to ZeroBounce and OpenAI with
// bounded retries. Both APIs rate-limit with 429 and shed load with 5xx, so
// callers treat a RetryClient as a drop-in http.Client.
package httpretry

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"
)

// HTTPDoer executes a single HTTP request. *http.Client satisfies it, and
// so does *RetryClient, which lets tests substitute either layer.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryClient retries transient failures with exponential backoff and full
// jitter. Client errors other than 429 are returned to the caller untouched.
type RetryClient struct {
	inner      HTTPDoer
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewRetryClient wraps client with retry behavior. A nil client gets a
// default http.Client with a 30s timeout; maxRetries <= 0 means 3 retries
// after the initial attempt.
func NewRetryClient(client HTTPDoer, maxRetries int) *RetryClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &RetryClient{
		inner:      client,
		maxRetries: maxRetries,
		baseDelay:  time.Second,
		maxDelay:   30 * time.Second,
	}
}

// Do runs the request, retrying on network errors and on 429/5xx responses.
// Requests with a body must have GetBody set (http.NewRequest does this for
// common body types) so the body can be replayed on retry. The response from
// the final attempt is returned as-is so callers can read the error body.
func (rc *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		if err := req.Context().Err(); err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}

		if attempt > 0 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpretry: rewind request body: %w", err)
				}
				req.Body = body
			}
			if err := rc.wait(req, attempt); err != nil {
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, err
			}
		}

		resp, err := rc.inner.Do(req)
		if err != nil {
			// Context errors are terminal; anything else is treated as a
			// transient network failure.
			if req.Context().Err() != nil {
				return nil, err
			}
			lastErr = err
			if attempt == rc.maxRetries {
				return nil, lastErr
			}
			continue
		}

		if !retryableStatus(resp.StatusCode) || attempt == rc.maxRetries {
			return resp, nil
		}

		// Drain so the connection can be reused for the retry.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("httpretry: status %d", resp.StatusCode)
	}
}

// wait sleeps for the backoff delay, aborting early if the request context
// is canceled.
func (rc *RetryClient) wait(req *http.Request, attempt int) error {
	delay := rc.backoff(attempt)
	log.Printf("[HTTPRetry] attempt %d/%d for %s %s%s in %s",
		attempt, rc.maxRetries, req.Method, req.URL.Host, req.URL.Path, delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-req.Context().Done():
		return req.Context().Err()
	}
}

// backoff returns a random delay in (0, baseDelay*2^(attempt-1)] capped at
// maxDelay, with a 100ms floor.
func (rc *RetryClient) backoff(attempt int) time.Duration {
	ceiling := rc.baseDelay << (attempt - 1)
	if ceiling > rc.maxDelay || ceiling <= 0 {
		ceiling = rc.maxDelay
	}
	d := time.Duration(rand.Float64() * float64(ceiling))
	if d < 100*time.Millisecond {
		d = 100 * time.Millisecond
	}
	return d
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
