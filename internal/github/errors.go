package github

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	gh "github.com/google/go-github/v62/github"
)

// Remote failure kinds. Wrapped errors unwrap to these, so callers classify
// with errors.Is.
var (
	// ErrAuth is fatal to the whole run.
	ErrAuth = errors.New("authentication failed")

	// ErrRateLimited and ErrTransport are retried with bounded backoff
	// before being surfaced.
	ErrRateLimited = errors.New("rate limited")
	ErrTransport   = errors.New("transport failure")

	// Configuration mismatches, recorded per row; never retried.
	ErrNotFound        = errors.New("not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrFieldNotFound   = errors.New("project field not found")
)

// Fatal reports whether err must abort the whole run rather than one row.
func Fatal(err error) bool {
	return errors.Is(err, ErrAuth)
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransport)
}

// rateLimitError marks a rate-limited response and carries the server's
// requested wait when it sent one.
type rateLimitError struct {
	msg        string
	retryAfter time.Duration
}

func (e *rateLimitError) Error() string {
	if e.retryAfter > 0 {
		return fmt.Sprintf("%s: %s (retry after %s)", ErrRateLimited, e.msg, e.retryAfter)
	}
	return fmt.Sprintf("%s: %s", ErrRateLimited, e.msg)
}

func (e *rateLimitError) Unwrap() error { return ErrRateLimited }

// retryAfterHint extracts the server-requested wait from a rate-limit error.
func retryAfterHint(err error) (time.Duration, bool) {
	var rle *rateLimitError
	if errors.As(err, &rle) && rle.retryAfter > 0 {
		return rle.retryAfter, true
	}
	return 0, false
}

// classifyREST maps a go-github call failure to the package's error kinds.
func classifyREST(resp *gh.Response, err error) error {
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &rateLimitError{msg: "secondary rate limit", retryAfter: abuseErr.GetRetryAfter()}
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		wait := time.Until(rateErr.Rate.Reset.Time)
		if wait < 0 {
			wait = 0
		}
		return &rateLimitError{msg: "rate limit exhausted", retryAfter: wait}
	}

	if resp != nil {
		if kind := classifyStatus(resp.StatusCode, resp.Header); kind != nil {
			return fmt.Errorf("%w: %v", kind, err)
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: %v", ErrTransport, err)
		}
		// Other client errors (422 validation and friends) are permanent.
		return err
	}

	// No HTTP response at all: the request never completed.
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

// classifyStatus maps an HTTP status to an error kind, or nil when the
// status carries no special meaning here.
func classifyStatus(status int, header http.Header) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrAuth
	case http.StatusForbidden:
		if header.Get("X-RateLimit-Remaining") == "0" {
			return ErrRateLimited
		}
		return ErrAuth
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// classifyHTTP maps a non-2xx GraphQL response to the package's error kinds.
// GitHub uses 403 with X-RateLimit-Remaining: 0, or 429 with Retry-After.
func classifyHTTP(resp *http.Response, body []byte) error {
	kind := classifyStatus(resp.StatusCode, resp.Header)

	if errors.Is(kind, ErrRateLimited) {
		var wait time.Duration
		if s := resp.Header.Get("Retry-After"); s != "" {
			if seconds, err := strconv.Atoi(s); err == nil {
				wait = time.Duration(seconds) * time.Second
			}
		}
		return &rateLimitError{msg: fmt.Sprintf("status %d", resp.StatusCode), retryAfter: wait}
	}

	if kind != nil {
		return fmt.Errorf("%w: status %d: %s", kind, resp.StatusCode, truncateBody(body))
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d: %s", ErrTransport, resp.StatusCode, truncateBody(body))
	}
	return fmt.Errorf("API error: status %d: %s", resp.StatusCode, truncateBody(body))
}

// truncateBody keeps error messages readable when the API returns a page of
// HTML or a large error document.
func truncateBody(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
