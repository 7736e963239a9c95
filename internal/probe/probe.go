// Package probe performs single-shot reachability checks and TLS
// certificate inspection against monitored endpoints.
package probe

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// DefaultTimeout bounds a single reachability check.
const DefaultTimeout = 10 * time.Second

// Result is the verdict of one reachability check. A transport failure
// (timeout, DNS, refusal) is reported through Err, never as a Go error or a
// panic.
type Result struct {
	OK         bool
	StatusCode int
	Err        string
}

// Details returns the diagnostic string recorded on the component: the
// transport error if any, otherwise the observed status code.
func (r Result) Details() string {
	if r.Err != "" {
		return r.Err
	}
	if r.StatusCode != 0 {
		return strconv.Itoa(r.StatusCode)
	}
	return ""
}

// Checker issues HTTP reachability checks with no retry.
type Checker struct {
	client *http.Client
}

// NewChecker creates a checker with the given per-request timeout.
// A zero timeout falls back to DefaultTimeout.
func NewChecker(timeout time.Duration) *Checker {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Checker{
		client: &http.Client{Timeout: timeout},
	}
}

// Check performs a single GET against url. OK is true only if the request
// completes and either expect is zero (any 2xx counts) or the response code
// equals expect exactly.
func (c *Checker) Check(ctx context.Context, url string, expect int) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return Result{OK: false, Err: err.Error()}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{OK: false, Err: err.Error()}
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if expect != 0 {
		ok = resp.StatusCode == expect
	}
	return Result{OK: ok, StatusCode: resp.StatusCode}
}
