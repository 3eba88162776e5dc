package transport

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAuthExpired means the session credential is invalid. Fatal: the
	// credential must be refreshed externally, never retried in-process.
	ErrAuthExpired = errors.New("transport: session credential expired or invalid")

	// ErrNetworkUnavailable is a transport-level connection failure,
	// retryable within the supervisor's backoff budget.
	ErrNetworkUnavailable = errors.New("transport: network unavailable")

	// ErrNoMatchingChannels is returned by discovery when the keyword filter
	// matched nothing. Non-fatal; the caller decides whether to abort.
	ErrNoMatchingChannels = errors.New("transport: no matching channels")
)

// RateLimitedError is the platform's flood-control signal: the caller must
// wait before issuing further requests. It replaces the exception-driven
// throttling flow with an explicit variant carrying the mandated delay.
type RateLimitedError struct {
	Wait time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("transport: rate limited, wait %s", e.Wait)
}

// AsRateLimited unwraps err as a *RateLimitedError if it is one.
func AsRateLimited(err error) (*RateLimitedError, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}
