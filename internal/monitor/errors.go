package monitor

import (
	"errors"
	"fmt"
)

var (
	// ErrReconnectExhausted means the supervisor burned through its retry
	// budget. Terminal: the engine stops and an external supervisor must
	// restart the process.
	ErrReconnectExhausted = errors.New("monitor: reconnect attempts exhausted")

	// ErrAllSubscriptionsFailed means not a single channel could be bound.
	ErrAllSubscriptionsFailed = errors.New("monitor: all channel subscriptions failed")

	// ErrNotStarted is returned by operations that need a running engine.
	ErrNotStarted = errors.New("monitor: engine not started")
)

// PartialSubscriptionError reports that some, but not all, channels were
// bound. Non-fatal: the engine keeps running with the successful subset.
type PartialSubscriptionError struct {
	Bound  int
	Failed int
}

func (e *PartialSubscriptionError) Error() string {
	return fmt.Sprintf("monitor: %d of %d channel subscriptions failed", e.Failed, e.Bound+e.Failed)
}
